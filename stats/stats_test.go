package stats

import (
	"context"
	"testing"
	"time"

	"github.com/Seednode/aiornot/engine"
	"github.com/Seednode/aiornot/store"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		scores []int
		score  int
		want   int
		ok     bool
	}{
		{[]int{3, 5, 7, 9}, 6, 50, true},
		{[]int{3, 5, 7, 9}, 3, 0, true},
		{[]int{3, 5, 7, 9}, 10, 100, true},
		{[]int{1, 2, 3}, 3, 67, true},
		{nil, 5, 0, false},
	}

	for _, tc := range tests {
		got, ok := Percentile(tc.scores, tc.score)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Percentile(%v, %d) = %d, %v; expected %d, %v", tc.scores, tc.score, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRecorderPercentileExcludesCurrentGame(t *testing.T) {
	ctx := context.Background()
	r := New(store.NewMemory(), time.Second, nil)

	if _, ok := r.Percentile(ctx, 5); ok {
		t.Fatal("expected no percentile without history")
	}

	for _, score := range []int{3, 5, 7, 9} {
		r.RecordGame(ctx, engine.GameSummary{Mode: engine.Normal, Score: score, Total: 10, SuccessRate: float64(score * 10)})
	}

	pct, ok := r.Percentile(ctx, 6)
	if !ok || pct != 50 {
		t.Fatalf("expected 50th percentile, got %d (%v)", pct, ok)
	}
}

func TestRecordGameLogsEvent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	r := New(m, time.Second, nil)

	r.GameStarted(ctx, engine.Normal, "p1")
	r.RecordGame(ctx, engine.GameSummary{Player: "p1", Mode: engine.Normal, Score: 8, Total: 10, SuccessRate: 80})

	events := m.Events()
	if len(events) != 2 || events[0].Name != "game_start" || events[1].Name != "game_complete" {
		t.Fatalf("unexpected events %+v", events)
	}

	if events[0].Attrs.Text("player") != "p1" || events[1].Attrs.Text("player") != "p1" {
		t.Fatalf("expected player on both events, got %v and %v", events[0].Attrs, events[1].Attrs)
	}

	if events[1].Attrs.Int("score") != 8 {
		t.Fatalf("unexpected game_complete attrs %v", events[1].Attrs)
	}
}

func TestSinglePairGameLoggedButNotRanked(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	r := New(m, time.Second, nil)

	r.GameStarted(ctx, engine.SinglePair, "")
	r.RecordGame(ctx, engine.GameSummary{Mode: engine.SinglePair, Score: 1, Total: 1, SuccessRate: 100})

	events := m.Events()
	if len(events) != 2 || events[1].Name != "game_complete" {
		t.Fatalf("expected game_complete for a single pair game, got %+v", events)
	}

	if events[1].Attrs.Text("mode") != engine.SinglePair.String() {
		t.Fatalf("unexpected mode %v", events[1].Attrs)
	}

	if _, ok := events[1].Attrs["player"]; ok {
		t.Fatal("anonymous games carry no player")
	}

	results, err := m.QueryAll(ctx, gameResults, store.Filter{})
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}

	if len(results) != 0 {
		t.Fatalf("single pair games are not ranked, got %v", results)
	}

	if _, ok := r.Percentile(ctx, 1); ok {
		t.Fatal("expected no percentile from single pair games")
	}
}

func TestTopRealImages(t *testing.T) {
	ctx := context.Background()
	r := New(store.NewMemory(), time.Second, nil)

	// real 1: judged real 3 of 4 times, real 2: 1 of 4, real 3: 2 of 4, real 4: 1 of 4
	judged := map[int][]bool{
		1: {true, true, true, false},
		2: {true, false, false, false},
		3: {true, true, false, false},
		4: {false, false, false, true},
	}

	for idx, rounds := range judged {
		for _, correct := range rounds {
			r.RecordTrial(ctx, engine.Real, idx, correct)
		}
	}

	r.RecordTrial(ctx, engine.AI, 1, false)

	top, err := r.TopRealImages(ctx, 3)
	if err != nil {
		t.Fatalf("TopRealImages: %v", err)
	}

	if len(top) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(top))
	}

	want := []int{2, 4, 3}
	for i, idx := range want {
		if top[i].Index != idx {
			t.Fatalf("expected order %v, got %+v", want, top)
		}
	}

	if top[0].Seen != 4 || top[0].Correct != 1 || top[0].RealRate != 25 || top[0].MistakenRate() != 75 {
		t.Fatalf("unexpected first entry %+v", top[0])
	}
}

func TestRecordTrialCounts(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	r := New(m, time.Second, nil)

	r.RecordTrial(ctx, engine.AI, 9, true)
	r.RecordTrial(ctx, engine.AI, 9, false)

	doc, ok, err := m.GetByKey(ctx, "image_stats", "ai_9")
	if err != nil || !ok {
		t.Fatalf("GetByKey: %v (found=%v)", err, ok)
	}

	if doc.Int("seen") != 2 || doc.Int("correct") != 1 {
		t.Fatalf("unexpected counters %v", doc)
	}
}
