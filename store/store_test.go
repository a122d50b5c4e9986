package store

import (
	"context"
	"path/filepath"
	"testing"
)

// exerciseStore runs the five verbs against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	ctx := context.Background()

	if err := s.LogEvent(ctx, "game_start", Fields{"mode": "normal"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementCounter(ctx, "image_stats", "real_4", "seen", 1); err != nil {
			t.Fatalf("IncrementCounter: %v", err)
		}
	}

	if err := s.IncrementCounter(ctx, "image_stats", "real_4", "correct", 1); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}

	if err := s.IncrementCounter(ctx, "image_stats", "ai_4", "seen", 1); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}

	doc, ok, err := s.GetByKey(ctx, "image_stats", "real_4")
	if err != nil || !ok {
		t.Fatalf("GetByKey: %v (found=%v)", err, ok)
	}

	if doc.Int("seen") != 3 || doc.Int("correct") != 1 {
		t.Fatalf("unexpected counters %v", doc)
	}

	if _, ok, err := s.GetByKey(ctx, "image_stats", "real_99"); err != nil || ok {
		t.Fatalf("expected no document, got found=%v err=%v", ok, err)
	}

	reals, err := s.QueryAll(ctx, "image_stats", Filter{KeyPrefix: "real_"})
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}

	if len(reals) != 1 || reals[0].Text("id") != "real_4" {
		t.Fatalf("expected only real_4, got %v", reals)
	}

	for _, score := range []int{3, 7, 7} {
		id, err := s.AddRecord(ctx, "game_results", Fields{"score": score, "total_questions": 10})
		if err != nil {
			t.Fatalf("AddRecord: %v", err)
		}

		if id == "" {
			t.Fatal("expected a generated id")
		}
	}

	all, err := s.QueryAll(ctx, "game_results", Filter{})
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}

	if len(all) != 3 {
		t.Fatalf("expected 3 results, got %d", len(all))
	}

	for _, res := range all {
		if res.Int("timestamp") == 0 {
			t.Fatalf("expected a timestamp on %v", res)
		}
	}

	sevens, err := s.QueryAll(ctx, "game_results", Filter{Field: "score", Equals: 7})
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}

	if len(sevens) != 2 {
		t.Fatalf("expected 2 games scoring 7, got %d", len(sevens))
	}

	empty, err := s.QueryAll(ctx, "nothing_here", Filter{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected an empty collection, got %v, %v", empty, err)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	exerciseStore(t, m)

	events := m.Events()
	if len(events) != 1 || events[0].Name != "game_start" || events[0].Attrs.Text("mode") != "normal" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "aiornot.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	exerciseStore(t, s)

	n, err := s.CountEvents(ctx, "game_start")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 game_start event, got %d, %v", n, err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	doc, ok, err := reopened.GetByKey(ctx, "image_stats", "real_4")
	if err != nil || !ok || doc.Int("seen") != 3 {
		t.Fatalf("counters did not survive a reopen: %v %v %v", doc, ok, err)
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), "  "); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "memory", "", "")
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}

	if _, ok := s.(*Memory); !ok {
		t.Fatalf("expected *Memory, got %T", s)
	}

	if _, err := Open(ctx, "redis", "", ""); err == nil {
		t.Fatal("expected an error for redis without an address")
	}

	if _, err := Open(ctx, "mongo", "", ""); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestFieldsInt(t *testing.T) {
	f := Fields{"a": 3, "b": int64(4), "c": 5.0, "d": "6", "e": "x"}

	for name, want := range map[string]int64{"a": 3, "b": 4, "c": 5, "d": 6, "e": 0, "missing": 0} {
		if got := f.Int(name); got != want {
			t.Fatalf("%s: expected %d, got %d", name, want, got)
		}
	}
}

func TestRedisKeysAndDecode(t *testing.T) {
	r := NewRedis(nil, "aiornot")

	if got := r.docKey("image_stats", "real_4"); got != "aiornot:image_stats:real_4" {
		t.Fatalf("unexpected doc key %q", got)
	}

	if got := r.indexKey("image_stats"); got != "aiornot:image_stats:_keys" {
		t.Fatalf("unexpected index key %q", got)
	}

	doc := decodeHash(map[string]string{"seen": "12", "rate": "41.5", "mode": "normal"})
	if doc["seen"] != int64(12) || doc["rate"] != 41.5 || doc["mode"] != "normal" {
		t.Fatalf("unexpected decoded hash %v", doc)
	}
}
