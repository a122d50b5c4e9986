/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package stats turns game events into store documents and reads back the
// percentile and leaderboard figures.
package stats

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/aiornot/engine"
	"github.com/Seednode/aiornot/store"
	"go.uber.org/zap"
)

const (
	imageStats  = "image_stats"
	gameResults = "game_results"
)

// ImageStat is one image's running tally. Correct counts correct
// identifications, so for a real image it means "judged real".
type ImageStat struct {
	Index    int     `json:"id"`
	Seen     int64   `json:"seen"`
	Correct  int64   `json:"correct"`
	RealRate float64 `json:"real_rate"`
}

// MistakenRate is the share of viewings where a real image was picked as AI.
func (s ImageStat) MistakenRate() float64 {
	return round1(100 - s.RealRate)
}

type Recorder struct {
	store   store.Store
	timeout time.Duration
	log     *zap.Logger
}

func New(s store.Store, timeout time.Duration, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}

	return &Recorder{
		store:   s,
		timeout: timeout,
		log:     log.With(zap.String("component", "stats")),
	}
}

func (r *Recorder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, r.timeout)
}

func (r *Recorder) GameStarted(ctx context.Context, mode engine.Mode, player string) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	fields := store.Fields{"mode": mode.String()}
	if player != "" {
		fields["player"] = player
	}

	if err := r.store.LogEvent(ctx, "game_start", fields); err != nil {
		r.log.Warn("log game_start", zap.Error(err))
	}
}

func statKey(category engine.Category, index int) string {
	return string(category) + "_" + strconv.Itoa(index)
}

// RecordTrial counts one viewing of an image and whether it was identified correctly.
func (r *Recorder) RecordTrial(ctx context.Context, category engine.Category, index int, correct bool) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := statKey(category, index)

	if err := r.store.IncrementCounter(ctx, imageStats, key, "seen", 1); err != nil {
		r.log.Warn("record image trial", zap.String("image", key), zap.Error(err))

		return
	}

	var delta int64
	if correct {
		delta = 1
	}

	if err := r.store.IncrementCounter(ctx, imageStats, key, "correct", delta); err != nil {
		r.log.Warn("record image trial", zap.String("image", key), zap.Error(err))
	}
}

// RecordGame logs every finished game. Only normal games are kept in
// game_results, so one-pair challenges never skew the percentile.
func (r *Recorder) RecordGame(ctx context.Context, game engine.GameSummary) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	fields := store.Fields{
		"score":           game.Score,
		"total_questions": game.Total,
		"success_rate":    game.SuccessRate,
		"mode":            game.Mode.String(),
	}
	if game.Player != "" {
		fields["player"] = game.Player
	}

	if err := r.store.LogEvent(ctx, "game_complete", fields); err != nil {
		r.log.Warn("log game_complete", zap.Error(err))
	}

	if game.Mode != engine.Normal {
		return
	}

	if _, err := r.store.AddRecord(ctx, gameResults, fields); err != nil {
		r.log.Warn("save game result", zap.Error(err))
	}
}

// Percentile is the share of recorded games that scored strictly lower,
// rounded to a whole percent. It reports false when nothing can be computed.
func (r *Recorder) Percentile(ctx context.Context, score int) (int, bool) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	results, err := r.store.QueryAll(ctx, gameResults, store.Filter{})
	if err != nil {
		r.log.Warn("query game results", zap.Error(err))

		return 0, false
	}

	scores := make([]int, 0, len(results))
	for _, res := range results {
		scores = append(scores, int(res.Int("score")))
	}

	return Percentile(scores, score)
}

func Percentile(scores []int, score int) (int, bool) {
	if len(scores) == 0 {
		return 0, false
	}

	lesser := 0
	for _, s := range scores {
		if s < score {
			lesser++
		}
	}

	return int(math.Round(100 * float64(lesser) / float64(len(scores)))), true
}

// TopRealImages returns the real images most often mistaken for AI first.
func (r *Recorder) TopRealImages(ctx context.Context, limit int) ([]ImageStat, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	docs, err := r.store.QueryAll(ctx, imageStats, store.Filter{KeyPrefix: string(engine.Real) + "_"})
	if err != nil {
		return nil, err
	}

	out := make([]ImageStat, 0, len(docs))
	for _, doc := range docs {
		index, err := strconv.Atoi(strings.TrimPrefix(doc.Text("id"), string(engine.Real)+"_"))
		if err != nil {
			continue
		}

		st := ImageStat{
			Index:   index,
			Seen:    doc.Int("seen"),
			Correct: doc.Int("correct"),
		}

		if st.Seen > 0 {
			st.RealRate = round1(float64(st.Correct) / float64(st.Seen) * 100)
		}

		out = append(out, st)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RealRate != out[j].RealRate {
			return out[i].RealRate < out[j].RealRate
		}

		return out[i].Index < out[j].Index
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
