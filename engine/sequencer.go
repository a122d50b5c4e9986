/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"context"
	"errors"
	"math"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrInvalidState    = errors.New("action not allowed in current game state")
	ErrNoActivePair    = errors.New("no active pair")
	ErrSinglePairReset = errors.New("single pair sessions cannot be reset in place")
)

const (
	singlePassText = "You correctly identified the AI image!"
	singleFailText = "Oops, it looks like you were wrong."
)

// GameSummary describes a finished game.
type GameSummary struct {
	Player      string
	Mode        Mode
	Score       int
	Total       int
	SuccessRate float64
}

// Analytics receives game events. Implementations swallow their own errors.
type Analytics interface {
	GameStarted(ctx context.Context, mode Mode, player string)
	RecordTrial(ctx context.Context, category Category, index int, correct bool)
	RecordGame(ctx context.Context, game GameSummary)
	Percentile(ctx context.Context, score int) (int, bool)
}

type noopAnalytics struct{}

func (noopAnalytics) GameStarted(context.Context, Mode, string) {}
func (noopAnalytics) RecordTrial(context.Context, Category, int, bool) {}
func (noopAnalytics) RecordGame(context.Context, GameSummary) {}
func (noopAnalytics) Percentile(context.Context, int) (int, bool) { return 0, false }

type GameConfig struct {
	TotalPairs int
	AICount    int
	RealCount  int
}

type Options struct {
	Game        GameConfig
	Shared      *SharedPair
	Sampler     *Sampler
	Coordinator *Coordinator
	Carousel    *Carousel
	Analytics   Analytics
	Metadata    *Metadata
	Log         *zap.Logger

	// OnLoading is called before blocking on a pair that is not yet preloaded.
	OnLoading func(position int)
}

// Presentation is what the player sees for one round. Left and Right are
// kept out of JSON so clients cannot tell the categories apart.
type Presentation struct {
	Position     int      `json:"position"`
	Total        int      `json:"total"`
	Left         ImageRef `json:"-"`
	Right        ImageRef `json:"-"`
	LeftMissing  bool     `json:"left_missing,omitempty"`
	RightMissing bool     `json:"right_missing,omitempty"`
	Progress     float64  `json:"progress"`
	ShowProgress bool     `json:"show_progress"`
	Single       bool     `json:"single"`
}

type Result struct {
	Correct       int     `json:"correct"`
	Total         int     `json:"total"`
	SuccessRate   float64 `json:"success_rate"`
	Percentile    int     `json:"percentile,omitempty"`
	HasPercentile bool    `json:"has_percentile"`
	Single        bool    `json:"single"`
	Passed        bool    `json:"passed"`
	Message       string  `json:"message,omitempty"`
}

// Outcome of an answer: either the next presentation or the final result.
type Outcome struct {
	Next   *Presentation
	Result *Result
}

// ReviewStep is either the next review frame or, at the end, the result again.
type ReviewStep struct {
	Frame  *ReviewFrame
	Result *Result
}

// View is a copy of the visible state, used to resync reconnecting clients.
type View struct {
	State        string        `json:"state"`
	Mode         string        `json:"mode"`
	Position     int           `json:"position"`
	Total        int           `json:"total"`
	Correct      int           `json:"correct"`
	Presentation *Presentation `json:"presentation,omitempty"`
	Result       *Result       `json:"result,omitempty"`
	Review       *ReviewFrame  `json:"review,omitempty"`
}

// Sequencer owns one player's game: the pair plan, position, score and
// history. All state changes go through its methods.
type Sequencer struct {
	game      GameConfig
	mode      Mode
	shared    *SharedPair
	sampler   *Sampler
	coord     *Coordinator
	carousel  *Carousel
	analytics Analytics
	meta      *Metadata
	log       *zap.Logger
	onLoading func(int)

	mu       sync.Mutex
	player   string
	state    State
	pairs    []PairAssignment
	position int
	correct  int
	history  []RoundRecord
	visible  *Presentation
	result   *Result
	review   *ReviewPlayer
}

func NewSequencer(opts Options) *Sequencer {
	s := &Sequencer{
		game:      opts.Game,
		sampler:   opts.Sampler,
		coord:     opts.Coordinator,
		carousel:  opts.Carousel,
		analytics: opts.Analytics,
		meta:      opts.Metadata,
		log:       opts.Log,
		onLoading: opts.OnLoading,
	}

	if opts.Shared != nil {
		shared := *opts.Shared
		s.shared = &shared
		s.mode = SinglePair
		s.game.TotalPairs = 1
	}

	if s.sampler == nil {
		s.sampler = NewSampler(nil)
	}

	if s.analytics == nil {
		s.analytics = noopAnalytics{}
	}

	if s.meta == nil {
		s.meta = NewMetadata(nil, nil)
	}

	if s.log == nil {
		s.log = zap.NewNop()
	}

	s.log = s.log.With(zap.String("component", "sequencer"), zap.Stringer("mode", s.mode))

	return s
}

func (s *Sequencer) Mode() Mode {
	return s.mode
}

func (s *Sequencer) Total() int {
	return s.game.TotalPairs
}

// draw builds a fresh pair plan. Positions follow draw order.
func (s *Sequencer) draw() ([]PairAssignment, error) {
	if s.mode == SinglePair {
		return []PairAssignment{{
			Position:  1,
			AIIndex:   s.shared.AIIndex,
			RealIndex: s.shared.RealIndex,
		}}, nil
	}

	ai, err := s.sampler.Sample(s.game.TotalPairs, 1, s.game.AICount)
	if err != nil {
		return nil, err
	}

	real, err := s.sampler.Sample(s.game.TotalPairs, 1, s.game.RealCount)
	if err != nil {
		return nil, err
	}

	pairs := make([]PairAssignment, s.game.TotalPairs)
	for i := range pairs {
		pairs[i] = PairAssignment{
			Position:  i + 1,
			AIIndex:   ai[i],
			RealIndex: real[i],
		}
	}

	return pairs, nil
}

// Init draws the pair plan and blocks on the essential preload, then starts
// the background sweep.
func (s *Sequencer) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle || s.pairs != nil {
		return ErrInvalidState
	}

	pairs, err := s.draw()
	if err != nil {
		return err
	}

	s.pairs = pairs
	s.state = Loading
	s.coord.Plan(pairs)

	err = s.coord.Essential(ctx)

	s.state = Idle

	if err != nil {
		return err
	}

	s.coord.StartBackground(ctx)

	s.log.Debug("essential images ready", zap.Int("pairs", len(pairs)))

	return nil
}

// Start begins a game from the start screen on behalf of player.
func (s *Sequencer) Start(ctx context.Context, player string) (Presentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle || len(s.pairs) == 0 {
		return Presentation{}, ErrInvalidState
	}

	s.clearLocked()

	if s.carousel != nil {
		s.carousel.Start()
	}

	s.coord.StartBackground(ctx)

	s.player = player
	s.analytics.GameStarted(ctx, s.mode, player)

	return s.presentLocked(ctx, 1), nil
}

func (s *Sequencer) clearLocked() {
	s.history = nil
	s.position = 1
	s.correct = 0
	s.result = nil
	s.review = nil
	s.visible = nil
}

func (s *Sequencer) presentLocked(ctx context.Context, position int) Presentation {
	if !s.coord.IsPairReady(position) {
		if s.onLoading != nil {
			s.onLoading(position)
		}

		if err := s.coord.PreloadPair(ctx, position); err != nil {
			s.log.Warn("direct preload interrupted", zap.Int("position", position), zap.Error(err))
		}
	}

	if position < len(s.pairs) {
		s.coord.PreloadPairAsync(position + 1)
	}

	pair := &s.pairs[position-1]
	pair.AISide = s.sampler.Side()

	ai, real := pair.refs()
	left, right := ai, real
	if pair.AISide == Right {
		left, right = real, ai
	}

	p := Presentation{
		Position:     position,
		Total:        len(s.pairs),
		Left:         left,
		Right:        right,
		LeftMissing:  s.coord.isMissing(left),
		RightMissing: s.coord.isMissing(right),
		Progress:     float64(position-1) / float64(len(s.pairs)) * 100,
		ShowProgress: s.mode == Normal,
		Single:       s.mode == SinglePair,
	}

	s.position = position
	s.state = Presenting
	s.visible = &p

	return p
}

// Answer records the player's pick for the current pair.
func (s *Sequencer) Answer(ctx context.Context, side Side) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Presenting || s.visible == nil {
		return Outcome{}, ErrInvalidState
	}

	pair := s.pairs[s.position-1]
	correct := side == pair.AISide
	if correct {
		s.correct++
	}

	s.history = append(s.history, RoundRecord{
		Position:     pair.Position,
		AISide:       pair.AISide,
		UserSelected: side,
		WasCorrect:   correct,
		Left:         s.visible.Left,
		Right:        s.visible.Right,
		AIIndex:      pair.AIIndex,
		RealIndex:    pair.RealIndex,
	})

	// The AI image counts as correct when it was picked, the real image
	// when it was not.
	s.analytics.RecordTrial(ctx, AI, pair.AIIndex, side == pair.AISide)
	s.analytics.RecordTrial(ctx, Real, pair.RealIndex, side != pair.AISide)

	if s.mode == SinglePair || s.position >= len(s.pairs) {
		r := s.finishLocked(ctx)

		return Outcome{Result: &r}, nil
	}

	next := s.presentLocked(ctx, s.position+1)

	return Outcome{Next: &next}, nil
}

func (s *Sequencer) finishLocked(ctx context.Context) Result {
	total := len(s.pairs)

	r := Result{
		Correct:     s.correct,
		Total:       total,
		SuccessRate: float64(s.correct) / float64(total) * 100,
		Single:      s.mode == SinglePair,
	}

	if s.mode == SinglePair {
		r.Passed = s.correct == total
		r.Message = singleFailText
		if r.Passed {
			r.Message = singlePassText
		}
	} else {
		r.Percentile, r.HasPercentile = s.analytics.Percentile(ctx, s.correct)
	}

	s.analytics.RecordGame(ctx, GameSummary{
		Player:      s.player,
		Mode:        s.mode,
		Score:       s.correct,
		Total:       total,
		SuccessRate: math.Round(r.SuccessRate),
	})

	s.state = Results
	s.visible = nil
	s.result = &r

	s.log.Debug("game complete", zap.Int("correct", r.Correct), zap.Int("total", r.Total))

	return r
}

// Reset starts a new game with a fresh sample. Single pair sessions return
// ErrSinglePairReset so the caller can navigate back to the start instead.
func (s *Sequencer) Reset(ctx context.Context, player string) (Presentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == SinglePair {
		return Presentation{}, ErrSinglePairReset
	}

	if s.state == Loading {
		return Presentation{}, ErrInvalidState
	}

	pairs, err := s.draw()
	if err != nil {
		return Presentation{}, err
	}

	s.pairs = pairs
	s.coord.Plan(pairs)
	s.coord.StartBackground(ctx)

	s.clearLocked()

	s.player = player
	s.analytics.GameStarted(ctx, s.mode, player)

	return s.presentLocked(ctx, 1), nil
}

// StartReview replays the finished game from its first round.
func (s *Sequencer) StartReview() (ReviewFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Results || len(s.history) == 0 {
		return ReviewFrame{}, ErrInvalidState
	}

	s.review = NewReviewPlayer(s.meta, s.history)
	frame, _ := s.review.Frame()
	s.state = Reviewing

	return frame, nil
}

// NextReview advances the review cursor; past the last round it returns
// to the results.
func (s *Sequencer) NextReview() (ReviewStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Reviewing || s.review == nil {
		return ReviewStep{}, ErrInvalidState
	}

	if frame, ok := s.review.Next(); ok {
		return ReviewStep{Frame: &frame}, nil
	}

	s.state = Results
	s.review = nil

	r := *s.result

	return ReviewStep{Result: &r}, nil
}

// CurrentPair is the pair under the cursor, used for share links.
func (s *Sequencer) CurrentPair() (SharedPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.position < 1 || s.position > len(s.pairs) {
		return SharedPair{}, ErrNoActivePair
	}

	p := s.pairs[s.position-1]

	return SharedPair{AIIndex: p.AIIndex, RealIndex: p.RealIndex}, nil
}

func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Sequencer) Correct() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.correct
}

// Pairs returns a copy of the current plan.
func (s *Sequencer) Pairs() []PairAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PairAssignment, len(s.pairs))
	copy(out, s.pairs)

	return out
}

// History returns a copy of the answered rounds.
func (s *Sequencer) History() []RoundRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RoundRecord, len(s.history))
	copy(out, s.history)

	return out
}

func (s *Sequencer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:    s.state.String(),
		Mode:     s.mode.String(),
		Position: s.position,
		Total:    len(s.pairs),
		Correct:  s.correct,
	}

	switch s.state {
	case Presenting:
		if s.visible != nil {
			p := *s.visible
			v.Presentation = &p
		}
	case Results:
		if s.result != nil {
			r := *s.result
			v.Result = &r
		}
	case Reviewing:
		if frame, ok := s.review.Frame(); ok {
			v.Review = &frame
		}
	}

	return v
}
