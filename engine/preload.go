/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Coordinator drives essential and background preloading of a game's
// images into a Cache, following the current pair plan.
type Coordinator struct {
	cache       *Cache
	backgrounds int
	log         *zap.Logger

	mu    sync.RWMutex
	pairs []PairAssignment

	sweeping atomic.Bool
	wg       sync.WaitGroup
}

func NewCoordinator(cache *Cache, backgrounds int, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}

	return &Coordinator{
		cache:       cache,
		backgrounds: backgrounds,
		log:         log.With(zap.String("component", "preload")),
	}
}

// Plan replaces the ordered pairs the coordinator preloads for.
func (c *Coordinator) Plan(pairs []PairAssignment) {
	plan := make([]PairAssignment, len(pairs))
	copy(plan, pairs)

	c.mu.Lock()
	c.pairs = plan
	c.mu.Unlock()
}

func (c *Coordinator) pair(position int) (PairAssignment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if position < 1 || position > len(c.pairs) {
		return PairAssignment{}, false
	}

	return c.pairs[position-1], true
}

// IsPairReady is a pure cache query; it never starts a load.
func (c *Coordinator) IsPairReady(position int) bool {
	p, ok := c.pair(position)
	if !ok {
		return false
	}

	ai, real := p.refs()

	return c.cache.Has(ai) && c.cache.Has(real)
}

// Essential loads the first background and then the first pair, blocking
// until both are resolved.
func (c *Coordinator) Essential(ctx context.Context) error {
	if c.backgrounds > 0 {
		c.cache.Request(ctx, ImageRef{Category: Background, Index: 0})
	}

	if err := c.PreloadPair(ctx, 1); err != nil {
		return err
	}

	return ctx.Err()
}

// PreloadPair loads both images of a pair concurrently and returns once
// both are loaded or marked missing.
func (c *Coordinator) PreloadPair(ctx context.Context, position int) error {
	p, ok := c.pair(position)
	if !ok {
		return nil
	}

	ai, real := p.refs()

	g, gctx := errgroup.WithContext(ctx)
	for _, ref := range []ImageRef{ai, real} {
		g.Go(func() error {
			c.cache.Request(gctx, ref)

			return nil
		})
	}

	return g.Wait()
}

// PreloadPairAsync starts loading a pair without waiting for it.
func (c *Coordinator) PreloadPairAsync(position int) {
	if _, ok := c.pair(position); !ok || c.IsPairReady(position) {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		_ = c.PreloadPair(context.Background(), position)
	}()
}

// StartBackground launches the background sweep over the remaining
// backgrounds and pairs 2..N. It reports false when a sweep is already running.
func (c *Coordinator) StartBackground(ctx context.Context) bool {
	if !c.sweeping.CompareAndSwap(false, true) {
		return false
	}

	c.mu.RLock()
	plan := make([]PairAssignment, len(c.pairs))
	copy(plan, c.pairs)
	c.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.sweeping.Store(false)

		var sweep sync.WaitGroup

		request := func(ref ImageRef) {
			if c.cache.Has(ref) {
				return
			}

			sweep.Add(1)
			go func() {
				defer sweep.Done()

				c.cache.Request(ctx, ref)
			}()
		}

		for i := 1; i < c.backgrounds; i++ {
			request(ImageRef{Category: Background, Index: i})
		}

		for _, p := range plan {
			if p.Position < 2 {
				continue
			}

			ai, real := p.refs()
			request(ai)
			request(real)
		}

		sweep.Wait()

		c.log.Debug("background preload complete", zap.Int("pairs", len(plan)), zap.Int("backgrounds", c.backgrounds))
	}()

	return true
}

// Sweeping reports whether a background sweep is in progress.
func (c *Coordinator) Sweeping() bool {
	return c.sweeping.Load()
}

// Wait blocks until the background sweep and any opportunistic loads finish.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) isMissing(ref ImageRef) bool {
	img, ok := c.cache.Get(ref)

	return !ok || img.Missing
}
