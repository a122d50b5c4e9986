/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"context"
	"sync"
	"time"
)

// Carousel cycles through the background images on a fixed interval.
type Carousel struct {
	cache    *Cache
	count    int
	interval time.Duration
	onRotate func(ImageRef)

	mu      sync.Mutex
	current int
	stop    chan struct{}
}

func NewCarousel(cache *Cache, count int, interval time.Duration, onRotate func(ImageRef)) *Carousel {
	return &Carousel{
		cache:    cache,
		count:    count,
		interval: interval,
		onRotate: onRotate,
	}
}

// Start begins rotation. It reports false when already running or when
// there is nothing to rotate.
func (c *Carousel) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil || c.count < 2 || c.interval <= 0 {
		return false
	}

	stop := make(chan struct{})
	c.stop = stop

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Rotate(context.Background())
			case <-stop:
				return
			}
		}
	}()

	return true
}

func (c *Carousel) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stop != nil
}

func (c *Carousel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Carousel) Current() ImageRef {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ImageRef{Category: Background, Index: c.current}
}

// Rotate advances to the next background, making sure it is cached before
// announcing it.
func (c *Carousel) Rotate(ctx context.Context) ImageRef {
	if c.count < 1 {
		return ImageRef{Category: Background}
	}

	c.mu.Lock()
	c.current = (c.current + 1) % c.count
	ref := ImageRef{Category: Background, Index: c.current}
	c.mu.Unlock()

	if c.cache != nil {
		c.cache.Request(ctx, ref)
	}

	if c.onRotate != nil {
		c.onRotate(ref)
	}

	return ref
}
