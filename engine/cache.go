/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

// Image is a resolved cache entry. A failed load is kept as Missing so
// readiness checks can move on without it.
type Image struct {
	Ref         ImageRef
	Data        []byte
	Format      string
	ContentType string
	Width       int
	Height      int
	Missing     bool
}

// Cache maps (category, index) to loaded images, with at most one
// in-flight load per key.
type Cache struct {
	src     AssetSource
	log     *zap.Logger
	timeout time.Duration

	group singleflight.Group

	mu      sync.RWMutex
	entries map[ImageRef]*Image

	loads atomic.Int64
	hits  atomic.Int64
}

func NewCache(src AssetSource, timeout time.Duration, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}

	return &Cache{
		src:     src,
		log:     log.With(zap.String("component", "cache")),
		timeout: timeout,
		entries: make(map[ImageRef]*Image),
	}
}

func (c *Cache) Get(ref ImageRef) (*Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	img, ok := c.entries[ref]

	return img, ok
}

// Has reports whether ref is resolved, either loaded or marked missing.
func (c *Cache) Has(ref ImageRef) bool {
	_, ok := c.Get(ref)

	return ok
}

// Request returns the entry for ref, loading it if needed. Concurrent
// requests for the same key wait on the same load. It never returns nil.
func (c *Cache) Request(ctx context.Context, ref ImageRef) *Image {
	if img, ok := c.Get(ref); ok {
		c.hits.Add(1)

		return img
	}

	ch := c.group.DoChan(ref.String(), func() (any, error) {
		if img, ok := c.Get(ref); ok {
			return img, nil
		}

		img := c.load(context.WithoutCancel(ctx), ref)

		c.mu.Lock()
		c.entries[ref] = img
		c.mu.Unlock()

		return img, nil
	})

	select {
	case res := <-ch:
		return res.Val.(*Image)
	case <-ctx.Done():
		return &Image{Ref: ref, Missing: true}
	}
}

func (c *Cache) load(ctx context.Context, ref ImageRef) *Image {
	c.loads.Add(1)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	startTime := time.Now()

	data, err := c.src.Fetch(ctx, AssetPath(ref))
	if err != nil {
		c.log.Warn("image load failed", zap.Stringer("image", ref), zap.Error(err))

		return &Image{Ref: ref, Missing: true}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		c.log.Warn("image decode failed", zap.Stringer("image", ref), zap.Error(err))

		return &Image{Ref: ref, Missing: true}
	}

	c.log.Debug("image loaded",
		zap.Stringer("image", ref),
		zap.String("format", format),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(startTime).Round(time.Microsecond)),
	)

	return &Image{
		Ref:         ref,
		Data:        data,
		Format:      format,
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}
}

// Loads is the number of underlying fetches issued so far.
func (c *Cache) Loads() int64 {
	return c.loads.Load()
}

func (c *Cache) Hits() int64 {
	return c.hits.Load()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
