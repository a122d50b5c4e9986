package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"sync"
	"testing"
)

// fakeSource serves in-memory files and counts fetches. While held, fetches
// of the held names (or of every name when none were given) block until
// release is called or their context ends.
type fakeSource struct {
	mu      sync.Mutex
	files   map[string][]byte
	fetches map[string]int
	gate    chan struct{}
	held    map[string]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		files:   make(map[string][]byte),
		fetches: make(map[string]int),
	}
}

func (s *fakeSource) add(name string, data []byte) {
	s.mu.Lock()
	s.files[name] = data
	s.mu.Unlock()
}

func (s *fakeSource) hold(names ...string) {
	s.mu.Lock()
	s.gate = make(chan struct{})
	s.held = make(map[string]bool, len(names))
	for _, name := range names {
		s.held[name] = true
	}
	s.mu.Unlock()
}

func (s *fakeSource) release() {
	s.mu.Lock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
	s.mu.Unlock()
}

func (s *fakeSource) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fetches[name]
}

func (s *fakeSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	s.fetches[name]++
	gate := s.gate
	if len(s.held) > 0 && !s.held[name] {
		gate = nil
	}
	data, ok := s.files[name]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}

	return data, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	return buf.Bytes()
}

// gameSource holds ai and real images 1..n and backgrounds 0..bg-1.
func gameSource(t *testing.T, ai, real, bg int) *fakeSource {
	t.Helper()

	src := newFakeSource()
	data := pngBytes(t, 4, 3)

	for i := 1; i <= ai; i++ {
		src.add("ai_images/"+strconv.Itoa(i)+".png", data)
	}

	for i := 1; i <= real; i++ {
		src.add("real_images/"+strconv.Itoa(i)+".png", data)
	}

	for i := 1; i <= bg; i++ {
		src.add("backgrounds/"+strconv.Itoa(i)+".png", data)
	}

	return src
}
