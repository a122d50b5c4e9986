/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"
)

var ErrAssetNotFound = errors.New("asset not found")

// AssetSource fetches raw asset bytes by slash-separated relative path.
type AssetSource interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// AssetPath maps a cache key onto the on-disk naming convention.
// Backgrounds are 0-based in the cache and 1-based on disk.
func AssetPath(ref ImageRef) string {
	switch ref.Category {
	case Background:
		return "backgrounds/" + strconv.Itoa(ref.Index+1) + ".png"
	case AI:
		return "ai_images/" + strconv.Itoa(ref.Index) + ".png"
	default:
		return "real_images/" + strconv.Itoa(ref.Index) + ".png"
	}
}

type DirSource struct {
	fsys fs.FS
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{fsys: os.DirFS(dir)}
}

// NewFSSource wraps any fs.FS, e.g. an embedded or in-memory tree.
func NewFSSource(fsys fs.FS) *DirSource {
	return &DirSource{fsys: fsys}
}

func (d *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(d.fsys, path.Clean(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}

	return data, err
}

type HTTPSource struct {
	base   *url.URL
	client *http.Client
}

func NewHTTPSource(base string, timeout time.Duration) (*HTTPSource, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		return nil, err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported asset url scheme %q", u.Scheme)
	}

	return &HTTPSource{
		base:   u,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (h *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	target := h.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(name, "/")})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// NewAssetSource picks an HTTP source for http(s) locations and a directory otherwise.
func NewAssetSource(location string, timeout time.Duration) (AssetSource, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, timeout)
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("asset location %q is not a directory", location)
	}

	return NewDirSource(location), nil
}

// CountAssets probes sequential indices from 1 until the first miss or limit,
// and never reports fewer than floor.
func CountAssets(ctx context.Context, src AssetSource, category Category, limit, floor int) int {
	found := 0

	for n := 1; n <= limit; n++ {
		ref := ImageRef{Category: category, Index: n}
		if category == Background {
			ref.Index = n - 1
		}

		if _, err := src.Fetch(ctx, AssetPath(ref)); err != nil {
			break
		}

		found = n
	}

	if found < floor {
		return floor
	}

	return found
}
