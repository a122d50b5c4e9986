/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store is the analytics and leaderboard document store. The game
// only needs five verbs, so backends are interchangeable.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnavailable = errors.New("store unavailable")

// Fields is one document. Numbers decoded from a backend are float64 or int64.
type Fields map[string]any

// Filter narrows QueryAll. The zero value matches everything.
type Filter struct {
	KeyPrefix string
	Field     string
	Equals    any
}

func (f Filter) match(key string, doc Fields) bool {
	if f.KeyPrefix != "" && !strings.HasPrefix(key, f.KeyPrefix) {
		return false
	}

	if f.Field != "" && fmt.Sprint(doc[f.Field]) != fmt.Sprint(f.Equals) {
		return false
	}

	return true
}

type Store interface {
	LogEvent(ctx context.Context, name string, attrs Fields) error
	AddRecord(ctx context.Context, collection string, fields Fields) (string, error)
	GetByKey(ctx context.Context, collection, key string) (Fields, bool, error)
	IncrementCounter(ctx context.Context, collection, key, field string, delta int64) error
	QueryAll(ctx context.Context, collection string, filter Filter) ([]Fields, error)
	Close() error
}

// Int reads a numeric field regardless of how the backend decoded it.
func (f Fields) Int(name string) int64 {
	switch v := f[name].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}

	return 0
}

func (f Fields) Text(name string) string {
	switch v := f[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}

	return out
}

// Open builds a backend by name.
func Open(ctx context.Context, kind, dbPath, redisAddr string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, dbPath)
	case "redis":
		return OpenRedis(ctx, redisAddr, "aiornot")
	}

	return nil, fmt.Errorf("unknown store backend %q", kind)
}
