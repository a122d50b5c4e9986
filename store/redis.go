/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Redis stores each document as a hash and keeps a set of keys per
// collection so QueryAll can enumerate without SCAN.
type Redis struct {
	rdb       *goredis.Client
	namespace string
}

func OpenRedis(ctx context.Context, addr, namespace string) (*Redis, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()

		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedis(rdb, namespace), nil
}

func NewRedis(rdb *goredis.Client, namespace string) *Redis {
	return &Redis{rdb: rdb, namespace: namespace}
}

func (r *Redis) docKey(collection, key string) string {
	return r.namespace + ":" + collection + ":" + key
}

func (r *Redis) indexKey(collection string) string {
	return r.namespace + ":" + collection + ":_keys"
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) LogEvent(ctx context.Context, name string, attrs Fields) error {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	return r.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: r.namespace + ":events",
		MaxLen: 100000,
		Approx: true,
		Values: map[string]any{"name": name, "attrs": string(raw)},
	}).Err()
}

func (r *Redis) AddRecord(ctx context.Context, collection string, fields Fields) (string, error) {
	id := uuid.NewString()

	values := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["timestamp"] = time.Now().UnixMilli()

	_, err := r.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, r.docKey(collection, id), values)
		p.SAdd(ctx, r.indexKey(collection), id)

		return nil
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

func (r *Redis) GetByKey(ctx context.Context, collection, key string) (Fields, bool, error) {
	raw, err := r.rdb.HGetAll(ctx, r.docKey(collection, key)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(raw) == 0 {
		return nil, false, nil
	}

	return decodeHash(raw), true, nil
}

func (r *Redis) IncrementCounter(ctx context.Context, collection, key, field string, delta int64) error {
	_, err := r.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HIncrBy(ctx, r.docKey(collection, key), field, delta)
		p.SAdd(ctx, r.indexKey(collection), key)

		return nil
	})

	return err
}

func (r *Redis) QueryAll(ctx context.Context, collection string, filter Filter) ([]Fields, error) {
	keys, err := r.rdb.SMembers(ctx, r.indexKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	cmds := make([]*goredis.MapStringStringCmd, len(keys))
	_, err = r.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.HGetAll(ctx, r.docKey(collection, k))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Fields, 0, len(keys))
	for i, k := range keys {
		raw := cmds[i].Val()
		if len(raw) == 0 {
			continue
		}

		doc := decodeHash(raw)
		if !filter.match(k, doc) {
			continue
		}

		doc["id"] = k
		out = append(out, doc)
	}

	return out, nil
}

// decodeHash turns numeric-looking hash values back into numbers.
func decodeHash(raw map[string]string) Fields {
	doc := make(Fields, len(raw))
	for k, v := range raw {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			doc[k] = n
			continue
		}

		if f, err := strconv.ParseFloat(v, 64); err == nil {
			doc[k] = f
			continue
		}

		doc[k] = v
	}

	return doc
}
