/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Name  string
	Attrs Fields
	At    time.Time
}

// Memory is an in-process Store for tests and ephemeral deployments.
type Memory struct {
	mu     sync.Mutex
	docs   map[string]map[string]Fields
	events []Event
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]Fields)}
}

func (m *Memory) LogEvent(ctx context.Context, name string, attrs Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, Event{Name: name, Attrs: attrs.clone(), At: time.Now()})

	return nil
}

// Events returns a copy of everything logged so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)

	return out
}

func (m *Memory) collection(name string) map[string]Fields {
	c, ok := m.docs[name]
	if !ok {
		c = make(map[string]Fields)
		m.docs[name] = c
	}

	return c
}

func (m *Memory) AddRecord(ctx context.Context, collection string, fields Fields) (string, error) {
	id := uuid.NewString()

	doc := fields.clone()
	doc["timestamp"] = time.Now().UnixMilli()

	m.mu.Lock()
	m.collection(collection)[id] = doc
	m.mu.Unlock()

	return id, nil
}

func (m *Memory) GetByKey(ctx context.Context, collection, key string) (Fields, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[collection][key]
	if !ok {
		return nil, false, nil
	}

	return doc.clone(), true, nil
}

func (m *Memory) IncrementCounter(ctx context.Context, collection, key, field string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)

	doc, ok := c[key]
	if !ok {
		doc = Fields{}
		c[key] = doc
	}

	doc[field] = doc.Int(field) + delta

	return nil
}

func (m *Memory) QueryAll(ctx context.Context, collection string, filter Filter) ([]Fields, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.docs[collection]))
	for k := range m.docs[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Fields, 0, len(keys))
	for _, k := range keys {
		doc := m.docs[collection][k]
		if !filter.match(k, doc) {
			continue
		}

		res := doc.clone()
		res["id"] = k
		out = append(out, res)
	}

	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
