/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"
)

const (
	realMetadataPath = "real_images/mapper.json"
	aiMetadataPath   = "ai_images/mapper.json"
)

type RealMeta struct {
	Title  string `json:"Title"`
	Author string `json:"Author"`
}

type AIMeta struct {
	Source   string `json:"Source"`
	Metadata *struct {
		URL string `json:"url,omitempty"`
	} `json:"Metadata,omitempty"`
}

// Metadata holds the two lookup tables, loaded once at startup and read-only afterwards.
type Metadata struct {
	real map[string]RealMeta
	ai   map[string]AIMeta
}

func NewMetadata(real map[string]RealMeta, ai map[string]AIMeta) *Metadata {
	if real == nil {
		real = map[string]RealMeta{}
	}

	if ai == nil {
		ai = map[string]AIMeta{}
	}

	return &Metadata{real: real, ai: ai}
}

// LoadMetadata fetches both tables. A missing or malformed document yields
// an empty table.
func LoadMetadata(ctx context.Context, src AssetSource, log *zap.Logger) *Metadata {
	if log == nil {
		log = zap.NewNop()
	}

	real := map[string]RealMeta{}
	if err := fetchJSON(ctx, src, realMetadataPath, &real); err != nil {
		log.Warn("real image metadata unavailable", zap.Error(err))

		real = nil
	}

	ai := map[string]AIMeta{}
	if err := fetchJSON(ctx, src, aiMetadataPath, &ai); err != nil {
		log.Warn("ai image metadata unavailable", zap.Error(err))

		ai = nil
	}

	m := NewMetadata(real, ai)

	log.Info("metadata loaded", zap.Int("real", len(m.real)), zap.Int("ai", len(m.ai)))

	return m
}

func fetchJSON(ctx context.Context, src AssetSource, name string, v any) error {
	data, err := src.Fetch(ctx, name)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}

func (m *Metadata) Real(index int) (RealMeta, bool) {
	meta, ok := m.real[strconv.Itoa(index)]

	return meta, ok
}

func (m *Metadata) AI(index int) (AIMeta, bool) {
	meta, ok := m.ai[strconv.Itoa(index)]

	return meta, ok
}

// AILabel is the inspection text for an AI image.
func (m *Metadata) AILabel(index int) string {
	label := "AI Generated"

	meta, ok := m.AI(index)
	if !ok {
		return label
	}

	if meta.Source != "" {
		label = "Source: " + meta.Source
	}

	if meta.Metadata != nil && meta.Metadata.URL != "" {
		label += "\nURL: " + meta.Metadata.URL
	}

	return label
}

// RealLabel is the inspection text for a real image.
func (m *Metadata) RealLabel(index int) string {
	meta, ok := m.Real(index)
	if !ok || (meta.Title == "" && meta.Author == "") {
		return "Real Image"
	}

	art := m.Artwork(index)

	return `"` + art.Title + `"` + "\n" + art.Author
}

// Artwork returns title and author for leaderboard entries, filling in
// whichever is blank.
func (m *Metadata) Artwork(index int) RealMeta {
	meta, _ := m.Real(index)

	if meta.Title == "" {
		meta.Title = "Untitled"
	}

	if meta.Author == "" {
		meta.Author = "Unknown Artist"
	}

	return meta
}
