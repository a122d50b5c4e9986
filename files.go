/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"

	"github.com/Seednode/aiornot/engine"
)

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

// countAssets fills in any asset count configured as zero by probing the source.
func countAssets(ctx context.Context, cfg *Config, src engine.AssetSource) {
	floor := cfg.probeFloor
	if floor == 0 {
		floor = cfg.pairs
	}

	if cfg.aiCount == 0 {
		cfg.aiCount = engine.CountAssets(ctx, src, engine.AI, cfg.probeLimit, floor)
		logf(cfg, "START: Found %d ai images", cfg.aiCount)
	}

	if cfg.realCount == 0 {
		cfg.realCount = engine.CountAssets(ctx, src, engine.Real, cfg.probeLimit, floor)
		logf(cfg, "START: Found %d real images", cfg.realCount)
	}

	if cfg.backgrounds == 0 {
		cfg.backgrounds = engine.CountAssets(ctx, src, engine.Background, cfg.probeLimit, 0)
		logf(cfg, "START: Found %d backgrounds", cfg.backgrounds)
	}
}
