/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

// CacheStats is a snapshot of the shared image cache.
type CacheStats struct {
	Entries int   `json:"entries"`
	Loads   int64 `json:"loads"`
	Hits    int64 `json:"hits"`
	Games   int   `json:"games"`
}

func serveCacheStats(cfg *Config, app *App, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gm.mu.Lock()
		games := len(gm.hubs)
		gm.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		err := json.NewEncoder(w).Encode(CacheStats{
			Entries: app.cache.Len(),
			Loads:   app.cache.Loads(),
			Hits:    app.cache.Hits(),
			Games:   games,
		})
		if err != nil {
			errs <- err
		}
	}
}

func registerProfileHandlers(cfg *Config, app *App, gm *GameManager, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/debug/cache", serveCacheStats(cfg, app, gm, errs))

	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handler("GET", cfg.prefix+"/pprof/"+name, pprof.Handler(name))
	}

	mux.HandlerFunc("GET", cfg.prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/trace", pprof.Trace)

	logf(cfg, "START: Registered profiling handlers under %s/pprof/", cfg.prefix)
}
