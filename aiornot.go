// AI or Not
//
// Each browser tab plays its own game session, identified by a random
// 8-character ID under /play/:gameid. The session's hub owns a sequencer
// that draws the pairs, preloads the images into the shared cache and
// walks the player through the rounds, the results and the review.
//
// Features:
// - WebSockets per game ID: /play/:gameid and /play/:gameid/ws
// - Shared challenge links (/?ai=N&real=M or /imageN_M) force a one-pair game
// - Images served from the shared cache: /images/:category/:index
// - Rounds in play use opaque per-session handles: /play/:gameid/image/:handle
// - Leaderboard of the real images most often mistaken for AI: /leaderboard
// - In-browser QR button for the current pair's challenge link, backed by go-qrcode
// - Games auto-reaped after configurable idle timeout

package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Seednode/aiornot/engine"
	"github.com/Seednode/aiornot/stats"
	"github.com/Seednode/aiornot/store"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// App holds the dependencies shared by every game session.
type App struct {
	cfg   *Config
	log   *zap.Logger
	cache *engine.Cache
	meta  *engine.Metadata
	store store.Store
	stats *stats.Recorder
}

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`           // "start", "answer", "reset", "review", "review_next", "share"
	Side string `json:"side,omitempty"` // answer
}

// SimpleMessage is for generic notifications ("loading", "ready", "error").
type SimpleMessage struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Position int    `json:"position,omitempty"`
}

// StateMessage is sent immediately on connect so the client can render
// whatever screen the session is on.
type StateMessage struct {
	Type       string      `json:"type"` // "state"
	View       engine.View `json:"view"`
	Background string      `json:"background,omitempty"`
	Rotation   int64       `json:"rotation_ms"`
}

// PresentMessage carries one round.
type PresentMessage struct {
	Type  string              `json:"type"` // "present"
	Pair  engine.Presentation `json:"pair"`
	Left  string              `json:"left"`
	Right string              `json:"right"`
}

// ResultsMessage carries the final score.
type ResultsMessage struct {
	Type   string        `json:"type"` // "results"
	Result engine.Result `json:"result"`
}

// ReviewMessage carries one replayed round.
type ReviewMessage struct {
	Type  string             `json:"type"` // "review"
	Frame engine.ReviewFrame `json:"frame"`
	Left  string             `json:"left"`
	Right string             `json:"right"`
}

// ShareMessage is sent only to the client that asked for a link.
type ShareMessage struct {
	Type  string `json:"type"` // "share"
	URL   string `json:"url"`
	Tweet string `json:"tweet"`
	QR    string `json:"qr"`
}

// BackgroundMessage announces a carousel rotation.
type BackgroundMessage struct {
	Type string `json:"type"` // "background"
	URL  string `json:"url"`
}

// RedirectMessage asks the client to navigate away.
type RedirectMessage struct {
	Type string `json:"type"` // "redirect"
	URL  string `json:"url"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
	origin   string
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	app     *App
	clients map[*Client]bool

	seq      *engine.Sequencer
	carousel *engine.Carousel
	coord    *engine.Coordinator

	register    chan *Client
	unreg       chan *Client
	commands    chan command
	backgrounds chan engine.ImageRef
	quit        chan struct{}

	mu sync.RWMutex

	// handles maps the opaque image names of the current round to cache keys.
	handles map[string]engine.ImageRef

	createdAt  time.Time
	lastActive time.Time
}

func newHub(app *App, gameID string, shared *engine.SharedPair) *Hub {
	now := time.Now()

	h := &Hub{
		id:          gameID,
		app:         app,
		clients:     make(map[*Client]bool),
		handles:     make(map[string]engine.ImageRef),
		register:    make(chan *Client),
		unreg:       make(chan *Client),
		commands:    make(chan command),
		backgrounds: make(chan engine.ImageRef, 1),
		quit:        make(chan struct{}),
		createdAt:   now,
		lastActive:  now,
	}

	log := app.log.With(zap.String("game", gameID))

	h.coord = engine.NewCoordinator(app.cache, app.cfg.backgrounds, log)

	h.carousel = engine.NewCarousel(app.cache, app.cfg.backgrounds, app.cfg.rotationInterval, func(ref engine.ImageRef) {
		select {
		case h.backgrounds <- ref:
		default:
		}
	})

	h.seq = engine.NewSequencer(engine.Options{
		Game: engine.GameConfig{
			TotalPairs: app.cfg.pairs,
			AICount:    app.cfg.aiCount,
			RealCount:  app.cfg.realCount,
		},
		Shared:      shared,
		Coordinator: h.coord,
		Carousel:    h.carousel,
		Analytics:   app.stats,
		Metadata:    app.meta,
		Log:         log,
		OnLoading: func(position int) {
			h.broadcast(SimpleMessage{
				Type:     "loading",
				Message:  "Loading images...",
				Position: position,
			})
		},
	})

	return h
}

func (h *Hub) imageURL(ref engine.ImageRef) string {
	return h.app.cfg.prefix + ref.Path()
}

func (h *Hub) run() {
	cfg := h.app.cfg

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startTime := time.Now()

	if err := h.seq.Init(ctx); err != nil {
		errorf(cfg, "GAMES: Failed to prepare %s: %v", h.id, err)
	}

	logf(cfg, "GAMES: Prepared %s (%s) in %s", h.id, h.seq.Mode(), time.Since(startTime).Round(time.Microsecond))

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			h.mu.Unlock()

			state := StateMessage{
				Type:     "state",
				View:     h.seq.View(),
				Rotation: cfg.rotationInterval.Milliseconds(),
			}
			if cfg.backgrounds > 0 {
				state.Background = h.imageURL(h.carousel.Current())
			}
			h.sendTo(c, state)

			// Shared links skip the start screen.
			if h.seq.Mode() == engine.SinglePair && h.seq.State() == engine.Idle {
				h.handleCommand(ctx, command{client: c, msg: ClientMessage{Type: "start"}})
			} else {
				h.resend(c)
			}

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case cmd := <-h.commands:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.mu.Unlock()

			h.handleCommand(ctx, cmd)

		case ref := <-h.backgrounds:
			h.broadcast(BackgroundMessage{
				Type: "background",
				URL:  h.imageURL(ref),
			})

		case <-h.quit:
			h.carousel.Stop()

			return
		}
	}
}

// resend replays the current screen to a (re)connecting client.
func (h *Hub) resend(c *Client) {
	v := h.seq.View()

	var msg any
	switch {
	case v.Presentation != nil:
		msg = h.presentMessage(*v.Presentation)
	case v.Result != nil:
		msg = ResultsMessage{Type: "results", Result: *v.Result}
	case v.Review != nil:
		msg = h.reviewMessage(*v.Review)
	default:
		msg = SimpleMessage{Type: "ready", Message: "Ready to play."}
	}

	h.sendTo(c, msg)
}

// presentMessage hides the pair behind opaque handles. A new pair gets
// fresh handles; replaying the same pair to a reconnecting client keeps them.
func (h *Hub) presentMessage(p engine.Presentation) PresentMessage {
	h.mu.Lock()
	var left, right string
	for handle, ref := range h.handles {
		switch ref {
		case p.Left:
			left = handle
		case p.Right:
			right = handle
		}
	}
	if left == "" || right == "" {
		left, right = randomID(16), randomID(16)
		h.handles = map[string]engine.ImageRef{left: p.Left, right: p.Right}
	}
	h.mu.Unlock()

	base := h.app.cfg.prefix + "/play/" + h.id + "/image/"

	return PresentMessage{
		Type:  "present",
		Pair:  p,
		Left:  base + left,
		Right: base + right,
	}
}

func (h *Hub) resolveHandle(handle string) (engine.ImageRef, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ref, ok := h.handles[handle]

	return ref, ok
}

func (h *Hub) reviewMessage(f engine.ReviewFrame) ReviewMessage {
	return ReviewMessage{
		Type:  "review",
		Frame: f,
		Left:  h.imageURL(f.Left),
		Right: h.imageURL(f.Right),
	}
}

// handleCommand dispatches one client action to the sequencer. Invalid
// actions are logged and otherwise ignored.
func (h *Hub) handleCommand(ctx context.Context, cmd command) {
	cfg := h.app.cfg

	var err error

	switch cmd.msg.Type {
	case "start":
		var p engine.Presentation
		if p, err = h.seq.Start(ctx, cmd.client.playerID); err == nil {
			logf(cfg, "GAMES: Started %s", h.id)
			h.broadcast(h.presentMessage(p))
		}

	case "answer":
		var side engine.Side
		if side, err = engine.ParseSide(cmd.msg.Side); err != nil {
			break
		}

		var out engine.Outcome
		if out, err = h.seq.Answer(ctx, side); err != nil {
			break
		}

		if out.Result != nil {
			logf(cfg, "GAMES: Finished %s with %d/%d", h.id, out.Result.Correct, out.Result.Total)
			h.broadcast(ResultsMessage{Type: "results", Result: *out.Result})
		} else {
			h.broadcast(h.presentMessage(*out.Next))
		}

	case "reset":
		var p engine.Presentation
		p, err = h.seq.Reset(ctx, cmd.client.playerID)
		if errors.Is(err, engine.ErrSinglePairReset) {
			h.broadcast(RedirectMessage{Type: "redirect", URL: cfg.prefix + "/"})

			return
		}
		if err == nil {
			logf(cfg, "GAMES: Reset %s", h.id)
			h.broadcast(h.presentMessage(p))
		}

	case "review":
		var f engine.ReviewFrame
		if f, err = h.seq.StartReview(); err == nil {
			h.broadcast(h.reviewMessage(f))
		}

	case "review_next":
		var step engine.ReviewStep
		if step, err = h.seq.NextReview(); err != nil {
			break
		}

		if step.Frame != nil {
			h.broadcast(h.reviewMessage(*step.Frame))
		} else {
			h.broadcast(ResultsMessage{Type: "results", Result: *step.Result})
		}

	case "share":
		var pair engine.SharedPair
		if pair, err = h.seq.CurrentPair(); err != nil {
			break
		}

		link := engine.EncodeShareLink(cmd.client.origin, pair)

		h.sendTo(cmd.client, ShareMessage{
			Type:  "share",
			URL:   link,
			Tweet: engine.TweetURL(link),
			QR:    cfg.prefix + "/play/" + h.id + "/qr",
		})

	default:
		// ignore unknown types
		return
	}

	if err != nil {
		logf(cfg, "GAMES: Ignored %q in %s: %v", cmd.msg.Type, h.id, err)
	}
}

// sendTo sends msg to a single client if it is still connected.
func (h *Hub) sendTo(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast sends msg to every client, dropping the ones that cannot keep up.
func (h *Hub) broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// closeAll disconnects all clients of this hub (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const playerCookieName = "aiornot_id"

// getOrSetPlayerID returns the player's cookie value, or a new one along
// with the upgrade response header that sets it.
func getOrSetPlayerID(r *http.Request) (string, http.Header) {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	id := randomID(32)

	cookie := &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return id, http.Header{"Set-Cookie": {cookie.String()}}
}

func randomID(n int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const max = byte(255 - (256 % len(letters)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, letters[int(b)%len(letters)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}

	return string(out)
}

// GameManager holds a set of hubs keyed by game ID, so each /play/$gameid
// is its own isolated session.
type GameManager struct {
	app         *App
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newGameManager(app *App, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		app:         app,
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
	}

	if idleTimeout > 0 {
		go gm.reaperLoop()
	}

	return gm
}

// getHub returns the hub for gameID, creating it with the given shared
// pair if it does not exist yet.
func (gm *GameManager) getHub(gameID string, shared *engine.SharedPair) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gm.app, gameID, shared)
	gm.hubs[gameID] = hub
	go hub.run()

	logf(gm.app.cfg, "GAMES: Created %s", gameID)

	return hub
}

func (gm *GameManager) lookup(gameID string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[gameID]

	return hub, ok
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for {
		id := randomID(8)
		if _, exists := gm.hubs[id]; !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		gm.reap(time.Now())
	}
}

func (gm *GameManager) reap(now time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.mu.RLock()
		idle := now.Sub(hub.lastActive)
		age := now.Sub(hub.createdAt)
		connected := len(hub.clients)
		hub.mu.RUnlock()

		if connected > 0 || idle < gm.idleTimeout {
			continue
		}

		close(hub.quit)
		delete(gm.hubs, id)

		logf(gm.app.cfg, "GAMES: Reaped %s after %s idle (%s old)", id, idle.Round(time.Second), age.Round(time.Second))
	}
}

func (gm *GameManager) closeAll() {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.closeAll()
		close(hub.quit)
		delete(gm.hubs, id)
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID, header := getOrSetPlayerID(r)

		// Out-of-range challenge links fall back to a normal game.
		var shared *engine.SharedPair
		if pair, ok := engine.DecodeShareLink(r.URL); ok && inRange(cfg, engine.AI, pair.AIIndex) && inRange(cfg, engine.Real, pair.RealIndex) {
			shared = &pair
		}

		hub := gm.getHub(gameID, shared)

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			logf(cfg, "GAMES: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
			origin:   baseURL(cfg, r),
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		logf(cfg, "GAMES: Player %s connected to %s from %s", playerID, gameID, realIP(r))

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.commands <- command{client: c, msg: msg}:
		case <-h.quit:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current pair's challenge link using go-qrcode.
func qrHandler(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, ok := gm.lookup(ps.ByName("gameid"))
		if !ok {
			http.Error(w, "unknown game", http.StatusNotFound)
			return
		}

		pair, err := hub.seq.CurrentPair()
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(engine.EncodeShareLink(baseURL(cfg, r), pair), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "failed to generate QR code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// inRange reports whether index addresses a configured asset, so unknown
// indices never reach the shared cache.
func inRange(cfg *Config, category engine.Category, index int) bool {
	switch category {
	case engine.Background:
		return index >= 0 && index < cfg.backgrounds
	case engine.AI:
		return index >= 1 && index <= cfg.aiCount
	case engine.Real:
		return index >= 1 && index <= cfg.realCount
	}

	return false
}

func writeImage(cfg *Config, w http.ResponseWriter, r *http.Request, img *engine.Image, cacheControl string, errs chan<- error) {
	startTime := time.Now()

	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	securityHeaders(cfg, w)

	written, err := w.Write(img.Data)
	if err != nil {
		errs <- err

		return
	}

	logf(cfg, "SERVE: %s (%s) to %s in %s",
		img.Ref,
		humanReadableSize(int64(written)),
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)
}

// serveImage writes a cached image, loading it first if needed.
func serveImage(cfg *Config, app *App, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		category, err := engine.ParseCategory(ps.ByName("category"))
		if err != nil {
			http.NotFound(w, r)
			return
		}

		index, err := strconv.Atoi(ps.ByName("index"))
		if err != nil || !inRange(cfg, category, index) {
			http.NotFound(w, r)
			return
		}

		img := app.cache.Request(r.Context(), engine.ImageRef{Category: category, Index: index})
		if img.Missing {
			http.NotFound(w, r)
			return
		}

		writeImage(cfg, w, r, img, "public, max-age=86400", errs)
	}
}

// serveRoundImage writes one image of the current round by its opaque handle.
func serveRoundImage(cfg *Config, app *App, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, ok := gm.lookup(ps.ByName("gameid"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		ref, ok := hub.resolveHandle(ps.ByName("handle"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		img := app.cache.Request(r.Context(), ref)
		if img.Missing {
			http.NotFound(w, r)
			return
		}

		writeImage(cfg, w, r, img, "private, max-age=3600", errs)
	}
}

// LeaderboardEntry is one real image in the leaderboard.
type LeaderboardEntry struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	Image        string  `json:"image"`
	Seen         int64   `json:"seen"`
	RealRate     float64 `json:"real_rate"`
	MistakenRate float64 `json:"mistaken_rate"`
}

func serveLeaderboard(cfg *Config, app *App, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		top, err := app.stats.TopRealImages(r.Context(), 3)
		if err != nil {
			logf(cfg, "LEADERBOARD: Query failed: %v", err)
		}

		entries := make([]LeaderboardEntry, 0, len(top))
		for _, st := range top {
			art := app.meta.Artwork(st.Index)
			entries = append(entries, LeaderboardEntry{
				ID:           st.Index,
				Title:        art.Title,
				Author:       art.Author,
				Image:        cfg.prefix + engine.ImageRef{Category: engine.Real, Index: st.Index}.Path(),
				Seen:         st.Seen,
				RealRate:     st.RealRate,
				MistakenRate: st.MistakenRate(),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(entries); err != nil {
			errs <- err
		}
	}
}

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if _, header := getOrSetPlayerID(r); header != nil {
			w.Header()["Set-Cookie"] = header["Set-Cookie"]
		}

		data, err := static.ReadFile("static/aiornot/index.html")
		if err != nil {
			http.Error(w, "missing client", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		_, _ = w.Write(data)
	}
}

// newGameURL is a fresh game path, carrying a shared pair along when present.
func newGameURL(cfg *Config, gm *GameManager, r *http.Request) string {
	target := cfg.prefix + "/play/" + gm.newGameID()

	if pair, ok := engine.DecodeShareLink(r.URL); ok {
		target += "?ai=" + strconv.Itoa(pair.AIIndex) + "&real=" + strconv.Itoa(pair.RealIndex)
	}

	return target
}

// redirectNewGame handles GET / by generating a new random game ID
// (with server-side collision detection) and redirecting to /play/:gameid.
func redirectNewGame(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		http.Redirect(w, r, newGameURL(cfg, gm, r), http.StatusTemporaryRedirect)
	}
}

// serveNotFound redirects /image<ai>_<real> challenge paths into a new
// game and 404s everything else.
func serveNotFound(cfg *Config, gm *GameManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := engine.DecodeShareLink(r.URL); ok && r.Method == http.MethodGet {
			http.Redirect(w, r, newGameURL(cfg, gm, r), http.StatusTemporaryRedirect)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNotFound)

		_, _ = w.Write([]byte(newPage("Not Found", "Nothing to see here. Start a new game?")))
	}
}

// registerGame sets up routes so that:
//   - /                      → redirects to new random game (8-char ID)
//   - /play/:gameid          → HTML client
//   - /play/:gameid/ws       → WebSocket for that game
//   - /play/:gameid/qr       → PNG QR code for the current pair's challenge link
//   - /play/:gameid/image/:h → current round's images by opaque handle
//   - /images/:cat/:index    → cached game images
//   - /leaderboard           → JSON leaderboard
func registerGame(cfg *Config, app *App, gm *GameManager, mux *httprouter.Router, errs chan<- error) {
	// Root path → redirect to new random game
	mux.GET(cfg.prefix+"/", redirectNewGame(cfg, gm))

	// Per-game client view (HTML)
	mux.GET(cfg.prefix+"/play/:gameid", getIndexHandler(cfg))

	// Per-game websocket
	mux.GET(cfg.prefix+"/play/:gameid/ws", serveWSForManager(cfg, gm))

	// Per-game QR code
	mux.GET(cfg.prefix+"/play/:gameid/qr", qrHandler(cfg, gm))

	// Per-game round images
	mux.GET(cfg.prefix+"/play/:gameid/image/:handle", serveRoundImage(cfg, app, gm, errs))

	mux.GET(cfg.prefix+"/images/:category/:index", serveImage(cfg, app, errs))

	mux.GET(cfg.prefix+"/leaderboard", serveLeaderboard(cfg, app, errs))
}
