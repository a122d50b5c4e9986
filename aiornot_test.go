package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/aiornot/engine"
	"github.com/Seednode/aiornot/store"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func writeAssets(t *testing.T, ai, real, bg int) string {
	t.Helper()

	dir := t.TempDir()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	write := func(sub string, n int) {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}

		for i := 1; i <= n; i++ {
			if err := os.WriteFile(filepath.Join(dir, sub, strconv.Itoa(i)+".png"), buf.Bytes(), 0o644); err != nil {
				t.Fatalf("write asset: %v", err)
			}
		}
	}

	write("ai_images", ai)
	write("real_images", real)
	write("backgrounds", bg)

	return dir
}

type testServer struct {
	*httptest.Server

	app *App
	gm  *GameManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &Config{
		assets:       writeAssets(t, 3, 3, 1),
		pairs:        2,
		aiCount:      3,
		realCount:    3,
		backgrounds:  1,
		fetchTimeout: time.Second,
		store:        "memory",
	}

	app, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}

	errs := make(chan error, 64)
	gm := newGameManager(app, 0)

	mux := httprouter.New()
	mux.NotFound = serveNotFound(cfg, gm)
	mux.GET("/static/*asset", serveStatic(cfg, errs))
	registerFavicons(cfg, mux, errs)
	registerGame(cfg, app, gm, mux, errs)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		gm.closeAll()
		srv.Close()
	})

	return &testServer{Server: srv, app: app, gm: gm}
}

func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func TestRootRedirectsToNewGame(t *testing.T) {
	srv := newTestServer(t)
	client := &http.Client{CheckRedirect: noRedirects}

	resp, err := client.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()

	loc := resp.Header.Get("Location")
	if resp.StatusCode != http.StatusTemporaryRedirect || !strings.HasPrefix(loc, "/play/") || len(loc) != len("/play/")+8 {
		t.Fatalf("unexpected redirect %d to %q", resp.StatusCode, loc)
	}
}

func TestSharePathRedirectsIntoGame(t *testing.T) {
	srv := newTestServer(t)
	client := &http.Client{CheckRedirect: noRedirects}

	resp, err := client.Get(srv.URL + "/image2_3")
	if err != nil {
		t.Fatalf("GET share path: %v", err)
	}
	resp.Body.Close()

	if loc := resp.Header.Get("Location"); !strings.HasSuffix(loc, "?ai=2&real=3") {
		t.Fatalf("expected the pair to be carried along, got %q", loc)
	}

	resp, err = client.Get(srv.URL + "/nothing-here")
	if err != nil {
		t.Fatalf("GET unknown: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestServeImage(t *testing.T) {
	srv := newTestServer(t)

	// Indices outside the configured counts never reach the cache.
	before := srv.app.cache.Len()
	for _, path := range []string{
		"/images/ai/0",
		"/images/ai/99",
		"/images/ai/1000",
		"/images/ai/-1",
		"/images/real/4",
		"/images/background/1",
		"/images/bogus/1",
		"/images/ai/x",
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}

	if after := srv.app.cache.Len(); after != before {
		t.Fatalf("out of range requests grew the cache from %d to %d entries", before, after)
	}

	tests := map[string]int{
		"/images/ai/1":         http.StatusOK,
		"/images/ai/3":         http.StatusOK,
		"/images/real/3":       http.StatusOK,
		"/images/background/0": http.StatusOK,
	}

	for path, want := range tests {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d, got %d", path, want, resp.StatusCode)
		}

		if want == http.StatusOK && resp.Header.Get("Content-Type") != "image/png" {
			t.Fatalf("%s: unexpected content type %q", path, resp.Header.Get("Content-Type"))
		}
	}
}

func TestClientAssetsEmbedded(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/play/abcd1234", "/static/aiornot/app.js", "/static/aiornot/app.css", "/favicon.ico"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}

		if strings.HasPrefix(path, "/play/") && len(resp.Cookies()) != 1 {
			t.Fatalf("%s: expected the player cookie, got %v", path, resp.Header["Set-Cookie"])
		}
	}
}

type wsConn struct {
	t    *testing.T
	conn *websocket.Conn
	resp *http.Response
}

func dial(t *testing.T, srv *testServer, path string) *wsConn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &wsConn{t: t, conn: conn, resp: resp}
}

// next reads messages until one of the given type arrives, skipping
// loading notices and background rotations.
func (c *wsConn) next(kind string) map[string]any {
	c.t.Helper()

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		var msg map[string]any
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.t.Fatalf("waiting for %q: %v", kind, err)
		}

		switch msg["type"] {
		case kind:
			return msg
		case "loading", "background":
			continue
		default:
			c.t.Fatalf("expected %q, got %v", kind, msg)
		}
	}
}

func (c *wsConn) send(msg ClientMessage) {
	c.t.Helper()

	if err := c.conn.WriteJSON(msg); err != nil {
		c.t.Fatalf("send %s: %v", msg.Type, err)
	}
}

// aiSide asks the game's sequencer where the AI image of the current
// round is; the present message itself does not say.
func (s *testServer) aiSide(t *testing.T, gameID string) string {
	t.Helper()

	hub, ok := s.gm.lookup(gameID)
	if !ok {
		t.Fatalf("no game %q", gameID)
	}

	p := hub.seq.View().Presentation
	if p == nil {
		t.Fatalf("game %q is not presenting", gameID)
	}

	if p.Left.Category == engine.AI {
		return "left"
	}

	return "right"
}

func TestGameOverWebSocket(t *testing.T) {
	srv := newTestServer(t)
	c := dial(t, srv, "/play/testgame/ws")

	state := c.next("state")
	if view := state["view"].(map[string]any); view["state"] != "idle" {
		t.Fatalf("expected an idle session, got %v", view)
	}

	c.next("ready")

	c.send(ClientMessage{Type: "start"})
	present := c.next("present")

	checkHandles(t, srv, present, "testgame")

	c.send(ClientMessage{Type: "answer", Side: srv.aiSide(t, "testgame")})
	next := c.next("present")

	if next["left"] == present["left"] || next["left"] == present["right"] {
		t.Fatalf("expected fresh handles for the next pair, got %v", next)
	}

	checkHandles(t, srv, next, "testgame")

	c.send(ClientMessage{Type: "answer", Side: srv.aiSide(t, "testgame")})
	results := c.next("results")

	result := results["result"].(map[string]any)
	if result["correct"] != 2.0 || result["success_rate"] != 100.0 {
		t.Fatalf("unexpected result %v", result)
	}

	if result["has_percentile"] != false {
		t.Fatalf("the first game has no history to rank against, got %v", result)
	}

	var player string
	for _, cookie := range c.resp.Cookies() {
		if cookie.Name == playerCookieName {
			player = cookie.Value
		}
	}

	if player == "" {
		t.Fatal("expected the upgrade response to set the player cookie")
	}

	events := srv.app.store.(*store.Memory).Events()
	for _, name := range []string{"game_start", "game_complete"} {
		found := false
		for _, e := range events {
			if e.Name == name && e.Attrs.Text("player") == player {
				found = true
			}
		}

		if !found {
			t.Fatalf("expected %s for player %s, got %+v", name, player, events)
		}
	}

	c.send(ClientMessage{Type: "share"})
	share := c.next("share")
	if url, _ := share["url"].(string); !strings.Contains(url, "/?ai=") {
		t.Fatalf("unexpected share link %v", share)
	}

	c.send(ClientMessage{Type: "review"})
	c.next("review")
	c.send(ClientMessage{Type: "review_next"})
	c.next("review")
	c.send(ClientMessage{Type: "review_next"})
	c.next("results")

	resp, err := http.Get(srv.URL + "/leaderboard")
	if err != nil {
		t.Fatalf("GET leaderboard: %v", err)
	}
	defer resp.Body.Close()

	var entries []LeaderboardEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected the two real images seen, got %+v", entries)
	}

	for _, e := range entries {
		if e.RealRate != 100 || e.MistakenRate != 0 || e.Title != "Untitled" {
			t.Fatalf("unexpected leaderboard entry %+v", e)
		}
	}
}

func TestSharedPairOverWebSocket(t *testing.T) {
	srv := newTestServer(t)
	c := dial(t, srv, "/play/challenge/ws?ai=2&real=3")

	state := c.next("state")
	if view := state["view"].(map[string]any); view["mode"] != "single_pair" {
		t.Fatalf("expected a single pair session, got %v", view)
	}

	c.next("present")

	wrong := "left"
	if srv.aiSide(t, "challenge") == "left" {
		wrong = "right"
	}

	c.send(ClientMessage{Type: "answer", Side: wrong})
	result := c.next("results")["result"].(map[string]any)

	if result["passed"] != false || result["message"] != "Oops, it looks like you were wrong." {
		t.Fatalf("unexpected single pair result %v", result)
	}

	c.send(ClientMessage{Type: "reset"})
	if redirect := c.next("redirect"); redirect["url"] != "/" {
		t.Fatalf("unexpected redirect %v", redirect)
	}
}

// checkHandles verifies a present message names its images only by opaque
// handles that resolve to the round's images.
func checkHandles(t *testing.T, srv *testServer, present map[string]any, gameID string) {
	t.Helper()

	pair := present["pair"].(map[string]any)
	if _, ok := pair["left"]; ok {
		t.Fatalf("the pair must not expose its images, got %v", pair)
	}

	prefix := "/play/" + gameID + "/image/"
	for _, side := range []string{"left", "right"} {
		url, _ := present[side].(string)
		if !strings.HasPrefix(url, prefix) || strings.Contains(url, "/images/") {
			t.Fatalf("unexpected %s image url %q", side, url)
		}

		handle := strings.TrimPrefix(url, prefix)
		if len(handle) != 16 {
			t.Fatalf("unexpected handle %q", handle)
		}

		resp, err := http.Get(srv.URL + url)
		if err != nil {
			t.Fatalf("GET %s: %v", url, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
			t.Fatalf("%s: expected a png, got %d %q", url, resp.StatusCode, resp.Header.Get("Content-Type"))
		}
	}

	for _, path := range []string{prefix + "0000000000000000", "/play/nogame/image/0000000000000000"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestOutOfRangeShareLinkPlaysNormalGame(t *testing.T) {
	srv := newTestServer(t)
	c := dial(t, srv, "/play/faraway/ws?ai=1000&real=1")

	state := c.next("state")
	if view := state["view"].(map[string]any); view["mode"] != "normal" {
		t.Fatalf("expected a normal session, got %v", view)
	}

	if srv.app.cache.Has(engine.ImageRef{Category: engine.AI, Index: 1000}) {
		t.Fatal("out of range share link reached the cache")
	}
}

func TestReapIdleGames(t *testing.T) {
	srv := newTestServer(t)

	c := dial(t, srv, "/play/busy/ws")
	c.next("state")

	srv.gm.getHub("idle", nil)

	srv.gm.reap(time.Now().Add(time.Hour))

	if _, ok := srv.gm.lookup("idle"); ok {
		t.Fatal("expected the idle game to be reaped")
	}

	if _, ok := srv.gm.lookup("busy"); !ok {
		t.Fatal("games with connected players are kept")
	}
}

func TestBaseURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/play/abc", nil)
	r.Host = "game.example"
	r.Header.Set("X-Forwarded-Proto", "https")

	if got := baseURL(&Config{prefix: "/aiornot"}, r); got != "https://game.example/aiornot" {
		t.Fatalf("unexpected base url %q", got)
	}

	if got := baseURL(&Config{publicURL: "https://ai.example/"}, r); got != "https://ai.example" {
		t.Fatalf("unexpected base url %q", got)
	}
}

func TestValidate(t *testing.T) {
	base := Config{port: 8080, pairs: 10, aiCount: 20, realCount: 20, store: "memory"}

	if err := base.validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := []func(c *Config){
		func(c *Config) { c.pairs = 0 },
		func(c *Config) { c.aiCount = 5 },
		func(c *Config) { c.tlsCert = "cert.pem" },
		func(c *Config) { c.store = "redis" },
		func(c *Config) { c.store = "mongo" },
		func(c *Config) { c.port = 0 },
	}

	for i, mutate := range bad {
		c := base
		mutate(&c)

		if err := c.validate(); err == nil {
			t.Fatalf("case %d: expected an error", i)
		}
	}
}
