package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"portainer-monitor/config"
	"portainer-monitor/internal/console"
	"portainer-monitor/internal/display"
	"portainer-monitor/internal/realtime"
	"portainer-monitor/internal/store"
	"portainer-monitor/internal/system"
	"portainer-monitor/utils"
)

type fixture struct {
	srv    *Server
	cfg    *config.Config
	window *console.Window
	queue  *console.Queue
	state  *console.StateBox
}

type stubTransitions struct{ limit int }

func (s *stubTransitions) RecentTransitions(_ context.Context, limit int) ([]store.Transition, error) {
	s.limit = limit
	return []store.Transition{{Name: "web", From: "running", To: "exited"}}, nil
}

type stubPoller struct{}

func (stubPoller) Endpoint() string { return "2" }
func (stubPoller) LastError() error { return errors.New("boom") }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("PMON_CONFIG_PATH", filepath.Join(t.TempDir(), "config.json"))
	utils.SetJWTSecret("api-test")

	cfg := config.DefaultConfig()
	q := console.NewQueue(64)
	box := &console.StateBox{}
	srv := NewServer(Deps{
		Config:      cfg,
		Queue:       q,
		State:       box,
		Transitions: &stubTransitions{},
		Poller:      stubPoller{},
		Stats:       func() system.HostStats { return system.HostStats{Hostname: "pi", CPUUsage: 5} },
	})
	t.Cleanup(srv.Hub().Close)

	null := display.NewNull(240, 320)
	w, err := console.New(null, null, console.Options{OnCommit: srv.PublishLine, OnClear: srv.PublishClear})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{srv: srv, cfg: cfg, window: w, queue: q, state: box}
}

// frame 模拟控制循环的一帧
func (f *fixture) frame() {
	f.queue.Drain(f.window)
	f.state.Publish(f.window.State())
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	rec, out := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "admin"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", rec.Code, rec.Body.String())
	}
	return out["data"].(map[string]any)["token"].(string)
}

func TestLoginAndAuth(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodGet, "/api/v1/console", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodGet, "/api/v1/console", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", rec.Code)
	}

	tok := f.login(t)
	// 尚未发布快照
	if rec, _ := f.do(t, http.MethodGet, "/api/v1/console", tok, nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	tok := f.login(t)

	rec, _ := f.do(t, http.MethodPost, "/api/v1/auth/change-password", tok,
		map[string]string{"old_password": "nope", "new_password": "s3cret!"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	rec, _ = f.do(t, http.MethodPost, "/api/v1/auth/change-password", tok,
		map[string]string{"old_password": "admin", "new_password": "s3cret!"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if f.cfg.Auth.PasswordHash == "" {
		t.Fatal("hash not stored")
	}
	if rec, _ := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "admin"}); rec.Code != http.StatusUnauthorized {
		t.Fatal("old default password still accepted")
	}
	if rec, _ := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "s3cret!"}); rec.Code != http.StatusOK {
		t.Fatal("new password rejected")
	}
}

func TestConsolePrintScrollClear(t *testing.T) {
	f := newFixture(t)
	tok := f.login(t)

	for i := 0; i < 45; i++ {
		if rec, _ := f.do(t, http.MethodPost, "/api/v1/console/print", tok, map[string]any{"text": "row"}); rec.Code != http.StatusOK {
			t.Fatalf("print status = %d", rec.Code)
		}
		f.frame()
	}
	rec, _ := f.do(t, http.MethodPost, "/api/v1/console/print", tok,
		map[string]any{"text": "alert", "fg": "red"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	f.frame()
	lines := f.window.Lines()
	last := lines[len(lines)-1]
	if last.Text != "alert" || last.Foreground != console.Red {
		t.Fatalf("last = %+v", last)
	}
	if fg, _ := f.window.Colors(); fg != console.Green {
		t.Fatal("per-request color leaked into window colors")
	}

	if rec, _ := f.do(t, http.MethodPost, "/api/v1/console/scroll/sideways", tok, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad direction status = %d", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodPost, "/api/v1/console/scroll/down", tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("scroll status = %d", rec.Code)
	}
	f.frame()

	rec, out := f.do(t, http.MethodGet, "/api/v1/console", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := out["data"].(map[string]any)
	if data["vertical"].(float64) != 1 || len(data["lines"].([]any)) != 46 {
		t.Fatalf("snapshot = %v", data)
	}
	if vis := data["visible"].([]any); len(vis) != 40 {
		t.Fatalf("visible rows = %d", len(vis))
	}

	if rec, _ := f.do(t, http.MethodPost, "/api/v1/console/print", tok, map[string]any{"text": "x", "fg": "#12"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad color status = %d", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodPost, "/api/v1/console/print", tok, map[string]any{"text": strings.Repeat("a", maxPrintBytes+1)}); rec.Code != http.StatusBadRequest {
		t.Fatalf("long text status = %d", rec.Code)
	}

	if rec, _ := f.do(t, http.MethodPost, "/api/v1/console/clear", tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	f.frame()
	if f.window.Len() != 0 {
		t.Fatalf("len after clear = %d", f.window.Len())
	}
}

func TestPrintWithoutNewline(t *testing.T) {
	f := newFixture(t)
	tok := f.login(t)
	f.do(t, http.MethodPost, "/api/v1/console/print", tok, map[string]any{"text": "part", "newline": false})
	f.frame()
	if f.window.Len() != 0 || f.window.Pending() != "part" {
		t.Fatalf("len=%d pending=%q", f.window.Len(), f.window.Pending())
	}
}

func TestSystemAndPortainerRoutes(t *testing.T) {
	f := newFixture(t)
	tok := f.login(t)

	_, out := f.do(t, http.MethodGet, "/api/v1/system/info", tok, nil)
	if out["data"].(map[string]any)["hostname"] != "pi" {
		t.Fatalf("system info = %v", out)
	}
	_, out = f.do(t, http.MethodGet, "/api/v1/portainer/status", tok, nil)
	st := out["data"].(map[string]any)
	if st["endpoint"] != "2" || st["last_error"] != "boom" {
		t.Fatalf("status = %v", st)
	}
	_, out = f.do(t, http.MethodGet, "/api/v1/portainer/transitions?limit=5", tok, nil)
	if list := out["data"].([]any); len(list) != 1 {
		t.Fatalf("transitions = %v", out)
	}
	if f.srv.transitions.(*stubTransitions).limit != 5 {
		t.Fatal("limit not passed through")
	}
	if rec, _ := f.do(t, http.MethodGet, "/api/v1/nope", tok, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebSocketStream(t *testing.T) {
	f := newFixture(t)
	tok := f.login(t)
	f.window.Println("before")
	f.state.Publish(f.window.State())

	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/console/ws"

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated dial: err=%v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+tok, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello struct {
		Type string `json:"type"`
		Data struct {
			Console ConsoleDTO `json:"console"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatal(err)
	}
	if hello.Type != "hello" || len(hello.Data.Console.Lines) != 1 || hello.Data.Console.Lines[0].Text != "before" {
		t.Fatalf("hello = %+v", hello)
	}

	// 等 hub 登记完成后再提交新行
	deadline := time.Now().Add(2 * time.Second)
	for f.srv.Hub().Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	f.window.Println("after")

	var ev struct {
		Type  string  `json:"type"`
		Event string  `json:"event"`
		Data  LineDTO `json:"data"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Event != "line" || ev.Data.Text != "after" || ev.Data.Foreground != "#00ff00" {
		t.Fatalf("event = %+v", ev)
	}
}

func readEvents(t *testing.T, cl *realtime.Client, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for len(out) < n {
		select {
		case b := <-cl.Send:
			var m realtime.Message
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatal(err)
			}
			out = append(out, m.Event)
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout after events %v", out)
		}
	}
	return out
}

func TestClearEventFollowsQueuedLines(t *testing.T) {
	f := newFixture(t)
	tok := f.login(t)
	cl := f.srv.Hub().Register(nil)

	// 清屏请求之前已排队的行必须先于 cleared 送达
	f.queue.Println("stale line")
	if rec, _ := f.do(t, http.MethodPost, "/api/v1/console/clear", tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	select {
	case b := <-cl.Send:
		t.Fatalf("event sent before the frame ran: %s", b)
	case <-time.After(50 * time.Millisecond):
	}
	f.frame()
	if got := readEvents(t, cl, 2); !reflect.DeepEqual(got, []string{"line", "cleared"}) {
		t.Fatalf("events = %v", got)
	}
	if f.window.Len() != 0 {
		t.Fatalf("len = %d", f.window.Len())
	}

	// 轮询器走 Queue.Clear，同样要通知
	f.queue.Println("x")
	f.queue.Clear()
	f.frame()
	if got := readEvents(t, cl, 2); !reflect.DeepEqual(got, []string{"line", "cleared"}) {
		t.Fatalf("events = %v", got)
	}
}

func TestLoginDuringPasswordChange(t *testing.T) {
	f := newFixture(t)
	tok := f.login(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "admin"})
		}()
	}
	rec, _ := f.do(t, http.MethodPost, "/api/v1/auth/change-password", tok,
		map[string]string{"old_password": "admin", "new_password": "changed"})
	wg.Wait()
	if rec.Code != http.StatusOK {
		t.Fatalf("change-password status = %d", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "changed"}); rec.Code != http.StatusOK {
		t.Fatalf("login with new password = %d", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "admin"}); rec.Code == http.StatusOK {
		t.Fatal("old password still accepted")
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/console", nil)
	req.Header.Set("Origin", "http://example.lan")
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	h := rec.Header()
	if h.Get("Access-Control-Allow-Origin") != "*" || !strings.Contains(h.Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Fatalf("cors headers = %v", h)
	}
	// 通配来源不能与 credentials 同时出现
	if v := h.Get("Access-Control-Allow-Credentials"); v != "" {
		t.Fatalf("Allow-Credentials = %q with wildcard origin", v)
	}
}
