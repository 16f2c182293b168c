package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

// recordingEvents captures editor activity
type recordingEvents struct {
	mu          sync.Mutex
	edits       []int
	focus       []int
	suggestions []notify.Suggestion
}

func (r *recordingEvents) Edit(length int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, length)
}

func (r *recordingEvents) FocusChange(length int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focus = append(r.focus, length)
}

func (r *recordingEvents) Suggest(s notify.Suggestion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suggestions = append(r.suggestions, s)
}

func (r *recordingEvents) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.edits), len(r.focus), len(r.suggestions)
}

func startServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.closeClients()
		ts.Close()
	})
	return s, ts
}

func dial(t *testing.T, s *Server, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return s.Connected() > 0 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Outbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServer_Authorization(t *testing.T) {
	t.Parallel()
	_, ts := startServer(t, Options{Token: "secret"})

	tests := map[string]struct {
		path     string
		header   map[string]string
		wantCode int
	}{
		"health needs no token": {path: "/health", wantCode: http.StatusOK},
		"status without token":  {path: "/api/v1/status", wantCode: http.StatusUnauthorized},
		"wrong token":           {path: "/api/v1/status?token=nope", wantCode: http.StatusUnauthorized},
		"query token":           {path: "/api/v1/status?token=secret", wantCode: http.StatusOK},
		"header token":          {path: "/api/v1/status", header: map[string]string{TokenHeader: "secret"}, wantCode: http.StatusOK},
		"bearer token":          {path: "/api/v1/status", header: map[string]string{"Authorization": "Bearer secret"}, wantCode: http.StatusOK},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			req, err := http.NewRequest(http.MethodGet, ts.URL+tt.path, nil)
			require.NoError(t, err)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}

func TestServer_RoutesEditorFrames(t *testing.T) {
	t.Parallel()
	events := &recordingEvents{}
	s, ts := startServer(t, Options{Events: events})
	conn := dial(t, s, ts, "")

	for _, frame := range []Inbound{
		{Type: MsgEdit, Length: 120},
		{Type: MsgFocus, Length: 4000, Document: "main.go"},
		{Type: MsgSuggestion, Text: "fmt.Println(\"hello\")"},
		{Type: MsgSuggestion},
	} {
		require.NoError(t, conn.WriteJSON(frame))
	}

	require.Eventually(t, func() bool {
		e, f, sg := events.counts()
		return e == 1 && f == 1 && sg == 1
	}, 2*time.Second, 10*time.Millisecond)

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, []int{120}, events.edits)
	assert.Equal(t, []int{4000}, events.focus)
	assert.Equal(t, 20, events.suggestions[0].Length)
}

func TestServer_UnknownFrameIsReported(t *testing.T) {
	t.Parallel()
	s, ts := startServer(t, Options{})
	conn := dial(t, s, ts, "")

	require.NoError(t, conn.WriteJSON(Inbound{Type: "bogus"}))
	msg := readFrame(t, conn)
	assert.Equal(t, MsgError, msg.Type)
	assert.Contains(t, msg.Message, "bogus")
}

func TestServer_ShowRoundTrip(t *testing.T) {
	t.Parallel()
	s, ts := startServer(t, Options{Token: "tok"})
	conn := dial(t, s, ts, "?token=tok")

	type shown struct {
		action string
		err    error
	}
	got := make(chan shown, 1)
	go func() {
		a, err := s.Show(context.Background(), notify.SeverityWarning, "New suggestion",
			notify.ActionView, notify.ActionDismiss, notify.ActionSettings)
		got <- shown{a, err}
	}()

	msg := readFrame(t, conn)
	assert.Equal(t, MsgShowMessage, msg.Type)
	assert.Equal(t, "warning", msg.Severity)
	assert.Equal(t, []string{"View", "Dismiss", "Settings"}, msg.Actions)
	require.NotEmpty(t, msg.ID)

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgActionResult, ID: msg.ID, Action: notify.ActionView}))

	select {
	case r := <-got:
		require.NoError(t, r.err)
		assert.Equal(t, notify.ActionView, r.action)
	case <-time.After(2 * time.Second):
		t.Fatal("Show did not return")
	}
}

func TestServer_ShowWithoutEditor(t *testing.T) {
	t.Parallel()
	s := NewServer(Options{})

	_, err := s.Show(context.Background(), notify.SeverityInfo, "hi")
	assert.ErrorIs(t, err, ErrNoEditor)
	assert.ErrorIs(t, s.RequestSuggestion(context.Background()), ErrNoEditor)
	assert.ErrorIs(t, s.OpenSettings(context.Background()), ErrNoEditor)
}

func TestServer_ShowEditorDisconnects(t *testing.T) {
	t.Parallel()
	s, ts := startServer(t, Options{})
	conn := dial(t, s, ts, "")

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Show(context.Background(), notify.SeverityInfo, "hi")
		errCh <- err
	}()

	readFrame(t, conn)
	conn.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrEditorGone)
	case <-time.After(2 * time.Second):
		t.Fatal("Show did not return")
	}
}

func TestServer_HostActions(t *testing.T) {
	t.Parallel()
	s, ts := startServer(t, Options{})
	conn := dial(t, s, ts, "")

	require.NoError(t, s.RequestSuggestion(context.Background()))
	assert.Equal(t, MsgRequestSuggestion, readFrame(t, conn).Type)

	require.NoError(t, s.OpenSettings(context.Background()))
	assert.Equal(t, MsgOpenSettings, readFrame(t, conn).Type)
}

func TestServer_HandlerActionsThroughBridge(t *testing.T) {
	t.Parallel()
	s, ts := startServer(t, Options{})
	conn := dial(t, s, ts, "")

	h := notify.NewHandler(nil, notify.StaticPolicy(notify.Policy{}), notify.WithHost(s))
	require.NoError(t, h.HandleAction(context.Background(), notify.ActionSettings))
	assert.Equal(t, MsgOpenSettings, readFrame(t, conn).Type)
}

func TestServer_StatusAndTest(t *testing.T) {
	t.Parallel()
	_, ts := startServer(t, Options{
		Status: func() any { return map[string]string{"state": "idle"} },
		Test: func(context.Context) notify.Result {
			return notify.Result{
				Failures: []notify.Outcome{{Strategy: "notify-send", Err: notify.ErrToolUnavailable}},
				Err:      errors.New("delivery exhausted"),
			}
		},
	})

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.EqualValues(t, 0, status["editors"])
	assert.Equal(t, map[string]any{"state": "idle"}, status["monitor"])

	resp, err = http.Post(ts.URL+"/api/v1/alerts/test", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	var tr TestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	assert.False(t, tr.Delivered)
	assert.Equal(t, []string{"notify-send"}, tr.Failures)
	assert.Equal(t, "delivery exhausted", tr.Error)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	s := NewServer(Options{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestCheckOrigin(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		origin string
		want   bool
	}{
		"no origin":      {origin: "", want: true},
		"loopback page":  {origin: "http://127.0.0.1:5173", want: true},
		"localhost page": {origin: "http://localhost:3000", want: true},
		"editor webview": {origin: "vscode-webview://abc", want: true},
		"foreign page":   {origin: "https://evil.example", want: false},
		"lookalike host": {origin: "http://localhost.evil.example", want: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(r))
		})
	}
}
