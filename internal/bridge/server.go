// Package bridge connects a running editor to the notifier.
//
// The editor extension opens a WebSocket at /ws and streams text changes,
// focus changes and completion candidates. The same connection carries
// in-editor messages and host actions back to the editor, so the bridge
// is both the event source for the activity loop and the notify.MessageSink
// and notify.Host of the policy handler. A small REST surface reports
// status and triggers test alerts.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/copilot-notifier/copilot-notifier/internal/notify"
)

// TokenHeader carries the bridge token when no Authorization header is used
const TokenHeader = "X-Copilot-Notifier-Token"

const shutdownTimeout = 5 * time.Second

var ginMode sync.Once

var (
	// ErrNoEditor is returned when an editor action is requested with no editor connected
	ErrNoEditor = errors.New("no editor connected")
	// ErrEditorGone is returned when the editor disconnects before answering
	ErrEditorGone = errors.New("editor disconnected")
)

// Events receives editor activity. lifecycle.Loop implements it.
type Events interface {
	Edit(length int)
	FocusChange(length int)
	Suggest(s notify.Suggestion)
}

// Options configures a Server
type Options struct {
	// Token, when set, must accompany every request except /health
	Token  string
	Events Events
	// Status returns the body of GET /api/v1/status
	Status func() any
	// Test sends a test alert through the full chain
	Test   func(ctx context.Context) notify.Result
	Logger *zap.Logger
}

// Server is the editor bridge
type Server struct {
	token    string
	events   Events
	status   func() any
	test     func(ctx context.Context) notify.Result
	logger   *zap.Logger
	router   *gin.Engine
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients []*client
	pending map[string]chan string
}

// NewServer creates a bridge server
func NewServer(opts Options) *Server {
	ginMode.Do(func() { gin.SetMode(gin.ReleaseMode) })
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		token:   opts.Token,
		events:  opts.Events,
		status:  opts.Status,
		test:    opts.Test,
		logger:  opts.Logger.Named("bridge"),
		router:  gin.New(),
		pending: make(map[string]chan string),
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// SetEvents sets the receiver of editor activity. Must be called before Run.
func (s *Server) SetEvents(e Events) {
	s.events = e
}

// Handler returns the HTTP router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	authed := s.router.Group("/", s.authorize)
	authed.GET("/ws", s.handleWS)

	api := authed.Group("/api/v1")
	{
		api.GET("/status", s.handleStatus)
		api.POST("/alerts/test", s.handleTest)
	}
}

// Run serves on addr until ctx is done, then shuts down and drops all editors
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("bridge listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.closeClients()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge server: %w", err)
	case <-ctx.Done():
	}

	s.closeClients()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down bridge: %w", err)
	}
	return nil
}

// Connected returns the number of connected editors
func (s *Server) Connected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) authorize(c *gin.Context) {
	if s.token == "" {
		c.Next()
		return
	}
	r := c.Request
	auth := r.Header.Get("Authorization")
	if r.URL.Query().Get("token") == s.token ||
		r.Header.Get(TokenHeader) == s.token ||
		(strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.token) {
		c.Next()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// checkOrigin admits non-browser clients, editor webviews and loopback pages
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme == "vscode-webview" {
		return true
	}
	switch u.Hostname() {
	case "127.0.0.1", "localhost", "::1":
		return true
	}
	return false
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	body := gin.H{"editors": s.Connected()}
	if s.status != nil {
		body["monitor"] = s.status()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleTest(c *gin.Context) {
	if s.test == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "test alerts unavailable"})
		return
	}
	r := s.test(c.Request.Context())
	resp := TestResponse{Delivered: r.Delivered, Strategy: r.Strategy}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, f.Strategy)
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := newClient(conn, s.logger)
	s.addClient(cl)
	s.logger.Info("editor connected", zap.String("remote", c.Request.RemoteAddr))

	go func() {
		defer func() {
			s.removeClient(cl)
			cl.close()
			s.logger.Info("editor disconnected", zap.String("remote", c.Request.RemoteAddr))
		}()
		s.readPump(cl)
	}()
}

func (s *Server) readPump(cl *client) {
	for {
		var msg Inbound
		if err := cl.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("bridge read failed", zap.Error(err))
			}
			return
		}
		if err := s.route(msg); err != nil {
			cl.enqueue(Outbound{Type: MsgError, Message: err.Error()})
		}
	}
}

func (s *Server) route(msg Inbound) error {
	switch msg.Type {
	case MsgEdit:
		if s.events != nil {
			s.events.Edit(msg.Length)
		}
	case MsgFocus:
		if s.events != nil {
			s.events.FocusChange(msg.Length)
		}
	case MsgSuggestion:
		// A candidate without text is missing completion data; nothing to report.
		if s.events != nil && msg.Text != "" {
			s.events.Suggest(notify.NewSuggestion(msg.Text))
		}
	case MsgActionResult:
		s.resolve(msg.ID, msg.Action)
	default:
		return fmt.Errorf("unknown frame type %q", msg.Type)
	}
	return nil
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = append(s.clients, c)
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cl := range s.clients {
		if cl == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return
		}
	}
}

// current returns the most recently connected editor
func (s *Server) current() *client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return nil
	}
	return s.clients[len(s.clients)-1]
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := s.clients
	s.clients = nil
	s.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

func (s *Server) resolve(id, action string) {
	s.mu.Lock()
	ch, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("action result for unknown message", zap.String("id", id))
		return
	}
	ch <- action
}

// Show displays msg in the editor and waits for the chosen action.
// An empty action means the message was closed without a choice.
func (s *Server) Show(ctx context.Context, severity notify.Severity, msg string, actions ...string) (string, error) {
	c := s.current()
	if c == nil {
		return "", ErrNoEditor
	}

	id := uuid.NewString()
	ch := make(chan string, 1)
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if !c.enqueue(Outbound{Type: MsgShowMessage, ID: id, Severity: string(severity), Message: msg, Actions: actions}) {
		return "", ErrEditorGone
	}

	select {
	case action := <-ch:
		return action, nil
	case <-c.done:
		return "", ErrEditorGone
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// RequestSuggestion asks the editor to re-run its completion request
func (s *Server) RequestSuggestion(context.Context) error {
	return s.notifyEditor(MsgRequestSuggestion)
}

// OpenSettings asks the editor to open the notifier settings
func (s *Server) OpenSettings(context.Context) error {
	return s.notifyEditor(MsgOpenSettings)
}

func (s *Server) notifyEditor(t MessageType) error {
	c := s.current()
	if c == nil {
		return ErrNoEditor
	}
	if !c.enqueue(Outbound{Type: t}) {
		return fmt.Errorf("%s: %w", t, ErrEditorGone)
	}
	return nil
}
