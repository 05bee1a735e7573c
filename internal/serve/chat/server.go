// Package chat serves the browser front-end: a static page and a
// WebSocket endpoint with one chat session per connection.
package chat

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"github.com/samsaffron/sql2pyspark/internal/llm"
	"github.com/samsaffron/sql2pyspark/internal/session"
)

//go:embed static/index.html
var indexHTML []byte

// Options configures a Server.
type Options struct {
	// Adapter answers every connection. It must be safe for concurrent use.
	Adapter llm.Adapter
	// Seed is copied into each new session's transcript.
	Seed []llm.Message
	// Token, when set, must be presented as a bearer token or ?token=.
	Token  string
	Logger zerolog.Logger
	// OnExchange runs after every completed interaction on any connection.
	OnExchange func(session.Exchange)
	// MaxConns caps simultaneous TCP connections. Zero means no limit.
	MaxConns int
}

// Server owns the live connections. Sessions are not persisted; closing the
// socket discards the conversation.
type Server struct {
	opts     Options
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*conn
}

type conn struct {
	id         string
	ws         *websocket.Conn
	writeMu    sync.Mutex
	seq        int64
	responding atomic.Bool
	connected  time.Time

	mu   sync.Mutex
	sess *session.Session
}

func NewServer(opts Options) *Server {
	return &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*conn),
	}
}

// Handler returns the HTTP routes: the page at /, the socket at /chat/ws
// and a JSON list of live sessions at /chat/sessions.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /chat/ws", s.auth(s.handleSocket))
	mux.HandleFunc("GET /chat/sessions", s.auth(s.handleListSessions))
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.opts.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConns)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	s.opts.Logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ActiveSessions returns the number of open connections.
func (s *Server) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	items := make([]map[string]any, 0, len(s.conns))
	for _, c := range s.conns {
		sess := c.session()
		items = append(items, map[string]any{
			"id":        sess.ID(),
			"turns":     sess.Len(),
			"state":     sess.State().String(),
			"connected": c.connected.Format(time.RFC3339),
		})
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{"sessions": items})
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.opts.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &conn{id: uuid.NewString(), ws: ws, connected: time.Now()}
	c.sess = s.newSession(c.id)
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()

	logger := s.opts.Logger.With().Str("conn", c.id).Logger()
	logger.Info().Str("remote", r.RemoteAddr).Msg("connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.conns, c.id)
		s.mu.Unlock()
		_ = ws.Close()
		logger.Info().Msg("disconnected")
	}()

	s.sendReady(c)

	for {
		var ev ClientEvent
		if err := ws.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("read failed")
			}
			return
		}
		switch ev.Type {
		case ClientMessage:
			if strings.TrimSpace(ev.Text) == "" {
				c.write(WireEvent{Type: EventError, Message: session.ErrEmptyPrompt.Error()})
				continue
			}
			if !c.responding.CompareAndSwap(false, true) {
				c.write(WireEvent{Type: EventBusy, Message: session.ErrBusy.Error()})
				continue
			}
			go s.respond(ctx, c, ev.Text, logger)
		case ClientReset:
			if c.responding.Load() {
				c.write(WireEvent{Type: EventBusy, Message: session.ErrBusy.Error()})
				continue
			}
			c.mu.Lock()
			c.sess = s.newSession(c.id)
			c.mu.Unlock()
			s.sendReady(c)
		default:
			c.write(WireEvent{Type: EventError, Message: "unknown event type " + ev.Type})
		}
	}
}

// respond runs one interaction and streams it to the client. The caller has
// already marked c as responding.
func (s *Server) respond(ctx context.Context, c *conn, prompt string, logger zerolog.Logger) {
	defer c.responding.Store(false)

	sess := c.session()
	text, err := sess.Submit(ctx, prompt, func(fragment string) {
		c.write(WireEvent{Type: EventTextDelta, Text: fragment})
	})
	switch {
	case errors.Is(err, session.ErrBusy):
		c.write(WireEvent{Type: EventBusy, Message: err.Error()})
	case err != nil:
		logger.Error().Err(err).Msg("generation failed")
		c.write(WireEvent{Type: EventError, Message: err.Error()})
	default:
		c.write(WireEvent{Type: EventMessageDone, Text: text})
	}
}

func (s *Server) newSession(id string) *session.Session {
	opts := []session.Option{
		session.WithID(id),
		session.WithSeed(s.opts.Seed...),
		session.WithLogger(s.opts.Logger),
	}
	if s.opts.OnExchange != nil {
		opts = append(opts, session.OnExchange(s.opts.OnExchange))
	}
	return session.New(s.opts.Adapter, opts...)
}

func (s *Server) sendReady(c *conn) {
	sess := c.session()
	c.write(WireEvent{
		Type:      EventSessionReady,
		SessionID: sess.ID(),
		Backend:   sess.AdapterName(),
		History:   historyItems(slices.Collect(sess.Turns())),
	})
}

func (s *Server) closeAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conns {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	}
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// authorized accepts the token in the Authorization header or, since
// browsers cannot set headers on a WebSocket handshake, as ?token=.
func (s *Server) authorized(r *http.Request) bool {
	token := strings.TrimSpace(s.opts.Token)
	if token == "" {
		return true
	}
	if tokenMatches(r.URL.Query().Get("token"), token) {
		return true
	}
	value := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) {
		return false
	}
	return tokenMatches(strings.TrimSpace(strings.TrimPrefix(value, prefix)), token)
}

func tokenMatches(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (c *conn) session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *conn) write(ev WireEvent) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.seq++
	ev.Seq = c.seq
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = c.ws.WriteMessage(websocket.TextMessage, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
