package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/samsaffron/sql2pyspark/internal/llm"
	servechat "github.com/samsaffron/sql2pyspark/internal/serve/chat"
)

// RemoteBackend talks to a `sql2pyspark serve` instance over WebSocket.
// It mirrors the server's transcript locally for rendering.
type RemoteBackend struct {
	url  string
	conn *websocket.Conn

	sendCh  chan servechat.ClientEvent
	done    chan struct{}
	writeMu sync.Mutex

	mu        sync.Mutex
	name      string
	sessionID string
	turns     []llm.Message
	streamCh  chan StreamEvent
	closed    bool
}

// NewRemoteBackend dials the server and waits for its session_ready event.
func NewRemoteBackend(ctx context.Context, urlStr, token string) (*RemoteBackend, error) {
	wsURL, err := normalizeWSURL(urlStr)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	if strings.TrimSpace(token) != "" {
		headers.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("connect %s: unauthorized (check --token)", wsURL)
		}
		return nil, fmt.Errorf("connect %s: %w", wsURL, err)
	}

	var ready servechat.WireEvent
	if err := conn.ReadJSON(&ready); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read session_ready: %w", err)
	}
	if ready.Type != servechat.EventSessionReady {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected event: %s", ready.Type)
	}

	b := &RemoteBackend{
		url:    wsURL,
		conn:   conn,
		sendCh: make(chan servechat.ClientEvent, 8),
		done:   make(chan struct{}),
	}
	b.applyReady(ready)

	go b.writeLoop()
	go b.readLoop()
	return b, nil
}

func (b *RemoteBackend) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

// SessionID is the server-side session of this connection.
func (b *RemoteBackend) SessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

func (b *RemoteBackend) Send(ctx context.Context, text string) (<-chan StreamEvent, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.New("connection closed")
	}
	if b.streamCh != nil {
		b.mu.Unlock()
		return nil, errBusy
	}
	ch := make(chan StreamEvent, 64)
	b.streamCh = ch
	b.turns = append(b.turns, llm.UserText(text))
	pending := len(b.turns)
	b.mu.Unlock()

	select {
	case b.sendCh <- servechat.ClientEvent{Type: servechat.ClientMessage, Text: text}:
	case <-ctx.Done():
		b.abandon(ch, pending)
		return nil, ctx.Err()
	case <-b.done:
		b.abandon(ch, pending)
		return nil, errors.New("connection closed")
	}
	return ch, nil
}

// abandon undoes a Send whose message never reached the server: the stream
// is released and the optimistic user turn removed.
func (b *RemoteBackend) abandon(ch chan StreamEvent, pending int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamCh == ch {
		b.streamCh = nil
	}
	if len(b.turns) == pending {
		b.turns = b.turns[:pending-1]
	}
}

func (b *RemoteBackend) Reset() error {
	b.mu.Lock()
	busy := b.streamCh != nil
	b.mu.Unlock()
	if busy {
		return errBusy
	}
	select {
	case b.sendCh <- servechat.ClientEvent{Type: servechat.ClientReset}:
		return nil
	case <-b.done:
		return errors.New("connection closed")
	}
}

func (b *RemoteBackend) Turns() []llm.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]llm.Message(nil), b.turns...)
}

func (b *RemoteBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	close(b.done)
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return b.conn.Close()
}

func (b *RemoteBackend) writeLoop() {
	for {
		select {
		case ev := <-b.sendCh:
			b.writeMu.Lock()
			err := b.conn.WriteJSON(ev)
			b.writeMu.Unlock()
			if err != nil {
				// readLoop sees the closed socket and ends the stream.
				_ = b.conn.Close()
				return
			}
		case <-b.done:
			return
		}
	}
}

func (b *RemoteBackend) readLoop() {
	for {
		var ev servechat.WireEvent
		if err := b.conn.ReadJSON(&ev); err != nil {
			b.finish(StreamEvent{Type: StreamError, Err: fmt.Errorf("connection lost: %w", err)})
			return
		}
		b.handleWireEvent(ev)
	}
}

func (b *RemoteBackend) handleWireEvent(ev servechat.WireEvent) {
	switch ev.Type {
	case servechat.EventSessionReady:
		b.applyReady(ev)
	case servechat.EventTextDelta:
		b.mu.Lock()
		ch := b.streamCh
		b.mu.Unlock()
		if ch != nil {
			ch <- StreamEvent{Type: StreamText, Text: ev.Text}
		}
	case servechat.EventMessageDone:
		b.mu.Lock()
		b.turns = append(b.turns, llm.AssistantText(ev.Text))
		b.mu.Unlock()
		b.finish(StreamEvent{Type: StreamDone, Text: ev.Text})
	case servechat.EventBusy:
		// The server never recorded the prompt.
		b.mu.Lock()
		if n := len(b.turns); n > 0 && b.turns[n-1].Role == llm.RoleUser {
			b.turns = b.turns[:n-1]
		}
		b.mu.Unlock()
		b.finish(StreamEvent{Type: StreamError, Err: errBusy})
	case servechat.EventError:
		b.finish(StreamEvent{Type: StreamError, Err: errors.New(ev.Message)})
	}
}

func (b *RemoteBackend) applyReady(ev servechat.WireEvent) {
	turns := make([]llm.Message, 0, len(ev.History))
	for _, h := range ev.History {
		turns = append(turns, llm.Message{Role: llm.Role(h.Role), Content: h.Text})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionID = ev.SessionID
	b.turns = turns
	b.name = ev.Backend
	if u, err := url.Parse(b.url); err == nil {
		b.name += " @ " + u.Host
	}
}

// finish delivers the final event of the current stream and closes it.
func (b *RemoteBackend) finish(ev StreamEvent) {
	b.mu.Lock()
	ch := b.streamCh
	b.streamCh = nil
	b.mu.Unlock()
	if ch == nil {
		return
	}
	ch <- ev
	close(ch)
}

// normalizeWSURL accepts host:port, http(s):// or ws(s):// and points it at
// the chat socket.
func normalizeWSURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", errors.New("remote URL is required")
	}
	if !strings.Contains(value, "://") {
		value = "ws://" + value
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/chat/ws"
	return parsed.String(), nil
}

var _ Backend = (*RemoteBackend)(nil)
