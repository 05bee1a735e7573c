package chat

import "github.com/samsaffron/sql2pyspark/internal/llm"

// Server → client event types.
const (
	EventSessionReady = "session_ready"
	EventTextDelta    = "text_delta"
	EventMessageDone  = "message_done"
	EventError        = "error"
	EventBusy         = "busy"
)

// Client → server event types.
const (
	ClientMessage = "message"
	ClientReset   = "reset"
)

// WireEvent is the JSON envelope sent to WebSocket clients. Seq increases
// by one per event on a connection, starting at 1 with session_ready.
type WireEvent struct {
	Seq       int64         `json:"seq"`
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	Backend   string        `json:"backend,omitempty"`
	History   []HistoryItem `json:"history,omitempty"`
	Text      string        `json:"text,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// HistoryItem is one transcript turn in a session_ready event.
type HistoryItem struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ClientEvent is the JSON payload received from WebSocket clients.
type ClientEvent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func historyItems(turns []llm.Message) []HistoryItem {
	items := make([]HistoryItem, 0, len(turns))
	for _, t := range turns {
		items = append(items, HistoryItem{Role: string(t.Role), Text: t.Content})
	}
	return items
}
