package model

import "time"

// Status markers used where no HTTP status code exists.
const (
	StatusError    = "ERR"
	StatusWSOpen   = "OPEN"
	StatusWSClosed = "CLOSED"
	StatusWSError  = "ERROR"
)

// WSLogEntry kinds.
const (
	WSEntrySent    = "sent"
	WSEntryMessage = "message"
	WSEntrySystem  = "system"
)

// WSLogEntry is one line in a WebSocket session log.
type WSLogEntry struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ResponseRecord is the normalized result of one explicit execution, or
// the live record of a WebSocket session. Status holds the HTTP status
// code as text, or one of the marker constants above.
type ResponseRecord struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      PresetType        `json:"type"`
	Status    string            `json:"status"`
	OK        bool              `json:"ok"`
	Duration  int64             `json:"duration"` // milliseconds
	Timestamp time.Time         `json:"timestamp"`
	Body      any               `json:"body"` // parsed JSON, raw text, or []WSLogEntry
	Raw       string            `json:"raw"`
	Headers   map[string]string `json:"headers"`
	URL       string            `json:"url"`
}

// LastPing is the most recent silent-poll outcome for one preset. It is
// overwritten in place on every monitor tick and never accumulated.
type LastPing struct {
	Status    string    `json:"status"`
	Duration  int64     `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
	OK        bool      `json:"ok"`
}
