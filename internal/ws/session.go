// Package ws manages the console's single live WebSocket connection and
// its event log.
package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"qapi/internal/model"
)

// State is the connection lifecycle position.
type State int

const (
	Idle State = iota
	Connecting
	Open
	Closed
	Errored
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	default:
		return "idle"
	}
}

// Manager owns at most one socket at a time. Connecting force-closes any
// previous socket first, and events from a superseded socket are dropped
// rather than delivered into the new session's log.
type Manager struct {
	mu         sync.Mutex
	dialer     *websocket.Dialer
	conn       *websocket.Conn
	gen        int
	localClose bool
	state      State
	log        []model.WSLogEntry
	record     model.ResponseRecord
	publish    func(model.ResponseRecord)
}

// NewManager creates a manager. publish receives a snapshot of the
// session's response record after every event; it may be nil.
func NewManager(publish func(model.ResponseRecord)) *Manager {
	return &Manager{
		dialer:  websocket.DefaultDialer,
		state:   Idle,
		publish: publish,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Record returns a snapshot of the session's response record.
func (m *Manager) Record() model.ResponseRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Connect opens a socket to the preset's URL, replacing any existing
// connection for this session. The event log resets; once the socket is
// open the record shows status OPEN with a "connected" system entry.
func (m *Manager) Connect(p model.Preset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.URL == "" {
		return fmt.Errorf("preset %q has no URL", p.Name)
	}

	m.closeLocked()
	m.gen++
	gen := m.gen
	m.state = Connecting

	conn, _, err := m.dialer.Dial(p.URL, nil)
	if err != nil {
		m.state = Errored
		m.log = []model.WSLogEntry{systemEntry("WebSocket error")}
		m.record = m.newRecordLocked(p)
		m.record.Status = model.StatusWSError
		m.record.OK = false
		m.publishLocked()
		return fmt.Errorf("websocket dial: %w", err)
	}

	m.conn = conn
	m.localClose = false
	m.state = Open
	m.log = []model.WSLogEntry{systemEntry("WebSocket connected")}
	m.record = m.newRecordLocked(p)
	m.record.Status = model.StatusWSOpen
	m.record.OK = true
	m.publishLocked()

	go m.readLoop(conn, gen)
	return nil
}

// Send writes the preset's message over the open socket and logs a
// "sent" entry. With no open socket or an empty message it is a no-op,
// not an error.
func (m *Manager) Send(p model.Preset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Open || m.conn == nil || p.WSMessage == "" {
		return nil
	}

	if err := m.conn.WriteMessage(websocket.TextMessage, []byte(p.WSMessage)); err != nil {
		// Retire the socket so the read loop's own failure on it is
		// dropped as stale instead of logging a second error entry.
		m.gen++
		m.closeLocked()
		m.transitionLocked(model.StatusWSError, Errored, "WebSocket error")
		return fmt.Errorf("websocket send: %w", err)
	}

	m.log = append([]model.WSLogEntry{{
		Type:      model.WSEntrySent,
		Message:   p.WSMessage,
		Timestamp: time.Now().UTC(),
	}}, m.log...)
	m.record.Body = m.logCopyLocked()
	m.publishLocked()
	return nil
}

// Close force-closes the socket regardless of state. Safe to call on an
// idle session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.conn != nil {
		m.localClose = true
		m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			if m.gen != gen {
				// A newer connection owns the log now.
				m.mu.Unlock()
				return
			}
			if m.localClose || websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				m.transitionLocked(model.StatusWSClosed, Closed, "WebSocket closed")
			} else {
				m.transitionLocked(model.StatusWSError, Errored, "WebSocket error")
			}
			m.conn = nil
			m.mu.Unlock()
			return
		}

		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		m.log = append([]model.WSLogEntry{{
			Type:      model.WSEntryMessage,
			Message:   string(data),
			Timestamp: time.Now().UTC(),
		}}, m.log...)
		m.record.Body = m.logCopyLocked()
		m.publishLocked()
		m.mu.Unlock()
	}
}

// transitionLocked prepends a system entry and moves the record to a
// terminal status.
func (m *Manager) transitionLocked(status string, state State, message string) {
	m.state = state
	m.log = append([]model.WSLogEntry{systemEntry(message)}, m.log...)
	m.record.Status = status
	m.record.OK = false
	m.record.Body = m.logCopyLocked()
	m.publishLocked()
}

func (m *Manager) newRecordLocked(p model.Preset) model.ResponseRecord {
	return model.ResponseRecord{
		ID:        fmt.Sprintf("ws-%d", time.Now().UnixMilli()),
		Name:      p.Name,
		Type:      model.TypeWebSocket,
		Duration:  0,
		Timestamp: time.Now().UTC(),
		Body:      m.logCopyLocked(),
		Raw:       "",
		Headers:   map[string]string{},
		URL:       p.URL,
	}
}

func (m *Manager) logCopyLocked() []model.WSLogEntry {
	out := make([]model.WSLogEntry, len(m.log))
	copy(out, m.log)
	return out
}

func (m *Manager) snapshotLocked() model.ResponseRecord {
	rec := m.record
	rec.Body = m.logCopyLocked()
	return rec
}

func (m *Manager) publishLocked() {
	if m.publish != nil {
		m.publish(m.snapshotLocked())
	}
}

func systemEntry(message string) model.WSLogEntry {
	return model.WSLogEntry{
		Type:      model.WSEntrySystem,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}
