// Package console owns the live console session: the preset library and
// auth config (persisted through the store on every mutation), the
// current response, the history ring, and per-preset monitor state.
package console

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"qapi/internal/exec"
	"qapi/internal/history"
	"qapi/internal/model"
	"qapi/internal/storage"
)

// Archiver receives explicit run results for cross-session persistence.
type Archiver interface {
	AddRun(presetID string, rec *model.ResponseRecord) error
}

// Session binds the executor, store, and transient result state
// together. All methods are safe for concurrent use; mutations persist
// the full state blob before releasing the lock, so a monitor tick never
// observes a half-updated library.
type Session struct {
	mu    sync.Mutex
	store *storage.Store
	state *storage.State
	exec  *exec.Executor

	current    *model.ResponseRecord
	ring       *history.Ring
	lastPing   map[string]model.LastPing
	monitoring map[string]bool

	archive Archiver
}

// NewSession loads persisted state and prepares a session. A stale or
// missing active selection falls back to the first preset.
func NewSession(store *storage.Store, ex *exec.Executor) (*Session, error) {
	state, err := store.Load()
	if err != nil {
		return nil, err
	}

	s := &Session{
		store:      store,
		state:      state,
		exec:       ex,
		ring:       history.NewRing(history.DefaultCapacity),
		lastPing:   make(map[string]model.LastPing),
		monitoring: make(map[string]bool),
	}
	if _, ok := s.findLocked(state.ActiveID); !ok {
		state.ActiveID = ""
		if len(state.Presets) > 0 {
			state.ActiveID = state.Presets[0].ID
		}
	}
	return s, nil
}

// SetArchive attaches a run archive; explicit runs are recorded there in
// addition to the in-memory ring.
func (s *Session) SetArchive(a Archiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive = a
}

// Presets returns a copy of the preset library.
func (s *Session) Presets() []model.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Preset, len(s.state.Presets))
	copy(out, s.state.Presets)
	return out
}

// Auth returns the shared auth config.
func (s *Session) Auth() model.AuthConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Auth
}

// Preset finds a preset by id, or by name as a fallback.
func (s *Session) Preset(ref string) (model.Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(ref)
}

func (s *Session) findLocked(ref string) (model.Preset, bool) {
	for _, p := range s.state.Presets {
		if p.ID == ref {
			return p, true
		}
	}
	for _, p := range s.state.Presets {
		if strings.EqualFold(p.Name, ref) {
			return p, true
		}
	}
	return model.Preset{}, false
}

// Active returns the active preset, if any.
func (s *Session) Active() (model.Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ActiveID == "" {
		return model.Preset{}, false
	}
	return s.findLocked(s.state.ActiveID)
}

// SetActive selects a preset by id or name and persists the selection.
func (s *Session) SetActive(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findLocked(ref)
	if !ok {
		return ErrPresetNotFound
	}
	s.state.ActiveID = p.ID
	return s.store.Save(s.state)
}

// AddPreset prepends a new REST preset from the built-in template, makes
// it active, and persists.
func (s *Session) AddPreset() (model.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := model.Preset{
		ID:      "rest-" + uuid.New().String()[:8],
		Name:    "New REST Request",
		Type:    model.TypeREST,
		Method:  "GET",
		URL:     "https://jsonplaceholder.typicode.com/todos/1",
		Headers: "{\n  \"accept\": \"application/json\"\n}",
	}
	s.state.Presets = append([]model.Preset{p}, s.state.Presets...)
	s.state.ActiveID = p.ID
	return p, s.store.Save(s.state)
}

// UpdatePreset applies a mutation to one preset and persists. The id is
// immutable; mutate receives a pointer to a copy that is written back.
func (s *Session) UpdatePreset(ref string, mutate func(*model.Preset)) (model.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.findLocked(ref)
	if !ok {
		return model.Preset{}, ErrPresetNotFound
	}

	for i := range s.state.Presets {
		if s.state.Presets[i].ID == target.ID {
			updated := s.state.Presets[i]
			mutate(&updated)
			updated.ID = target.ID
			s.state.Presets[i] = updated
			return updated, s.store.Save(s.state)
		}
	}
	return model.Preset{}, ErrPresetNotFound
}

// DeletePreset removes a preset and persists. Deleting the active preset
// falls back to the new first preset, or to no selection when the
// library is empty.
func (s *Session) DeletePreset(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.findLocked(ref)
	if !ok {
		return ErrPresetNotFound
	}

	next := s.state.Presets[:0:0]
	for _, p := range s.state.Presets {
		if p.ID != target.ID {
			next = append(next, p)
		}
	}
	s.state.Presets = next
	delete(s.monitoring, target.ID)

	if s.state.ActiveID == target.ID {
		s.state.ActiveID = ""
		if len(next) > 0 {
			s.state.ActiveID = next[0].ID
		}
	}
	return s.store.Save(s.state)
}

// SetAuth replaces the shared auth config and persists.
func (s *Session) SetAuth(mutate func(*model.AuthConfig)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.state.Auth)
	return s.store.Save(s.state)
}

// Run executes a preset. Explicit runs publish the record as the current
// response and prepend it to the history ring; silent runs overwrite
// only the preset's last-ping summary. Returns nil for presets without a
// URL.
func (s *Session) Run(ctx context.Context, ref string, silent bool) *model.ResponseRecord {
	s.mu.Lock()
	p, ok := s.findLocked(ref)
	auth := s.state.Auth
	s.mu.Unlock()
	if !ok {
		return nil
	}

	rec := s.exec.Execute(ctx, p, auth)
	if rec == nil {
		return nil
	}

	s.mu.Lock()
	if silent {
		// Last-to-finish wins; overlapping pings are fine.
		s.lastPing[p.ID] = model.LastPing{
			Status:    rec.Status,
			Duration:  rec.Duration,
			Timestamp: rec.Timestamp,
			OK:        rec.OK,
		}
		s.mu.Unlock()
		return rec
	}

	s.current = rec
	s.ring.Push(rec)
	archive := s.archive
	s.mu.Unlock()

	if archive != nil {
		// Archive failures never surface as run failures.
		_ = archive.AddRun(p.ID, rec)
	}
	return rec
}

// Current returns the record currently on display, or nil.
func (s *Session) Current() *model.ResponseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// PublishResponse replaces the current response. The WebSocket session
// manager pushes its live record through here.
func (s *Session) PublishResponse(rec model.ResponseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &rec
}

// History returns the ring contents, most recent first.
func (s *Session) History() []*model.ResponseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Entries()
}

// SelectHistory republishes a history entry as the current response
// without removing it from the ring.
func (s *Session) SelectHistory(index int) *model.ResponseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ring.At(index)
	if rec != nil {
		s.current = rec
	}
	return rec
}

// LastPing returns the latest silent-poll outcome for a preset.
func (s *Session) LastPing(id string) (model.LastPing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ping, ok := s.lastPing[id]
	return ping, ok
}

// SetMonitoring flips the monitor flag for a preset. Turning monitoring
// off only excludes the preset from the next tick; in-flight pings still
// land.
func (s *Session) SetMonitoring(id string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.monitoring[id] = true
	} else {
		delete(s.monitoring, id)
	}
}

// Monitoring reports whether a preset is flagged for monitoring.
func (s *Session) Monitoring(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitoring[id]
}

// MonitorTargets returns the presets the scheduler should ping this
// tick: flagged for monitoring and not WebSocket.
func (s *Session) MonitorTargets() []model.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()

	var targets []model.Preset
	for _, p := range s.state.Presets {
		if s.monitoring[p.ID] && p.Type != model.TypeWebSocket {
			targets = append(targets, p)
		}
	}
	return targets
}
