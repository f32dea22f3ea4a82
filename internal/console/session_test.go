package console

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"qapi/internal/exec"
	"qapi/internal/model"
	"qapi/internal/storage"
)

func newTestSession(t *testing.T, presets []model.Preset) (*Session, *storage.Store) {
	t.Helper()

	store, err := storage.NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Save(&storage.State{Presets: presets, Auth: model.DefaultAuth()}); err != nil {
		t.Fatalf("failed to seed state: %v", err)
	}

	session, err := NewSession(store, exec.New())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session, store
}

func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFirstPresetStartsActive(t *testing.T) {
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "First", Type: model.TypeREST},
		{ID: "b", Name: "Second", Type: model.TypeREST},
	})

	active, ok := session.Active()
	if !ok || active.ID != "a" {
		t.Errorf("expected first preset active, got %+v (ok=%v)", active, ok)
	}
}

func TestSetActivePersists(t *testing.T) {
	session, store := newTestSession(t, []model.Preset{
		{ID: "a", Name: "First", Type: model.TypeREST},
		{ID: "b", Name: "Second", Type: model.TypeREST},
	})

	if err := session.SetActive("b"); err != nil {
		t.Fatalf("set active failed: %v", err)
	}
	if active, _ := session.Active(); active.ID != "b" {
		t.Errorf("expected b active, got %s", active.ID)
	}

	// A fresh session over the same store keeps the selection.
	reloaded, err := NewSession(store, exec.New())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if active, _ := reloaded.Active(); active.ID != "b" {
		t.Errorf("expected selection persisted, got %s", active.ID)
	}
}

func TestSetActiveUnknownPreset(t *testing.T) {
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "First", Type: model.TypeREST},
	})

	if err := session.SetActive("ghost"); err != ErrPresetNotFound {
		t.Errorf("expected ErrPresetNotFound, got %v", err)
	}
	if active, _ := session.Active(); active.ID != "a" {
		t.Errorf("expected selection unchanged, got %s", active.ID)
	}
}

func TestStaleActiveSelectionFallsBack(t *testing.T) {
	store, err := storage.NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	state := &storage.State{
		Presets:  []model.Preset{{ID: "a", Name: "First", Type: model.TypeREST}},
		Auth:     model.DefaultAuth(),
		ActiveID: "deleted-elsewhere",
	}
	if err := store.Save(state); err != nil {
		t.Fatalf("failed to seed state: %v", err)
	}

	session, err := NewSession(store, exec.New())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if active, ok := session.Active(); !ok || active.ID != "a" {
		t.Errorf("expected fallback to the first preset, got %+v (ok=%v)", active, ok)
	}
}

func TestPresetLookup(t *testing.T) {
	session, _ := newTestSession(t, []model.Preset{
		{ID: "rest-1", Name: "List Posts", Type: model.TypeREST},
	})

	t.Run("by id", func(t *testing.T) {
		if _, ok := session.Preset("rest-1"); !ok {
			t.Error("expected lookup by id to succeed")
		}
	})

	t.Run("by name case-insensitively", func(t *testing.T) {
		if _, ok := session.Preset("list posts"); !ok {
			t.Error("expected lookup by name to succeed")
		}
	})

	t.Run("unknown ref", func(t *testing.T) {
		if _, ok := session.Preset("nope"); ok {
			t.Error("expected lookup to fail")
		}
	})
}

func TestExplicitRunPublishesAndRecords(t *testing.T) {
	server := okServer(t)
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "Ping", Type: model.TypeREST, Method: "GET", URL: server.URL},
	})

	rec := session.Run(context.Background(), "a", false)
	if rec == nil {
		t.Fatal("expected a record")
	}

	if current := session.Current(); current == nil || current.ID != rec.ID {
		t.Errorf("expected the run to become current, got %+v", current)
	}
	if got := session.History(); len(got) != 1 || got[0].ID != rec.ID {
		t.Errorf("expected one history entry, got %v", got)
	}
	if _, ok := session.LastPing("a"); ok {
		t.Error("explicit run must not touch the last-ping summary")
	}
}

func TestSilentRunOnlyUpdatesLastPing(t *testing.T) {
	server := okServer(t)
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "Ping", Type: model.TypeREST, Method: "GET", URL: server.URL},
	})

	rec := session.Run(context.Background(), "a", true)
	if rec == nil {
		t.Fatal("expected a record")
	}

	if session.Current() != nil {
		t.Error("silent run must not replace the current response")
	}
	if len(session.History()) != 0 {
		t.Error("silent run must not enter the history ring")
	}
	ping, ok := session.LastPing("a")
	if !ok {
		t.Fatal("expected a last-ping summary")
	}
	if ping.Status != "200" || !ping.OK {
		t.Errorf("expected 200/ok ping, got %+v", ping)
	}
}

func TestRunPresetWithoutURL(t *testing.T) {
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "Empty", Type: model.TypeREST, Method: "GET"},
	})

	if rec := session.Run(context.Background(), "a", false); rec != nil {
		t.Errorf("expected nil for a URL-less preset, got %+v", rec)
	}
	if len(session.History()) != 0 {
		t.Error("no-op run must not enter history")
	}
}

func TestAddPreset(t *testing.T) {
	session, store := newTestSession(t, []model.Preset{
		{ID: "a", Name: "First", Type: model.TypeREST},
	})

	added, err := session.AddPreset()
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	presets := session.Presets()
	if len(presets) != 2 || presets[0].ID != added.ID {
		t.Errorf("expected the new preset prepended, got %v", presets)
	}
	if active, _ := session.Active(); active.ID != added.ID {
		t.Errorf("expected the new preset active, got %s", active.ID)
	}

	// Mutation must already be on disk.
	state, err := store.Load()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(state.Presets) != 2 {
		t.Errorf("expected 2 persisted presets, got %d", len(state.Presets))
	}
}

func TestUpdatePresetKeepsID(t *testing.T) {
	session, store := newTestSession(t, []model.Preset{
		{ID: "a", Name: "First", Type: model.TypeREST},
	})

	updated, err := session.UpdatePreset("a", func(p *model.Preset) {
		p.ID = "forged"
		p.Name = "Renamed"
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ID != "a" || updated.Name != "Renamed" {
		t.Errorf("expected id kept and name changed, got %+v", updated)
	}

	state, _ := store.Load()
	if state.Presets[0].Name != "Renamed" {
		t.Error("expected the rename persisted")
	}
}

func TestUpdateUnknownPreset(t *testing.T) {
	session, _ := newTestSession(t, nil)
	if _, err := session.UpdatePreset("ghost", func(*model.Preset) {}); err != ErrPresetNotFound {
		t.Errorf("expected ErrPresetNotFound, got %v", err)
	}
}

func TestDeleteActivePresetFallsBack(t *testing.T) {
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "First", Type: model.TypeREST},
		{ID: "b", Name: "Second", Type: model.TypeREST},
	})

	if err := session.DeletePreset("a"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if active, ok := session.Active(); !ok || active.ID != "b" {
		t.Errorf("expected fallback to the remaining preset, got %+v (ok=%v)", active, ok)
	}
}

func TestDeleteLastPresetClearsSelection(t *testing.T) {
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "Only", Type: model.TypeREST},
	})

	if err := session.DeletePreset("a"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := session.Active(); ok {
		t.Error("expected no active preset after deleting the last one")
	}
	if len(session.Presets()) != 0 {
		t.Error("expected an empty library")
	}
}

func TestDeleteClearsMonitorFlag(t *testing.T) {
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "Only", Type: model.TypeREST},
	})

	session.SetMonitoring("a", true)
	if err := session.DeletePreset("a"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if session.Monitoring("a") {
		t.Error("expected the monitor flag removed with the preset")
	}
}

func TestSelectHistoryRepublishes(t *testing.T) {
	server := okServer(t)
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "Ping", Type: model.TypeREST, Method: "GET", URL: server.URL},
	})

	first := session.Run(context.Background(), "a", false)
	second := session.Run(context.Background(), "a", false)

	if current := session.Current(); current.ID != second.ID {
		t.Fatalf("expected the latest run current, got %s", current.ID)
	}

	rec := session.SelectHistory(1)
	if rec == nil || rec.ID != first.ID {
		t.Fatalf("expected the older entry at index 1, got %+v", rec)
	}
	if current := session.Current(); current.ID != first.ID {
		t.Errorf("expected selection to become current, got %s", current.ID)
	}
	if len(session.History()) != 2 {
		t.Error("selection must not remove entries from the ring")
	}
}

func TestSelectHistoryOutOfRange(t *testing.T) {
	session, _ := newTestSession(t, nil)
	if rec := session.SelectHistory(0); rec != nil {
		t.Errorf("expected nil on an empty ring, got %+v", rec)
	}
}

func TestMonitorTargetsSkipWebSocket(t *testing.T) {
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "REST", Type: model.TypeREST},
		{ID: "b", Name: "Socket", Type: model.TypeWebSocket},
		{ID: "c", Name: "GraphQL", Type: model.TypeGraphQL},
	})

	session.SetMonitoring("a", true)
	session.SetMonitoring("b", true)
	session.SetMonitoring("c", true)

	targets := session.MonitorTargets()
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	for _, p := range targets {
		if p.Type == model.TypeWebSocket {
			t.Errorf("websocket preset %s must never be polled", p.ID)
		}
	}

	session.SetMonitoring("a", false)
	if len(session.MonitorTargets()) != 1 {
		t.Error("expected the unflagged preset excluded")
	}
}

type recordingArchiver struct {
	presetIDs []string
}

func (r *recordingArchiver) AddRun(presetID string, rec *model.ResponseRecord) error {
	r.presetIDs = append(r.presetIDs, presetID)
	return nil
}

func TestExplicitRunsReachTheArchive(t *testing.T) {
	server := okServer(t)
	session, _ := newTestSession(t, []model.Preset{
		{ID: "a", Name: "Ping", Type: model.TypeREST, Method: "GET", URL: server.URL},
	})

	archiver := &recordingArchiver{}
	session.SetArchive(archiver)

	session.Run(context.Background(), "a", false)
	session.Run(context.Background(), "a", true)

	if len(archiver.presetIDs) != 1 || archiver.presetIDs[0] != "a" {
		t.Errorf("expected exactly the explicit run archived, got %v", archiver.presetIDs)
	}
}

func TestSetAuthPersists(t *testing.T) {
	session, store := newTestSession(t, nil)

	if err := session.SetAuth(func(a *model.AuthConfig) {
		a.BearerToken = "abc"
	}); err != nil {
		t.Fatalf("set auth failed: %v", err)
	}

	state, _ := store.Load()
	if state.Auth.BearerToken != "abc" {
		t.Error("expected the token persisted")
	}
}
