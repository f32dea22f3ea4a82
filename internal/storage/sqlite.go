package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"qapi/internal/model"

	_ "modernc.org/sqlite"
)

const (
	dbFile = "qapi.db"

	// Secure file permissions - owner read/write only
	secureFileMode = 0600 // -rw-------

	// maxArchivedRuns bounds the cross-session run archive.
	maxArchivedRuns = 100
)

// parseJSONHeaders safely parses a JSON header map, returning an empty
// map on error
func parseJSONHeaders(jsonStr string) (map[string]string, error) {
	if jsonStr == "" {
		return make(map[string]string), nil
	}

	var headers map[string]string
	if err := json.Unmarshal([]byte(jsonStr), &headers); err != nil {
		return make(map[string]string), fmt.Errorf("failed to parse headers JSON: %w", err)
	}

	if headers == nil {
		headers = make(map[string]string)
	}
	return headers, nil
}

// ensureSecureFile creates a file with secure permissions if it doesn't exist,
// or verifies/fixes permissions if it does exist. This prevents a TOCTOU race
// condition where the file could be created with insecure default permissions.
func ensureSecureFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, secureFileMode)
		if err != nil {
			return fmt.Errorf("failed to create secure file: %w", err)
		}
		f.Close()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Mode().Perm() != secureFileMode {
		if err := os.Chmod(path, secureFileMode); err != nil {
			return fmt.Errorf("failed to set secure permissions: %w", err)
		}
	}
	return nil
}

// ArchivedRun is one explicit execution persisted across sessions. The
// response body is kept as raw text; parsed JSON is a display concern.
type ArchivedRun struct {
	ID        string
	PresetID  string
	Name      string
	Type      model.PresetType
	Status    string
	OK        bool
	Duration  int64
	Timestamp time.Time
	URL       string
	Raw       string
	Headers   map[string]string
}

// Archive is the SQLite-backed log of explicit runs. The in-memory
// history ring stays session-scoped; the archive is what `qapi history`
// reads after the session ends.
type Archive struct {
	db *sql.DB
}

// NewArchive opens (or creates) the run archive in the data directory.
func NewArchive(dataDir string) (*Archive, error) {
	dbPath := filepath.Join(dataDir, dbFile)

	// Create database file with secure permissions if it doesn't exist.
	// This avoids a race condition where the file is created with default
	// permissions and then chmod'd afterward
	if err := ensureSecureFile(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	a := &Archive{db: db}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return a, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		preset_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		ok INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		url TEXT NOT NULL,
		raw TEXT DEFAULT '',
		headers TEXT DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp DESC);
	`

	_, err := a.db.Exec(schema)
	return err
}

// AddRun records one explicit execution and trims the archive to the
// most recent entries.
func (a *Archive) AddRun(presetID string, rec *model.ResponseRecord) error {
	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	headersJSON, _ := json.Marshal(rec.Headers)

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs (
			id, preset_id, name, type, status, ok,
			duration_ms, timestamp, url, raw, headers
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, presetID, rec.Name, string(rec.Type), rec.Status, rec.OK,
		rec.Duration, rec.Timestamp, rec.URL, rec.Raw, string(headersJSON),
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		DELETE FROM runs
		WHERE id NOT IN (
			SELECT id FROM runs ORDER BY timestamp DESC LIMIT ?
		)`, maxArchivedRuns)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// LoadRuns returns archived runs, most recent first.
func (a *Archive) LoadRuns(limit int) ([]ArchivedRun, error) {
	if limit <= 0 || limit > maxArchivedRuns {
		limit = maxArchivedRuns
	}

	rows, err := a.db.Query(`
		SELECT id, preset_id, name, type, status, ok,
		       duration_ms, timestamp, url, raw, headers
		FROM runs
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []ArchivedRun{}
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun fetches a single archived run by ID. Returns nil when not found.
func (a *Archive) GetRun(id string) (*ArchivedRun, error) {
	row := a.db.QueryRow(`
		SELECT id, preset_id, name, type, status, ok,
		       duration_ms, timestamp, url, raw, headers
		FROM runs
		WHERE id = ?`, id)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ClearRuns deletes the whole archive.
func (a *Archive) ClearRuns() error {
	_, err := a.db.Exec("DELETE FROM runs")
	return err
}

func scanRun(scan func(dest ...any) error) (ArchivedRun, error) {
	var run ArchivedRun
	var typ, headersJSON string

	err := scan(
		&run.ID, &run.PresetID, &run.Name, &typ, &run.Status, &run.OK,
		&run.Duration, &run.Timestamp, &run.URL, &run.Raw, &headersJSON,
	)
	if err != nil {
		return run, err
	}

	run.Type = model.PresetType(typ)
	// Parse headers JSON (errors don't fail the operation)
	run.Headers, _ = parseJSONHeaders(headersJSON)
	return run, nil
}
