package cmd

import (
	"fmt"
	"os"

	"qapi/internal/console"
	"qapi/internal/exec"
	"qapi/internal/format"
	"qapi/internal/storage"
)

// newSession loads persisted state and wires a console session with the
// run archive attached. CLI commands share this entry point.
func newSession() (*console.Session, *storage.Archive, error) {
	store, err := storage.NewStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	session, err := console.NewSession(store, exec.New())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load console state: %w", err)
	}

	archive, err := storage.NewArchive(store.DataDir())
	if err != nil {
		// The archive is a convenience; the session works without it.
		return session, nil, nil
	}
	session.SetArchive(archive)
	return session, archive, nil
}

// mustSession exits the process when the session cannot be built.
func mustSession() (*console.Session, *storage.Archive) {
	session, archive, err := newSession()
	if err != nil {
		format.PrintError(err.Error())
		os.Exit(1)
	}
	return session, archive
}
