package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// Registry hands out one open store per workspace. Stores are opened
// lazily on first use and kept open for the life of the process.
type Registry struct {
	mu         sync.Mutex
	filename   string // store path relative to the workspace root
	workspaces map[string]*Workspace
}

// Workspace is an open per-workspace store. All repository methods
// hang off this type and operate on the workspace's own SQLite file.
type Workspace struct {
	db   *sql.DB
	root string
}

// NewRegistry creates a registry using filename as the store path
// relative to each workspace root.
func NewRegistry(filename string) *Registry {
	if filename == "" {
		filename = filepath.Join(".membank", "membank.db")
	}
	return &Registry{
		filename:   filename,
		workspaces: make(map[string]*Workspace),
	}
}

// Get returns the store for the given workspace root, opening it if
// needed. Workspace paths are normalized to absolute form so two
// spellings of the same directory share one store.
func (r *Registry) Get(workspace string) (*Workspace, error) {
	if workspace == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "workspace path is required").
			WithSuggestion("pass a workspace path or set a default with --workspace")
	}

	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeValidation, "invalid workspace path", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.workspaces[abs]; ok {
		return ws, nil
	}

	ws, err := open(abs, r.filename)
	if err != nil {
		return nil, err
	}
	r.workspaces[abs] = ws
	return ws, nil
}

// Close closes every open workspace store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for path, ws := range r.workspaces {
		if err := ws.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close store for %s: %w", path, err)
		}
		delete(r.workspaces, path)
	}
	return firstErr
}

func open(root, filename string) (*Workspace, error) {
	path := filepath.Join(root, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable,
			"failed to create store directory", err).
			WithSuggestion("check that the workspace path is writable")
	}

	// WAL keeps readers unblocked during writes; the busy timeout
	// covers concurrent access from multiple membank processes.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable,
			"failed to open workspace store", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable,
			"failed to reach workspace store", err).
			WithSuggestion("check that the store file is not corrupted or locked")
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable,
			"failed to prepare workspace store", err)
	}

	return &Workspace{db: db, root: root}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.root }

// DB exposes the underlying handle for components that share the
// workspace store, such as the vector index.
func (w *Workspace) DB() *sql.DB { return w.db }
