package session

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

// State tracks one client connection. The active workspace can be set
// explicitly for the session and overridden per request.
type State struct {
	ID string

	mu        sync.Mutex
	workspace string // explicit session workspace, empty until set
}

// Registry creates and resolves sessions. defaultWorkspace is the
// process-level fallback, typically from a flag or config file.
type Registry struct {
	defaultWorkspace string

	mu       sync.Mutex
	sessions map[string]*State
}

// NewRegistry creates a session registry with the given process-level
// default workspace. An empty default falls back to the working
// directory at resolve time.
func NewRegistry(defaultWorkspace string) *Registry {
	return &Registry{
		defaultWorkspace: defaultWorkspace,
		sessions:         make(map[string]*State),
	}
}

// Open creates a new session.
func (r *Registry) Open() *State {
	s := &State{ID: uuid.NewString()}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns a session by id, or nil when unknown.
func (r *Registry) Get(id string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Close discards a session.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// SetWorkspace pins the session to a workspace.
func (s *State) SetWorkspace(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspace = path
}

// Workspace returns the session's explicit workspace, or empty.
func (s *State) Workspace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspace
}

// Resolve picks the workspace for one request. Precedence: request
// override, then the session's explicit workspace, then the process
// default, then the current working directory.
func (r *Registry) Resolve(s *State, override string) string {
	if override != "" {
		return override
	}
	if s != nil {
		if ws := s.Workspace(); ws != "" {
			return ws
		}
	}
	if r.defaultWorkspace != "" {
		return r.defaultWorkspace
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return ""
}
