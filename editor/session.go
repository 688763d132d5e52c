package editor

import (
	"sync"

	"github.com/ukaku-studio/bokutabi/draft"
	"github.com/ukaku-studio/bokutabi/travel"
	"github.com/ukaku-studio/bokutabi/utils"
)

// Session is one open editor holding a draft. The mutex serializes every
// store access, keeping mutations atomic the way the single-threaded editor
// expects.
type Session struct {
	ID string

	mu         sync.Mutex
	store      *draft.Store
	selections map[uint64]travel.Suggestion
}

func newSession() *Session {
	return &Session{
		ID:         utils.GetUUID(),
		store:      draft.NewStore(),
		selections: make(map[uint64]travel.Suggestion),
	}
}

// replaceStore swaps in a restored draft. Selection state belongs to the old
// entries and is dropped.
func (s *Session) replaceStore(store *draft.Store) {
	s.store = store
	s.selections = make(map[uint64]travel.Suggestion)
}

// clearSelection forgets an applied suggestion, so a manual time edit is
// never misattributed to one.
func (s *Session) clearSelection(key uint64) {
	delete(s.selections, key)
}

// gcSelections drops selections whose entry no longer exists (deleted or
// pruned panels).
func (s *Session) gcSelections() {
	for key := range s.selections {
		if s.store.IndexOfKey(key) < 0 {
			delete(s.selections, key)
		}
	}
}

// Manager owns the open editor sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func (m *Manager) Open() *Session {
	s := newSession()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Close(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
