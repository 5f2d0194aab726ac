package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/speakup-coach/backend/internal/llm"
)

var ErrNoActiveConversation = errors.New("conversation: no active conversation")

// Session is one user's live role-play: the scenario's system prompt and
// every turn so far.
type Session struct {
	ID           string        `json:"id"`
	UserID       int64         `json:"userId"`
	Scenario     string        `json:"scenario"`
	SystemPrompt string        `json:"systemPrompt"`
	Messages     []llm.Message `json:"messages"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (s *Session) clone() *Session {
	cp := *s
	cp.Messages = append([]llm.Message(nil), s.Messages...)
	return &cp
}

// Store keeps at most one session per user. Get returns
// ErrNoActiveConversation when the user has none or it has gone idle past
// the store's TTL.
type Store interface {
	// Create replaces any session the user already has.
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, userID int64) (*Session, error)
	// Save writes back an existing session and refreshes its idle timer.
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID int64) error
	// Expired lists sessions idle past the TTL at now. Stores that expire
	// entries themselves return nothing.
	Expired(ctx context.Context, now time.Time) ([]*Session, error)
}

// MemoryStore is the single-instance Store.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]*Session
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: make(map[int64]*Session)}
}

func (m *MemoryStore) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s.clone()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok || m.expired(s, m.now()) {
		return nil, ErrNoActiveConversation
	}
	return s.clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.UserID]
	if !ok || cur.ID != s.ID {
		return ErrNoActiveConversation
	}
	m.sessions[s.UserID] = s.clone()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func (m *MemoryStore) Expired(ctx context.Context, now time.Time) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Session
	for _, s := range m.sessions {
		if m.expired(s, now) {
			out = append(out, s.clone())
		}
	}
	return out, nil
}

func (m *MemoryStore) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.UpdatedAt) > m.ttl
}
