package session

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when no session is tracked for a poll id.
var ErrNotFound = errors.New("session not found")

type Kind string

const (
	KindPoll Kind = "poll"
	KindQuiz Kind = "quiz"
)

// Session is the bookkeeping kept for a poll or quiz the bot sent.
// Quiz sessions only carry the chat and message ids.
type Session struct {
	PollID    string
	Kind      Kind
	Options   []string
	ChatID    int64
	MessageID int
	Answers   int
}

type Store interface {
	// Put stores s, replacing any session with the same poll id.
	Put(s Session) error
	Get(pollID string) (Session, error)
	// RecordAnswer increments the answer counter and returns the updated session.
	RecordAnswer(pollID string) (Session, error)
	Len() (int, error)
	Close() error
}

// Open returns the store named by kind: "memory" or "sqlite".
func Open(kind, dsn string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(dsn)
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}

type Memory struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]Session)}
}

func (m *Memory) Put(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.Options = append([]string(nil), s.Options...)
	m.sessions[s.PollID] = s
	return nil
}

func (m *Memory) Get(pollID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[pollID]
	if !ok {
		return Session{}, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}
	return s, nil
}

func (m *Memory) RecordAnswer(pollID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[pollID]
	if !ok {
		return Session{}, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}
	s.Answers++
	m.sessions[pollID] = s
	return s, nil
}

func (m *Memory) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

func (m *Memory) Close() error { return nil }
