package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/gomes-camila/clinica-bot/models"
)

type sessionEntry struct {
	session *models.Session
	expires time.Time
}

type buttonEntry struct {
	buttons models.ButtonMap
	expires time.Time
}

// MemoryStore is the default SessionStore: process-wide maps with TTL
// eviction. State does not survive a restart; callers simply land back
// at the menu.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	buttons  map[string]buttonEntry
	ttl      time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]sessionEntry),
		buttons:  make(map[string]buttonEntry),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Close stops the janitor goroutine. The store stays usable; expired
// entries are then dropped only on read. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *MemoryStore) Get(_ context.Context, phone string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[phone]
	if !ok || time.Now().After(entry.expires) {
		return nil, nil
	}
	return entry.session, nil
}

func (s *MemoryStore) Put(_ context.Context, phone string, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[phone] = sessionEntry{session: session, expires: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, phone)
	delete(s.buttons, phone)
	return nil
}

func (s *MemoryStore) Buttons(_ context.Context, phone string) (models.ButtonMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.buttons[phone]
	if !ok || time.Now().After(entry.expires) {
		return nil, nil
	}
	return entry.buttons, nil
}

func (s *MemoryStore) PutButtons(_ context.Context, phone string, buttons models.ButtonMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons[phone] = buttonEntry{buttons: buttons, expires: time.Now().Add(s.ttl)}
	return nil
}

// janitor drops expired entries once a minute so abandoned conversations
// do not accumulate for the process lifetime.
func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for phone, entry := range s.sessions {
				if now.After(entry.expires) {
					delete(s.sessions, phone)
				}
			}
			for phone, entry := range s.buttons {
				if now.After(entry.expires) {
					delete(s.buttons, phone)
				}
			}
			s.mu.Unlock()
		}
	}
}
