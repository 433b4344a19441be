package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ============================================================
// Session Manager
// ============================================================

var ErrSessionNotFound = errors.New("session not found")

type Manager struct {
	mu       sync.Mutex
	deps     Deps
	sessions map[string]*Session
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Create выдаёт новую сессию с идентификатором uuid.
func (m *Manager) Create() (*Session, error) {
	s, err := New(uuid.NewString(), m.deps)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Close()
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// list возвращает сессии в стабильном порядке.
func (m *Manager) list() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rebuild пересобирает все сессии после перезагрузки ассета. Ошибки
// отдельных сессий не мешают остальным.
func (m *Manager) Rebuild() error {
	var errs []error
	for _, s := range m.list() {
		if err := s.Rebuild(m.deps.Library); err != nil && !errors.Is(err, ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TickAll продвигает по одному кадру в каждой сессии.
func (m *Manager) TickAll(dt time.Duration) {
	for _, s := range m.list() {
		s.Tick(dt)
	}
}

// Run тикает сессии с интервалом interval, пока не отменён ctx.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Printf("[SESSION] Tick loop disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.TickAll(now.Sub(last))
			last = now
		}
	}
}

// CloseAll закрывает все сессии при остановке сервиса.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
