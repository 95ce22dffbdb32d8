package engine

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-engine/internal/models"
)

// Manager is the in-memory registry of live playback sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		logger:   logger.Named("SessionManager"),
	}
}

// Create registers a new session for userID playing chapter.
func (m *Manager) Create(userID string, chapter *models.Chapter) *Session {
	s := NewSession(userID, chapter)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.Info("Playback session started",
		zap.String("sessionId", s.ID().String()),
		zap.String("userId", userID),
		zap.Int("chapterId", chapter.ID))
	return s
}

// Get returns the session with the given id, scoped to userID.
func (m *Manager) Get(id uuid.UUID, userID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || s.UserID() != userID {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

// Delete drops the session from the registry. Unknown ids are ignored.
func (m *Manager) Delete(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
