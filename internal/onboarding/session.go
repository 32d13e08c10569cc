package onboarding

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionManager owns one live controller per open wizard session,
// keyed by tenant. Closing a session tears its state down so a later
// open for the same tenant starts clean.
type SessionManager struct {
	store  Store
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Controller
}

// NewSessionManager creates a session manager
func NewSessionManager(store Store, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		store:    store,
		logger:   logger,
		sessions: make(map[uuid.UUID]*Controller),
	}
}

// Open returns the tenant's live controller, creating one if needed
func (m *SessionManager) Open(tenantID uuid.UUID) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctrl, ok := m.sessions[tenantID]; ok {
		return ctrl
	}
	ctrl := NewController(m.store, m.logger)
	m.sessions[tenantID] = ctrl
	return ctrl
}

// Close resets and removes the tenant's controller. A fetch still in
// flight lands against the reset controller and is discarded there.
func (m *SessionManager) Close(tenantID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctrl, ok := m.sessions[tenantID]; ok {
		ctrl.Reset()
		delete(m.sessions, tenantID)
	}
}
