package syncer

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/yeremiapane/restaurant-sync/models"
)

// SessionAPI is the slice of the collaborator surface the manager needs.
// GetActiveSession returns (nil, nil) when the table has no active session.
type SessionAPI interface {
	GetActiveSession(ctx context.Context, tableID uint) (*models.Session, error)
	CreateSession(ctx context.Context, tableID uint, guestCount int) (*models.Session, error)
}

// SessionManager holds the session handle for one table and transparently
// replaces it when it expires or the table is reset.
type SessionManager struct {
	api        SessionAPI
	tableID    uint
	guestCount int

	mu      sync.Mutex
	current *models.Session
}

func NewSessionManager(api SessionAPI, tableID uint, guestCount int) *SessionManager {
	if guestCount < 1 {
		guestCount = 1
	}
	return &SessionManager{
		api:        api,
		tableID:    tableID,
		guestCount: guestCount,
	}
}

// Current returns the cached handle without validating it.
func (m *SessionManager) Current() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Ensure returns an ACTIVE session handle, looking one up or creating a
// replacement if the cached one has been invalidated.
func (m *SessionManager) Ensure(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur != nil && cur.Status == models.SessionActive {
		return cur, nil
	}

	sess, err := m.api.GetActiveSession(ctx, m.tableID)
	if err != nil {
		return nil, errors.Wrap(err, "look up active session")
	}
	if sess == nil {
		sess, err = m.api.CreateSession(ctx, m.tableID, m.guestCount)
		if err != nil {
			return nil, errors.Wrap(err, "create session")
		}
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
	return sess, nil
}

// Invalidate drops the cached handle, e.g. on a session:ended event. The
// next Ensure call fetches or creates a replacement.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}
