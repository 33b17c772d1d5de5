package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/services"
	"github.com/desertthunder/tvx/internal/shared"
	"golang.org/x/oauth2"
)

// Store persists the session between runs.
type Store interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Clear(ctx context.Context) error
}

// AuthAPI is the subset of [services.AuthService] the manager drives.
type AuthAPI interface {
	Init(ctx context.Context) (*services.InitResponse, error)
	Login(ctx context.Context, credential string) (*services.LoginResponse, error)
	Logout(ctx context.Context) error
}

// Inbox receives the notification batch delivered with the user payload.
type Inbox interface {
	SetNotifications(list []models.Notification, unreadCount *int)
	Clear()
}

// SeriesCache is the followed-series cache invalidated on identity changes.
type SeriesCache interface {
	InvalidateUserSeries()
}

// Manager owns the current token and user.
type Manager struct {
	mu      sync.RWMutex
	session *models.Session

	store  Store
	api    AuthAPI
	inbox  Inbox
	series SeriesCache
	logger *log.Logger
}

// NewManager creates a signed-out manager. Call [Manager.Bind] before Bootstrap, Login or Logout.
func NewManager(store Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{store: store, logger: shared.WithLogger(logger, "component", "session")}
}

// Bind attaches the collaborators that depend on the manager's token source.
// inbox and series may be nil.
func (m *Manager) Bind(api AuthAPI, inbox Inbox, series SeriesCache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.api = api
	m.inbox = inbox
	m.series = series
}

// Token implements [oauth2.TokenSource].
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil || m.session.Token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: m.session.Token, TokenType: "Bearer"}, nil
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil && m.session.Token != ""
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	u := m.session.User
	u.Notifications = nil
	return &u
}

// Bootstrap restores the persisted session and confirms it with the backend.
//
// An unauthenticated answer (or a 401) clears everything; when a stored session was rejected this way the
// result is [shared.ErrTokenExpired]. A transport failure keeps the restored session so the client stays usable
// offline, and the error is returned.
func (m *Manager) Bootstrap(ctx context.Context) (bool, error) {
	stored, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("could not restore session", "error", err)
	}
	if stored != nil {
		m.mu.Lock()
		m.session = stored
		m.mu.Unlock()
	}

	api := m.authAPI()
	if api == nil {
		return m.IsAuthenticated(), fmt.Errorf("%w: auth API not bound", shared.ErrServiceUnavailable)
	}
	restored := m.IsAuthenticated()

	resp, err := api.Init(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return false, m.expire(ctx, restored)
		}
		m.logger.Error("session bootstrap failed", "error", err)
		return m.IsAuthenticated(), err
	}

	if !resp.Authenticated || resp.User == nil {
		return false, m.expire(ctx, restored)
	}

	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		m.logger.Warn("backend reports a session but no token is stored")
		return false, nil
	}
	m.session.User = *resp.User
	current := *m.session
	m.mu.Unlock()

	if err := m.store.Save(ctx, &current); err != nil {
		m.logger.Warn("could not persist session", "error", err)
	}
	m.feedInbox(*resp.User)
	return true, nil
}

// Login exchanges credential for a session and makes it current.
func (m *Manager) Login(ctx context.Context, credential string) (*models.User, error) {
	api := m.authAPI()
	if api == nil {
		return nil, fmt.Errorf("%w: auth API not bound", shared.ErrServiceUnavailable)
	}

	resp, err := api.Login(ctx, credential)
	if err != nil {
		return nil, err
	}

	session := &models.Session{Token: resp.Token, User: resp.User}
	if err := m.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	m.mu.Lock()
	m.session = session
	series := m.series
	m.mu.Unlock()

	if series != nil {
		series.InvalidateUserSeries()
	}
	m.feedInbox(resp.User)

	m.logger.Info("signed in", "user_id", resp.User.ID, "email", resp.User.Email)
	return m.User(), nil
}

// Logout invalidates the session server-side and clears all local state.
// A backend failure is logged; local state is cleared regardless.
func (m *Manager) Logout(ctx context.Context) error {
	if api := m.authAPI(); api != nil && m.IsAuthenticated() {
		if err := api.Logout(ctx); err != nil {
			m.logger.Warn("logout request failed", "error", err)
		}
	}
	return m.clearLocal(ctx)
}

// expire clears local state after the backend rejected the session.
func (m *Manager) expire(ctx context.Context, restored bool) error {
	if err := m.clearLocal(ctx); err != nil {
		return err
	}
	if restored {
		return shared.ErrTokenExpired
	}
	return nil
}

func (m *Manager) clearLocal(ctx context.Context) error {
	m.mu.Lock()
	m.session = nil
	inbox, series := m.inbox, m.series
	m.mu.Unlock()

	if inbox != nil {
		inbox.Clear()
	}
	if series != nil {
		series.InvalidateUserSeries()
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}
	return nil
}

func (m *Manager) feedInbox(user models.User) {
	m.mu.RLock()
	inbox := m.inbox
	m.mu.RUnlock()
	if inbox != nil {
		inbox.SetNotifications(user.Notifications, user.UnreadCount)
	}
}

func (m *Manager) authAPI() AuthAPI {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.api
}
