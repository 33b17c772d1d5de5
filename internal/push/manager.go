package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tvx/internal/shared"
)

var (
	ErrNotSupported     = errors.New("push notifications are not supported")
	ErrNoSubscription   = errors.New("No subscription found")
	ErrInvalidKeys      = errors.New("Invalid subscription keys")
	ErrPermissionDenied = errors.New("notification permission not granted")
)

// PromptCooldown is how long a dismissed subscribe prompt stays hidden.
const PromptCooldown = 7 * 24 * time.Hour

// Permission mirrors the notification permission states of the platform.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Options customise a displayed notification. Empty Icon and Badge fall back to the configured defaults.
type Options struct {
	Body           string
	Icon           string
	Badge          string
	Tag            string
	URL            string
	NotificationID int64
}

// Platform is the device push capability.
type Platform interface {
	Supported() bool
	Permission() Permission
	// Subscribe returns the active subscription, creating one if needed. It may block on a permission prompt.
	Subscribe(ctx context.Context) (*webpush.Subscription, error)
	// Subscription returns the active subscription or nil when there is none.
	Subscription(ctx context.Context) (*webpush.Subscription, error)
	Unsubscribe(ctx context.Context, sub *webpush.Subscription) error
	Show(title string, opts Options) error
}

// Backend registers subscriptions server-side. [services.PushService] implements it.
type Backend interface {
	Subscribe(ctx context.Context, sub webpush.Subscription) error
	Unsubscribe(ctx context.Context, endpoint string) error
}

// PromptStore persists when the subscribe prompt was last dismissed.
type PromptStore interface {
	PromptDismissedAt(ctx context.Context) (time.Time, bool, error)
	SetPromptDismissedAt(ctx context.Context, at time.Time) error
}

// Manager is the push subscription state machine.
type Manager struct {
	platform Platform
	backend  Backend
	prompts  PromptStore
	cfg      shared.PushConfig
	logger   *log.Logger
	now      func() time.Time

	supported bool

	mu         sync.RWMutex
	permission Permission
	subscribed bool
}

// NewManager creates a manager. Support is detected once here and never changes. prompts may be nil.
func NewManager(platform Platform, backend Backend, prompts PromptStore, cfg shared.PushConfig, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	m := &Manager{
		platform:   platform,
		backend:    backend,
		prompts:    prompts,
		cfg:        cfg,
		logger:     shared.WithLogger(logger, "component", "push"),
		now:        time.Now,
		supported:  platform != nil && platform.Supported(),
		permission: PermissionDefault,
	}
	if m.supported {
		m.permission = platform.Permission()
	}
	return m
}

func (m *Manager) IsSupported() bool { return m.supported }

func (m *Manager) Permission() Permission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.permission
}

func (m *Manager) IsSubscribed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subscribed
}

// Refresh re-reads the permission and marks the manager subscribed if the platform already holds a subscription.
func (m *Manager) Refresh(ctx context.Context) error {
	if !m.supported {
		return nil
	}
	sub, err := m.platform.Subscription(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permission = m.platform.Permission()
	if err != nil {
		return fmt.Errorf("read push subscription: %w", err)
	}
	m.subscribed = sub != nil
	return nil
}

func (m *Manager) refreshPermission() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permission = m.platform.Permission()
}

// Subscribe obtains a platform subscription and registers it with the backend.
//
// The subscribed flag is only set when every step succeeds. Permission is refreshed in both outcomes.
func (m *Manager) Subscribe(ctx context.Context) error {
	if !m.supported {
		return ErrNotSupported
	}

	sub, err := m.platform.Subscribe(ctx)
	if err != nil {
		m.refreshPermission()
		return fmt.Errorf("push subscribe: %w", err)
	}
	if sub == nil || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		m.refreshPermission()
		return ErrInvalidKeys
	}

	if err := m.backend.Subscribe(ctx, *sub); err != nil {
		m.refreshPermission()
		return fmt.Errorf("register push subscription: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = true
	m.permission = m.platform.Permission()
	m.logger.Info("subscribed to push", "endpoint", sub.Endpoint)
	return nil
}

// Unsubscribe removes the platform subscription, then the backend record.
//
// The subscribed flag is cleared as soon as the platform side succeeds; a backend failure is logged only.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	if !m.supported {
		return ErrNotSupported
	}

	sub, err := m.platform.Subscription(ctx)
	if err != nil {
		return fmt.Errorf("read push subscription: %w", err)
	}
	if sub == nil {
		return ErrNoSubscription
	}

	if err := m.platform.Unsubscribe(ctx, sub); err != nil {
		return fmt.Errorf("push unsubscribe: %w", err)
	}

	m.mu.Lock()
	m.subscribed = false
	m.mu.Unlock()

	if err := m.backend.Unsubscribe(ctx, sub.Endpoint); err != nil {
		m.logger.Error("failed to remove push subscription from server", "endpoint", sub.Endpoint, "error", err)
	}
	return nil
}

// ShowNotification displays a notification through the platform, filling in the default icon and badge.
func (m *Manager) ShowNotification(title string, opts Options) error {
	if !m.supported {
		return ErrNotSupported
	}
	if m.Permission() != PermissionGranted {
		return ErrPermissionDenied
	}
	if opts.Icon == "" {
		opts.Icon = m.cfg.Icon
	}
	if opts.Badge == "" {
		opts.Badge = m.cfg.Badge
	}
	return m.platform.Show(title, opts)
}

// ShouldPrompt reports whether the user should be offered to enable push.
//
// It is false when push is unsupported, already subscribed, permission was already decided, or the prompt was
// dismissed within [PromptCooldown].
func (m *Manager) ShouldPrompt(ctx context.Context) bool {
	if !m.supported || m.IsSubscribed() || m.Permission() != PermissionDefault {
		return false
	}
	if m.prompts == nil {
		return true
	}
	at, ok, err := m.prompts.PromptDismissedAt(ctx)
	if err != nil {
		m.logger.Warn("failed to read prompt dismissal", "error", err)
		return true
	}
	return !ok || m.now().Sub(at) >= PromptCooldown
}

// DismissPrompt records that the user declined the prompt now.
func (m *Manager) DismissPrompt(ctx context.Context) error {
	if m.prompts == nil {
		return nil
	}
	return m.prompts.SetPromptDismissedAt(ctx, m.now())
}
