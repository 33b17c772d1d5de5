package push

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/google/uuid"
)

const authSecretSize = 16

// SubscriptionStore persists the device subscription.
type SubscriptionStore interface {
	Current(ctx context.Context) (*models.DeviceSubscription, error)
	Save(ctx context.Context, sub *models.DeviceSubscription) error
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// PermissionStore persists the permission decision.
type PermissionStore interface {
	PushPermission(ctx context.Context) (string, error)
	SetPushPermission(ctx context.Context, value string) error
}

// Prompter asks the user a yes/no question. It may block indefinitely.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// DevicePlatform implements [Platform] for a terminal.
type DevicePlatform struct {
	cfg      shared.PushConfig
	subs     SubscriptionStore
	perms    PermissionStore
	prompter Prompter
	out      io.Writer
	now      func() time.Time
}

// NewDevicePlatform creates the terminal platform. Notifications are drawn to out (stdout when nil).
func NewDevicePlatform(cfg shared.PushConfig, subs SubscriptionStore, perms PermissionStore, prompter Prompter, out io.Writer) *DevicePlatform {
	if out == nil {
		out = os.Stdout
	}
	return &DevicePlatform{cfg: cfg, subs: subs, perms: perms, prompter: prompter, out: out, now: time.Now}
}

// Supported is true when push is enabled and an endpoint base is configured.
func (d *DevicePlatform) Supported() bool {
	return d.cfg.Enabled && d.cfg.Endpoint != ""
}

func (d *DevicePlatform) Permission() Permission {
	value, err := d.perms.PushPermission(context.Background())
	if err != nil {
		return PermissionDefault
	}
	switch p := Permission(value); p {
	case PermissionGranted, PermissionDenied:
		return p
	default:
		return PermissionDefault
	}
}

// Subscribe returns the stored subscription or issues a new one, prompting for permission first if undecided.
func (d *DevicePlatform) Subscribe(ctx context.Context) (*webpush.Subscription, error) {
	switch d.Permission() {
	case PermissionDenied:
		return nil, ErrPermissionDenied
	case PermissionDefault:
		if d.prompter == nil {
			return nil, ErrPermissionDenied
		}
		allowed, err := d.prompter.Confirm("Allow tvx to show notifications?")
		if err != nil {
			return nil, fmt.Errorf("permission prompt: %w", err)
		}
		decision := PermissionDenied
		if allowed {
			decision = PermissionGranted
		}
		if err := d.perms.SetPushPermission(ctx, string(decision)); err != nil {
			return nil, fmt.Errorf("save permission: %w", err)
		}
		if !allowed {
			return nil, ErrPermissionDenied
		}
	}

	if existing, err := d.Subscription(ctx); err != nil || existing != nil {
		return existing, err
	}

	sub, err := d.issue()
	if err != nil {
		return nil, err
	}
	if err := d.subs.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	ws := sub.WebPush()
	return &ws, nil
}

// issue creates a fresh endpoint, P-256 key pair and auth secret.
func (d *DevicePlatform) issue() (*models.DeviceSubscription, error) {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return nil, fmt.Errorf("generate subscription keys: %w", err)
	}

	secret := make([]byte, authSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate auth secret: %w", err)
	}

	id := uuid.New().String()
	return &models.DeviceSubscription{
		ID:         id,
		Endpoint:   strings.TrimRight(d.cfg.Endpoint, "/") + "/" + id,
		P256dh:     publicKey,
		Auth:       base64.RawURLEncoding.EncodeToString(secret),
		PrivateKey: privateKey,
		CreatedAt:  d.now().UTC(),
	}, nil
}

func (d *DevicePlatform) Subscription(ctx context.Context) (*webpush.Subscription, error) {
	sub, err := d.subs.Current(ctx)
	if err != nil || sub == nil {
		return nil, err
	}
	ws := sub.WebPush()
	return &ws, nil
}

func (d *DevicePlatform) Unsubscribe(ctx context.Context, sub *webpush.Subscription) error {
	return d.subs.DeleteByEndpoint(ctx, sub.Endpoint)
}

var (
	toastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	toastTitle = lipgloss.NewStyle().Bold(true)
	toastLink  = lipgloss.NewStyle().Faint(true)
)

// Show draws the notification as a bordered box.
func (d *DevicePlatform) Show(title string, opts Options) error {
	lines := []string{toastTitle.Render(title)}
	if opts.Body != "" {
		lines = append(lines, opts.Body)
	}
	if opts.URL != "" {
		lines = append(lines, toastLink.Render(opts.URL))
	}
	_, err := fmt.Fprintln(d.out, toastStyle.Render(strings.Join(lines, "\n")))
	return err
}
