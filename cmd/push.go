package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/tvx/internal/push"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/urfave/cli/v3"
)

// PushStatus prints support, permission and subscription state for this device.
func (r *Runner) PushStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if err := r.push.Refresh(ctx); err != nil {
		r.logger.Warn("could not read push state", "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"supported":  r.push.IsSupported(),
			"permission": r.push.Permission(),
			"subscribed": r.push.IsSubscribed(),
		}, true)
	}

	if !r.push.IsSupported() {
		r.writePlain("✗ Push notifications are not supported\n")
		return r.writePlain("Set [push] enabled and endpoint in the config to enable them\n")
	}

	r.writePlain("Supported: yes\n")
	r.writePlain("Permission: %s\n", r.push.Permission())
	if r.push.IsSubscribed() {
		return r.writePlain("Subscribed: ✓\n")
	}
	return r.writePlain("Subscribed: ✗\n")
}

// PushSubscribe subscribes this device and registers the subscription with the backend.
func (r *Runner) PushSubscribe(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}
	if err := r.push.Refresh(ctx); err != nil {
		r.logger.Warn("could not read push state", "error", err)
	}
	if r.push.IsSubscribed() {
		return r.writePlain("Already subscribed\n")
	}

	if err := r.push.Subscribe(ctx); err != nil {
		if errors.Is(err, push.ErrPermissionDenied) {
			r.writePlain("✗ Notification permission was not granted\n")
		}
		return err
	}
	return r.writePlain("✓ Subscribed to push notifications\n")
}

// PushUnsubscribe removes the device subscription.
func (r *Runner) PushUnsubscribe(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	if err := r.push.Unsubscribe(ctx); err != nil {
		if errors.Is(err, push.ErrNoSubscription) {
			return r.writePlain("Not subscribed\n")
		}
		return err
	}
	return r.writePlain("✓ Unsubscribed from push notifications\n")
}

// PushTest displays a local test notification.
func (r *Runner) PushTest(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	return r.push.ShowNotification("tvx", push.Options{Body: cmd.String("body"), Tag: "test"})
}

// PushListen connects to the push message channel and handles messages until interrupted.
func (r *Runner) PushListen(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}
	if r.config.Push.ListenURL == "" {
		return fmt.Errorf("%w: push.listen_url", shared.ErrMissingConfig)
	}

	header := http.Header{}
	if tok, err := r.session.Token(); err == nil {
		tok.SetAuthHeader(&http.Request{Header: header})
	}

	msgs, err := push.DialMessages(ctx, r.config.Push.ListenURL, header, r.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	open := cmd.Bool("open")
	navigate := func(url string) {
		target := r.resolveLink(url)
		if !open {
			r.writePlain("→ %s\n", target)
			return
		}
		if err := shared.OpenBrowser(target); err != nil {
			r.logger.Warn("could not open link", "url", target, "error", err)
		}
	}

	r.writePlain("Listening for notifications on %s (Ctrl+C to stop)\n", r.config.Push.ListenURL)
	r.push.Listen(ctx, msgs, r.inbox, navigate)
	return nil
}

// resolveLink turns an app-relative path carried by a notification into an absolute URL on the backend host.
func (r *Runner) resolveLink(link string) string {
	if !strings.HasPrefix(link, "/") {
		return link
	}
	base := strings.TrimSuffix(r.client.BaseURL(), "/api")
	return base + link
}
