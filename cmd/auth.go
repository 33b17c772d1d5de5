package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tvx/internal/push"
	"github.com/desertthunder/tvx/internal/server"
	"github.com/desertthunder/tvx/internal/services"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultLoginTimeout = 2 * time.Minute

// AuthLogin signs in with Google and exchanges the ID token for a backend session.
//
// With --credential the token is exchanged directly. Otherwise a local callback server is started and the
// consent page is opened in the browser.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	credential := cmd.String("credential")
	if credential == "" {
		idToken, err := r.googleSignIn(ctx, cmd.Duration("timeout"))
		if err != nil {
			return err
		}
		credential = idToken
	}

	user, err := r.session.Login(ctx, credential)
	if err != nil {
		return err
	}

	r.writePlain("✓ Signed in as %s <%s>\n", user.Name, user.Email)

	r.offerPush(ctx)
	return nil
}

// offerPush asks once per cooldown whether to enable push for this device.
func (r *Runner) offerPush(ctx context.Context) {
	if err := r.push.Refresh(ctx); err != nil {
		r.logger.Warn("could not read push state", "error", err)
	}
	if !r.push.ShouldPrompt(ctx) {
		return
	}

	prompter := push.IOPrompter{In: r.input, Out: r.output}
	ok, err := prompter.Confirm("Get notified about new episodes on this device?")
	if err != nil || !ok {
		if err := r.push.DismissPrompt(ctx); err != nil {
			r.logger.Warn("failed to record prompt dismissal", "error", err)
		}
		r.writePlain("\n")
		return
	}

	if err := r.push.Subscribe(ctx); err != nil {
		r.logger.Warn("push subscribe failed", "error", err)
		r.writePlain("✗ Could not enable notifications: %v\n", err)
		return
	}
	r.writePlain("✓ Notifications enabled\n")
}

// googleSignIn runs the authorization code flow against a local callback server and returns the Google ID token.
func (r *Runner) googleSignIn(ctx context.Context, timeout time.Duration) (string, error) {
	oauthConfig, err := r.auth.OAuthConfig()
	if err != nil {
		return "", err
	}

	state := shared.GenerateID()
	authURL, err := r.auth.AuthURL(state)
	if err != nil {
		return "", err
	}

	handler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewCallbackRouter(r.logger, handler)

	srvCtx, stop := context.WithCancel(ctx)
	defer stop()

	serverErrors, err := server.Listen(srvCtx, r.config.Server.Addr(), router, r.logger)
	if err != nil {
		return "", err
	}
	r.logger.Info("waiting for sign-in callback", "addr", r.config.Server.Addr(), "routes", router.Routes())

	r.writePlain("→ Opening browser for Google sign-in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return "", fmt.Errorf("%w: callback server: %v", shared.ErrServiceUnavailable, err)
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	}

	if err := result.Error(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if result.IDToken != "" {
		return result.IDToken, nil
	}
	return services.IDToken(result.Token)
}

// AuthLogout signs out. Local state is cleared even when the backend call fails.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	if !r.session.IsAuthenticated() {
		return r.writePlain("Not signed in\n")
	}

	if err := r.session.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus shows the signed-in user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	user := r.session.User()
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"authenticated": user != nil,
			"user":          user,
			"unread":        r.inbox.UnreadCount(),
		}, true)
	}

	if user == nil {
		r.writePlain("✗ Not signed in\n")
		return r.writePlain("Run 'tvx auth login' to sign in\n")
	}

	r.writePlain("✓ Signed in\n")
	r.writePlain("User: %s <%s>\n", user.Name, user.Email)
	r.writePlain("Unread notifications: %d\n", r.inbox.UnreadCount())
	return nil
}
