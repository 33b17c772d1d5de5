package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// InitResponse is the session bootstrap payload.
type InitResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user"`
}

// LoginResponse is returned when a Google credential is exchanged for a session.
type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// AuthService wraps the session endpoints and the Google sign-in configuration.
type AuthService struct {
	client *Client
	google *oauth2.Config
}

// NewAuthService creates an auth service. The Google config is optional and only needed for [AuthService.AuthURL].
func NewAuthService(client *Client, cfg shared.GoogleConfig) *AuthService {
	var oc *oauth2.Config
	if cfg.ClientID != "" {
		oc = GoogleOAuthConfig(cfg)
	}
	return &AuthService{client: client, google: oc}
}

// GoogleOAuthConfig builds the authorization-code config used to obtain a Google ID token.
func GoogleOAuthConfig(cfg shared.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// OAuthConfig returns the Google config or [shared.ErrMissingCredentials] when no client id is configured.
func (s *AuthService) OAuthConfig() (*oauth2.Config, error) {
	if s.google == nil {
		return nil, fmt.Errorf("%w: auth.google.client_id", shared.ErrMissingCredentials)
	}
	return s.google, nil
}

// AuthURL returns the Google consent URL for state.
func (s *AuthService) AuthURL(state string) (string, error) {
	cfg, err := s.OAuthConfig()
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state), nil
}

// IDToken extracts the Google ID token carried next to the access token.
func IDToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", fmt.Errorf("%w: no token", shared.ErrAuthFailed)
	}
	idToken, ok := tok.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", fmt.Errorf("%w: token response has no id_token", shared.ErrAuthFailed)
	}
	return idToken, nil
}

// Init bootstraps the session and reports whether the current token is valid.
func (s *AuthService) Init(ctx context.Context) (*InitResponse, error) {
	var resp InitResponse
	if err := s.client.doRequest(ctx, http.MethodGet, "/init", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type loginRequest struct {
	Credential string `json:"credential"`
}

// Login exchanges an external credential (a Google ID token) for a session token.
func (s *AuthService) Login(ctx context.Context, credential string) (*LoginResponse, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: credential", shared.ErrMissingCredentials)
	}
	var resp LoginResponse
	if err := s.client.doRequest(ctx, http.MethodPost, "/auth/login", loginRequest{Credential: credential}, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: empty token in login response", shared.ErrAuthFailed)
	}
	return &resp, nil
}

// Logout invalidates the session server-side.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.client.doRequest(ctx, http.MethodPost, "/logout", nil, nil)
}
