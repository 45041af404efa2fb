// Package provider wraps golang.org/x/oauth2 for the external login
// providers and keeps the process-wide registry of enabled ones.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"bookhub/oauthbind/internal/config"
)

// Provider is the OAuth2 client for one external identity provider. It only
// reports identity facts; linking decisions belong to the caller.
type Provider interface {
	// Name returns the provider identifier (e.g. "github", "google").
	Name() string

	// DisplayName is the human-readable name shown to users.
	DisplayName() string

	// AuthCodeURL returns the authorization URL carrying state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchUserID calls the provider's "who am I" endpoint with token and
	// returns its stable id field as a string.
	FetchUserID(ctx context.Context, token *oauth2.Token) (string, error)
}

// Option configures a provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient sets the HTTP client used for token exchange and profile
// requests; its Timeout bounds every provider call.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

type oauthProvider struct {
	name        string
	displayName string
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func newOAuthProvider(
	name, displayName string,
	cfg config.OAuth2ProviderConfig,
	endpoint oauth2.Endpoint,
	userInfoURL string,
	defaultScopes []string,
	opts []Option,
) (*oauthProvider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingClientID)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingClientSecret)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	if cfg.UserInfoURL != "" {
		userInfoURL = cfg.UserInfoURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	return &oauthProvider{
		name:        name,
		displayName: displayName,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		httpClient:  o.httpClient,
	}, nil
}

func (p *oauthProvider) Name() string        { return p.name }
func (p *oauthProvider) DisplayName() string { return p.displayName }

func (p *oauthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *oauthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(p.contextWithHTTPClient(ctx), code)
}

func (p *oauthProvider) FetchUserID(ctx context.Context, token *oauth2.Token) (string, error) {
	ctx = p.contextWithHTTPClient(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return "", errors.Join(ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return "", errors.Join(ErrFetchFailed, fmt.Errorf("fetch profile: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Join(ErrRequestFailed, fmt.Errorf("profile request failed: status=%d", resp.StatusCode))
	}

	var profile struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", errors.Join(ErrDecodeFailed, fmt.Errorf("decode profile: %w", err))
	}
	return profileID(profile.ID)
}

func (p *oauthProvider) contextWithHTTPClient(ctx context.Context) context.Context {
	if p.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	return ctx
}

// profileID accepts both numeric (GitHub) and string (Google) ids.
func profileID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", ErrMissingUserID
	}

	var id string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", errors.Join(ErrDecodeFailed, err)
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", errors.Join(ErrDecodeFailed, err)
		}
		id = n.String()
	}
	if id == "" {
		return "", ErrMissingUserID
	}
	return id, nil
}
