package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"bookhub/oauthbind/internal/provider"
	"bookhub/oauthbind/internal/repository"
	"bookhub/oauthbind/pkg/crypto"
)

const oauth2StateKeyPrefix = "oauth2_state:"

// oauth2StateData is stored under the state token for CSRF protection. The
// callback must come from the same browser session and the same user (or
// none) that requested the authorization URL.
type oauth2StateData struct {
	Provider  string `json:"provider"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
}

// Initiator identifies who started a handshake: the browser session and the
// logged-in user, if any.
type Initiator struct {
	SessionID string
	UserID    *uuid.UUID
}

func (i Initiator) userKey() string {
	if i.UserID == nil || *i.UserID == uuid.Nil {
		return ""
	}
	return i.UserID.String()
}

// Handshake is a completed authorization-code exchange.
type Handshake struct {
	Provider       string
	ProviderUserID string
	Token          *oauth2.Token
	// Stored reports whether the token reached the link store.
	Stored bool
}

type OAuth2Service interface {
	// AuthorizationURL issues a single-use state bound to provider and to
	// the initiator, and returns the provider's authorize URL.
	AuthorizationURL(ctx context.Context, provider string, by Initiator) (string, error)

	// CompleteHandshake validates state against by, exchanges code and
	// resolves the provider user id. The token is upserted into the link
	// store; a store failure is logged and reported through Handshake.Stored only.
	CompleteHandshake(ctx context.Context, provider, code, state string, by Initiator) (*Handshake, error)

	// ProviderFailure records an error returned by the provider on the callback.
	ProviderFailure(provider, code, description, uri string) *ProviderError
}

type oauth2Service struct {
	registry   *provider.Registry
	stateStore repository.StateStore
	links      LinkService
	codec      *TokenCodec
	stateTTL   time.Duration
	logger     *zap.Logger
}

func NewOAuth2Service(
	registry *provider.Registry,
	stateStore repository.StateStore,
	links LinkService,
	codec *TokenCodec,
	stateTTL time.Duration,
	logger *zap.Logger,
) OAuth2Service {
	if codec == nil {
		codec = NewTokenCodec(nil)
	}
	return &oauth2Service{
		registry:   registry,
		stateStore: stateStore,
		links:      links,
		codec:      codec,
		stateTTL:   stateTTL,
		logger:     logger.Named("oauth2"),
	}
}

func (s *oauth2Service) AuthorizationURL(ctx context.Context, providerName string, by Initiator) (string, error) {
	p, err := s.registry.Get(providerName)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrProviderNotRegistered, providerName)
	}
	if by.SessionID == "" {
		return "", ErrSessionRequired
	}

	stateToken, err := crypto.GenerateState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	data, err := json.Marshal(oauth2StateData{
		Provider:  providerName,
		SessionID: by.SessionID,
		UserID:    by.userKey(),
	})
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	if err := s.stateStore.Set(ctx, oauth2StateKeyPrefix+stateToken, data, s.stateTTL); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}

	return p.AuthCodeURL(stateToken), nil
}

func (s *oauth2Service) CompleteHandshake(
	ctx context.Context, providerName, code, state string, by Initiator,
) (*Handshake, error) {
	p, err := s.registry.Get(providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotRegistered, providerName)
	}
	if err := s.consumeState(ctx, providerName, state, by); err != nil {
		return nil, err
	}

	token, err := p.Exchange(ctx, code)
	if err != nil || token == nil || token.AccessToken == "" {
		s.logger.Warn("oauth2 code exchange failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		return nil, ErrHandshakeFailed
	}

	providerUserID, err := p.FetchUserID(ctx, token)
	if err != nil {
		s.logger.Warn("oauth2 user info request failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		return nil, ErrProfileFetchFailed
	}

	hs := &Handshake{
		Provider:       providerName,
		ProviderUserID: providerUserID,
		Token:          token,
	}

	data, err := s.codec.Encode(token)
	if err != nil {
		s.logger.Error("encode oauth2 token",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		return hs, nil
	}
	if _, err := s.links.UpsertToken(ctx, providerName, providerUserID, data); err != nil {
		// Already logged by the link service; routing proceeds on what is stored.
		return hs, nil
	}
	hs.Stored = true
	return hs, nil
}

func (s *oauth2Service) ProviderFailure(providerName, code, description, uri string) *ProviderError {
	perr := &ProviderError{
		Provider:    providerName,
		Code:        code,
		Description: description,
		URI:         uri,
	}
	s.logger.Warn("oauth2 provider returned an error",
		zap.String("provider", providerName),
		zap.String("error", code),
		zap.String("error_description", description),
		zap.String("error_uri", uri),
	)
	return perr
}

// consumeState takes the state so it cannot be replayed, then checks it was
// issued for this provider, session and user.
func (s *oauth2Service) consumeState(ctx context.Context, providerName, state string, by Initiator) error {
	if state == "" || by.SessionID == "" {
		return ErrOAuth2InvalidState
	}
	data, err := s.stateStore.Take(ctx, oauth2StateKeyPrefix+state)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if data == nil {
		return ErrOAuth2InvalidState
	}

	var sd oauth2StateData
	if err := json.Unmarshal(data, &sd); err != nil {
		return errors.Join(ErrOAuth2InvalidState, err)
	}
	if sd.Provider != providerName {
		return ErrOAuth2InvalidState
	}
	if sd.SessionID != by.SessionID || sd.UserID != by.userKey() {
		s.logger.Warn("oauth2 state used outside its session",
			zap.String("provider", providerName),
			zap.Bool("session_match", sd.SessionID == by.SessionID),
			zap.Bool("user_match", sd.UserID == by.userKey()),
		)
		return ErrOAuth2InvalidState
	}
	return nil
}

var _ OAuth2Service = (*oauth2Service)(nil)
