package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bookhub/oauthbind/internal/model"
	"bookhub/oauthbind/internal/provider"
	"bookhub/oauthbind/internal/repository"
	"bookhub/oauthbind/internal/session"
)

// RouteKind names where the browser goes after a binding decision.
type RouteKind string

const (
	RouteLanding      RouteKind = "landing"       // logged in through a claimed link
	RouteLoginConfirm RouteKind = "login_confirm" // link claimed by the current user
	RouteLogin        RouteKind = "login"
	RouteRegister     RouteKind = "register"
	RouteFallback     RouteKind = "fallback" // restart the handshake
)

// RedirectTarget is a route kind plus, for RouteFallback, the URL to use.
type RedirectTarget struct {
	Kind RouteKind
	URL  string
}

// BindOutcome is the result of BindOrRoute.
type BindOutcome struct {
	// State is the link state found before any transition.
	State  model.LinkState
	Target RedirectTarget
	// Login is the user the session must be logged in as, or uuid.Nil.
	Login uuid.UUID
	Flash *session.Flash
}

type UnlinkResult int

const (
	UnlinkSuccess UnlinkResult = iota
	UnlinkNotLinked
	UnlinkFailed
)

func (r UnlinkResult) String() string {
	switch r {
	case UnlinkSuccess:
		return "SUCCESS"
	case UnlinkNotLinked:
		return "NOT_LINKED"
	case UnlinkFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UnlinkResult(%d)", int(r))
	}
}

// LinkService maintains the (provider, provider_user_id) -> user mapping.
type LinkService interface {
	// UpsertToken creates the link or refreshes its token. Persistence
	// failures are logged, rolled back and reported as ErrPersistenceFailed.
	UpsertToken(ctx context.Context, provider, providerUserID string, token model.TokenData) (*model.IdentityLink, error)

	// BindOrRoute decides what a completed handshake means for the session.
	// current is the authenticated user, or nil. It never fails; a missing
	// link routes to fallback.
	BindOrRoute(ctx context.Context, provider, providerUserID string, current *uuid.UUID, fallback string) BindOutcome

	// Unlink removes userID's link to provider.
	Unlink(ctx context.Context, provider string, userID uuid.UUID) UnlinkResult

	// ListLinkedProviders returns the sorted provider names linked to userID.
	ListLinkedProviders(ctx context.Context, userID uuid.UUID) ([]string, error)

	// ClaimPending attaches the unclaimed links named by pending
	// (provider -> provider_user_id) to userID and returns how many were claimed.
	ClaimPending(ctx context.Context, userID uuid.UUID, pending map[string]string) (int, error)

	// PendingProviders returns display names of the registered providers in pending.
	PendingProviders(pending map[string]string) []string
}

type linkService struct {
	links              repository.LinkRepository
	registry           *provider.Registry
	publicRegistration bool
	logger             *zap.Logger
}

func NewLinkService(
	links repository.LinkRepository,
	registry *provider.Registry,
	publicRegistration bool,
	logger *zap.Logger,
) LinkService {
	return &linkService{
		links:              links,
		registry:           registry,
		publicRegistration: publicRegistration,
		logger:             logger.Named("links"),
	}
}

func (s *linkService) UpsertToken(
	ctx context.Context, providerName, providerUserID string, token model.TokenData,
) (*model.IdentityLink, error) {
	if !s.registry.Has(providerName) {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotRegistered, providerName)
	}
	if strings.TrimSpace(providerUserID) == "" {
		return nil, ErrInvalidProviderUserID
	}

	var stored *model.IdentityLink
	err := s.links.WithTx(ctx, func(tx repository.LinkRepository) error {
		link, err := tx.UpsertToken(ctx, &model.IdentityLink{
			Provider:       providerName,
			ProviderUserID: providerUserID,
			Token:          token,
		})
		if err != nil {
			return err
		}
		stored = link
		return nil
	})
	if err != nil {
		s.logger.Error("store oauth2 token",
			zap.String("provider", providerName),
			zap.String("provider_user_id", providerUserID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	return stored, nil
}

func (s *linkService) BindOrRoute(
	ctx context.Context, providerName, providerUserID string, current *uuid.UUID, fallback string,
) BindOutcome {
	link, err := s.links.GetByProviderUserID(ctx, providerName, providerUserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("find identity link",
				zap.String("provider", providerName),
				zap.String("provider_user_id", providerUserID),
				zap.Error(err),
			)
		}
		return BindOutcome{
			State:  model.LinkStateNone,
			Target: RedirectTarget{Kind: RouteFallback, URL: fallback},
		}
	}

	display := s.registry.DisplayName(providerName)

	switch link.State() {
	case model.LinkStateClaimed:
		return BindOutcome{
			State:  model.LinkStateClaimed,
			Target: RedirectTarget{Kind: RouteLanding},
			Login:  *link.UserID,
		}

	case model.LinkStateUnclaimed:
		if current == nil || *current == uuid.Nil {
			return s.routeAnonymous(display)
		}

		claimed := false
		err := s.links.WithTx(ctx, func(tx repository.LinkRepository) error {
			ok, err := tx.Claim(ctx, link.ID, *current)
			claimed = ok
			return err
		})
		if err != nil {
			s.logger.Error("claim identity link",
				zap.String("provider", providerName),
				zap.String("user_id", current.String()),
				zap.Error(err),
			)
			return BindOutcome{
				State:  model.LinkStateUnclaimed,
				Target: RedirectTarget{Kind: RouteLoginConfirm},
				Flash:  &session.Flash{Category: session.FlashError, Message: fmt.Sprintf("Link to %s failed.", display)},
			}
		}
		if !claimed {
			// Claimed or removed concurrently; route on what is stored now.
			return s.BindOrRoute(ctx, providerName, providerUserID, current, fallback)
		}
		s.logger.Info("identity link claimed",
			zap.String("provider", providerName),
			zap.String("user_id", current.String()),
		)
		return BindOutcome{
			State:  model.LinkStateUnclaimed,
			Target: RedirectTarget{Kind: RouteLoginConfirm},
			Flash:  &session.Flash{Category: session.FlashSuccess, Message: fmt.Sprintf("Link to %s success.", display)},
		}
	}

	return BindOutcome{State: model.LinkStateNone, Target: RedirectTarget{Kind: RouteFallback, URL: fallback}}
}

// routeAnonymous handles an unclaimed link without a logged-in user: there is
// no local account to attach it to yet.
func (s *linkService) routeAnonymous(display string) BindOutcome {
	if s.publicRegistration {
		return BindOutcome{
			State:  model.LinkStateUnclaimed,
			Target: RedirectTarget{Kind: RouteRegister},
			Flash:  &session.Flash{Category: session.FlashInfo, Message: fmt.Sprintf("Register with %s", display)},
		}
	}
	return BindOutcome{
		State:  model.LinkStateUnclaimed,
		Target: RedirectTarget{Kind: RouteLogin},
		Flash: &session.Flash{
			Category: session.FlashError,
			Message:  fmt.Sprintf("No account is linked to this %s login and public registration is not enabled.", display),
		},
	}
}

func (s *linkService) Unlink(ctx context.Context, providerName string, userID uuid.UUID) UnlinkResult {
	result := UnlinkSuccess
	err := s.links.WithTx(ctx, func(tx repository.LinkRepository) error {
		link, err := tx.GetByUserAndProvider(ctx, userID, providerName)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = UnlinkNotLinked
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Delete(ctx, link.ID)
	})
	if err != nil {
		s.logger.Error("unlink identity",
			zap.String("provider", providerName),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return UnlinkFailed
	}
	if result == UnlinkNotLinked {
		s.logger.Warn("unlink requested for provider not linked",
			zap.String("provider", providerName),
			zap.String("user_id", userID.String()),
		)
	}
	return result
}

func (s *linkService) ListLinkedProviders(ctx context.Context, userID uuid.UUID) ([]string, error) {
	links, err := s.links.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list identity links: %w", err)
	}

	seen := make(map[string]struct{}, len(links))
	providers := make([]string, 0, len(links))
	for _, l := range links {
		if _, dup := seen[l.Provider]; dup {
			continue
		}
		seen[l.Provider] = struct{}{}
		providers = append(providers, l.Provider)
	}
	sort.Strings(providers)
	return providers, nil
}

func (s *linkService) ClaimPending(ctx context.Context, userID uuid.UUID, pending map[string]string) (int, error) {
	claimed := 0
	err := s.links.WithTx(ctx, func(tx repository.LinkRepository) error {
		claimed = 0
		for _, providerName := range s.pendingNames(pending) {
			providerUserID := pending[providerName]
			link, err := tx.GetByProviderUserID(ctx, providerName, providerUserID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Warn("no identity link for session marker",
					zap.String("provider", providerName),
					zap.String("provider_user_id", providerUserID),
				)
				continue
			}
			if err != nil {
				return err
			}
			if link.State() == model.LinkStateClaimed {
				if !link.OwnedBy(userID) {
					s.logger.Warn("identity link already claimed by another user",
						zap.String("provider", providerName),
						zap.String("user_id", userID.String()),
					)
				}
				continue
			}
			ok, err := tx.Claim(ctx, link.ID, userID)
			if err != nil {
				return err
			}
			if ok {
				claimed++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("claim pending identity links",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return 0, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	return claimed, nil
}

func (s *linkService) PendingProviders(pending map[string]string) []string {
	names := s.pendingNames(pending)
	display := make([]string, 0, len(names))
	for _, n := range names {
		display = append(display, s.registry.DisplayName(n))
	}
	return display
}

// pendingNames returns the registered providers present in pending, in
// registry order.
func (s *linkService) pendingNames(pending map[string]string) []string {
	var names []string
	for _, n := range s.registry.Names() {
		if id, ok := pending[n]; ok && id != "" {
			names = append(names, n)
		}
	}
	return names
}

var _ LinkService = (*linkService)(nil)
