package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bookhub/oauthbind/internal/repository"
	jwtpkg "bookhub/oauthbind/pkg/jwt"
)

// TokenSet represents a set of tokens returned after authentication.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthService is the "log this user in" primitive.
type AuthService interface {
	IssueTokenSet(ctx context.Context, userID uuid.UUID) (*TokenSet, error)
	// RefreshToken trades a refresh token for a new token set. The user must
	// still exist and be active.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtManager *jwtpkg.Manager
}

func NewAuthService(userRepo repository.UserRepository, jwtManager *jwtpkg.Manager) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

func (s *authService) IssueTokenSet(ctx context.Context, userID uuid.UUID) (*TokenSet, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return nil, ErrUserDisabled
	}

	access, err := s.jwtManager.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, _, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return &TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	claims, err := s.jwtManager.Validate(refreshToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeRefresh {
		return nil, ErrRefreshTokenInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	set, err := s.IssueTokenSet(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrRefreshTokenInvalid
	}
	return set, err
}

// ensure authService implements AuthService
var _ AuthService = (*authService)(nil)
