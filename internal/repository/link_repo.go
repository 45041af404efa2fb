package repository

import (
	"context"

	"github.com/google/uuid"

	"bookhub/oauthbind/internal/model"
)

// LinkRepository is the Link Store. Lookups return gorm.ErrRecordNotFound
// when nothing matches.
type LinkRepository interface {
	GetByProviderUserID(ctx context.Context, provider, providerUserID string) (*model.IdentityLink, error)
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*model.IdentityLink, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.IdentityLink, error)

	// UpsertToken inserts link or, when (provider, provider_user_id) already
	// exists, overwrites only its token. The stored row is returned.
	UpsertToken(ctx context.Context, link *model.IdentityLink) (*model.IdentityLink, error)

	// Claim attaches userID to an unclaimed link. It reports false when the
	// link was already claimed or no longer exists.
	Claim(ctx context.Context, id, userID uuid.UUID) (bool, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx runs fn in a transaction; any error returned by fn rolls it back.
	WithTx(ctx context.Context, fn func(repo LinkRepository) error) error
}
