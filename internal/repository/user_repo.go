package repository

import (
	"context"

	"github.com/google/uuid"

	"bookhub/oauthbind/internal/model"
)

// UserRepository reads the local accounts links are attached to. Accounts
// are created by the registration flow, not here.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}
