package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookhub/oauthbind/internal/model"
)

type pgLinkRepository struct {
	db *gorm.DB
}

func NewPGLinkRepository(db *gorm.DB) LinkRepository {
	return &pgLinkRepository{db: db}
}

func (r *pgLinkRepository) GetByProviderUserID(
	ctx context.Context, provider, providerUserID string,
) (*model.IdentityLink, error) {
	var link model.IdentityLink
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *pgLinkRepository) GetByUserAndProvider(
	ctx context.Context, userID uuid.UUID, provider string,
) (*model.IdentityLink, error) {
	var link model.IdentityLink
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *pgLinkRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.IdentityLink, error) {
	var links []model.IdentityLink
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("provider").
		Find(&links).Error
	return links, err
}

func (r *pgLinkRepository) UpsertToken(ctx context.Context, link *model.IdentityLink) (*model.IdentityLink, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
		}).
		Create(link).Error
	if err != nil {
		return nil, err
	}
	// On conflict the existing row keeps its id and owner; re-read it.
	return r.GetByProviderUserID(ctx, link.Provider, link.ProviderUserID)
}

func (r *pgLinkRepository) Claim(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.IdentityLink{}).
		Where("id = ? AND user_id IS NULL", id).
		Update("user_id", userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *pgLinkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.IdentityLink{}, "id = ?", id).Error
}

func (r *pgLinkRepository) WithTx(ctx context.Context, fn func(repo LinkRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgLinkRepository{db: tx})
	})
}
