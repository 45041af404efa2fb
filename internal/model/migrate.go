package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models. The composite unique
// index on identity_links (provider, provider_user_id) comes from the struct
// tags and is what makes concurrent upserts collapse to a single row.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&IdentityLink{},
	)
}
