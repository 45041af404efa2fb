package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Known provider names.
const (
	ProviderGitHub = "github"
	ProviderGoogle = "google"
)

// LinkState is the binding state of an external identity.
type LinkState string

const (
	LinkStateNone      LinkState = "NO_LINK"
	LinkStateUnclaimed LinkState = "LINK_UNCLAIMED"
	LinkStateClaimed   LinkState = "LINK_CLAIMED"
)

// TokenData is the opaque provider credential stored in the token column.
type TokenData map[string]interface{}

func (td TokenData) Value() (driver.Value, error) {
	if td == nil {
		return nil, nil
	}
	return json.Marshal(td)
}

func (td *TokenData) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*td = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("TokenData.Scan: unsupported column type")
	}
	return json.Unmarshal(raw, td)
}

// IdentityLink associates one provider account with at most one local user.
type IdentityLink struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Provider       string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_identity_links_provider_user,priority:1" json:"provider"`
	ProviderUserID string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_identity_links_provider_user,priority:2" json:"provider_user_id"`
	Token          TokenData  `gorm:"type:jsonb" json:"-"`
	UserID         *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (IdentityLink) TableName() string { return "identity_links" }

func (l *IdentityLink) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// State reports the binding state; a nil link is NO_LINK.
func (l *IdentityLink) State() LinkState {
	switch {
	case l == nil:
		return LinkStateNone
	case l.UserID == nil || *l.UserID == uuid.Nil:
		return LinkStateUnclaimed
	default:
		return LinkStateClaimed
	}
}

// OwnedBy reports whether the link is claimed by userID.
func (l *IdentityLink) OwnedBy(userID uuid.UUID) bool {
	return l.State() == LinkStateClaimed && *l.UserID == userID
}
