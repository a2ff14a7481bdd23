package media

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CaptionProfile holds vendor credentials. At most one row is active.
type CaptionProfile struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string         `gorm:"column:name;size:255;not null;uniqueIndex" json:"name"`
	APIKey         string         `gorm:"column:api_key" json:"-"`
	Vendor         string         `gorm:"column:vendor" json:"vendor,omitempty"`
	Profile        string         `gorm:"column:profile" json:"profile,omitempty"`
	Configurations datatypes.JSON `gorm:"column:configurations" json:"configurations,omitempty"`
	IsActive       bool           `gorm:"column:is_active;not null;default:false" json:"is_active"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (CaptionProfile) TableName() string { return "caption_profile" }

func (p *CaptionProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *CaptionProfile) HasAPIKey() bool {
	return p != nil && strings.TrimSpace(p.APIKey) != ""
}
