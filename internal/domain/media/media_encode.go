package media

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EncodeStatus string

const (
	EncodeStatusPending    EncodeStatus = "pending"
	EncodeStatusProcessing EncodeStatus = "processing"
	EncodeStatusComplete   EncodeStatus = "complete"
	EncodeStatusFailed     EncodeStatus = "failed"
)

// MediaEncode is one rendition of a Media. The row flagged IsOriginal is the unprocessed source.
type MediaEncode struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MediaID uuid.UUID `gorm:"type:uuid;not null;index" json:"media_id"`

	Width         int          `gorm:"column:width;not null;default:0" json:"width"`
	Height        int          `gorm:"column:height;not null;default:0;index" json:"height"`
	Status        EncodeStatus `gorm:"column:status;not null" json:"status"`
	StatusDetails string       `gorm:"column:status_details" json:"status_details,omitempty"`
	Type          string       `gorm:"column:type" json:"type"`
	Resolution    string       `gorm:"column:resolution" json:"resolution"`
	URL           string       `gorm:"column:url" json:"url"`
	StorageKey    string       `gorm:"column:storage_key" json:"-"`
	IsOriginal    bool         `gorm:"column:is_original;not null;default:false;index" json:"is_original"`
	ExternalJobID string       `gorm:"column:external_job_id;index" json:"external_job_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (MediaEncode) TableName() string { return "media_encode" }

func (e *MediaEncode) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = EncodeStatusPending
	}
	return nil
}

// ResolutionLabel renders a height as "720p"; zero height has no label.
func ResolutionLabel(height int) string {
	if height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dp", height)
}
