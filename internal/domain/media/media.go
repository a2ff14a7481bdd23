package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Media struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	OwnerName   string    `gorm:"column:owner_name" json:"owner_name"`
	OwnerEmail  string    `gorm:"column:owner_email" json:"-"`

	Title            string         `gorm:"column:title;size:255;not null" json:"title"`
	Description      string         `gorm:"column:description" json:"description"`
	Tags             datatypes.JSON `gorm:"column:tags" json:"tags"`
	MediaType        MediaType      `gorm:"column:media_type;not null;index" json:"media_type"`
	MimeType         string         `gorm:"column:mime_type" json:"mime_type"`
	OriginalFilename string         `gorm:"column:original_filename" json:"original_filename"`
	FileHash         string         `gorm:"column:file_hash;size:64;not null;uniqueIndex" json:"file_hash"`
	SizeBytes        int64          `gorm:"column:size_bytes" json:"size_bytes"`

	Status        MediaStatus `gorm:"column:status;not null;index" json:"status"`
	StatusDetails string      `gorm:"column:status_details" json:"status_details,omitempty"`

	URL              string `gorm:"column:url" json:"url"`
	StorageKey       string `gorm:"column:storage_key" json:"-"`
	CaptionRequested bool   `gorm:"column:caption_requested;not null;default:false" json:"caption_requested"`

	// Set when a transcode job is accepted by the encoder; reconciliation must match it.
	TranscodeJobID        string     `gorm:"column:transcode_job_id;index" json:"transcode_job_id,omitempty"`
	TranscodeSubmittedAt  *time.Time `gorm:"column:transcode_submitted_at" json:"transcode_submitted_at,omitempty"`
	TranscodeReconciledAt *time.Time `gorm:"column:transcode_reconciled_at" json:"transcode_reconciled_at,omitempty"`

	Encodes  []*MediaEncode  `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE" json:"encodes,omitempty"`
	Captions []*MediaCaption `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE" json:"captions,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Media) TableName() string { return "media" }

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = MediaStatusProcessing
	}
	return nil
}
