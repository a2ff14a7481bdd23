package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CaptionStatus string

const (
	CaptionStatusRequested              CaptionStatus = "requested"
	CaptionStatusProcessingByVendor     CaptionStatus = "processing_by_vendor"
	CaptionStatusCompletedByVendor      CaptionStatus = "completed_by_vendor"
	CaptionStatusApproved               CaptionStatus = "approved"
	CaptionStatusRejected               CaptionStatus = "rejected"
	CaptionStatusFailedVendorSubmission CaptionStatus = "failed_vendor_submission"
	CaptionStatusFailedVendorRetrieval  CaptionStatus = "failed_vendor_retrieval"
)

var captionTransitions = map[CaptionStatus][]CaptionStatus{
	CaptionStatusRequested:             {CaptionStatusProcessingByVendor, CaptionStatusFailedVendorSubmission, CaptionStatusRejected},
	CaptionStatusProcessingByVendor:    {CaptionStatusCompletedByVendor, CaptionStatusFailedVendorRetrieval},
	CaptionStatusFailedVendorRetrieval: {CaptionStatusCompletedByVendor, CaptionStatusFailedVendorRetrieval},
	CaptionStatusCompletedByVendor:     {CaptionStatusApproved, CaptionStatusRejected},
	CaptionStatusApproved:              {CaptionStatusRejected},
}

func (s CaptionStatus) CanTransition(to CaptionStatus) bool {
	for _, next := range captionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionSources lists every status that may move to the given target.
func TransitionSources(to CaptionStatus) []CaptionStatus {
	out := []CaptionStatus{}
	for from, nexts := range captionTransitions {
		for _, n := range nexts {
			if n == to {
				out = append(out, from)
			}
		}
	}
	return out
}

// ReviewSources lists the statuses an admin decision may apply to. Only approved and rejected
// are decisions; approved to rejected is left to superseding a newer approval.
func ReviewSources(decision CaptionStatus) []CaptionStatus {
	if decision != CaptionStatusApproved && decision != CaptionStatusRejected {
		return nil
	}
	out := []CaptionStatus{}
	for _, from := range TransitionSources(decision) {
		if from != CaptionStatusApproved {
			out = append(out, from)
		}
	}
	return out
}

const (
	DefaultCaptionLanguage     = "English"
	DefaultCaptionLanguageCode = "en"
)

type MediaCaption struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MediaID uuid.UUID `gorm:"type:uuid;not null;index:idx_media_caption_media_lang" json:"media_id"`

	CaptionProfileID *uuid.UUID      `gorm:"type:uuid;index" json:"caption_profile_id,omitempty"`
	CaptionProfile   *CaptionProfile `gorm:"constraint:OnDelete:SET NULL;foreignKey:CaptionProfileID;references:ID" json:"-"`

	Status       CaptionStatus `gorm:"column:status;not null;index" json:"status"`
	RequestedBy  string        `gorm:"column:requested_by" json:"requested_by,omitempty"`
	UploadedBy   string        `gorm:"column:uploaded_by" json:"uploaded_by,omitempty"`
	ApprovedBy   string        `gorm:"column:approved_by" json:"approved_by,omitempty"`
	Language     string        `gorm:"column:language" json:"language"`
	LanguageCode string        `gorm:"column:language_code;index:idx_media_caption_media_lang" json:"language_code"`
	OrderID      *string       `gorm:"column:order_id;uniqueIndex" json:"order_id,omitempty"`
	Reason       string        `gorm:"column:reason" json:"reason,omitempty"`
	Caption      string        `gorm:"column:caption;type:text" json:"caption,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (MediaCaption) TableName() string { return "media_caption" }

func (c *MediaCaption) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Language == "" {
		c.Language = DefaultCaptionLanguage
	}
	if c.LanguageCode == "" {
		c.LanguageCode = DefaultCaptionLanguageCode
	}
	return nil
}
