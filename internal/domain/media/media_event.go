package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EventStatus string

const (
	EventStatusInfo    EventStatus = "info"
	EventStatusSuccess EventStatus = "success"
	EventStatusError   EventStatus = "error"
)

// MediaEvent is an immutable audit entry. It has no UpdatedAt on purpose: rows are never changed.
type MediaEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MediaID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"media_id"`
	Media     *Media         `gorm:"constraint:OnDelete:CASCADE;foreignKey:MediaID;references:ID" json:"-"`
	EventType string         `gorm:"column:event_type;not null" json:"event_type"`
	Status    EventStatus    `gorm:"column:status;not null" json:"status"`
	Details   string         `gorm:"column:details" json:"details,omitempty"`
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (MediaEvent) TableName() string { return "media_event" }

func (e *MediaEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = EventStatusInfo
	}
	return nil
}

const (
	EventFileAssembled         = "File Assembled & Uploaded to Storage"
	EventStorageFailed         = "Failed to Store Original"
	EventTranscodeDispatched   = "Transcode Job Dispatched"
	EventTranscodeStarted      = "Transcode Job Started"
	EventNoRenditions          = "No Renditions Required"
	EventSentToEncoder         = "Sent to Encoding Service"
	EventEncoderSubmitFailed   = "Failed to Create Encoding Job"
	EventEncoderWebhook        = "Received Encoding Webhook"
	EventTranscodeComplete     = "Transcode Complete"
	EventTranscodeFailed       = "Transcode Failed"
	EventTranscodeRetriggered  = "Transcode Re-triggered"
	EventPublished             = "Media Published"
	EventCaptionRequested      = "Caption Requested"
	EventCaptionJobStarted     = "Vendor Caption Job Started"
	EventCaptionSent           = "Successfully Sent to Caption Vendor"
	EventCaptionSendFailed     = "Failed to Send to Caption Vendor"
	EventCaptionWebhook        = "Received Caption Vendor Webhook"
	EventCaptionDownloaded     = "Caption Downloaded from Vendor"
	EventCaptionDownloadFailed = "Failed to Download Caption from Vendor"
	EventCaptionApproved       = "Caption Request Approved"
	EventCaptionRejected       = "Caption Request Rejected"
	EventCaptionUploaded       = "Caption Uploaded"
	EventCaptionUpdated        = "Caption Updated"
)
