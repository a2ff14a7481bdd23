package domain

import (
	"github.com/yungbote/mediaforge-backend/internal/domain/jobs"
	"github.com/yungbote/mediaforge-backend/internal/domain/media"
)

type (
	JobRun = jobs.JobRun

	Media          = media.Media
	MediaType      = media.MediaType
	MediaStatus    = media.MediaStatus
	MediaEncode    = media.MediaEncode
	EncodeStatus   = media.EncodeStatus
	MediaEvent     = media.MediaEvent
	EventStatus    = media.EventStatus
	MediaCaption   = media.MediaCaption
	CaptionStatus  = media.CaptionStatus
	CaptionProfile = media.CaptionProfile
)

const (
	MediaTypeVideo = media.MediaTypeVideo
	MediaTypeImage = media.MediaTypeImage
	MediaTypePDF   = media.MediaTypePDF
	MediaTypeDoc   = media.MediaTypeDoc

	MediaStatusProcessing = media.MediaStatusProcessing
	MediaStatusPublished  = media.MediaStatusPublished
	MediaStatusFailed     = media.MediaStatusFailed

	EncodeStatusPending    = media.EncodeStatusPending
	EncodeStatusProcessing = media.EncodeStatusProcessing
	EncodeStatusComplete   = media.EncodeStatusComplete
	EncodeStatusFailed     = media.EncodeStatusFailed

	EventStatusInfo    = media.EventStatusInfo
	EventStatusSuccess = media.EventStatusSuccess
	EventStatusError   = media.EventStatusError

	CaptionStatusRequested              = media.CaptionStatusRequested
	CaptionStatusProcessingByVendor     = media.CaptionStatusProcessingByVendor
	CaptionStatusCompletedByVendor      = media.CaptionStatusCompletedByVendor
	CaptionStatusApproved               = media.CaptionStatusApproved
	CaptionStatusRejected               = media.CaptionStatusRejected
	CaptionStatusFailedVendorSubmission = media.CaptionStatusFailedVendorSubmission
	CaptionStatusFailedVendorRetrieval  = media.CaptionStatusFailedVendorRetrieval

	DefaultCaptionLanguage     = media.DefaultCaptionLanguage
	DefaultCaptionLanguageCode = media.DefaultCaptionLanguageCode

	EventFileAssembled         = media.EventFileAssembled
	EventStorageFailed         = media.EventStorageFailed
	EventTranscodeDispatched   = media.EventTranscodeDispatched
	EventTranscodeStarted      = media.EventTranscodeStarted
	EventNoRenditions          = media.EventNoRenditions
	EventSentToEncoder         = media.EventSentToEncoder
	EventEncoderSubmitFailed   = media.EventEncoderSubmitFailed
	EventEncoderWebhook        = media.EventEncoderWebhook
	EventTranscodeComplete     = media.EventTranscodeComplete
	EventTranscodeFailed       = media.EventTranscodeFailed
	EventTranscodeRetriggered  = media.EventTranscodeRetriggered
	EventPublished             = media.EventPublished
	EventCaptionRequested      = media.EventCaptionRequested
	EventCaptionJobStarted     = media.EventCaptionJobStarted
	EventCaptionSent           = media.EventCaptionSent
	EventCaptionSendFailed     = media.EventCaptionSendFailed
	EventCaptionWebhook        = media.EventCaptionWebhook
	EventCaptionDownloaded     = media.EventCaptionDownloaded
	EventCaptionDownloadFailed = media.EventCaptionDownloadFailed
	EventCaptionApproved       = media.EventCaptionApproved
	EventCaptionRejected       = media.EventCaptionRejected
	EventCaptionUploaded       = media.EventCaptionUploaded
	EventCaptionUpdated        = media.EventCaptionUpdated

	JobStatusQueued    = jobs.JobStatusQueued
	JobStatusRunning   = jobs.JobStatusRunning
	JobStatusSucceeded = jobs.JobStatusSucceeded
	JobStatusFailed    = jobs.JobStatusFailed
	JobStatusDead      = jobs.JobStatusDead
)

func ResolutionLabel(height int) string { return media.ResolutionLabel(height) }

func MediaTransitionSources(to MediaStatus) []MediaStatus { return media.MediaTransitionSources(to) }

func CaptionTransitionSources(to CaptionStatus) []CaptionStatus { return media.TransitionSources(to) }

func ReviewSources(decision CaptionStatus) []CaptionStatus { return media.ReviewSources(decision) }

func MediaTypeFromMIME(mime string) MediaType { return media.MediaTypeFromMIME(mime) }

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{
		&media.CaptionProfile{},
		&media.Media{},
		&media.MediaEncode{},
		&media.MediaCaption{},
		&media.MediaEvent{},
		&jobs.JobRun{},
	}
}
