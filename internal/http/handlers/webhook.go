package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediaforge-backend/internal/platform/apierr"
	"github.com/yungbote/mediaforge-backend/internal/platform/encoder"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

// WebhookHandler answers vendor callbacks with the status object vendors expect rather than
// the regular error envelope.
type WebhookHandler struct {
	log       *logger.Logger
	transcode services.TranscodeOrchestrator
	captions  services.CaptionOrchestrator
}

func NewWebhookHandler(log *logger.Logger, transcode services.TranscodeOrchestrator, captions services.CaptionOrchestrator) *WebhookHandler {
	return &WebhookHandler{
		log:       log.With("handler", "WebhookHandler"),
		transcode: transcode,
		captions:  captions,
	}
}

// POST /api/webhooks/encoder
func (h *WebhookHandler) Encoder(c *gin.Context) {
	var ev encoder.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		webhookFailure(c, http.StatusBadRequest, "Invalid webhook payload.")
		return
	}
	res, err := h.transcode.HandleWebhook(c.Request.Context(), ev.Detail)
	if err != nil {
		h.respondErr(c, "encoder", err)
		return
	}
	webhookSuccess(c, res)
}

type captionWebhookBody struct {
	TranscriptID string `json:"transcript_id" form:"transcript_id"`
	OrderID      string `json:"order_id" form:"order_id"`
	Status       string `json:"status" form:"status"`
}

// POST /api/webhooks/captions
func (h *WebhookHandler) Captions(c *gin.Context) {
	var body captionWebhookBody
	if err := c.ShouldBind(&body); err != nil {
		webhookFailure(c, http.StatusBadRequest, "Invalid webhook payload.")
		return
	}
	orderID := strings.TrimSpace(body.TranscriptID)
	if orderID == "" {
		orderID = strings.TrimSpace(body.OrderID)
	}
	res, err := h.captions.HandleVendorWebhook(c.Request.Context(), orderID, body.Status)
	if err != nil {
		h.respondErr(c, "captions", err)
		return
	}
	webhookSuccess(c, res)
}

func (h *WebhookHandler) respondErr(c *gin.Context, source string, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		if ae.Status >= 500 {
			h.log.Error("webhook failed", "source", source, "status", ae.Status, "error", err)
		} else {
			h.log.Warn("webhook rejected", "source", source, "status", ae.Status, "error", err)
		}
		webhookFailure(c, ae.Status, ae.Error())
		return
	}
	h.log.Error("webhook failed", "source", source, "error", err)
	_ = c.Error(err)
	webhookFailure(c, http.StatusInternalServerError, "Internal error.")
}

func webhookSuccess(c *gin.Context, res *services.WebhookResult) {
	if res == nil {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
		return
	}
	switch res.Outcome {
	case services.WebhookDuplicate:
		c.JSON(http.StatusOK, gin.H{"status": "success", "duplicate": true})
	case services.WebhookIgnored:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

func webhookFailure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"status": "error", "message": message})
}
