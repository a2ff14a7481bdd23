package handlers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/http/response"
	"github.com/yungbote/mediaforge-backend/internal/platform/apierr"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

type AdminHandler struct {
	log      *logger.Logger
	captions services.CaptionOrchestrator
	profiles services.VendorProfileRegistry
	media    services.MediaService
}

func NewAdminHandler(log *logger.Logger, captions services.CaptionOrchestrator, profiles services.VendorProfileRegistry, media services.MediaService) *AdminHandler {
	return &AdminHandler{
		log:      log.With("handler", "AdminHandler"),
		captions: captions,
		profiles: profiles,
		media:    media,
	}
}

// GET /api/admin/caption-requests
func (h *AdminHandler) ListCaptionRequests(c *gin.Context) {
	items, err := h.captions.ListForReview(requestDBC(c), c.Query("status"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"caption_requests": items})
}

type reviewBody struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// PUT /api/admin/caption-requests/:id
func (h *AdminHandler) ReviewCaptionRequest(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var body reviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	decision := types.CaptionStatus(strings.TrimSpace(body.Status))
	caption, err := h.captions.Review(requestDBC(c), id, decision, body.Reason)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"caption_request": caption})
}

// profileView is the wire shape of a caption profile. The API key itself never leaves the server.
type profileView struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Vendor         string          `json:"vendor,omitempty"`
	Profile        string          `json:"profile,omitempty"`
	Configurations json.RawMessage `json:"configurations,omitempty"`
	IsActive       bool            `json:"is_active"`
	HasAPIKey      bool            `json:"has_api_key"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func newProfileView(p *types.CaptionProfile) *profileView {
	if p == nil {
		return nil
	}
	v := &profileView{
		ID:        p.ID,
		Name:      p.Name,
		Vendor:    p.Vendor,
		Profile:   p.Profile,
		IsActive:  p.IsActive,
		HasAPIKey: p.HasAPIKey(),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if len(p.Configurations) > 0 {
		v.Configurations = json.RawMessage(p.Configurations)
	}
	return v
}

type profileBody struct {
	Name           string         `json:"name"`
	APIKey         string         `json:"api_key"`
	Vendor         string         `json:"vendor"`
	Profile        string         `json:"profile"`
	Configurations map[string]any `json:"configurations"`
	IsActive       *bool          `json:"is_active"`
}

func (b profileBody) input() services.ProfileInput {
	return services.ProfileInput{
		Name:           b.Name,
		APIKey:         b.APIKey,
		Vendor:         b.Vendor,
		Profile:        b.Profile,
		Configurations: b.Configurations,
		IsActive:       b.IsActive,
	}
}

// GET /api/admin/caption-profiles
func (h *AdminHandler) ListProfiles(c *gin.Context) {
	items, err := h.profiles.List(requestDBC(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out := make([]*profileView, 0, len(items))
	for _, p := range items {
		out = append(out, newProfileView(p))
	}
	response.RespondOK(c, gin.H{"caption_profiles": out})
}

// GET /api/admin/caption-profiles/active
func (h *AdminHandler) ActiveProfile(c *gin.Context) {
	p, err := h.profiles.ActiveProfile(requestDBC(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"caption_profile": newProfileView(p)})
}

// POST /api/admin/caption-profiles
func (h *AdminHandler) CreateProfile(c *gin.Context) {
	var body profileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	p, err := h.profiles.Create(requestDBC(c), body.input())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.log.Info("caption profile created", "profile_id", p.ID, "active", p.IsActive)
	response.RespondCreated(c, gin.H{"caption_profile": newProfileView(p)})
}

// PUT /api/admin/caption-profiles/:id
func (h *AdminHandler) UpdateProfile(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var body profileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	p, err := h.profiles.Update(requestDBC(c), id, body.input())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"caption_profile": newProfileView(p)})
}

// DELETE /api/admin/caption-profiles/:id
func (h *AdminHandler) DeleteProfile(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.profiles.Delete(requestDBC(c), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/admin/caption-profiles/:id/activate
func (h *AdminHandler) ActivateProfile(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.profiles.Activate(requestDBC(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.log.Info("caption profile activated", "profile_id", p.ID)
	response.RespondOK(c, gin.H{"caption_profile": newProfileView(p)})
}

// POST /api/admin/media/:id/retranscode
func (h *AdminHandler) Retranscode(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	m, err := h.media.Retranscode(requestDBC(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"media": m})
}
