package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/http/response"
	"github.com/yungbote/mediaforge-backend/internal/platform/apierr"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

const vttContentType = "text/vtt; charset=utf-8"

type MediaHandler struct {
	log           *logger.Logger
	assembler     services.ChunkAssembler
	media         services.MediaService
	captions      services.CaptionOrchestrator
	maxChunkBytes int64
}

type MediaHandlerDeps struct {
	Log           *logger.Logger
	Assembler     services.ChunkAssembler
	Media         services.MediaService
	Captions      services.CaptionOrchestrator
	MaxChunkBytes int64
}

func NewMediaHandler(d MediaHandlerDeps) *MediaHandler {
	maxChunk := d.MaxChunkBytes
	if maxChunk <= 0 {
		maxChunk = 64 << 20
	}
	return &MediaHandler{
		log:           d.Log.With("handler", "MediaHandler"),
		assembler:     d.Assembler,
		media:         d.Media,
		captions:      d.Captions,
		maxChunkBytes: maxChunk,
	}
}

// POST /api/media/upload-chunk
func (h *MediaHandler) UploadChunk(c *gin.Context) {
	// Leave room for the metadata fields on top of the chunk itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxChunkBytes+(1<<20))
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "chunk_too_large", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	in, err := chunkUploadFromForm(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	fh, err := c.FormFile("chunk")
	if err != nil {
		response.RespondAPIError(c, apierr.Validation("chunk file is required"))
		return
	}
	if fh.Size > h.maxChunkBytes {
		response.RespondAPIError(c, apierr.Validation("chunk exceeds %d bytes", h.maxChunkBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_chunk", err)
		return
	}
	defer f.Close()
	in.Chunk = f

	res, err := h.assembler.SubmitChunk(requestDBC(c), in)
	if err != nil {
		var dup *services.DuplicateContentError
		if errors.As(err, &dup) {
			c.JSON(http.StatusConflict, gin.H{
				"error": gin.H{
					"message": dup.Error(),
					"code":    "duplicate_content",
				},
				"existing_media_id": dup.ExistingID,
			})
			return
		}
		h.log.Warn("chunk upload failed", "upload_id", in.UploadID, "chunk_index", in.ChunkIndex, "error", err)
		response.RespondAPIError(c, err)
		return
	}
	if res.Outcome == services.AssembledNew {
		response.RespondCreated(c, gin.H{"status": string(res.Outcome), "media": res.Media})
		return
	}
	response.RespondOK(c, gin.H{
		"status":    string(res.Outcome),
		"upload_id": res.UploadID,
		"received":  res.Received,
		"total":     res.Total,
	})
}

func chunkUploadFromForm(c *gin.Context) (services.ChunkUpload, error) {
	in := services.ChunkUpload{
		UploadID:         strings.TrimSpace(c.PostForm("upload_id")),
		OriginalFilename: strings.TrimSpace(c.PostForm("original_filename")),
		Title:            strings.TrimSpace(c.PostForm("title")),
		Description:      strings.TrimSpace(c.PostForm("description")),
	}
	idx, err := strconv.Atoi(strings.TrimSpace(c.PostForm("chunk_index")))
	if err != nil {
		return in, apierr.Validation("chunk_index must be an integer")
	}
	total, err := strconv.Atoi(strings.TrimSpace(c.PostForm("total_chunks")))
	if err != nil {
		return in, apierr.Validation("total_chunks must be an integer")
	}
	in.ChunkIndex, in.TotalChunks = idx, total

	if raw := strings.TrimSpace(c.PostForm("tags")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Tags); err != nil {
			return in, apierr.Validation("tags must be a JSON array of strings")
		}
	}
	if raw := strings.TrimSpace(c.PostForm("caption_requested")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return in, apierr.Validation("caption_requested must be true or false")
		}
		in.CaptionRequested = b
	}
	return in, nil
}

// GET /api/media
func (h *MediaHandler) ListMedia(c *gin.Context) {
	q := services.MediaQuery{
		Status:    c.Query("status"),
		MediaType: c.Query("media_type"),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondAPIError(c, apierr.Validation("limit must be a non-negative integer"))
			return
		}
		q.Limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondAPIError(c, apierr.Validation("offset must be a non-negative integer"))
			return
		}
		q.Offset = n
	}
	items, err := h.media.List(requestDBC(c), q)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"media": items})
}

// GET /api/media/:id
func (h *MediaHandler) GetMedia(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	m, err := h.media.Get(requestDBC(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"media": m})
}

type mediaUpdateBody struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// PUT /api/media/:id
func (h *MediaHandler) UpdateMedia(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var body mediaUpdateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	m, err := h.media.Update(requestDBC(c), id, services.MediaUpdate{
		Title:       body.Title,
		Description: body.Description,
		Tags:        body.Tags,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"media": m})
}

// GET /api/media/:id/events
func (h *MediaHandler) ListEvents(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	events, err := h.media.Events(requestDBC(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}

// GET /api/media/:id/captions.vtt
func (h *MediaHandler) CaptionsVTT(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	dbc := requestDBC(c)
	if _, err := h.media.Get(dbc, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	body, err := h.captions.ExportVTT(dbc, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="captions.vtt"`)
	c.Data(http.StatusOK, vttContentType, []byte(body))
}

type captionBody struct {
	Caption string `json:"caption"`
}

// POST /api/media/:id/captions
func (h *MediaHandler) UploadCaption(c *gin.Context) {
	h.saveCaption(c, h.captions.UploadCaption)
}

// PUT /api/media/:id/captions
func (h *MediaHandler) EditCaption(c *gin.Context) {
	h.saveCaption(c, h.captions.EditCaption)
}

func (h *MediaHandler) saveCaption(c *gin.Context, save func(dbctx.Context, uuid.UUID, string) (*types.MediaCaption, error)) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var body captionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(body.Caption) == "" {
		response.RespondAPIError(c, apierr.Validation("caption is required"))
		return
	}
	dbc := requestDBC(c)
	if _, err := h.media.Get(dbc, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	caption, err := save(dbc, id, body.Caption)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"caption": caption})
}
