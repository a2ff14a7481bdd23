package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/data/repos"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/observability"
	"github.com/yungbote/mediaforge-backend/internal/platform/apierr"
	"github.com/yungbote/mediaforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/localmedia"
	"github.com/yungbote/mediaforge-backend/internal/platform/lock"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

const (
	MaxTotalChunks = 10000
	maxTitleLen    = 255
)

var uploadIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type ChunkUpload struct {
	UploadID         string
	ChunkIndex       int
	TotalChunks      int
	Chunk            io.Reader
	OriginalFilename string
	Title            string
	Description      string
	Tags             []string
	CaptionRequested bool
}

type AssemblyOutcome string

const (
	AwaitingMoreChunks AssemblyOutcome = "chunk_received"
	AssembledNew       AssemblyOutcome = "assembled"
)

// AssemblyResult is what a chunk submission produced. Duplicate content is reported as a
// *DuplicateContentError instead.
type AssemblyResult struct {
	Outcome  AssemblyOutcome
	UploadID string
	Received int
	Total    int
	Media    *types.Media
}

// CaptionRequester records a caption ask against a freshly created medium.
type CaptionRequester interface {
	RequestCaptions(dbc dbctx.Context, m *types.Media) (*types.MediaCaption, error)
}

type ChunkAssembler interface {
	SubmitChunk(dbc dbctx.Context, in ChunkUpload) (*AssemblyResult, error)
	// SessionDir is where chunks for uploadID are kept.
	SessionDir(uploadID string) string
}

type ChunkAssemblerConfig struct {
	ScratchDir    string
	MaxChunkBytes int64
	LockTTL       time.Duration
}

type ChunkAssemblerDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Config    ChunkAssemblerConfig
	Media     repos.MediaRepo
	Encodes   repos.MediaEncodeRepo
	Events    EventLog
	Dedup     DedupGuard
	Store     OriginalStore
	Prober    localmedia.Prober
	Locker    lock.Locker
	Lifecycle MediaLifecycle
	Jobs      JobService
	Captions  CaptionRequester
	Metrics   *observability.Metrics
}

type chunkAssembler struct {
	db        *gorm.DB
	log       *logger.Logger
	cfg       ChunkAssemblerConfig
	media     repos.MediaRepo
	encodes   repos.MediaEncodeRepo
	events    EventLog
	dedup     DedupGuard
	store     OriginalStore
	prober    localmedia.Prober
	locker    lock.Locker
	lifecycle MediaLifecycle
	jobs      JobService
	captions  CaptionRequester
	metrics   *observability.Metrics
}

func NewChunkAssembler(d ChunkAssemblerDeps) ChunkAssembler {
	cfg := d.Config
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(os.TempDir(), "mediaforge")
	}
	if cfg.MaxChunkBytes <= 0 {
		cfg.MaxChunkBytes = 64 << 20
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	return &chunkAssembler{
		db:        d.DB,
		log:       d.Log.With("service", "ChunkAssembler"),
		cfg:       cfg,
		media:     d.Media,
		encodes:   d.Encodes,
		events:    d.Events,
		dedup:     d.Dedup,
		store:     d.Store,
		prober:    d.Prober,
		locker:    d.Locker,
		lifecycle: d.Lifecycle,
		jobs:      d.Jobs,
		captions:  d.Captions,
		metrics:   d.Metrics,
	}
}

// ChunksRoot is the parent of every upload session directory.
func ChunksRoot(scratchDir string) string { return filepath.Join(scratchDir, "chunks") }

// SessionLockKey is the lock held while a session is being assembled.
func SessionLockKey(uploadID string) string { return "upload:" + uploadID }

func (s *chunkAssembler) SessionDir(uploadID string) string {
	return filepath.Join(ChunksRoot(s.cfg.ScratchDir), uploadID)
}

func (s *chunkAssembler) SubmitChunk(dbc dbctx.Context, in ChunkUpload) (*AssemblyResult, error) {
	actor := ctxutil.GetActor(dbc.Ctx)
	if actor == nil || actor.UserID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", ErrUnauthenticated)
	}
	if err := validateChunkUpload(in); err != nil {
		s.metrics.IncUpload("rejected")
		return nil, err
	}
	dir := s.SessionDir(in.UploadID)
	if err := s.storeChunk(dir, in.ChunkIndex, in.Chunk); err != nil {
		s.metrics.IncUpload("rejected")
		return nil, err
	}
	received, err := countChunks(dir, in.TotalChunks)
	if err != nil {
		return nil, err
	}
	awaiting := &AssemblyResult{Outcome: AwaitingMoreChunks, UploadID: in.UploadID, Received: received, Total: in.TotalChunks}
	if received < in.TotalChunks {
		s.metrics.IncUpload(string(AwaitingMoreChunks))
		return awaiting, nil
	}

	lease, ok, err := s.locker.TryLock(dbc.Ctx, SessionLockKey(in.UploadID), s.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock upload session: %w", err)
	}
	if !ok {
		// Another request for the same session is assembling.
		s.metrics.IncUpload(string(AwaitingMoreChunks))
		return awaiting, nil
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			s.log.Warn("release upload lock failed", "upload_id", in.UploadID, "error", err)
		}
	}()

	// The previous holder may have finished and removed the session already.
	received, err = countChunks(dir, in.TotalChunks)
	if err != nil {
		return nil, err
	}
	if received < in.TotalChunks {
		awaiting.Received = received
		s.metrics.IncUpload(string(AwaitingMoreChunks))
		return awaiting, nil
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn("remove upload session failed", "upload_id", in.UploadID, "error", err)
		}
	}()

	path, fingerprint, size, err := s.assemble(in.UploadID, dir, in.TotalChunks)
	if err != nil {
		s.metrics.IncUpload("failed")
		return nil, err
	}
	defer os.Remove(path)

	m, err := s.ingest(dbc, actor, in, path, fingerprint, size)
	if err != nil {
		var dup *DuplicateContentError
		if errors.As(err, &dup) {
			s.metrics.IncUpload("duplicate")
			s.log.Info("Duplicate upload rejected", "upload_id", in.UploadID, "existing_media_id", dup.ExistingID)
		} else {
			s.metrics.IncUpload("failed")
		}
		return nil, err
	}
	s.metrics.IncUpload(string(AssembledNew))
	return &AssemblyResult{Outcome: AssembledNew, UploadID: in.UploadID, Received: in.TotalChunks, Total: in.TotalChunks, Media: m}, nil
}

func validateChunkUpload(in ChunkUpload) error {
	if !uploadIDPattern.MatchString(in.UploadID) {
		return apierr.Validation("upload_id must be 1-128 characters of letters, digits, '-' or '_'")
	}
	if in.TotalChunks < 1 || in.TotalChunks > MaxTotalChunks {
		return apierr.Validation("total_chunks must be between 1 and %d", MaxTotalChunks)
	}
	if in.ChunkIndex < 0 || in.ChunkIndex >= in.TotalChunks {
		return apierr.Validation("chunk_index must be in [0, %d)", in.TotalChunks)
	}
	if in.Chunk == nil {
		return apierr.Validation("chunk is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return apierr.Validation("title is required")
	}
	if len(title) > maxTitleLen {
		return apierr.Validation("title must be at most %d characters", maxTitleLen)
	}
	return nil
}

// storeChunk writes to a temp name and renames, so a half-written chunk is never counted.
func (s *chunkAssembler) storeChunk(dir string, index int, r io.Reader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, strconv.Itoa(index)+".part-*")
	if err != nil {
		return fmt.Errorf("create chunk file: %w", err)
	}
	tmpName := tmp.Name()
	n, copyErr := io.Copy(tmp, io.LimitReader(r, s.cfg.MaxChunkBytes+1))
	closeErr := tmp.Close()
	if copyErr == nil && n > s.cfg.MaxChunkBytes {
		_ = os.Remove(tmpName)
		return apierr.New(http.StatusRequestEntityTooLarge, "chunk_too_large", fmt.Errorf("chunk exceeds %d bytes", s.cfg.MaxChunkBytes))
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write chunk: %w", errors.Join(copyErr, closeErr))
	}
	if err := os.Rename(tmpName, filepath.Join(dir, strconv.Itoa(index))); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit chunk: %w", err)
	}
	return nil
}

// countChunks counts committed chunk files with an index below total. A missing directory
// counts as zero.
func countChunks(dir string, total int) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list chunks: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		idx, err := strconv.Atoi(e.Name())
		if err != nil || idx < 0 || idx >= total {
			continue
		}
		n++
	}
	return n, nil
}

// assemble concatenates chunks 0..total-1 and hashes the stream as it is written.
func (s *chunkAssembler) assemble(uploadID, dir string, total int) (string, string, int64, error) {
	outDir := filepath.Join(s.cfg.ScratchDir, "assembled")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", 0, fmt.Errorf("create assembly dir: %w", err)
	}
	out, err := os.CreateTemp(outDir, uploadID+"-*")
	if err != nil {
		return "", "", 0, fmt.Errorf("create assembled file: %w", err)
	}
	h := sha256.New()
	w := io.MultiWriter(out, h)
	var size int64
	for i := 0; i < total; i++ {
		n, err := appendChunk(w, filepath.Join(dir, strconv.Itoa(i)))
		if err != nil {
			out.Close()
			os.Remove(out.Name())
			return "", "", 0, fmt.Errorf("assemble chunk %d: %w", i, err)
		}
		size += n
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", "", 0, fmt.Errorf("close assembled file: %w", err)
	}
	return out.Name(), hex.EncodeToString(h.Sum(nil)), size, nil
}

func appendChunk(w io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}

func (s *chunkAssembler) ingest(dbc dbctx.Context, actor *ctxutil.Actor, in ChunkUpload, path, fingerprint string, size int64) (*types.Media, error) {
	ctx := dbc.Ctx
	if err := s.dedup.Check(dbc, fingerprint); err != nil {
		return nil, err
	}

	mime := "application/octet-stream"
	if mt, err := mimetype.DetectFile(path); err == nil {
		mime = mt.String()
	} else {
		s.log.Warn("mime detection failed", "upload_id", in.UploadID, "error", err)
	}
	mediaType := types.MediaTypeFromMIME(mime)

	var dims localmedia.Dimensions
	if mediaType.NeedsProbe() && s.prober != nil {
		d, err := s.prober.ProbeDimensions(ctx, path)
		if err != nil {
			// Height 0 plans no renditions; the original is still published.
			s.log.Warn("probe failed", "upload_id", in.UploadID, "error", err)
		} else {
			dims = d
		}
	}

	tags, err := json.Marshal(normalizeTags(in.Tags))
	if err != nil {
		return nil, apierr.Validation("tags must be a list of strings")
	}
	m := &types.Media{
		ID:               uuid.New(),
		OwnerUserID:      actor.UserID,
		OwnerName:        actor.DisplayName(),
		OwnerEmail:       actor.Email,
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		Tags:             datatypes.JSON(tags),
		MediaType:        mediaType,
		MimeType:         mime,
		OriginalFilename: filepath.Base(strings.TrimSpace(in.OriginalFilename)),
		FileHash:         fingerprint,
		SizeBytes:        size,
		Status:           types.MediaStatusProcessing,
		CaptionRequested: in.CaptionRequested && mediaType.SupportsCaptions(),
	}
	if err := s.dedup.Admit(dbctx.Context{Ctx: ctx}, m); err != nil {
		return nil, err
	}
	s.log.Info("Media created", "media_id", m.ID, "media_type", m.MediaType, "size_bytes", size)

	key, err := s.store.Put(dbc, m, path)
	if err != nil {
		return nil, s.placementFailed(ctx, m, err)
	}
	m.StorageKey = key
	m.URL = s.store.StagingURL(key)

	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		if err := s.media.UpdateFields(inner, m.ID, map[string]interface{}{
			"url":         m.URL,
			"storage_key": m.StorageKey,
		}); err != nil {
			return err
		}
		resolution := ""
		if mediaType.NeedsProbe() {
			resolution = types.ResolutionLabel(dims.Height)
		}
		if _, err := s.encodes.Create(inner, []*types.MediaEncode{{
			MediaID:    m.ID,
			Width:      dims.Width,
			Height:     dims.Height,
			Status:     types.EncodeStatusComplete,
			Type:       mime,
			Resolution: resolution,
			URL:        m.URL,
			StorageKey: m.StorageKey,
			IsOriginal: true,
		}}); err != nil {
			return err
		}
		details := fmt.Sprintf("Hash: %s, Size: %d bytes", fingerprint, size)
		if err := s.events.Success(inner, m.ID, types.EventFileAssembled, details); err != nil {
			return err
		}
		if !mediaType.NeedsTranscoding() {
			return nil
		}
		job, err := s.jobs.Enqueue(inner, m.OwnerUserID, JobTypeTranscodeMedia, EntityTypeMedia, &m.ID, map[string]any{
			"media_id": m.ID.String(),
		})
		if err != nil {
			return err
		}
		if err := s.events.Info(inner, m.ID, types.EventTranscodeDispatched, "Job ID: "+job.ID.String()); err != nil {
			return err
		}
		if m.CaptionRequested && s.captions != nil {
			if _, err := s.captions.RequestCaptions(inner, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.placementFailed(ctx, m, err)
	}

	if !mediaType.NeedsTranscoding() {
		if _, err := s.lifecycle.RelocateAndPublish(ctx, m, types.EventPublished, "No transcoding required"); err != nil {
			return nil, s.placementFailed(ctx, m, err)
		}
	}

	out, err := s.media.GetByIDWithRelations(dbctx.Context{Ctx: ctx}, m.ID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("media %s vanished after creation", m.ID)
	}
	return out, nil
}

// placementFailed marks the new record Failed and returns a 500 carrying the cause.
func (s *chunkAssembler) placementFailed(ctx context.Context, m *types.Media, cause error) error {
	s.log.Error("Storage placement failed", "media_id", m.ID, "error", cause)
	if _, err := s.lifecycle.Fail(dbctx.Context{Ctx: ctx}, m, types.EventStorageFailed, cause.Error()); err != nil {
		s.log.Error("mark media failed", "media_id", m.ID, "error", err)
	}
	return apierr.New(http.StatusInternalServerError, "storage_failed", fmt.Errorf("store media %s: %w", m.ID, cause))
}

func normalizeTags(in []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}
