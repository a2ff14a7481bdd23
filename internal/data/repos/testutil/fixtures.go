package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
)

func SeedMedia(tb testing.TB, ctx context.Context, tx *gorm.DB, mediaType types.MediaType, status types.MediaStatus) *types.Media {
	tb.Helper()
	m := &types.Media{
		ID:          uuid.New(),
		OwnerUserID: uuid.New(),
		OwnerName:   "Test Owner",
		OwnerEmail:  "owner@example.com",
		Title:       "seed",
		MediaType:   mediaType,
		MimeType:    "video/mp4",
		FileHash:    uuid.NewString(),
		Status:      status,
	}
	if mediaType == types.MediaTypeImage {
		m.MimeType = "image/png"
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed media: %v", err)
	}
	return m
}

func SeedEncode(tb testing.TB, ctx context.Context, tx *gorm.DB, mediaID uuid.UUID, height int, status types.EncodeStatus, original bool) *types.MediaEncode {
	tb.Helper()
	e := &types.MediaEncode{
		ID:         uuid.New(),
		MediaID:    mediaID,
		Width:      height * 16 / 9,
		Height:     height,
		Status:     status,
		Type:       "video/mp4",
		Resolution: types.ResolutionLabel(height),
		URL:        "https://cdn.example.com/" + uuid.NewString() + ".mp4",
		IsOriginal: original,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed encode: %v", err)
	}
	return e
}

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, active bool) *types.CaptionProfile {
	tb.Helper()
	p := &types.CaptionProfile{
		ID:       uuid.New(),
		Name:     name,
		APIKey:   "key-" + name,
		Vendor:   "threeplay",
		IsActive: active,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func SeedCaption(tb testing.TB, ctx context.Context, tx *gorm.DB, mediaID uuid.UUID, status types.CaptionStatus, createdAt time.Time) *types.MediaCaption {
	tb.Helper()
	c := &types.MediaCaption{
		ID:        uuid.New(),
		MediaID:   mediaID,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed caption: %v", err)
	}
	return c
}
