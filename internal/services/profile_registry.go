package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/data/repos"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/apierr"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

type ProfileInput struct {
	Name           string
	APIKey         string
	Vendor         string
	Profile        string
	Configurations map[string]any
	IsActive       *bool
}

// VendorProfileRegistry owns caption vendor profiles and the single-active rule.
type VendorProfileRegistry interface {
	List(dbc dbctx.Context) ([]*types.CaptionProfile, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.CaptionProfile, error)
	Create(dbc dbctx.Context, in ProfileInput) (*types.CaptionProfile, error)
	Update(dbc dbctx.Context, id uuid.UUID, in ProfileInput) (*types.CaptionProfile, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	Activate(dbc dbctx.Context, id uuid.UUID) (*types.CaptionProfile, error)
	// ActiveProfile returns nil when nothing is active. If more than one row is active it
	// picks the most recently updated, then the lowest id.
	ActiveProfile(dbc dbctx.Context) (*types.CaptionProfile, error)
}

type vendorProfileRegistry struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.CaptionProfileRepo
}

func NewVendorProfileRegistry(db *gorm.DB, baseLog *logger.Logger, repo repos.CaptionProfileRepo) VendorProfileRegistry {
	return &vendorProfileRegistry{
		db:   db,
		log:  baseLog.With("service", "VendorProfileRegistry"),
		repo: repo,
	}
}

func (s *vendorProfileRegistry) List(dbc dbctx.Context) ([]*types.CaptionProfile, error) {
	return s.repo.List(dbc)
}

func (s *vendorProfileRegistry) Get(dbc dbctx.Context, id uuid.UUID) (*types.CaptionProfile, error) {
	p, err := s.repo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apierr.NotFound("profile_not_found", ErrProfileNotFound)
	}
	return p, nil
}

func (s *vendorProfileRegistry) Create(dbc dbctx.Context, in ProfileInput) (*types.CaptionProfile, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.Validation("name is required")
	}
	if len(name) > 255 {
		return nil, apierr.Validation("name must be at most 255 characters")
	}
	cfg, err := encodeConfigurations(in.Configurations)
	if err != nil {
		return nil, err
	}
	p := &types.CaptionProfile{
		Name:           name,
		APIKey:         strings.TrimSpace(in.APIKey),
		Vendor:         strings.TrimSpace(in.Vendor),
		Profile:        strings.TrimSpace(in.Profile),
		Configurations: cfg,
	}
	activate := in.IsActive != nil && *in.IsActive
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		if err := s.repo.Create(inner, p); err != nil {
			return err
		}
		if activate {
			return s.activateIn(inner, p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, s.translateWriteErr(err)
	}
	p.IsActive = activate
	s.log.Info("caption profile created", "profile_id", p.ID, "active", activate)
	return s.Get(dbc, p.ID)
}

func (s *vendorProfileRegistry) Update(dbc dbctx.Context, id uuid.UUID, in ProfileInput) (*types.CaptionProfile, error) {
	existing, err := s.Get(dbc, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if name := strings.TrimSpace(in.Name); name != "" && name != existing.Name {
		if len(name) > 255 {
			return nil, apierr.Validation("name must be at most 255 characters")
		}
		updates["name"] = name
	}
	// An empty key on update keeps the stored one.
	if key := strings.TrimSpace(in.APIKey); key != "" {
		updates["api_key"] = key
	}
	updates["vendor"] = strings.TrimSpace(in.Vendor)
	updates["profile"] = strings.TrimSpace(in.Profile)
	if in.Configurations != nil {
		cfg, err := encodeConfigurations(in.Configurations)
		if err != nil {
			return nil, err
		}
		updates["configurations"] = cfg
	}
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		if err := s.repo.UpdateFields(inner, id, updates); err != nil {
			return err
		}
		if in.IsActive == nil {
			return nil
		}
		if *in.IsActive {
			return s.activateIn(inner, id)
		}
		return s.repo.UpdateFields(inner, id, map[string]interface{}{"is_active": false})
	})
	if err != nil {
		return nil, s.translateWriteErr(err)
	}
	return s.Get(dbc, id)
}

func (s *vendorProfileRegistry) Delete(dbc dbctx.Context, id uuid.UUID) error {
	var deleted bool
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		var err error
		deleted, err = s.repo.Delete(inner, id)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return apierr.NotFound("profile_not_found", ErrProfileNotFound)
	}
	s.log.Info("caption profile deleted", "profile_id", id)
	return nil
}

func (s *vendorProfileRegistry) Activate(dbc dbctx.Context, id uuid.UUID) (*types.CaptionProfile, error) {
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		return s.activateIn(inner, id)
	})
	if err != nil {
		return nil, s.translateWriteErr(err)
	}
	s.log.Info("caption profile activated", "profile_id", id)
	return s.Get(dbc, id)
}

// activateIn deactivates every other profile and activates id in the caller's transaction.
// The partial unique index rejects a concurrent activation that slipped in between.
func (s *vendorProfileRegistry) activateIn(dbc dbctx.Context, id uuid.UUID) error {
	if err := s.repo.DeactivateAllExcept(dbc, id); err != nil {
		return err
	}
	ok, err := s.repo.SetActive(dbc, id)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("profile_not_found", ErrProfileNotFound)
	}
	return nil
}

func (s *vendorProfileRegistry) ActiveProfile(dbc dbctx.Context) (*types.CaptionProfile, error) {
	active, err := s.repo.ListActive(dbc)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}
	if len(active) > 1 {
		ids := make([]string, 0, len(active))
		for _, p := range active {
			ids = append(ids, p.ID.String())
		}
		s.log.Warn("more than one caption profile is active", "profile_ids", strings.Join(ids, ","), "chosen", active[0].ID)
	}
	return active[0], nil
}

func (s *vendorProfileRegistry) translateWriteErr(err error) error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apierr.Conflict("profile_conflict", fmt.Errorf("a caption profile with that name exists, or another profile was activated concurrently"))
	}
	return err
}

func encodeConfigurations(cfg map[string]any) (datatypes.JSON, error) {
	if len(cfg) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, apierr.Validation("configurations must be a JSON object")
	}
	return datatypes.JSON(b), nil
}
