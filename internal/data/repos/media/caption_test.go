package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
)

func TestMediaCaptionRepoTransition(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewMediaCaptionRepo(db, testutil.Logger(t))

	m := testutil.SeedMedia(t, ctx, db, types.MediaTypeVideo, types.MediaStatusPublished)
	c := testutil.SeedCaption(t, ctx, db, m.ID, types.CaptionStatusRequested, time.Now())

	order := "order-1"
	ok, err := repo.Transition(dbc, c.ID, []types.CaptionStatus{types.CaptionStatusRequested}, types.CaptionStatusProcessingByVendor,
		map[string]interface{}{"order_id": order})
	if err != nil || !ok {
		t.Fatalf("Transition: ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.Transition(dbc, c.ID, []types.CaptionStatus{types.CaptionStatusRequested}, types.CaptionStatusProcessingByVendor, nil); ok {
		t.Fatalf("Transition: second claim must lose")
	}

	byOrder, err := repo.GetByOrderID(dbc, order)
	if err != nil || byOrder == nil || byOrder.ID != c.ID {
		t.Fatalf("GetByOrderID: got=%v err=%v", byOrder, err)
	}

	other := testutil.SeedCaption(t, ctx, db, m.ID, types.CaptionStatusRequested, time.Now())
	err = repo.UpdateFields(dbc, other.ID, map[string]interface{}{"order_id": order})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("UpdateFields: expected duplicate order id error, got %v", err)
	}
}

func TestMediaCaptionRepoApproved(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewMediaCaptionRepo(db, testutil.Logger(t))

	m := testutil.SeedMedia(t, ctx, db, types.MediaTypeVideo, types.MediaStatusPublished)
	base := time.Now().Add(-time.Hour)
	first := testutil.SeedCaption(t, ctx, db, m.ID, types.CaptionStatusCompletedByVendor, base)
	older := testutil.SeedCaption(t, ctx, db, m.ID, types.CaptionStatusApproved, base.Add(time.Minute))
	newer := testutil.SeedCaption(t, ctx, db, m.ID, types.CaptionStatusApproved, base.Add(2*time.Minute))

	got, err := repo.FirstApproved(dbc, m.ID)
	if err != nil || got == nil || got.ID != older.ID {
		t.Fatalf("FirstApproved: got=%v err=%v", got, err)
	}
	auth, err := repo.FindAuthoritative(dbc, m.ID, types.DefaultCaptionLanguageCode)
	if err != nil || auth == nil || auth.ID != older.ID {
		t.Fatalf("FindAuthoritative: got=%v err=%v", auth, err)
	}

	n, err := repo.DemoteApproved(dbc, m.ID, types.DefaultCaptionLanguageCode, newer.ID, "Superseded")
	if err != nil || n != 1 {
		t.Fatalf("DemoteApproved: n=%d err=%v", n, err)
	}
	demoted, _ := repo.GetByID(dbc, older.ID)
	if demoted.Status != types.CaptionStatusRejected || demoted.Reason != "Superseded" {
		t.Fatalf("DemoteApproved: unexpected row %+v", demoted)
	}

	rows, err := repo.List(dbc, CaptionListFilter{Statuses: []types.CaptionStatus{types.CaptionStatusCompletedByVendor}})
	if err != nil || len(rows) != 1 || rows[0].ID != first.ID {
		t.Fatalf("List(status): len=%d err=%v", len(rows), err)
	}
}

func TestCaptionProfileRepoActive(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewCaptionProfileRepo(db, testutil.Logger(t))

	a := testutil.SeedProfile(t, ctx, db, "a", true)
	b := testutil.SeedProfile(t, ctx, db, "b", false)

	err := db.Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := repo.DeactivateAllExcept(inner, b.ID); err != nil {
			return err
		}
		_, err := repo.SetActive(inner, b.ID)
		return err
	})
	if err != nil {
		t.Fatalf("activate b: %v", err)
	}
	active, err := repo.ListActive(dbc)
	if err != nil || len(active) != 1 || active[0].ID != b.ID {
		t.Fatalf("ListActive: got=%v err=%v", active, err)
	}

	if _, err := repo.SetActive(dbc, a.ID); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("SetActive: second active profile must violate the partial index, got %v", err)
	}

	m := testutil.SeedMedia(t, ctx, db, types.MediaTypeVideo, types.MediaStatusPublished)
	c := testutil.SeedCaption(t, ctx, db, m.ID, types.CaptionStatusRequested, time.Now())
	if err := db.Model(&types.MediaCaption{}).Where("id = ?", c.ID).Update("caption_profile_id", b.ID).Error; err != nil {
		t.Fatalf("attach profile: %v", err)
	}
	deleted, err := repo.Delete(dbc, b.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete: deleted=%v err=%v", deleted, err)
	}
	var reloaded types.MediaCaption
	if err := db.Where("id = ?", c.ID).Take(&reloaded).Error; err != nil {
		t.Fatalf("reload caption: %v", err)
	}
	if reloaded.CaptionProfileID != nil {
		t.Fatalf("Delete: caption should be detached from the profile")
	}
}
