package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/mediaforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
)

func newJob(status string, attempts, maxAttempts int, createdAt time.Time) *types.JobRun {
	return &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: uuid.New(),
		JobType:     "transcode_media",
		EntityType:  "media",
		EntityID:    ptrUUID(uuid.New()),
		Status:      status,
		Stage:       status,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestJobRunRepoClaim(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	queued := newJob(types.JobStatusQueued, 0, 3, now.Add(-3*time.Hour))
	failed := newJob(types.JobStatusFailed, 1, 3, now.Add(-2*time.Hour))
	failed.LastErrorAt = ptrTime(now.Add(-2 * time.Hour))
	exhausted := newJob(types.JobStatusFailed, 3, 3, now.Add(-90*time.Minute))
	exhausted.LastErrorAt = ptrTime(now.Add(-2 * time.Hour))
	dead := newJob(types.JobStatusDead, 1, 3, now.Add(-80*time.Minute))
	stale := newJob(types.JobStatusRunning, 1, 3, now.Add(-1*time.Hour))
	stale.HeartbeatAt = ptrTime(now.Add(-10 * time.Hour))

	if _, err := repo.Create(dbc, []*types.JobRun{queued, failed, exhausted, dead, stale}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	want := []uuid.UUID{queued.ID, failed.ID, stale.ID}
	for i, id := range want {
		job, err := repo.ClaimNextRunnable(dbc, time.Minute, time.Hour)
		if err != nil {
			t.Fatalf("ClaimNextRunnable[%d]: %v", i, err)
		}
		if job == nil || job.ID != id {
			t.Fatalf("ClaimNextRunnable[%d]: expected %v got %v", i, id, job)
		}
		if job.Status != types.JobStatusRunning {
			t.Fatalf("ClaimNextRunnable[%d]: status=%q", i, job.Status)
		}
	}
	if job, err := repo.ClaimNextRunnable(dbc, time.Minute, time.Hour); err != nil || job != nil {
		t.Fatalf("ClaimNextRunnable: expected none left, got=%v err=%v", job, err)
	}

	rows, err := repo.GetByIDs(dbc, []uuid.UUID{failed.ID})
	if err != nil || len(rows) != 1 || rows[0].Attempts != 2 {
		t.Fatalf("GetByIDs: attempts not incremented: %v err=%v", rows, err)
	}
}

func TestJobRunRepoUpdateAndReap(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	running := newJob(types.JobStatusRunning, 3, 3, now)
	running.HeartbeatAt = ptrTime(now.Add(-3 * time.Hour))
	done := newJob(types.JobStatusSucceeded, 1, 3, now)
	if _, err := repo.Create(dbc, []*types.JobRun{running, done}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, done.ID, []string{types.JobStatusSucceeded}, map[string]interface{}{"stage": "x"})
	if err != nil || ok {
		t.Fatalf("UpdateFieldsUnlessStatus: ok=%v err=%v", ok, err)
	}

	exists, err := repo.ExistsRunnable(dbc, "transcode_media", "media", running.EntityID)
	if err != nil || !exists {
		t.Fatalf("ExistsRunnable: exists=%v err=%v", exists, err)
	}

	n, err := repo.ReapStale(dbc, time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("ReapStale: n=%d err=%v", n, err)
	}
	rows, _ := repo.GetByIDs(dbc, []uuid.UUID{running.ID})
	if rows[0].Status != types.JobStatusDead {
		t.Fatalf("ReapStale: status=%q", rows[0].Status)
	}
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }

func ptrTime(t time.Time) *time.Time { return &t }
