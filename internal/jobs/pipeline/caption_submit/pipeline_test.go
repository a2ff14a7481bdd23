package caption_submit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
	jobrt "github.com/yungbote/mediaforge-backend/internal/jobs/runtime"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

// fakeCaptions only implements SubmitToVendor; the embedded interface is nil.
type fakeCaptions struct {
	services.CaptionOrchestrator
	err   error
	got   uuid.UUID
	final bool
}

func (f *fakeCaptions) SubmitToVendor(ctx context.Context, captionID uuid.UUID, finalAttempt bool) error {
	f.got, f.final = captionID, finalAttempt
	return f.err
}

func TestCaptionSubmitJob(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name     string
		err      error
		attempts int
		want     string
	}{
		{"success", nil, 1, types.JobStatusSucceeded},
		{"transient", errors.New("vendor timeout"), 1, types.JobStatusFailed},
		{"permanent", services.Permanent(errors.New("no active profile")), 1, types.JobStatusDead},
		{"exhausted", errors.New("vendor timeout"), 3, types.JobStatusDead},
	}
	for _, tc := range cases {
		fake := &fakeCaptions{err: tc.err}
		job := &types.JobRun{
			ID:          uuid.New(),
			Status:      types.JobStatusRunning,
			Attempts:    tc.attempts,
			MaxAttempts: 3,
			Payload:     datatypes.JSON([]byte(`{"caption_id":"` + id.String() + `"}`)),
		}
		jc := jobrt.NewContext(context.Background(), nil, job, nil)
		if err := New(logger.NewNop(), fake).Run(jc); err != nil {
			t.Fatalf("%s: Run: %v", tc.name, err)
		}
		if job.Status != tc.want {
			t.Fatalf("%s: status=%s want %s", tc.name, job.Status, tc.want)
		}
		if fake.got != id || fake.final != (tc.attempts == 3) {
			t.Fatalf("%s: got=%s final=%v", tc.name, fake.got, fake.final)
		}
	}
}
