package transcode_media

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
	jobrt "github.com/yungbote/mediaforge-backend/internal/jobs/runtime"
	"github.com/yungbote/mediaforge-backend/internal/platform/encoder"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

type fakeTranscode struct {
	err   error
	got   uuid.UUID
	final bool
}

func (f *fakeTranscode) Dispatch(ctx context.Context, mediaID uuid.UUID, finalAttempt bool) error {
	f.got, f.final = mediaID, finalAttempt
	return f.err
}

func (f *fakeTranscode) HandleWebhook(ctx context.Context, detail encoder.EventDetail) (*services.WebhookResult, error) {
	return nil, nil
}

func runJob(t *testing.T, orch services.TranscodeOrchestrator, payload string, attempts, maxAttempts int) *types.JobRun {
	t.Helper()
	job := &types.JobRun{
		ID:          uuid.New(),
		JobType:     services.JobTypeTranscodeMedia,
		Status:      types.JobStatusRunning,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		Payload:     datatypes.JSON([]byte(payload)),
	}
	jc := jobrt.NewContext(context.Background(), nil, job, nil)
	if err := New(logger.NewNop(), orch).Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return job
}

func TestTranscodeJobOutcomes(t *testing.T) {
	id := uuid.New()
	payload := `{"media_id":"` + id.String() + `"}`

	ok := &fakeTranscode{}
	if job := runJob(t, ok, payload, 1, 3); job.Status != types.JobStatusSucceeded || ok.got != id || ok.final {
		t.Fatalf("success: status=%s got=%s final=%v", job.Status, ok.got, ok.final)
	}

	transient := &fakeTranscode{err: errors.New("encoder busy")}
	if job := runJob(t, transient, payload, 1, 3); job.Status != types.JobStatusFailed {
		t.Fatalf("transient: status=%s", job.Status)
	}

	last := &fakeTranscode{err: services.Permanent(errors.New("encoder said no"))}
	if job := runJob(t, last, payload, 3, 3); job.Status != types.JobStatusDead || !last.final {
		t.Fatalf("final: status=%s final=%v", job.Status, last.final)
	}

	permanent := &fakeTranscode{err: services.Permanent(errors.New("bad source"))}
	if job := runJob(t, permanent, payload, 1, 3); job.Status != types.JobStatusDead || job.Error != "bad source" {
		t.Fatalf("permanent: status=%s error=%q", job.Status, job.Error)
	}

	if job := runJob(t, &fakeTranscode{}, `{}`, 1, 3); job.Status != types.JobStatusDead || job.Stage != "validate" {
		t.Fatalf("missing media_id: status=%s stage=%s", job.Status, job.Stage)
	}
}
