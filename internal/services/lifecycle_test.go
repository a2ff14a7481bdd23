package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/mediaforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
)

func TestRestartFailedVideo(t *testing.T) {
	h := newHarness(t)
	h.encoder.JobID = "job-old"
	m := h.seedStoredVideo(720)
	if err := h.transcode.Dispatch(context.Background(), m.ID, false); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, err := h.transcode.HandleWebhook(context.Background(), completeEvent(m, "job-old", 480, 360)); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	got, err := h.lifecycle.Restart(h.dbc(h.admin), m.ID)
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if got.Status != types.MediaStatusProcessing || got.TranscodeJobID != "" || got.TranscodeReconciledAt != nil {
		t.Fatalf("after restart: status=%s job=%q reconciled=%v", got.Status, got.TranscodeJobID, got.TranscodeReconciledAt)
	}
	full := h.reload(m.ID)
	if len(full.Encodes) != 1 || !full.Encodes[0].IsOriginal {
		t.Fatalf("derived renditions kept: %d", len(full.Encodes))
	}
	if jobs := h.jobsOfType(JobTypeTranscodeMedia); len(jobs) != 1 || jobs[0].OwnerUserID != h.admin.UserID {
		t.Fatalf("transcode jobs %+v", jobs)
	}
	if !h.hasEvent(m.ID, types.EventTranscodeRetriggered) {
		t.Fatalf("events %v", h.eventTypes(m.ID))
	}

	// The old job id is forgotten, so a new run with a new id reconciles normally.
	h.encoder.JobID = "job-new"
	if err := h.transcode.Dispatch(context.Background(), m.ID, false); err != nil {
		t.Fatalf("second Dispatch: %v", err)
	}
	res, err := h.transcode.HandleWebhook(context.Background(), completeEvent(m, "job-new", 480))
	if err != nil || res.Outcome != WebhookProcessed {
		t.Fatalf("second webhook: %+v %v", res, err)
	}
	if _, err := h.transcode.HandleWebhook(context.Background(), completeEvent(m, "job-old", 480)); statusOf(err) != http.StatusConflict {
		t.Fatalf("stale job webhook: %v", err)
	}
}

func TestRestartRejections(t *testing.T) {
	h := newHarness(t)
	processing := h.seedStoredVideo(720)
	image := testutil.SeedMedia(t, context.Background(), h.db, types.MediaTypeImage, types.MediaStatusPublished)

	cases := []struct {
		name   string
		id     uuid.UUID
		status int
	}{
		{"processing", processing.ID, http.StatusConflict},
		{"image", image.ID, http.StatusUnprocessableEntity},
		{"unknown", uuid.New(), http.StatusNotFound},
	}
	for _, tc := range cases {
		if _, err := h.lifecycle.Restart(h.dbc(h.admin), tc.id); statusOf(err) != tc.status {
			t.Fatalf("%s: got %v want %d", tc.name, err, tc.status)
		}
	}
}

func TestPublishAndFailAreConditional(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedMedia(t, context.Background(), h.db, types.MediaTypeImage, types.MediaStatusProcessing)

	moved, err := h.lifecycle.Fail(h.dbc(nil), m, types.EventStorageFailed, "boom")
	if err != nil || !moved {
		t.Fatalf("Fail: %v %v", moved, err)
	}
	moved, err = h.lifecycle.Publish(h.dbc(nil), m, types.EventPublished, "")
	if err != nil || moved {
		t.Fatalf("Publish after fail: %v %v", moved, err)
	}
	got := h.reload(m.ID)
	if got.Status != types.MediaStatusFailed || got.StatusDetails != "boom" {
		t.Fatalf("status=%s details=%q", got.Status, got.StatusDetails)
	}
	if h.hasEvent(m.ID, types.EventPublished) {
		t.Fatalf("lost publish recorded an event")
	}
}
