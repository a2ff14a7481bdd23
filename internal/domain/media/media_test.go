package media

import "testing"

func TestMediaTypeFromMIME(t *testing.T) {
	cases := map[string]MediaType{
		"video/mp4":                 MediaTypeVideo,
		"video/quicktime":           MediaTypeVideo,
		"image/png":                 MediaTypeImage,
		"application/pdf":           MediaTypePDF,
		"application/pdf; charset=": MediaTypePDF,
		"application/zip":           MediaTypeDoc,
		"":                          MediaTypeDoc,
	}
	for mime, want := range cases {
		if got := MediaTypeFromMIME(mime); got != want {
			t.Errorf("%q: got %s want %s", mime, got, want)
		}
	}
}

func TestMediaTypeBehaviour(t *testing.T) {
	if !MediaTypeVideo.NeedsTranscoding() || !MediaTypeVideo.SupportsCaptions() {
		t.Fatalf("video should transcode and caption")
	}
	for _, mt := range []MediaType{MediaTypeImage, MediaTypePDF, MediaTypeDoc} {
		if mt.NeedsTranscoding() || mt.SupportsCaptions() {
			t.Fatalf("%s should skip transcoding and captions", mt)
		}
	}
	if MediaTypeImage.StoragePrefix() != "images" {
		t.Fatalf("unexpected prefix %q", MediaTypeImage.StoragePrefix())
	}
}

func TestMediaStatusTransitions(t *testing.T) {
	if !MediaStatusProcessing.CanTransition(MediaStatusPublished) {
		t.Fatalf("processing -> published must be allowed")
	}
	if !MediaStatusProcessing.CanTransition(MediaStatusFailed) {
		t.Fatalf("processing -> failed must be allowed")
	}
	for _, from := range []MediaStatus{MediaStatusPublished, MediaStatusFailed} {
		for _, to := range []MediaStatus{MediaStatusProcessing, MediaStatusPublished, MediaStatusFailed} {
			if from.CanTransition(to) {
				t.Fatalf("%s is terminal but allowed -> %s", from, to)
			}
		}
	}
}

func TestCaptionTransitions(t *testing.T) {
	if !CaptionStatusCompletedByVendor.CanTransition(CaptionStatusApproved) {
		t.Fatalf("completed -> approved must be allowed")
	}
	if CaptionStatusRequested.CanTransition(CaptionStatusApproved) {
		t.Fatalf("requested -> approved must not be allowed")
	}
	srcs := TransitionSources(CaptionStatusCompletedByVendor)
	if len(srcs) != 2 {
		t.Fatalf("expected two sources for completed_by_vendor, got %v", srcs)
	}
}

func TestTransitionSourcesDriveLifecycle(t *testing.T) {
	for _, to := range []MediaStatus{MediaStatusPublished, MediaStatusFailed} {
		srcs := MediaTransitionSources(to)
		if len(srcs) != 1 || srcs[0] != MediaStatusProcessing {
			t.Fatalf("sources for %s: %v", to, srcs)
		}
	}
	if srcs := MediaTransitionSources(MediaStatusProcessing); len(srcs) != 0 {
		t.Fatalf("nothing may move back to processing, got %v", srcs)
	}
}

func TestReviewSources(t *testing.T) {
	if srcs := ReviewSources(CaptionStatusApproved); len(srcs) != 1 || srcs[0] != CaptionStatusCompletedByVendor {
		t.Fatalf("approve sources: %v", srcs)
	}
	rejectable := map[CaptionStatus]bool{}
	for _, s := range ReviewSources(CaptionStatusRejected) {
		rejectable[s] = true
	}
	if len(rejectable) != 2 || !rejectable[CaptionStatusRequested] || !rejectable[CaptionStatusCompletedByVendor] {
		t.Fatalf("reject sources: %v", rejectable)
	}
	if ReviewSources(CaptionStatusProcessingByVendor) != nil {
		t.Fatalf("processing_by_vendor is not a review decision")
	}
}

func TestResolutionLabel(t *testing.T) {
	if ResolutionLabel(720) != "720p" || ResolutionLabel(0) != "" {
		t.Fatalf("unexpected labels")
	}
}
