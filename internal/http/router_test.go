package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
	httpH "github.com/yungbote/mediaforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mediaforge-backend/internal/http/middleware"
	"github.com/yungbote/mediaforge-backend/internal/platform/apierr"
	"github.com/yungbote/mediaforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/encoder"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

const testWebhookSecret = "hook-secret"

type fakeAssembler struct {
	last  services.ChunkUpload
	body  []byte
	res   *services.AssemblyResult
	err   error
	calls int
}

func (f *fakeAssembler) SubmitChunk(dbc dbctx.Context, in services.ChunkUpload) (*services.AssemblyResult, error) {
	f.calls++
	f.last = in
	if in.Chunk != nil {
		f.body, _ = io.ReadAll(in.Chunk)
	}
	return f.res, f.err
}

func (f *fakeAssembler) SessionDir(uploadID string) string { return "/tmp/" + uploadID }

type fakeMedia struct {
	services.MediaService
	known      *types.Media
	lastQuery  services.MediaQuery
	lastUpdate services.MediaUpdate
	updateErr  error
}

func (f *fakeMedia) Update(dbc dbctx.Context, id uuid.UUID, in services.MediaUpdate) (*types.Media, error) {
	f.lastUpdate = in
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.known == nil || id != f.known.ID {
		return nil, apierr.NotFound("media_not_found", services.ErrMediaNotFound)
	}
	updated := *f.known
	updated.Title = in.Title
	updated.Description = in.Description
	return &updated, nil
}

func (f *fakeMedia) List(dbc dbctx.Context, q services.MediaQuery) ([]*types.Media, error) {
	f.lastQuery = q
	return []*types.Media{f.known}, nil
}

func (f *fakeMedia) Get(dbc dbctx.Context, id uuid.UUID) (*types.Media, error) {
	if f.known == nil || id != f.known.ID {
		return nil, apierr.NotFound("media_not_found", services.ErrMediaNotFound)
	}
	return f.known, nil
}

type fakeCaptions struct {
	services.CaptionOrchestrator
	vtt        string
	saved      string
	orderID    string
	status     string
	webhookRes *services.WebhookResult
	webhookErr error
	decision   types.CaptionStatus
	reviewedID uuid.UUID
	reviewErr  error
}

func (f *fakeCaptions) ExportVTT(dbc dbctx.Context, mediaID uuid.UUID) (string, error) {
	return f.vtt, nil
}

func (f *fakeCaptions) UploadCaption(dbc dbctx.Context, mediaID uuid.UUID, content string) (*types.MediaCaption, error) {
	f.saved = content
	return &types.MediaCaption{ID: uuid.New(), MediaID: mediaID, Caption: content, Status: types.CaptionStatusApproved}, nil
}

func (f *fakeCaptions) HandleVendorWebhook(ctx context.Context, orderID, status string) (*services.WebhookResult, error) {
	f.orderID, f.status = orderID, status
	return f.webhookRes, f.webhookErr
}

func (f *fakeCaptions) Review(dbc dbctx.Context, captionID uuid.UUID, decision types.CaptionStatus, reason string) (*types.MediaCaption, error) {
	f.reviewedID, f.decision = captionID, decision
	if f.reviewErr != nil {
		return nil, f.reviewErr
	}
	return &types.MediaCaption{ID: captionID, Status: decision, Reason: reason}, nil
}

type fakeTranscode struct {
	services.TranscodeOrchestrator
	detail encoder.EventDetail
	res    *services.WebhookResult
	err    error
	calls  int
}

func (f *fakeTranscode) HandleWebhook(ctx context.Context, detail encoder.EventDetail) (*services.WebhookResult, error) {
	f.calls++
	f.detail = detail
	return f.res, f.err
}

type fakeProfiles struct {
	services.VendorProfileRegistry
	items []*types.CaptionProfile
}

func (f *fakeProfiles) List(dbc dbctx.Context) ([]*types.CaptionProfile, error) {
	return f.items, nil
}

type routerFixture struct {
	engine    *gin.Engine
	auth      services.AuthService
	assembler *fakeAssembler
	media     *fakeMedia
	captions  *fakeCaptions
	transcode *fakeTranscode
	profiles  *fakeProfiles
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	f := &routerFixture{
		auth:      services.NewAuthService(log, "test-secret"),
		assembler: &fakeAssembler{},
		media:     &fakeMedia{known: &types.Media{ID: uuid.New(), Title: "Demo", MediaType: types.MediaTypeVideo}},
		captions:  &fakeCaptions{},
		transcode: &fakeTranscode{},
		profiles:  &fakeProfiles{},
	}
	f.engine = NewRouter(RouterConfig{
		Log:            log,
		WebhookSecret:  testWebhookSecret,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, f.auth),
		MediaHandler: httpH.NewMediaHandler(httpH.MediaHandlerDeps{
			Log:           log,
			Assembler:     f.assembler,
			Media:         f.media,
			Captions:      f.captions,
			MaxChunkBytes: 1 << 20,
		}),
		WebhookHandler: httpH.NewWebhookHandler(log, f.transcode, f.captions),
		AdminHandler:   httpH.NewAdminHandler(log, f.captions, f.profiles, f.media),
		HealthHandler:  httpH.NewHealthHandler(),
	})
	return f
}

func (f *routerFixture) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := f.auth.SignToken(&ctxutil.Actor{UserID: uuid.New(), Name: "Tester", Email: "t@example.com", Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	return tok
}

func (f *routerFixture) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	env, _ := body["error"].(map[string]any)
	code, _ := env["code"].(string)
	return code
}

func TestHealthcheck(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthcheck", nil), "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthAndAdminGates(t *testing.T) {
	f := newRouterFixture(t)
	f.profiles.items = []*types.CaptionProfile{{ID: uuid.New(), Name: "main", APIKey: "key-very-secret", IsActive: true}}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/media", nil), "")
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "unauthorized" {
		t.Fatalf("anonymous list: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/media", nil), "not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: got %d", rec.Code)
	}

	user := f.token(t, "user")
	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/media?status=Published&limit=5", nil), user)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	if f.media.lastQuery.Status != "Published" || f.media.lastQuery.Limit != 5 {
		t.Fatalf("query not forwarded: %+v", f.media.lastQuery)
	}
	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/media?limit=-1", nil), user)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative limit: got %d", rec.Code)
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/admin/caption-profiles", nil), user)
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "forbidden" {
		t.Fatalf("non-admin: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/admin/caption-profiles", nil), f.token(t, "admin"))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list: %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "key-very-secret") {
		t.Fatalf("api key leaked: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"has_api_key":true`) {
		t.Fatalf("expected has_api_key flag: %s", rec.Body.String())
	}
}

func TestGetMediaNotFoundAndBadID(t *testing.T) {
	f := newRouterFixture(t)
	user := f.token(t, "user")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/media/"+f.media.known.ID.String(), nil), user)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/media/"+uuid.New().String(), nil), user)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "media_not_found" {
		t.Fatalf("unknown: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/media/nope", nil), user)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: got %d", rec.Code)
	}
}

func TestUpdateMediaDetails(t *testing.T) {
	f := newRouterFixture(t)
	user := f.token(t, "user")
	path := "/api/media/" + f.media.known.ID.String()
	put := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	if rec := f.do(put(`{"title":"x"}`), ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", rec.Code)
	}

	rec := f.do(put(`{"title":"Lecture 2","description":"notes","tags":["math","week-2"]}`), user)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	media, _ := decodeBody(t, rec)["media"].(map[string]any)
	if media["title"] != "Lecture 2" || media["description"] != "notes" {
		t.Fatalf("media %+v", media)
	}
	if got := f.media.lastUpdate; len(got.Tags) != 2 || got.Tags[1] != "week-2" {
		t.Fatalf("service input %+v", got)
	}

	f.media.lastUpdate = services.MediaUpdate{}
	if rec := f.do(put(`{"title":"Lecture 2"}`), user); rec.Code != http.StatusOK || f.media.lastUpdate.Tags != nil {
		t.Fatalf("omitted tags must reach the service as nil: %d %+v", rec.Code, f.media.lastUpdate)
	}

	rec = f.do(put(`{"title":`), user)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "validation_failed" {
		t.Fatalf("bad json: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(put(`{"title":"x","tags":"math"}`), user)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("tags not a list: %d", rec.Code)
	}

	f.media.updateErr = apierr.New(http.StatusForbidden, "forbidden", errors.New("only the owner may edit media details"))
	rec = f.do(put(`{"title":"x"}`), f.token(t, "admin"))
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "forbidden" {
		t.Fatalf("non-owner: %d %s", rec.Code, rec.Body.String())
	}
	f.media.updateErr = apierr.Validation("title is required")
	if rec := f.do(put(`{"title":" "}`), user); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank title: %d", rec.Code)
	}
}

func chunkRequest(t *testing.T, fields map[string]string, chunk []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if chunk != nil {
		part, err := w.CreateFormFile("chunk", "blob")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(chunk); err != nil {
			t.Fatalf("write chunk: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/media/upload-chunk", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func uploadFields() map[string]string {
	return map[string]string{
		"upload_id":         "S1",
		"chunk_index":       "2",
		"total_chunks":      "3",
		"original_filename": "demo.mp4",
		"title":             "Demo",
		"tags":              `["intro","demo"]`,
		"caption_requested": "true",
	}
}

func TestUploadChunkResponses(t *testing.T) {
	f := newRouterFixture(t)
	user := f.token(t, "user")

	f.assembler.res = &services.AssemblyResult{Outcome: services.AwaitingMoreChunks, UploadID: "S1", Received: 1, Total: 3}
	rec := f.do(chunkRequest(t, uploadFields(), []byte("part")), user)
	if rec.Code != http.StatusOK {
		t.Fatalf("partial: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "chunk_received" || body["received"] != float64(1) || body["total"] != float64(3) || body["upload_id"] != "S1" {
		t.Fatalf("partial body: %v", body)
	}
	in := f.assembler.last
	if in.ChunkIndex != 2 || in.TotalChunks != 3 || in.Title != "Demo" || !in.CaptionRequested {
		t.Fatalf("form not parsed: %+v", in)
	}
	if len(in.Tags) != 2 || in.Tags[0] != "intro" || string(f.assembler.body) != "part" {
		t.Fatalf("tags/chunk: %v %q", in.Tags, f.assembler.body)
	}

	m := &types.Media{ID: uuid.New(), Title: "Demo", MediaType: types.MediaTypeVideo, Status: types.MediaStatusProcessing}
	f.assembler.res = &services.AssemblyResult{Outcome: services.AssembledNew, UploadID: "S1", Received: 3, Total: 3, Media: m}
	rec = f.do(chunkRequest(t, uploadFields(), []byte("last")), user)
	if rec.Code != http.StatusCreated {
		t.Fatalf("assembled: %d %s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	media, _ := body["media"].(map[string]any)
	if body["status"] != "assembled" || media["id"] != m.ID.String() {
		t.Fatalf("assembled body: %v", body)
	}

	existing := uuid.New()
	f.assembler.res, f.assembler.err = nil, &services.DuplicateContentError{ExistingID: existing}
	rec = f.do(chunkRequest(t, uploadFields(), []byte("last")), user)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "duplicate_content" {
		t.Fatalf("duplicate: %d %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["existing_media_id"] != existing.String() {
		t.Fatalf("existing id missing: %s", rec.Body.String())
	}
}

func TestUploadChunkValidation(t *testing.T) {
	f := newRouterFixture(t)
	user := f.token(t, "user")

	cases := []struct {
		name  string
		field string
		value string
	}{
		{"non-numeric index", "chunk_index", "two"},
		{"non-numeric total", "total_chunks", ""},
		{"tags not json", "tags", "intro,demo"},
		{"caption flag", "caption_requested", "maybe"},
	}
	for _, tc := range cases {
		fields := uploadFields()
		fields[tc.field] = tc.value
		rec := f.do(chunkRequest(t, fields, []byte("x")), user)
		if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "validation_failed" {
			t.Fatalf("%s: %d %s", tc.name, rec.Code, rec.Body.String())
		}
	}

	rec := f.do(chunkRequest(t, uploadFields(), nil), user)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing chunk: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(chunkRequest(t, uploadFields(), bytes.Repeat([]byte("a"), 3<<19)), user)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("oversized chunk: got %d", rec.Code)
	}
	if f.assembler.calls != 0 {
		t.Fatalf("assembler should not be called, got %d calls", f.assembler.calls)
	}
}

func encoderRequest(payload, token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/encoder", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Webhook-Token", token)
	}
	return req
}

func TestEncoderWebhook(t *testing.T) {
	f := newRouterFixture(t)
	mediaID := uuid.New()
	payload := `{"detail":{"jobId":"job-1","status":"COMPLETE","userMetadata":{"media_id":"` + mediaID.String() + `"},` +
		`"outputGroupDetails":[{"outputDetails":[{"outputFilePaths":["gs://public-bucket/videos/x/orig_360p.mp4"],"videoDetails":{"widthInPx":640,"heightInPx":360}}]}]}}`

	rec := f.do(encoderRequest(payload, ""), "")
	if rec.Code != http.StatusUnauthorized || f.transcode.calls != 0 {
		t.Fatalf("missing secret: %d calls=%d", rec.Code, f.transcode.calls)
	}
	rec = f.do(encoderRequest(payload, "wrong"), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: %d", rec.Code)
	}

	f.transcode.res = &services.WebhookResult{Outcome: services.WebhookProcessed, MediaID: mediaID}
	rec = f.do(encoderRequest(payload, testWebhookSecret), "")
	if rec.Code != http.StatusOK || decodeBody(t, rec)["status"] != "success" {
		t.Fatalf("processed: %d %s", rec.Code, rec.Body.String())
	}
	if f.transcode.detail.JobID != "job-1" || f.transcode.detail.MediaID() != mediaID.String() {
		t.Fatalf("detail not forwarded: %+v", f.transcode.detail)
	}
	if got := f.transcode.detail.OutputGroupDetails[0].OutputDetails[0].VideoDetails.HeightInPx; got != 360 {
		t.Fatalf("output height: got %d", got)
	}

	f.transcode.res = &services.WebhookResult{Outcome: services.WebhookDuplicate}
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/encoder?token="+testWebhookSecret, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(req, "")
	body := decodeBody(t, rec)
	if rec.Code != http.StatusOK || body["status"] != "success" || body["duplicate"] != true {
		t.Fatalf("duplicate via query token: %d %v", rec.Code, body)
	}

	f.transcode.res = &services.WebhookResult{Outcome: services.WebhookIgnored}
	rec = f.do(encoderRequest(payload, testWebhookSecret), "")
	if decodeBody(t, rec)["status"] != "ignored" {
		t.Fatalf("ignored: %s", rec.Body.String())
	}

	f.transcode.res, f.transcode.err = nil, apierr.New(http.StatusNotFound, "webhook_rejected", errors.New("Media not found."))
	rec = f.do(encoderRequest(payload, testWebhookSecret), "")
	body = decodeBody(t, rec)
	if rec.Code != http.StatusNotFound || body["status"] != "error" || body["message"] != "Media not found." {
		t.Fatalf("not found: %d %v", rec.Code, body)
	}

	f.transcode.err = errors.New("db down")
	rec = f.do(encoderRequest(payload, testWebhookSecret), "")
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("internal: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(encoderRequest("{not json", testWebhookSecret), "")
	if rec.Code != http.StatusBadRequest || decodeBody(t, rec)["status"] != "error" {
		t.Fatalf("bad payload: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCaptionWebhookAcceptsJSONAndForm(t *testing.T) {
	f := newRouterFixture(t)
	f.captions.webhookRes = &services.WebhookResult{Outcome: services.WebhookProcessed}

	form := url.Values{"transcript_id": {"1001"}, "status": {"complete"}}
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/captions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Webhook-Token", testWebhookSecret)
	rec := f.do(req, "")
	if rec.Code != http.StatusOK || f.captions.orderID != "1001" || f.captions.status != "complete" {
		t.Fatalf("form: %d order=%q status=%q", rec.Code, f.captions.orderID, f.captions.status)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/captions", strings.NewReader(`{"order_id":"1002","status":"complete"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Token", testWebhookSecret)
	rec = f.do(req, "")
	if rec.Code != http.StatusOK || f.captions.orderID != "1002" {
		t.Fatalf("json: %d order=%q", rec.Code, f.captions.orderID)
	}

	f.captions.webhookRes = nil
	f.captions.webhookErr = apierr.New(http.StatusBadGateway, "vendor_fetch_failed", errors.New("vendor http 500"))
	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/captions", strings.NewReader(`{"transcript_id":"1003","status":"complete"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Token", testWebhookSecret)
	rec = f.do(req, "")
	if rec.Code != http.StatusBadGateway || decodeBody(t, rec)["status"] != "error" {
		t.Fatalf("fetch failure: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCaptionsVTTAndUpload(t *testing.T) {
	f := newRouterFixture(t)
	user := f.token(t, "user")
	id := f.media.known.ID.String()
	f.captions.vtt = services.EmptyVTT

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/media/"+id+"/captions.vtt", nil), user)
	if rec.Code != http.StatusOK || rec.Body.String() != services.EmptyVTT {
		t.Fatalf("vtt: %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vtt") {
		t.Fatalf("content-type: %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `inline; filename="captions.vtt"` {
		t.Fatalf("content-disposition: %q", cd)
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/media/"+uuid.New().String()+"/captions.vtt", nil), user)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign vtt: got %d", rec.Code)
	}

	vtt := "WEBVTT\n\n00:00.000 --> 00:01.000\nhi\n"
	req := httptest.NewRequest(http.MethodPost, "/api/media/"+id+"/captions", strings.NewReader(`{"caption":`+jsonString(vtt)+`}`))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(req, user)
	if rec.Code != http.StatusOK || f.captions.saved != vtt {
		t.Fatalf("upload caption: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/media/"+id+"/captions", strings.NewReader(`{"caption":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(req, user)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank caption: got %d", rec.Code)
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestReviewCaptionRequest(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.token(t, "admin")
	captionID := uuid.New()

	req := httptest.NewRequest(http.MethodPut, "/api/admin/caption-requests/"+captionID.String(), strings.NewReader(`{"status":"approved","reason":"looks good"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(req, admin)
	if rec.Code != http.StatusOK || f.captions.reviewedID != captionID || f.captions.decision != types.CaptionStatusApproved {
		t.Fatalf("review: %d %s", rec.Code, rec.Body.String())
	}

	f.captions.reviewErr = apierr.Conflict("invalid_transition", services.ErrInvalidTransition)
	req = httptest.NewRequest(http.MethodPut, "/api/admin/caption-requests/"+captionID.String(), strings.NewReader(`{"status":"approved"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(req, admin)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "invalid_transition" {
		t.Fatalf("conflict: %d %s", rec.Code, rec.Body.String())
	}
}
