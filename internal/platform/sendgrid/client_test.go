package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, url string) *client {
	t.Helper()
	c, err := New(logger.NewNop(), Config{
		APIKey:           "sg-key",
		BaseURL:          url,
		DefaultFromEmail: "noreply@example.com",
		MaxRetries:       2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cc := c.(*client)
	cc.backoff = time.Millisecond
	return cc
}

func TestSendRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer sg-key" {
			t.Errorf("missing bearer token")
		}
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var body mailSendRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.From.Email != "noreply@example.com" || len(body.Personalizations) != 1 {
			t.Errorf("unexpected body: %+v", body)
		}
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	res, err := c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "ops@example.com"}},
		Subject: "Transcode failed",
		Text:    "details",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "msg-1" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("Send: res=%+v calls=%d", res, calls)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad from"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "ops@example.com"}},
		Subject: "x",
		Text:    "y",
	})
	he, ok := err.(*HTTPError)
	if !ok || he.StatusCode != http.StatusBadRequest {
		t.Fatalf("Send: expected HTTPError 400, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("Send: expected a single call, got %d", calls)
	}
}

func TestSendValidatesRequest(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	if _, err := c.Send(context.Background(), SendEmailRequest{Subject: "x", Text: "y"}); err == nil {
		t.Fatalf("expected missing recipient error")
	}
	if _, err := c.Send(context.Background(), SendEmailRequest{To: []EmailAddress{{Email: "a@b.c"}}, Text: "y"}); err == nil {
		t.Fatalf("expected missing subject error")
	}
}
