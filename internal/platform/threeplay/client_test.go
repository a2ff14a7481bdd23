package threeplay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

func TestSubmitFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/files" {
			t.Errorf("path=%q", r.URL.Path)
		}
		var body submitFileBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.APIKey != "k" || body.LanguageID != LanguageEnglish || body.Link != "https://cdn/x_1080p.mp4" {
			t.Errorf("unexpected body: %+v", body)
		}
		_, _ = w.Write([]byte(`{"data":{"id":987654}}`))
	}))
	defer srv.Close()

	c, _ := New(logger.NewNop(), Config{BaseURL: srv.URL})
	id, err := c.SubmitFile(context.Background(), "k", SubmitFileRequest{Link: "https://cdn/x_1080p.mp4", Name: "Demo"})
	if err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	if id != "987654" {
		t.Fatalf("SubmitFile: id=%q", id)
	}
}

func TestSubmitFileMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c, _ := New(logger.NewNop(), Config{BaseURL: srv.URL})
	if _, err := c.SubmitFile(context.Background(), "k", SubmitFileRequest{Link: "https://cdn/x.mp4"}); err == nil {
		t.Fatalf("SubmitFile: expected error for missing id")
	}
}

func TestFetchCaptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/transcripts/55/text" {
			t.Errorf("path=%q", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "k" || r.URL.Query().Get("output_format_id") != "139" {
			t.Errorf("query=%q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte("WEBVTT\n\n00:00.000 --> 00:01.000\nhi\n"))
	}))
	defer srv.Close()

	c, _ := New(logger.NewNop(), Config{BaseURL: srv.URL})
	body, err := c.FetchCaptions(context.Background(), "k", "55")
	if err != nil {
		t.Fatalf("FetchCaptions: %v", err)
	}
	if body[:6] != "WEBVTT" {
		t.Fatalf("FetchCaptions: body=%q", body)
	}
}

func TestFetchCaptionsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := New(logger.NewNop(), Config{BaseURL: srv.URL})
	_, err := c.FetchCaptions(context.Background(), "k", "55")
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusNotFound {
		t.Fatalf("FetchCaptions: expected 404 HTTPError, got %v", err)
	}
}
