package threeplay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/mediaforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/envutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

const (
	// LanguageEnglish is the vendor's language id for English.
	LanguageEnglish = 1
	// OutputFormatWebVTT is the vendor's transcript output format for WebVTT.
	OutputFormatWebVTT = 139
)

// Client talks to the caption vendor. The API key is per call because each caption request
// carries its own profile.
type Client interface {
	SubmitFile(ctx context.Context, apiKey string, req SubmitFileRequest) (string, error)
	FetchCaptions(ctx context.Context, apiKey string, orderID string) (string, error)
}

type SubmitFileRequest struct {
	Link       string
	Name       string
	LanguageID int
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL: strings.TrimSpace(envutil.String("THREEPLAY_BASE_URL", "https://api.3playmedia.com")),
		Timeout: envutil.Duration("THREEPLAY_TIMEOUT", 60*time.Second),
	}
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.3playmedia.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &client{
		log:        log.With("client", "ThreePlayClient"),
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type submitFileBody struct {
	APIKey     string `json:"api_key"`
	Link       string `json:"link"`
	LanguageID int    `json:"language_id"`
	Name       string `json:"name,omitempty"`
}

type submitFileResponse struct {
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// SubmitFile asks the vendor to caption the media at req.Link and returns the vendor order id.
func (c *client) SubmitFile(ctx context.Context, apiKey string, req SubmitFileRequest) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", errors.New("threeplay: api key required")
	}
	if strings.TrimSpace(req.Link) == "" {
		return "", errors.New("threeplay: link required")
	}
	if req.LanguageID == 0 {
		req.LanguageID = LanguageEnglish
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(submitFileBody{
		APIKey:     apiKey,
		Link:       req.Link,
		LanguageID: req.LanguageID,
		Name:       req.Name,
	}); err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, c.baseURL+"/v3/files", &buf)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	raw, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out submitFileResponse
	if err := dec.Decode(&out); err != nil {
		return "", fmt.Errorf("threeplay: decode submit response: %w", err)
	}
	id := strings.Trim(strings.TrimSpace(out.Data.ID.String()), `"`)
	if id == "" {
		return "", fmt.Errorf("threeplay: submit response carried no id: %s", truncate(string(raw), 500))
	}
	return id, nil
}

// FetchCaptions downloads the finished transcript for orderID as WebVTT text.
func (c *client) FetchCaptions(ctx context.Context, apiKey string, orderID string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", errors.New("threeplay: api key required")
	}
	if strings.TrimSpace(orderID) == "" {
		return "", errors.New("threeplay: order id required")
	}
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("output_format_id", fmt.Sprintf("%d", OutputFormatWebVTT))
	endpoint := fmt.Sprintf("%s/v3/transcripts/%s/text?%s", c.baseURL, url.PathEscape(orderID), q.Encode())

	httpReq, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	raw, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return "", errors.New("threeplay: empty transcript")
	}
	return body, nil
}

func (c *client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("threeplay %s %s: %w", req.Method, req.URL.Path, err)
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "threeplay: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	return fmt.Sprintf("threeplay http %d: %s", e.StatusCode, truncate(msg, 2000))
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
