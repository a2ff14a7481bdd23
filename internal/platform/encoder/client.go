package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/mediaforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/envutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

type Client interface {
	CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error)
}

type Config struct {
	BaseURL      string
	APIKey       string
	Role         string
	Queue        string
	OutputBucket string
	Timeout      time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:      strings.TrimSpace(envutil.String("ENCODER_BASE_URL", "")),
		APIKey:       strings.TrimSpace(envutil.String("ENCODER_API_KEY", "")),
		Role:         strings.TrimSpace(envutil.String("ENCODER_ROLE", "")),
		Queue:        strings.TrimSpace(envutil.String("ENCODER_QUEUE", "")),
		OutputBucket: strings.TrimSpace(envutil.String("ENCODER_OUTPUT_BUCKET", "")),
		Timeout:      envutil.Duration("ENCODER_TIMEOUT", 30*time.Second),
	}
}

type Job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type createJobResponse struct {
	Job Job `json:"job"`
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

// New returns a client. Submission is a single attempt: retries belong to the job queue.
func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing ENCODER_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &client{
		log:        log.With("client", "EncoderClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *client) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	if req.Role == "" {
		req.Role = c.cfg.Role
	}
	if req.Queue == "" {
		req.Queue = c.cfg.Queue
	}
	if len(req.Settings.Inputs) == 0 || len(req.Settings.OutputGroups) == 0 {
		return nil, errors.New("encoder: job needs at least one input and one output group")
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, c.cfg.BaseURL+"/2017-08-29/jobs", &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("encoder create job: %w", err)
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out createJobResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encoder: decode create job response: %w", err)
	}
	if strings.TrimSpace(out.Job.ID) == "" {
		return nil, errors.New("encoder: create job response carried no job id")
	}
	c.log.Info("Encoder job created", "job_id", out.Job.ID, "outputs", countOutputs(req.Settings))
	return &out.Job, nil
}

func countOutputs(s JobSettings) int {
	n := 0
	for _, g := range s.OutputGroups {
		n += len(g.Outputs)
	}
	return n
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "encoder: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("encoder http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
