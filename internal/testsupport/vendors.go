package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/mediaforge-backend/internal/platform/encoder"
	"github.com/yungbote/mediaforge-backend/internal/platform/localmedia"
	"github.com/yungbote/mediaforge-backend/internal/platform/threeplay"
)

// StatusError is a vendor failure carrying an HTTP status, for retry classification.
type StatusError int

func (e StatusError) Error() string       { return fmt.Sprintf("vendor http %d", int(e)) }
func (e StatusError) HTTPStatusCode() int { return int(e) }

type Encoder struct {
	mu       sync.Mutex
	Requests []encoder.CreateJobRequest
	// Errs are returned by successive calls before JobID is handed out.
	Errs  []error
	JobID string
}

var _ encoder.Client = (*Encoder)(nil)

func (e *Encoder) CreateJob(ctx context.Context, req encoder.CreateJobRequest) (*encoder.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Requests = append(e.Requests, req)
	if len(e.Errs) > 0 {
		err := e.Errs[0]
		e.Errs = e.Errs[1:]
		return nil, err
	}
	id := e.JobID
	if id == "" {
		id = fmt.Sprintf("job-%d", len(e.Requests))
	}
	return &encoder.Job{ID: id, Status: "SUBMITTED"}, nil
}

func (e *Encoder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Requests)
}

type SubmitCall struct {
	APIKey string
	Req    threeplay.SubmitFileRequest
}

type CaptionVendor struct {
	mu        sync.Mutex
	Submits   []SubmitCall
	Fetches   []string
	SubmitErr error
	FetchErr  error
	OrderID   string
	Body      string
}

var _ threeplay.Client = (*CaptionVendor)(nil)

func (v *CaptionVendor) SubmitFile(ctx context.Context, apiKey string, req threeplay.SubmitFileRequest) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Submits = append(v.Submits, SubmitCall{APIKey: apiKey, Req: req})
	if v.SubmitErr != nil {
		return "", v.SubmitErr
	}
	if v.OrderID == "" {
		return fmt.Sprintf("%d", 1000+len(v.Submits)), nil
	}
	return v.OrderID, nil
}

func (v *CaptionVendor) FetchCaptions(ctx context.Context, apiKey string, orderID string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Fetches = append(v.Fetches, orderID)
	if v.FetchErr != nil {
		return "", v.FetchErr
	}
	return v.Body, nil
}

type Prober struct {
	Dims localmedia.Dimensions
	Err  error
	mu   sync.Mutex
	// Paths records every probed file.
	Paths []string
}

var _ localmedia.Prober = (*Prober)(nil)

func (p *Prober) AssertReady(ctx context.Context) error { return nil }

func (p *Prober) ProbeDimensions(ctx context.Context, path string) (localmedia.Dimensions, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Paths = append(p.Paths, path)
	return p.Dims, p.Err
}

type Mail struct {
	To      string
	Subject string
	Body    string
}

type Mailer struct {
	mu   sync.Mutex
	Sent []Mail
	Err  error
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, Mail{To: to, Subject: subject, Body: body})
	return m.Err
}

func (m *Mailer) Messages() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.Sent...)
}
