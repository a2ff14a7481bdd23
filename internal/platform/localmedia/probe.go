package localmedia

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/mediaforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

// Dimensions of the first video stream. Zero values mean the probe found nothing usable.
type Dimensions struct {
	Width  int
	Height int
}

// Prober reads source dimensions from a local file. It needs ffprobe in PATH (or FFPROBE_PATH).
type Prober interface {
	AssertReady(ctx context.Context) error
	ProbeDimensions(ctx context.Context, path string) (Dimensions, error)
}

type ffprobe struct {
	log     *logger.Logger
	binary  string
	timeout time.Duration
}

func NewProber(log *logger.Logger, binary string) Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &ffprobe{
		log:     log.With("service", "MediaProber"),
		binary:  binary,
		timeout: 60 * time.Second,
	}
}

func (p *ffprobe) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", p.binary, err)
	}
	return nil
}

func (p *ffprobe) ProbeDimensions(ctx context.Context, path string) (Dimensions, error) {
	ctx = ctxutil.Default(ctx)
	path = strings.TrimSpace(path)
	if path == "" {
		return Dimensions{}, errors.New("ffprobe: empty path")
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		"--", path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return Dimensions{}, fmt.Errorf("ffprobe failed: %w; out=%s", err, strings.TrimSpace(string(out)))
	}
	dims, err := ParseDimensions(string(out))
	if err != nil {
		return Dimensions{}, err
	}
	p.log.Debug("probed dimensions", "path", path, "width", dims.Width, "height", dims.Height)
	return dims, nil
}

// ParseDimensions reads ffprobe csv output such as "1920x1080". Only the first line counts.
func ParseDimensions(out string) (Dimensions, error) {
	line := strings.TrimSpace(out)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return Dimensions{}, errors.New("ffprobe: no video stream")
	}
	w, h, ok := strings.Cut(line, "x")
	if !ok {
		return Dimensions{}, fmt.Errorf("ffprobe: unexpected output %q", line)
	}
	width, werr := strconv.Atoi(strings.TrimSpace(w))
	height, herr := strconv.Atoi(strings.TrimSpace(strings.TrimRight(h, "x")))
	if werr != nil || herr != nil || width < 0 || height < 0 {
		return Dimensions{}, fmt.Errorf("ffprobe: unexpected output %q", line)
	}
	return Dimensions{Width: width, Height: height}, nil
}
