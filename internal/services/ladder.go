package services

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/mediaforge-backend/internal/platform/encoder"
)

//go:embed ladder.yaml
var defaultLadderYAML []byte

type Rung struct {
	Label   string `yaml:"label"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Bitrate int    `yaml:"bitrate"`
}

type ladderDoc struct {
	Renditions []Rung `yaml:"renditions"`
}

// ParseLadder reads a ladder document and sorts it tallest first.
func ParseLadder(raw []byte) ([]Rung, error) {
	var doc ladderDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse rendition ladder: %w", err)
	}
	if len(doc.Renditions) == 0 {
		return nil, fmt.Errorf("rendition ladder is empty")
	}
	seen := map[int]bool{}
	for i, r := range doc.Renditions {
		if r.Width <= 0 || r.Height <= 0 || r.Bitrate <= 0 {
			return nil, fmt.Errorf("rendition %d: width, height and bitrate must be positive", i)
		}
		if seen[r.Height] {
			return nil, fmt.Errorf("rendition %d: duplicate height %d", i, r.Height)
		}
		seen[r.Height] = true
		if strings.TrimSpace(r.Label) == "" {
			doc.Renditions[i].Label = fmt.Sprintf("%dp", r.Height)
		}
	}
	sort.SliceStable(doc.Renditions, func(i, j int) bool {
		return doc.Renditions[i].Height > doc.Renditions[j].Height
	})
	return doc.Renditions, nil
}

// LoadLadder reads path when set, else the embedded default.
func LoadLadder(path string) ([]Rung, error) {
	if strings.TrimSpace(path) == "" {
		return ParseLadder(defaultLadderYAML)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rendition ladder: %w", err)
	}
	return ParseLadder(raw)
}

type RenditionPlanner interface {
	// Plan returns the rungs strictly shorter than sourceHeight, tallest first. An unknown
	// height (0) plans nothing.
	Plan(sourceHeight int) []encoder.Rendition
	Ladder() []Rung
}

type renditionPlanner struct {
	ladder []Rung
}

func NewRenditionPlanner(ladder []Rung) RenditionPlanner {
	cp := append([]Rung(nil), ladder...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Height > cp[j].Height })
	return &renditionPlanner{ladder: cp}
}

func (p *renditionPlanner) Plan(sourceHeight int) []encoder.Rendition {
	out := []encoder.Rendition{}
	if sourceHeight <= 0 {
		return out
	}
	for _, r := range p.ladder {
		if r.Height < sourceHeight {
			out = append(out, encoder.Rendition{Width: r.Width, Height: r.Height, Bitrate: r.Bitrate})
		}
	}
	return out
}

func (p *renditionPlanner) Ladder() []Rung {
	return append([]Rung(nil), p.ladder...)
}
