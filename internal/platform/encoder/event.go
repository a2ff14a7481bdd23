package encoder

import "strings"

const (
	StatusComplete = "COMPLETE"
	StatusError    = "ERROR"
)

// Event is the job state change notification the encoding service posts back.
type Event struct {
	Detail EventDetail `json:"detail"`
}

type EventDetail struct {
	JobID              string              `json:"jobId"`
	Status             string              `json:"status"`
	ErrorMessage       string              `json:"errorMessage"`
	UserMetadata       map[string]string   `json:"userMetadata"`
	OutputGroupDetails []OutputGroupDetail `json:"outputGroupDetails"`
}

type OutputGroupDetail struct {
	OutputDetails []OutputDetail `json:"outputDetails"`
}

type OutputDetail struct {
	OutputFilePaths []string     `json:"outputFilePaths"`
	VideoDetails    VideoDetails `json:"videoDetails"`
}

type VideoDetails struct {
	WidthInPx  int `json:"widthInPx"`
	HeightInPx int `json:"heightInPx"`
}

// ProducedRendition is one output file reported by a completed job.
type ProducedRendition struct {
	FilePath string
	Width    int
	Height   int
}

func (d EventDetail) MediaID() string {
	if d.UserMetadata == nil {
		return ""
	}
	return strings.TrimSpace(d.UserMetadata["media_id"])
}

func (d EventDetail) NormalizedStatus() string {
	return strings.ToUpper(strings.TrimSpace(d.Status))
}

// Outputs flattens every output descriptor. Descriptors without a file path are skipped.
func (d EventDetail) Outputs() []ProducedRendition {
	out := []ProducedRendition{}
	for _, g := range d.OutputGroupDetails {
		for _, o := range g.OutputDetails {
			if len(o.OutputFilePaths) == 0 || strings.TrimSpace(o.OutputFilePaths[0]) == "" {
				continue
			}
			out = append(out, ProducedRendition{
				FilePath: strings.TrimSpace(o.OutputFilePaths[0]),
				Width:    o.VideoDetails.WidthInPx,
				Height:   o.VideoDetails.HeightInPx,
			})
		}
	}
	return out
}
