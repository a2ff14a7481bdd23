package encoder

import "fmt"

// The wire shapes follow the MediaConvert CreateJob settings document. Only the fields
// the pipeline sets are modelled.

type CreateJobRequest struct {
	Role         string            `json:"role,omitempty"`
	Queue        string            `json:"queue,omitempty"`
	Settings     JobSettings       `json:"settings"`
	UserMetadata map[string]string `json:"userMetadata,omitempty"`
}

type JobSettings struct {
	Inputs       []Input       `json:"inputs"`
	OutputGroups []OutputGroup `json:"outputGroups"`
}

type Input struct {
	AudioSelectors map[string]AudioSelector `json:"audioSelectors"`
	VideoSelector  VideoSelector            `json:"videoSelector"`
	FilterEnable   string                   `json:"filterEnable"`
	FileInput      string                   `json:"fileInput"`
}

type AudioSelector struct {
	DefaultSelection string `json:"defaultSelection"`
}

type VideoSelector struct {
	ColorSpace string `json:"colorSpace"`
}

type OutputGroup struct {
	Name                string              `json:"name"`
	Outputs             []Output            `json:"outputs"`
	OutputGroupSettings OutputGroupSettings `json:"outputGroupSettings"`
}

type OutputGroupSettings struct {
	Type              string            `json:"type"`
	FileGroupSettings FileGroupSettings `json:"fileGroupSettings"`
}

type FileGroupSettings struct {
	Destination string `json:"destination"`
}

type Output struct {
	NameModifier      string             `json:"nameModifier"`
	VideoDescription  VideoDescription   `json:"videoDescription"`
	AudioDescriptions []AudioDescription `json:"audioDescriptions"`
	ContainerSettings ContainerSettings  `json:"containerSettings"`
}

type VideoDescription struct {
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	CodecSettings VideoCodecSettings `json:"codecSettings"`
}

type VideoCodecSettings struct {
	Codec        string       `json:"codec"`
	H264Settings H264Settings `json:"h264Settings"`
}

type H264Settings struct {
	MaxBitrate        int    `json:"maxBitrate"`
	RateControlMode   string `json:"rateControlMode"`
	SceneChangeDetect string `json:"sceneChangeDetect"`
}

type AudioDescription struct {
	AudioSourceName string             `json:"audioSourceName"`
	CodecSettings   AudioCodecSettings `json:"codecSettings"`
}

type AudioCodecSettings struct {
	Codec       string      `json:"codec"`
	AacSettings AacSettings `json:"aacSettings"`
}

type AacSettings struct {
	Bitrate    int    `json:"bitrate"`
	CodingMode string `json:"codingMode"`
	SampleRate int    `json:"sampleRate"`
}

type ContainerSettings struct {
	Container   string      `json:"container"`
	Mp4Settings Mp4Settings `json:"mp4Settings"`
}

type Mp4Settings struct {
	MoovPlacement string `json:"moovPlacement"`
}

const defaultAudioSelector = "Audio Selector 1"

// Rendition is one target size handed to the encoder.
type Rendition struct {
	Width   int
	Height  int
	Bitrate int
}

// NewOutput renders the H.264/AAC MP4 output for one rendition.
func NewOutput(r Rendition) Output {
	return Output{
		NameModifier: fmt.Sprintf("_%dp", r.Height),
		VideoDescription: VideoDescription{
			Width:  r.Width,
			Height: r.Height,
			CodecSettings: VideoCodecSettings{
				Codec: "H_264",
				H264Settings: H264Settings{
					MaxBitrate:        r.Bitrate,
					RateControlMode:   "QVBR",
					SceneChangeDetect: "TRANSITION_DETECTION",
				},
			},
		},
		AudioDescriptions: []AudioDescription{{
			AudioSourceName: defaultAudioSelector,
			CodecSettings: AudioCodecSettings{
				Codec: "AAC",
				AacSettings: AacSettings{
					Bitrate:    128000,
					CodingMode: "CODING_MODE_2_0",
					SampleRate: 48000,
				},
			},
		}},
		ContainerSettings: ContainerSettings{
			Container:   "MP4",
			Mp4Settings: Mp4Settings{MoovPlacement: "PROGRESSIVE_DOWNLOAD"},
		},
	}
}

// NewFileGroupJob builds a single file-group job reading fileInput and writing every
// rendition under destination.
func NewFileGroupJob(fileInput, destination string, renditions []Rendition) JobSettings {
	outputs := make([]Output, 0, len(renditions))
	for _, r := range renditions {
		outputs = append(outputs, NewOutput(r))
	}
	return JobSettings{
		Inputs: []Input{{
			AudioSelectors: map[string]AudioSelector{defaultAudioSelector: {DefaultSelection: "DEFAULT"}},
			VideoSelector:  VideoSelector{ColorSpace: "FOLLOW"},
			FilterEnable:   "AUTO",
			FileInput:      fileInput,
		}},
		OutputGroups: []OutputGroup{{
			Name:    "File Group",
			Outputs: outputs,
			OutputGroupSettings: OutputGroupSettings{
				Type:              "FILE_GROUP_SETTINGS",
				FileGroupSettings: FileGroupSettings{Destination: destination},
			},
		}},
	}
}
