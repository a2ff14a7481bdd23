package transcode_media

import (
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

type Pipeline struct {
	log       *logger.Logger
	transcode services.TranscodeOrchestrator
}

func New(baseLog *logger.Logger, transcode services.TranscodeOrchestrator) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", services.JobTypeTranscodeMedia),
		transcode: transcode,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeTranscodeMedia }
