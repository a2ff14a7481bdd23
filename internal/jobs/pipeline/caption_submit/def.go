package caption_submit

import (
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

type Pipeline struct {
	log      *logger.Logger
	captions services.CaptionOrchestrator
}

func New(baseLog *logger.Logger, captions services.CaptionOrchestrator) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", services.JobTypeCaptionSubmit),
		captions: captions,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeCaptionSubmit }
