package transcode_media

import (
	"fmt"

	jobrt "github.com/yungbote/mediaforge-backend/internal/jobs/runtime"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if p == nil || p.transcode == nil {
		jc.Fail("validate", jobrt.Fatal(fmt.Errorf("transcode_media: pipeline not configured")))
		return nil
	}
	mediaID, ok := jc.PayloadUUID("media_id")
	if !ok {
		jc.Fail("validate", jobrt.Fatal(fmt.Errorf("missing media_id")))
		return nil
	}

	jc.Progress("dispatch", 10, "Submitting transcode")
	if err := p.transcode.Dispatch(jc.Ctx, mediaID, jc.FinalAttempt()); err != nil {
		if services.IsPermanent(err) {
			err = jobrt.Fatal(err)
		}
		jc.Fail("dispatch", err)
		return nil
	}
	jc.Succeed("done", map[string]any{"media_id": mediaID.String()})
	return nil
}
