package caption_submit

import (
	"fmt"

	jobrt "github.com/yungbote/mediaforge-backend/internal/jobs/runtime"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if p == nil || p.captions == nil {
		jc.Fail("validate", jobrt.Fatal(fmt.Errorf("caption_submit: pipeline not configured")))
		return nil
	}
	captionID, ok := jc.PayloadUUID("caption_id")
	if !ok {
		jc.Fail("validate", jobrt.Fatal(fmt.Errorf("missing caption_id")))
		return nil
	}

	jc.Progress("submit", 10, "Sending caption request to vendor")
	if err := p.captions.SubmitToVendor(jc.Ctx, captionID, jc.FinalAttempt()); err != nil {
		if services.IsPermanent(err) {
			err = jobrt.Fatal(err)
		}
		p.log.Warn("caption submission failed", "caption_id", captionID, "attempt", jc.Job.Attempts, "error", err)
		jc.Fail("submit", err)
		return nil
	}
	jc.Succeed("done", map[string]any{"caption_id": captionID.String()})
	return nil
}
