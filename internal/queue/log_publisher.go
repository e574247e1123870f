package queue

import (
	"context"

	"obcampaign-service/internal/domain/campaign"

	"go.uber.org/zap"
)

// LogPublisher records transition requests in the log instead of sending
// them anywhere. It is used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishTransition(ctx context.Context, req *campaign.TransitionRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.Warn("no broker configured, transition request not delivered",
		zap.String("id", req.ID),
		zap.String("campaign_uuid", req.CampaignUUID),
		zap.String("to", string(req.To)),
		zap.String("verb", req.Verb),
	)
	return nil
}
