package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsClient defines the minimal subset of the SNS client used by snsChannel.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsChannel implements the Channel interface for AWS SNS.
type snsChannel struct {
	id       string
	typ      string
	topicARN string
	client   snsClient
	log      Logger
}

// newSNSChannel creates a new SNS channel with the given configuration.
func newSNSChannel(ctx context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("channel %q missing sns configuration", cfg.ID)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.SNS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &snsChannel{
		id:       cfg.ID,
		typ:      TypeSNS,
		topicARN: cfg.SNS.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (s *snsChannel) ID() string   { return s.id }
func (s *snsChannel) Type() string { return s.typ }

// Publish sends the batch to the configured SNS topic.
func (s *snsChannel) Publish(ctx context.Context, batch Batch) error {
	return s.send(ctx, batch, map[string]string{
		"kind":     "batch",
		"category": string(batch.Category),
	})
}

func (s *snsChannel) Notify(ctx context.Context, text string) error {
	return s.send(ctx, newStatusEnvelope(text), map[string]string{"kind": "status"})
}

func (s *snsChannel) send(ctx context.Context, payload any, attrs map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(body)),
		MessageAttributes: snsMessageAttributes(attrs),
	}

	if _, err := s.client.Publish(ctx, input); err != nil {
		s.log.ErrorObj("sns channel publish failed", "channel_sns_error", map[string]any{
			"channel_id": s.id,
			"error":      err.Error(),
		})
		return fmt.Errorf("publish to sns: %w", err)
	}
	s.log.DebugObj("sns channel delivered message", "channel_sns_delivery", map[string]any{
		"channel_id": s.id,
	})
	return nil
}

func snsMessageAttributes(attrs map[string]string) map[string]snstypes.MessageAttributeValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]snstypes.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		out[k] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}
	return out
}
