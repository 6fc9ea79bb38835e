package sender

import (
	"context"

	"github.com/vetdesk/notify/internal/domain/notification"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"
)

type SMSConfig struct {
	Region   string
	SenderID string
}

// SMS publishes over AWS SNS. With an empty Region it runs in dev mode.
type SMS struct {
	client   *sns.Client
	senderID string
	log      *zap.Logger
}

func NewSMS(ctx context.Context, cfg SMSConfig, log *zap.Logger) (*SMS, error) {
	s := &SMS{senderID: cfg.SenderID, log: log.With(zap.String("component", "sender.sms"))}
	if cfg.Region == "" {
		return s, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}
	s.client = sns.NewFromConfig(awsCfg)
	return s, nil
}

var _ notification.SMSSender = (*SMS)(nil)

func (s *SMS) Send(ctx context.Context, to, body, idemKey string) (string, error) {
	if to == "" {
		return "", &notification.SendError{Reason: "to is required"}
	}

	if s.client == nil {
		s.log.Info("dev-mode sms",
			zap.String("to", to),
			zap.Int("body_len", len(body)),
			zap.String("idempotency_key", idemKey),
		)
		return devMessageID(), nil
	}

	in := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"idempotency_key": {DataType: aws.String("String"), StringValue: aws.String(idemKey)},
		},
	}
	if s.senderID != "" {
		in.MessageAttributes["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType: aws.String("String"), StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.client.Publish(ctx, in)
	if err != nil {
		return "", &notification.SendError{Reason: "sns publish", Err: err}
	}
	return aws.ToString(out.MessageId), nil
}
