package pub

import (
	"authbot/internal/config"
	"authbot/internal/ports"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	log "github.com/sirupsen/logrus"
)

// FromConfig returns an SNS publisher when a topic is configured and Noop otherwise.
// SNSEndpoint points the client at a local mock.
func FromConfig(ctx context.Context, cfg config.EventsConfig) ports.Publisher {
	if cfg.TopicArn == "" {
		return Noop{}
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load AWS config, auth events disabled")
		return Noop{}
	}
	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.SNSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SNSEndpoint)
			if o.Region == "" {
				o.Region = "us-east-1"
			}
			o.Credentials = credentials.NewStaticCredentialsProvider("test", "test", "")
		}
	})
	return NewSNS(snsClient)
}
