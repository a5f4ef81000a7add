// Package notify delivers report summaries by email through SES.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/eunmann/s3-cost-report/internal/logctx"
)

const (
	charset         = "UTF-8"
	sessionName     = "s3cost-report-ses"
	sessionDuration = 15 * time.Minute
)

// API is the subset of the SES client the notifier calls.
type API interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Config configures the SES notifier.
type Config struct {
	// Sender and Recipient are verified SES addresses.
	Sender    string
	Recipient string
	// Region overrides the default AWS region.
	Region string
	// RoleARN, when set, sends through STS assume-role credentials.
	// Lets the report run in one account and send mail from another.
	RoleARN string
}

// SESNotifier implements costreport.NotificationSink over SES.
type SESNotifier struct {
	api       API
	sender    string
	recipient string
}

// New creates an SES notifier from the default AWS configuration
// chain, assuming cfg.RoleARN when set.
func New(ctx context.Context, cfg Config) (*SESNotifier, error) {
	if cfg.Sender == "" || cfg.Recipient == "" {
		return nil, errors.New("sender and recipient are required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if cfg.RoleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsCfg), cfg.RoleARN,
			func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = sessionName
				o.Duration = sessionDuration
			})
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}

	return NewWithAPI(ses.NewFromConfig(awsCfg), cfg), nil
}

// NewWithAPI creates a notifier over an existing SES client.
func NewWithAPI(api API, cfg Config) *SESNotifier {
	return &SESNotifier{api: api, sender: cfg.Sender, recipient: cfg.Recipient}
}

// Send delivers one summary email with text and HTML alternatives.
func (n *SESNotifier) Send(ctx context.Context, subject, textBody, htmlBody string) error {
	out, err := n.api.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{n.recipient},
		},
		Message: &types.Message{
			Subject: utf8Content(subject),
			Body: &types.Body{
				Text: utf8Content(textBody),
				Html: utf8Content(htmlBody),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	log := logctx.From(ctx)
	log.Info().
		Str("message_id", aws.ToString(out.MessageId)).
		Str("recipient", n.recipient).
		Msg("summary email sent")
	return nil
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String(charset)}
}
