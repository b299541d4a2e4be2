package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/quillblog/backend/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// SESAPI is the subset of the SES client used for sending
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers mail through AWS SES
type SESSender struct {
	client    SESAPI
	fromEmail string
	fromName  string
}

var _ Sender = (*SESSender)(nil)

// NewSESSender creates a sender using the default AWS credential chain
func NewSESSender(region, fromEmail, fromName string) (*SESSender, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESSenderWithClient(ses.NewFromConfig(cfg), fromEmail, fromName), nil
}

// NewSESSenderWithClient wraps an existing SES client
func NewSESSenderWithClient(client SESAPI, fromEmail, fromName string) *SESSender {
	return &SESSender{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Send delivers an HTML message to every recipient
func (e *SESSender) Send(ctx context.Context, msg Message) error {
	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: msg.To,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(msg.HTML),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	ctx, span := telemetry.TraceExternalCall(ctx, "ses", "send_email",
		attribute.Int("email.recipients", len(msg.To)),
	)
	_, err := e.client.SendEmail(ctx, input)
	telemetry.EndSpan(span, err)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
