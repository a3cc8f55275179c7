package sendnotification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sesTypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	commonErrors "taxassist-workers/internal/common/errors"
	"taxassist-workers/internal/common/logger"
	"taxassist-workers/internal/models"
)

// EmailSender is the SES surface the service needs.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender is the SNS surface the service needs.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Service struct {
	config *Config
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

func NewService(config *Config, email EmailSender, sms SMSSender, log logger.Logger) *Service {
	return &Service{
		config: config,
		email:  email,
		sms:    sms,
		logger: log.With(map[string]interface{}{"component": "notification-service"}),
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	subject, body := buildMessage(input)

	switch input.Channel {
	case ChannelEmail:
		if !s.config.EmailEnabled || s.email == nil {
			return nil, commonErrors.NewNotificationSendFailedError(ChannelEmail, fmt.Errorf("email channel is disabled"))
		}
		_, err := s.email.SendEmail(ctx, &ses.SendEmailInput{
			Source: aws.String(s.config.FromEmail),
			Destination: &sesTypes.Destination{
				ToAddresses: []string{input.Recipient},
			},
			Message: &sesTypes.Message{
				Subject: &sesTypes.Content{Data: aws.String(subject)},
				Body: &sesTypes.Body{
					Text: &sesTypes.Content{Data: aws.String(body)},
				},
			},
		})
		if err != nil {
			return nil, commonErrors.NewNotificationSendFailedError(ChannelEmail, err)
		}
	case ChannelSMS:
		if !s.config.SMSEnabled || s.sms == nil {
			return nil, commonErrors.NewNotificationSendFailedError(ChannelSMS, fmt.Errorf("sms channel is disabled"))
		}
		_, err := s.sms.Publish(ctx, &sns.PublishInput{
			PhoneNumber: aws.String(input.Recipient),
			Message:     aws.String(body),
		})
		if err != nil {
			return nil, commonErrors.NewNotificationSendFailedError(ChannelSMS, err)
		}
	default:
		return nil, commonErrors.NewBusinessRuleError(
			"unsupported notification channel",
			fmt.Sprintf("channel: %s", input.Channel))
	}

	out := &Output{
		NotificationID: uuid.NewString(),
		Sent:           true,
		Channel:        input.Channel,
		SentAt:         time.Now().UTC(),
	}

	s.logger.Info("notification sent", map[string]interface{}{
		"sessionId":      input.SessionID,
		"channel":        input.Channel,
		"notificationId": out.NotificationID,
	})

	return out, nil
}

// buildMessage renders the subject and body for an assessment outcome.
func buildMessage(input *Input) (string, string) {
	var b strings.Builder

	switch input.Response {
	case models.ResponseWaiting:
		b.WriteString("Your tax assessment is paused because some information is still needed.\n\n")
		if len(input.MissingFields) > 0 {
			b.WriteString("Please provide:\n")
			for _, field := range input.MissingFields {
				b.WriteString(fmt.Sprintf("- %s\n", field))
			}
		}
		return "Your tax assessment needs more information", b.String()

	case models.ResponseComplete:
		b.WriteString("Your tax assessment is complete.\n\n")
		if calc := input.CalculationResult; calc != nil {
			switch calc.Outcome {
			case "refund":
				b.WriteString(fmt.Sprintf("Estimated refund: $%.2f\n", calc.RefundOrOwed))
			case "owed":
				b.WriteString(fmt.Sprintf("Estimated amount owed: $%.2f\n", calc.RefundOrOwed))
			default:
				b.WriteString("Your withholding matches your liability exactly.\n")
			}
			b.WriteString(fmt.Sprintf("Tax liability: $%.2f on taxable income of $%.2f\n",
				calc.TaxLiability, calc.TaxableIncome))
		}
		return "Your tax assessment is complete", b.String()

	default:
		b.WriteString("Your tax assessment could not be completed.\n\n")
		for _, w := range input.Warnings {
			b.WriteString(fmt.Sprintf("- %s\n", w))
		}
		return "There was a problem with your tax assessment", b.String()
	}
}
