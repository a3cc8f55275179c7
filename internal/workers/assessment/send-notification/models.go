package sendnotification

import (
	"time"

	"taxassist-workers/internal/models"
)

// Notification channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Input carries the assessment outcome to notify the filer about. The
// response fields mirror what the run-assessment worker emitted into the
// process instance.
type Input struct {
	SessionID         string                    `json:"sessionId"`
	Channel           string                    `json:"channel"`
	Recipient         string                    `json:"recipient"`
	Response          string                    `json:"response,omitempty"`
	MissingFields     []string                  `json:"missingFields,omitempty"`
	Warnings          []string                  `json:"warnings,omitempty"`
	CalculationResult *models.CalculationResult `json:"calculationResult,omitempty"`
}

type Output struct {
	NotificationID string    `json:"notificationId"`
	Sent           bool      `json:"sent"`
	Channel        string    `json:"channel"`
	SentAt         time.Time `json:"sentAt"`
}
