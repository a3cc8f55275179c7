package sendnotification

import (
	"fmt"
	"time"

	"taxassist-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	EmailEnabled  bool
	SMSEnabled    bool
	FromEmail     string
	AWSRegion     string
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		EmailEnabled:  true,
		SMSEnabled:    true,
		FromEmail:     "no-reply@taxassist.example.com",
		AWSRegion:     "us-east-1",
	}
}

// FromAppConfig builds the worker config from the application configuration.
func FromAppConfig(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Enabled:       wc.Enabled,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
		EmailEnabled:  cfg.Notifications.Email.Enabled,
		SMSEnabled:    cfg.Notifications.SMS.Enabled,
		FromEmail:     cfg.Notifications.Email.FromEmail,
		AWSRegion:     cfg.Notifications.AWS.Region,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.EmailEnabled && c.FromEmail == "" {
		return fmt.Errorf("from_email is required when email is enabled")
	}
	return nil
}
