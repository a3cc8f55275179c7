package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"taxassist-workers/internal/common/config"
	commonErrors "taxassist-workers/internal/common/errors"
	commonhttp "taxassist-workers/internal/common/http"
	"taxassist-workers/internal/common/logger"
	"taxassist-workers/internal/models"
)

// Advisor reviews a completed calculation and returns free-text feedback.
// Implementations are constructed once per process and injected into the
// orchestrator.
type Advisor interface {
	Review(ctx context.Context, result *models.CalculationResult, filingStatus string) (string, error)
}

// HTTPAdvisor delegates the review to an external narrative capability over
// HTTP. Timeouts come from the request context only; the underlying client
// carries none of its own.
type HTTPAdvisor struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
	maxRetries  int
	client      *commonhttp.Client
	logger      logger.Logger
}

func NewHTTPAdvisor(cfg *config.Config, log logger.Logger) *HTTPAdvisor {
	return &HTTPAdvisor{
		baseURL:     cfg.APIs.Advisor.BaseURL,
		apiKey:      cfg.APIs.Advisor.APIKey,
		model:       cfg.APIs.Advisor.Model,
		temperature: cfg.APIs.Advisor.Temperature,
		timeout:     time.Duration(cfg.APIs.Advisor.Timeout) * time.Millisecond,
		maxRetries:  cfg.APIs.Advisor.MaxRetries,
		client:      commonhttp.NewClient(0),
		logger: log.With(map[string]interface{}{
			"component": "advisor",
		}),
	}
}

func (a *HTTPAdvisor) Review(ctx context.Context, result *models.CalculationResult, filingStatus string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	requestBody := map[string]interface{}{
		"model":       a.model,
		"prompt":      buildReviewPrompt(result, filingStatus),
		"temperature": a.temperature,
	}

	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", commonErrors.NewAdvisorTimeoutError()
			}
		}

		// A fresh request per attempt: the body reader is consumed by each send.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/review", bytes.NewReader(body))
		if err != nil {
			return "", commonErrors.NewAdvisorCallFailedError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if a.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+a.apiKey)
		}

		resp, lastErr = a.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return "", commonErrors.NewAdvisorTimeoutError()
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", commonErrors.NewAdvisorTimeoutError()
		}
		return "", commonErrors.NewAdvisorCallFailedError(lastErr)
	}
	if resp == nil {
		return "", commonErrors.NewAdvisorCallFailedError(fmt.Errorf("no successful response after retries"))
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", commonErrors.NewAdvisorCallFailedError(fmt.Errorf("decode response: %w", err))
	}

	text := strings.TrimSpace(apiResponse.Text)
	if text == "" {
		return "", commonErrors.NewAdvisorCallFailedError(fmt.Errorf("empty review text"))
	}

	a.logger.Info("advisory review completed", map[string]interface{}{
		"actionable": IsActionableReview(text),
	})

	return text, nil
}

// buildReviewPrompt renders the calculation summary handed to the external
// reviewer.
func buildReviewPrompt(result *models.CalculationResult, filingStatus string) string {
	var parts []string

	parts = append(parts, "You are a tax validation assistant. Review the following tax calculation and identify any anomalies or concerns.")
	parts = append(parts, "\nTax Calculation Summary:")
	parts = append(parts, fmt.Sprintf("- Gross Income: $%.2f", result.GrossIncome))
	parts = append(parts, fmt.Sprintf("- Standard Deduction: $%.2f", result.StandardDeduction))
	parts = append(parts, fmt.Sprintf("- Taxable Income: $%.2f", result.TaxableIncome))
	parts = append(parts, fmt.Sprintf("- Tax Liability: $%.2f", result.TaxLiability))
	parts = append(parts, fmt.Sprintf("- Total Withholding: $%.2f", result.TotalWithholding))
	parts = append(parts, fmt.Sprintf("- Result: %s of $%.2f", result.Outcome, result.RefundOrOwed))
	parts = append(parts, fmt.Sprintf("\nFiling Status: %s", filingStatus))

	parts = append(parts, "\nReview this calculation and respond with:")
	parts = append(parts, `1. "VALID" if everything looks reasonable`)
	parts = append(parts, `2. "WARNING: [specific concern]" if you notice any anomalies (e.g., unusually high/low withholding, negative values where unexpected)`)
	parts = append(parts, `3. "MISSING: [required information]" if critical data is missing`)
	parts = append(parts, "\nKeep your response concise and actionable.")

	return strings.Join(parts, "\n")
}

// IsActionableReview reports whether a review reply carries a warning or
// missing-information marker and should be surfaced to the user.
func IsActionableReview(text string) bool {
	return strings.Contains(text, "WARNING") || strings.Contains(text, "MISSING")
}
