package models

// Response kinds returned to the invocation surface. Exactly one of the
// three shapes is produced per run; the caller never sees a raw stage error.
const (
	ResponseWaiting  = "waiting"
	ResponseError    = "error"
	ResponseComplete = "complete"
)

// AssessmentResponse is the caller-facing projection of a finished
// invocation.
type AssessmentResponse struct {
	SessionID     string   `json:"sessionId"`
	Response      string   `json:"response"` // "waiting", "error" or "complete"
	Status        Status   `json:"status"`
	MissingFields []string `json:"missingFields,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`

	AggregatedData    *AggregatedData    `json:"aggregatedData,omitempty"`
	CalculationResult *CalculationResult `json:"calculationResult,omitempty"`
	AdvisoryText      string             `json:"advisoryText,omitempty"`
}

// ResponseFromState projects the persisted state into the response shape
// the transport layer returns to the user.
func ResponseFromState(state *AssessmentState) *AssessmentResponse {
	resp := &AssessmentResponse{
		SessionID: state.SessionID,
		Status:    state.Status,
		Warnings:  state.Warnings,
	}

	switch state.Status {
	case StatusWaitingForUser:
		resp.Response = ResponseWaiting
		resp.MissingFields = state.MissingFields
	case StatusError:
		resp.Response = ResponseError
	default:
		resp.Response = ResponseComplete
		resp.AggregatedData = state.AggregatedData
		resp.CalculationResult = state.CalculationResult
		resp.AdvisoryText = state.ValidationResult
	}

	return resp
}
