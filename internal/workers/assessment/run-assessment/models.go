package runassessment

import (
	"taxassist-workers/internal/assessment"
)

// Input is the job-variable shape accepted from the workflow engine. Every
// field except the session id is optional so answers can arrive
// incrementally.
type Input struct {
	SessionID    string             `json:"sessionId"`
	FilingStatus string             `json:"filingStatus,omitempty"`
	TaxYear      string             `json:"taxYear,omitempty"`
	PersonalInfo map[string]string  `json:"personalInfo,omitempty"`
	UserInputs   map[string]float64 `json:"userInputs,omitempty"`
}

func (in *Input) toRunInput() *assessment.RunInput {
	return &assessment.RunInput{
		SessionID:    in.SessionID,
		FilingStatus: in.FilingStatus,
		TaxYear:      in.TaxYear,
		PersonalInfo: in.PersonalInfo,
		UserInputs:   in.UserInputs,
	}
}
