package assessment

import (
	"fmt"
	"sort"
	"strings"

	commonErrors "taxassist-workers/internal/common/errors"
	"taxassist-workers/internal/models"
)

// mandatoryPersonalFields is the ordered list reported back to the caller
// when entries are absent.
var mandatoryPersonalFields = []string{
	models.FieldFilerName,
	models.FieldFilerSSN,
	models.FieldHomeAddress,
	models.FieldDigitalAssets,
	models.FieldOccupation,
}

// ResolveMandatoryFields fills personal info opportunistically from the
// session's documents and checks every mandatory field. User-supplied values
// always win: a field already present on the state is never overwritten by
// document data.
//
// The missing-field list is appended to state.MissingFields in report order.
// A resolved tax year outside the supported year returns the unsupported-year
// error, which is permanent for the session.
func ResolveMandatoryFields(state *models.AssessmentState, docs []models.ParsedDocument, supportedYear string) error {
	var extractedName, extractedTaxID string
	extractedYears := make(map[string]struct{})

	for _, doc := range docs {
		if extractedName == "" {
			extractedName = doc.Name()
		}
		if extractedTaxID == "" {
			extractedTaxID = doc.TaxID()
		}
		if year := doc.TaxYear(); year != "" {
			extractedYears[year] = struct{}{}
		}
	}

	if extractedName != "" && state.PersonalInfo[models.FieldFilerName] == "" {
		state.PersonalInfo[models.FieldFilerName] = extractedName
	}
	if extractedTaxID != "" && state.PersonalInfo[models.FieldFilerSSN] == "" {
		state.PersonalInfo[models.FieldFilerSSN] = extractedTaxID
	}

	yearAmbiguous := false
	switch {
	case len(extractedYears) > 1:
		years := make([]string, 0, len(extractedYears))
		for y := range extractedYears {
			years = append(years, y)
		}
		sort.Strings(years)
		state.AppendWarning(fmt.Sprintf(
			"Multiple tax years detected in documents: %s. Please specify which year to use.",
			strings.Join(years, ", ")))
		if state.TaxYear == "" {
			yearAmbiguous = true
		}
	case len(extractedYears) == 1:
		if state.TaxYear == "" {
			for y := range extractedYears {
				state.TaxYear = y
			}
		}
	}

	for _, field := range mandatoryPersonalFields {
		if state.PersonalInfo[field] == "" {
			state.MissingFields = append(state.MissingFields, field)
		}
	}

	if state.FilingStatus == "" {
		state.MissingFields = append(state.MissingFields, models.FieldFilingStatus)
	}

	switch {
	case state.TaxYear == "" || yearAmbiguous:
		state.MissingFields = append(state.MissingFields, models.FieldTaxYear)
	case state.TaxYear != supportedYear:
		return commonErrors.NewUnsupportedTaxYearError(state.TaxYear, supportedYear)
	}

	return nil
}
