package extraction

import (
	"encoding/json"
	"fmt"

	"taxassist-workers/internal/models"
)

// ParseRecords decodes raw extraction records into typed documents. Records
// with an unknown document type or undecodable payload are skipped, and a
// human-readable warning is returned for each so the assessment can surface
// them without aborting.
func ParseRecords(records []models.ExtractionRecord) ([]models.ParsedDocument, []string) {
	var docs []models.ParsedDocument
	var warnings []string

	for _, rec := range records {
		doc := models.ParsedDocument{
			DocumentID:   rec.DocumentID,
			DocumentType: rec.DocumentType,
		}

		var err error
		switch rec.DocumentType {
		case models.DocTypeW2:
			var w2 models.W2Data
			err = json.Unmarshal(rec.StructuredData, &w2)
			doc.W2 = &w2
		case models.DocType1099NEC:
			var nec models.NEC1099Data
			err = json.Unmarshal(rec.StructuredData, &nec)
			doc.NEC = &nec
		case models.DocType1099INT:
			var intData models.INT1099Data
			err = json.Unmarshal(rec.StructuredData, &intData)
			doc.INT = &intData
		default:
			warnings = append(warnings, fmt.Sprintf(
				"Document %s has unrecognized type %q and was not included in the assessment",
				rec.DocumentID, rec.DocumentType))
			continue
		}

		if err != nil {
			warnings = append(warnings, fmt.Sprintf(
				"Document %s (%s) could not be decoded and was not included in the assessment",
				rec.DocumentID, rec.DocumentType))
			continue
		}

		docs = append(docs, doc)
	}

	return docs, warnings
}
