package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestRegistry(t *testing.T) *ActivityRegistry {
	t.Helper()
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	return reg
}

func TestLoadRegistry(t *testing.T) {
	reg := loadTestRegistry(t)

	assert.NotEmpty(t, reg.Version)
	require.Len(t, reg.Activities, 2)
}

func TestFindByTaskType(t *testing.T) {
	reg := loadTestRegistry(t)

	activity, ok := reg.FindByTaskType("run-assessment")
	require.True(t, ok)
	assert.Equal(t, "run-assessment", activity.ID)

	_, ok = reg.FindByTaskType("does-not-exist")
	assert.False(t, ok)
}

func TestValidateInput_RunAssessment(t *testing.T) {
	reg := loadTestRegistry(t)
	activity, ok := reg.FindByTaskType("run-assessment")
	require.True(t, ok)

	err := activity.ValidateInput(map[string]interface{}{
		"sessionId":    "sess-1",
		"filingStatus": "single",
		"taxYear":      "2024",
	})
	assert.NoError(t, err)

	err = activity.ValidateInput(map[string]interface{}{})
	assert.Error(t, err, "sessionId is required")

	err = activity.ValidateInput(map[string]interface{}{
		"sessionId":    "sess-1",
		"filingStatus": "divorced",
	})
	assert.Error(t, err, "filing status outside the closed set")

	err = activity.ValidateInput(map[string]interface{}{
		"sessionId": "sess-1",
		"taxYear":   "24",
	})
	assert.Error(t, err, "tax year must be a four digit string")
}

func TestValidateInput_NoSchemaAcceptsAnything(t *testing.T) {
	activity := Activity{ID: "free-form"}
	assert.NoError(t, activity.ValidateInput(map[string]interface{}{"anything": true}))
}
