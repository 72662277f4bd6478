package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanOutput(t *testing.T) {
	t.Run("Success_ChangeSummaryParsed", func(t *testing.T) {
		raw := `{"type":"version","@message":"0.1.0"}
{"type":"planned_change","@message":"vm_0: Plan to create"}
{"type":"change_summary","@message":"Plan: 2 to add, 1 to change, 0 to destroy.","changes":{"add":2,"change":1,"remove":0}}
`
		output := parsePlanOutput(raw, 0)

		assert.True(t, output.Success)
		assert.Equal(t, KindNone, output.Kind)
		assert.Equal(t, 2, output.ToAdd)
		assert.Equal(t, 1, output.ToChange)
		assert.Equal(t, 0, output.ToDestroy)
		assert.Empty(t, output.Errors)
		assert.Equal(t, raw, output.RawOutput)
	})

	t.Run("NonJSONLinesIgnored", func(t *testing.T) {
		raw := `Initializing...
some plain text
{"type":"change_summary","changes":{"add":1,"change":0,"remove":0}}
`
		output := parsePlanOutput(raw, 0)
		assert.True(t, output.Success)
		assert.Equal(t, 1, output.ToAdd)
	})

	t.Run("NonzeroExitIsValidationFailure", func(t *testing.T) {
		raw := `{"type":"diagnostic","diagnostic":{"severity":"error","summary":"Invalid resource type","detail":"unknown type zzz"}}
`
		output := parsePlanOutput(raw, 1)

		assert.False(t, output.Success)
		assert.Equal(t, KindValidation, output.Kind)
		require.Len(t, output.Errors, 1)
		assert.Equal(t, "Invalid resource type: unknown type zzz", output.Errors[0])
	})

	t.Run("NonzeroExitWithoutDiagnosticsStillFails", func(t *testing.T) {
		output := parsePlanOutput("boom\n", 2)
		assert.False(t, output.Success)
		assert.Equal(t, KindValidation, output.Kind)
		assert.NotEmpty(t, output.Errors)
	})

	t.Run("MissingSummaryOnZeroExitIsParseFailure", func(t *testing.T) {
		output := parsePlanOutput(`{"type":"version","@message":"0.1.0"}`+"\n", 0)

		assert.False(t, output.Success)
		assert.Equal(t, KindParse, output.Kind)
		assert.NotEmpty(t, output.Errors)
	})

	t.Run("WarningDiagnosticsNotCollected", func(t *testing.T) {
		raw := `{"type":"diagnostic","diagnostic":{"severity":"warning","summary":"deprecated attribute"}}
{"type":"change_summary","changes":{"add":0,"change":0,"remove":0}}
`
		output := parsePlanOutput(raw, 0)
		assert.True(t, output.Success)
		assert.Empty(t, output.Errors)
	})
}

func TestParsePlanOutput_Idempotent(t *testing.T) {
	// Two parses of identical tool output report identical change counts.
	raw := `{"type":"change_summary","changes":{"add":3,"change":2,"remove":1}}
`
	first := parsePlanOutput(raw, 0)
	second := parsePlanOutput(raw, 0)

	assert.Equal(t, first.ToAdd, second.ToAdd)
	assert.Equal(t, first.ToChange, second.ToChange)
	assert.Equal(t, first.ToDestroy, second.ToDestroy)
}
