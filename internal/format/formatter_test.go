package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFullPipeline(t *testing.T) {
	f := NewFormatter(nil, discardLogger())
	ctx := context.Background()

	text := "Ultrasound of the right knee. There is a mild fusion at the knee joint. No fracture seen."
	out := f.Format(ctx, text, Input{
		ModalityCode:         "US",
		ProcedureDescription: "US Right Knee",
		ClinicalHistory:      "Knee pain",
	})

	want := "US RIGHT KNEE\n\n" +
		"CLINICAL HISTORY\n\n" +
		"Knee pain\n\n" +
		"FINDINGS\n\n" +
		"There is a mild effusion at the knee joint. No fracture seen."
	assert.Equal(t, want, out)
}

func TestFormatSpokenFindingsMarker(t *testing.T) {
	f := NewFormatter(nil, discardLogger())

	out := f.Format(context.Background(),
		"the findings are there is mild fusion at the joint",
		Input{ModalityCode: "US"})

	assert.Equal(t, "FINDINGS\n\nThere is mild effusion at the joint", out)
}

func TestFormatIdempotentOnCleanInput(t *testing.T) {
	f := NewFormatter(nil, discardLogger())
	ctx := context.Background()

	inputs := []Input{
		{ModalityCode: "US", ProcedureDescription: "US Right Knee", ClinicalHistory: "Knee pain"},
		{ModalityCode: "CR"},
	}
	texts := []string{
		"Ultrasound of the right knee. There is a mild fusion at the knee joint. No fracture seen.",
		"Clinical history: worsening shoulder pain.\n\nThere is no pleural effusion. No pneumothorax.\n\nNo significant abnormality.",
	}

	for i, text := range texts {
		first := f.Format(ctx, text, inputs[i])
		second := f.Format(ctx, first, inputs[i])
		assert.Equal(t, first, second, "formatting its own output must be a fixed point")
	}
}

func TestFormatNeverReturnsEmptyOnPlainText(t *testing.T) {
	f := NewFormatter(nil, discardLogger())

	out := f.Format(context.Background(), "study under review", Input{})
	assert.NotEmpty(t, out)
}
