package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyParagraph(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantSection string
		wantText    string
	}{
		{
			"findings marker stripped",
			"Findings: the liver is normal",
			SectionFindings,
			"The liver is normal",
		},
		{
			"clinical history marker stripped",
			"Clinical history: knee pain for 3 weeks",
			SectionClinicalHistory,
			"Knee pain for 3 weeks",
		},
		{
			"technique marker",
			"Technique: post-contrast axial scans",
			SectionProcedure,
			"Post-contrast axial scans",
		},
		{
			"impression marker",
			"Impression: no evidence of malignancy",
			SectionConclusion,
			"No evidence of malignancy",
		},
		{
			"findings opener",
			"There is a small pleural effusion",
			SectionFindings,
			"There is a small pleural effusion",
		},
		{
			"conclusion opener",
			"No significant abnormality detected",
			SectionConclusion,
			"No significant abnormality detected",
		},
		{
			"procedure opener",
			"Under ultrasound guidance and aseptic technique the joint was injected",
			SectionProcedure,
			"Under ultrasound guidance and aseptic technique the joint was injected",
		},
		{
			"keyword scoring picks history",
			"Chronic pain following injury and trauma",
			SectionClinicalHistory,
			"Chronic pain following injury and trauma",
		},
		{
			"spine level subheading stays unclassified",
			"L4/5: mild disc bulge",
			"",
			"L4/5: mild disc bulge",
		},
		{
			"uncertain paragraph",
			"The patient returned for review today",
			"",
			"The patient returned for review today",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section, cleaned := classifyParagraph(tt.in)
			assert.Equal(t, tt.wantSection, section)
			assert.Equal(t, tt.wantText, cleaned)
		})
	}
}

func TestInlineSectionBreaks(t *testing.T) {
	in := "Injection performed without complication. The findings are there is a moderate effusion."
	out := applyRules(in, inlineSectionBreaks)
	assert.Equal(t, "Injection performed without complication.\n\nthere is a moderate effusion.", out)
}
