package transcribe

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKeytermsBaseAndModality(t *testing.T) {
	terms := BuildKeyterms(KeytermInput{ModalityCode: "US"})

	assert.Contains(t, terms, "radiology")
	assert.Contains(t, terms, "effusion")
	assert.Contains(t, terms, "echogenicity")
	assert.NotContains(t, terms, "Hounsfield units", "CT terms excluded for an US study")
}

func TestBuildKeytermsContext(t *testing.T) {
	terms := BuildKeyterms(KeytermInput{
		ModalityCode:         "CR",
		PatientNameParts:     []string{"Mary", "Jo", "Smith"},
		DoctorName:           "Nguyen",
		ReferrerName:         "Patel",
		ProcedureDescription: "XR Chest with mobile technique",
	})

	assert.Contains(t, terms, "Mary")
	assert.Contains(t, terms, "Smith")
	assert.NotContains(t, terms, "Jo", "short name parts are dropped")
	assert.Contains(t, terms, "Nguyen")
	assert.Contains(t, terms, "Patel")
	assert.Contains(t, terms, "Chest")
	assert.Contains(t, terms, "mobile")
	assert.NotContains(t, terms, "with", "procedure stopwords are dropped")
	assert.NotContains(t, terms, "XR", "short procedure tokens are dropped")
}

func TestBuildKeytermsDedupAndCap(t *testing.T) {
	var words []string
	for i := 0; i < 80; i++ {
		words = append(words, fmt.Sprintf("uniqueterm%02d", i))
	}
	terms := BuildKeyterms(KeytermInput{
		ModalityCode:         "US",
		PatientNameParts:     []string{"Effusion"}, // duplicates a base term
		ProcedureDescription: strings.Join(words, " "),
	})

	assert.Len(t, terms, maxKeyterms)

	seen := map[string]bool{}
	for _, term := range terms {
		key := strings.ToLower(term)
		assert.False(t, seen[key], "duplicate keyterm %q", term)
		seen[key] = true
	}
}
