package models

import (
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// WordCorrection is one learned mis-transcription fix with its observed
// occurrence count. Corrections below two occurrences are ignored by the
// formatter's confidence gate.
type WordCorrection struct {
	Wrong string `json:"wrong"`
	Right string `json:"right"`
	Count int    `json:"count"`
}

// ModalityProfile is the learned structure for one doctor within one
// modality: how many historical reports were analysed, which section
// sequences they used, how often each section was present, and which word
// substitutions the learner observed.
type ModalityProfile struct {
	Count              int                `json:"count"`
	SectionStructure   map[string]int     `json:"section_structure,omitempty"`
	SectionPresencePct map[string]float64 `json:"section_presence_pct,omitempty"`
	WordCorrections    []WordCorrection   `json:"word_corrections,omitempty"`
}

// DoctorProfile is the per-author output of the external learning process.
// This pipeline only reads profiles; the learner owns writes.
type DoctorProfile struct {
	ID         surrealmodels.RecordID      `json:"id,omitempty"`
	DoctorID   string                      `json:"doctor_id"`
	Modalities map[string]*ModalityProfile `json:"modalities,omitempty"`
}

// Modality returns the profile data for a modality code, or nil.
func (p *DoctorProfile) Modality(code string) *ModalityProfile {
	if p == nil || p.Modalities == nil {
		return nil
	}
	return p.Modalities[code]
}
