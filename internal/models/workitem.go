// Package models defines data structures for the RadScribe transcription pipeline.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Status is the lifecycle state of a work item.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing" // may persist across a crash; single-worker design has no lease
	StatusComplete     Status = "complete"
	StatusFailed       Status = "failed"
	StatusSkipped      Status = "skipped"
)

// Terminal reports whether the status cannot change without an operator reset.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusSkipped
}

// WorkItem tracks one dictation's transcription lifecycle.
// Identity is (SourceID, SourceRecordID); metadata is a snapshot taken at
// discovery time and is never re-synced from the source.
type WorkItem struct {
	ID surrealmodels.RecordID `json:"id,omitempty"`

	SourceID       string `json:"source_id"`
	SourceRecordID int64  `json:"source_record_id"`

	// Audio reference: file mode
	AudioBasename     string `json:"audio_basename,omitempty"`
	AudioRelativePath string `json:"audio_relative_path,omitempty"`
	AudioMimeType     string `json:"audio_mime_type,omitempty"`
	AudioDurationMs   int    `json:"audio_duration_ms,omitempty"`

	// Audio reference: blob mode
	ExtentKey    int64 `json:"extent_key,omitempty"`
	ExtentOffset int   `json:"extent_offset,omitempty"`
	ExtentLength int   `json:"extent_length,omitempty"`

	// Patient
	PatientID         string `json:"patient_id,omitempty"`
	PatientUR         string `json:"patient_ur,omitempty"`
	PatientTitle      string `json:"patient_title,omitempty"`
	PatientGivenNames string `json:"patient_given_names,omitempty"`
	PatientFamilyName string `json:"patient_family_name,omitempty"`
	PatientDOB        string `json:"patient_dob,omitempty"`

	// Order / request
	OrderID            string `json:"order_id,omitempty"`
	AccessionNumber    string `json:"accession_number,omitempty"`
	InternalIdentifier string `json:"internal_identifier,omitempty"`
	Complaint          string `json:"complaint,omitempty"`

	// Procedure / service
	ProcedureID          string `json:"procedure_id,omitempty"`
	ProcedureDescription string `json:"procedure_description,omitempty"`
	ServiceCode          string `json:"service_code,omitempty"`
	ReasonForStudy       string `json:"reason_for_study,omitempty"`
	ModalityCode         string `json:"modality_code,omitempty"`
	ModalityName         string `json:"modality_name,omitempty"`
	BodyPart             string `json:"body_part,omitempty"`

	// Dictating doctor
	DoctorID         string `json:"doctor_id,omitempty"`
	DoctorTitle      string `json:"doctor_title,omitempty"`
	DoctorGivenNames string `json:"doctor_given_names,omitempty"`
	DoctorFamilyName string `json:"doctor_family_name,omitempty"`

	// Referrer
	ReferrerID         string `json:"referrer_id,omitempty"`
	ReferrerTitle      string `json:"referrer_title,omitempty"`
	ReferrerGivenNames string `json:"referrer_given_names,omitempty"`
	ReferrerFamilyName string `json:"referrer_family_name,omitempty"`

	// Facility
	FacilityID   string `json:"facility_id,omitempty"`
	FacilityName string `json:"facility_name,omitempty"`
	FacilityCode string `json:"facility_code,omitempty"`

	// Lifecycle
	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count"`

	// Results
	TranscriptText   string  `json:"transcript_text,omitempty"`
	FormattedText    string  `json:"formatted_text,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	RequestID        string  `json:"request_id,omitempty"`
	ProcessingMillis int     `json:"processing_ms,omitempty"`
	WordsJSON        string  `json:"words_json,omitempty"`
	ParagraphsJSON   string  `json:"paragraphs_json,omitempty"`

	// Timestamps
	DictationDate *time.Time `json:"dictation_date,omitempty"`
	DiscoveredAt  time.Time  `json:"discovered_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Watermark records the highest source record id already discovered for a
// source. It only ever moves forward.
type Watermark struct {
	ID           surrealmodels.RecordID `json:"id,omitempty"`
	SourceID     string                 `json:"source_id"`
	LastSeenID   int64                  `json:"last_seen_id"`
	LastPolledAt *time.Time             `json:"last_polled_at,omitempty"`
}
