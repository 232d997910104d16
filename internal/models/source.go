package models

import "time"

// SourceKind identifies which record-system adapter a source uses. The set is
// closed: adding a third kind means adding an adapter implementation, not a
// deeper branch.
type SourceKind string

const (
	KindVisage  SourceKind = "visage"  // PostgreSQL RIS, audio on an NFS mount
	KindKarisma SourceKind = "karisma" // MSSQL RIS, audio as SQL blobs
)

// AudioMode selects how a source's audio is obtained.
type AudioMode string

const (
	AudioFile AudioMode = "file" // path relative to a mount root
	AudioBlob AudioMode = "blob" // raw bytes plus optional extent slice
)

// SourceConfig describes one record system being polled. Configs are re-read
// every poll cycle so edits apply without a restart; within a cycle a config
// is treated as immutable.
type SourceConfig struct {
	ID      string     `yaml:"id"`
	Name    string     `yaml:"name"`
	Kind    SourceKind `yaml:"kind"`
	Enabled bool       `yaml:"enabled"`

	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBName     string `yaml:"db_name"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`

	AudioMode      AudioMode `yaml:"audio_mode"`
	AudioMountPath string    `yaml:"audio_mount_path,omitempty"`

	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	BatchSize           int `yaml:"batch_size"`
}

// SourceRecord is the metadata snapshot one adapter row carries. Adapters
// populate what their schema provides; absent fields stay zero.
type SourceRecord struct {
	RecordID int64

	// Audio reference (file mode)
	Basename     string
	RelativePath string
	MimeType     string
	DurationMs   int

	// Audio reference (blob mode)
	ExtentKey    int64
	ExtentOffset int
	ExtentLength int

	PatientID         string
	PatientUR         string
	PatientTitle      string
	PatientGivenNames string
	PatientFamilyName string
	PatientDOB        string

	OrderID            string
	AccessionNumber    string
	InternalIdentifier string
	Complaint          string

	ProcedureID          string
	ProcedureDescription string
	ServiceCode          string
	ReasonForStudy       string
	ModalityCode         string
	ModalityName         string
	BodyPart             string

	DoctorID         string
	DoctorTitle      string
	DoctorGivenNames string
	DoctorFamilyName string

	ReferrerID         string
	ReferrerTitle      string
	ReferrerGivenNames string
	ReferrerFamilyName string

	FacilityID   string
	FacilityName string
	FacilityCode string

	DictationDate *time.Time
}
