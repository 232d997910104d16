package source

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crowdit/radscribe/internal/models"
)

// visageDictationQuery joins a dictation to its procedure, order, patient,
// referrer, facility and dictating doctor. Rows without a stored audio file
// or with zero duration are never transcribable and are filtered at the
// source.
const visageDictationQuery = `
SELECT d.id, d.basename, d.relative_path, d.mime_type, d.duration, d.dictation_date,
       doc.id, doc.title, doc.given_names, doc.family_name,
       pt.id, pt.record_number, pt.title, pt.given_names, pt.family_name, pt.birth_date,
       o.id, o.accession_number, o.complaint,
       p.id, p.description, p.reason_for_study,
       m.code, m.name,
       bp.name,
       f.id, f.name,
       ref.id, ref.title, ref.given_names, ref.family_name
FROM dictation d
JOIN dictation_procedure dp ON dp.dictation_id = d.id
JOIN procedure_ p ON p.id = dp.procedure_id
LEFT JOIN procedure_type pt2 ON pt2.id = p.procedure_type_id
LEFT JOIN modality m ON m.id = pt2.modality_id
LEFT JOIN body_part bp ON bp.id = pt2.body_part_id
LEFT JOIN order_ o ON o.id = p.order_id
LEFT JOIN patient pt ON pt.id = o.patient_id
LEFT JOIN referrer ref ON ref.id = o.referrer_id
LEFT JOIN facility f ON f.id = o.facility_id
LEFT JOIN doctor doc ON doc.id = d.doctor_id
WHERE d.id > $1 AND d.basename IS NOT NULL AND d.duration > 0
ORDER BY d.id ASC
LIMIT $2`

// Visage reads dictation metadata from a Visage RIS PostgreSQL database.
// Audio lives as files on an NFS mount, so FetchAudio is a no-op.
type Visage struct {
	logger *slog.Logger
}

func NewVisage(logger *slog.Logger) *Visage {
	return &Visage{logger: logger}
}

func (v *Visage) Kind() models.SourceKind { return models.KindVisage }

func (v *Visage) connect(ctx context.Context, cfg models.SourceConfig) (*pgx.Conn, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s default_transaction_read_only=on",
		cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPassword,
	)
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connecting to visage source %s: %w", cfg.ID, err)
	}
	return conn, nil
}

func (v *Visage) FetchNewRecords(ctx context.Context, cfg models.SourceConfig, afterID int64, limit int) ([]models.SourceRecord, error) {
	conn, err := v.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, visageDictationQuery, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying visage dictations: %w", err)
	}
	defer rows.Close()

	var records []models.SourceRecord
	for rows.Next() {
		var (
			dictationID                                  int64
			basename, relativePath, mimeType             *string
			duration                                     *int
			dictationDate                                *time.Time
			doctorID                                     *int64
			doctorTitle, doctorGiven, doctorFamily       *string
			patientID                                    *int64
			patientUR, patientTitle                      *string
			patientGiven, patientFamily                  *string
			patientDOB                                   *time.Time
			orderID                                      *int64
			accessionNumber, complaint                   *string
			procedureID                                  *int64
			procedureDescription, reasonForStudy         *string
			modalityCode, modalityName, bodyPart         *string
			facilityID                                   *int64
			facilityName                                 *string
			referrerID                                   *int64
			referrerTitle, referrerGiven, referrerFamily *string
		)
		if err := rows.Scan(
			&dictationID, &basename, &relativePath, &mimeType, &duration, &dictationDate,
			&doctorID, &doctorTitle, &doctorGiven, &doctorFamily,
			&patientID, &patientUR, &patientTitle, &patientGiven, &patientFamily, &patientDOB,
			&orderID, &accessionNumber, &complaint,
			&procedureID, &procedureDescription, &reasonForStudy,
			&modalityCode, &modalityName,
			&bodyPart,
			&facilityID, &facilityName,
			&referrerID, &referrerTitle, &referrerGiven, &referrerFamily,
		); err != nil {
			return nil, fmt.Errorf("scanning visage dictation row: %w", err)
		}

		rec := models.SourceRecord{
			RecordID:             dictationID,
			Basename:             deref(basename),
			RelativePath:         deref(relativePath),
			MimeType:             deref(mimeType),
			PatientID:            idString(patientID),
			PatientUR:            deref(patientUR),
			PatientTitle:         deref(patientTitle),
			PatientGivenNames:    deref(patientGiven),
			PatientFamilyName:    deref(patientFamily),
			OrderID:              idString(orderID),
			AccessionNumber:      deref(accessionNumber),
			Complaint:            deref(complaint),
			ProcedureID:          idString(procedureID),
			ProcedureDescription: deref(procedureDescription),
			ReasonForStudy:       deref(reasonForStudy),
			ModalityCode:         deref(modalityCode),
			ModalityName:         deref(modalityName),
			BodyPart:             deref(bodyPart),
			DoctorID:             idString(doctorID),
			DoctorTitle:          deref(doctorTitle),
			DoctorGivenNames:     deref(doctorGiven),
			DoctorFamilyName:     deref(doctorFamily),
			ReferrerID:           idString(referrerID),
			ReferrerTitle:        deref(referrerTitle),
			ReferrerGivenNames:   deref(referrerGiven),
			ReferrerFamilyName:   deref(referrerFamily),
			FacilityID:           idString(facilityID),
			FacilityName:         deref(facilityName),
			DictationDate:        dictationDate,
		}
		if duration != nil {
			rec.DurationMs = *duration
		}
		if patientDOB != nil {
			rec.PatientDOB = patientDOB.Format("2006-01-02")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading visage dictation rows: %w", err)
	}
	return records, nil
}

// FetchAudio is a no-op: Visage audio is resolved from the NFS mount.
func (v *Visage) FetchAudio(ctx context.Context, cfg models.SourceConfig, item *models.WorkItem) ([]byte, error) {
	return nil, nil
}

var visageCountTables = []string{"dictation", "dictation_procedure", "procedure_", "patient", "doctor"}

func (v *Visage) CheckConnectivity(ctx context.Context, cfg models.SourceConfig) (map[string]int64, error) {
	conn, err := v.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	counts := make(map[string]int64, len(visageCountTables))
	for _, table := range visageCountTables {
		var n int64
		if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func idString(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
