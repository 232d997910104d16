package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/crowdit/radscribe/internal/models"
)

// karismaDictationQuery walks from a dictation instance to its service,
// request, patient, worksite and practitioners. Audio is stored inline in
// System.Extent; instances without an extent are never transcribable.
const karismaDictationQuery = `
SELECT TOP (@limit)
    DI.TransactionKey,
    DI.ExtentKey,
    DI.ExtentOffset,
    DI.ExtentLength,
    DI.CreatedTime,
    PR.[Key], PR.Identifier, PR.Title, PR.FirstName, PR.Surname, PR.DateOfBirth,
    RR.[Key], RR.Identifier, RR.InternalIdentifier, RR.ClinicalNotes,
    RS.[Key], SD.[Name], SD.Code, SM.[Name],
    WS.[Key], WS.[Name], WS.Code,
    PRAC.FullName, PRAC.Code,
    REFPRAC.[Key], REFPRAC.FullName
FROM [Version].[Karisma.Dictation.Instance] DI
LEFT JOIN [Version].[Karisma.Dictation.Record] DR ON DI.RecordKey = DR.[Key]
LEFT JOIN [Version].[Karisma.Request.Service] RS ON DR.ServiceKey = RS.[Key]
LEFT JOIN [Version].[Karisma.Request.Record] RR ON RS.RequestKey = RR.[Key]
LEFT JOIN [Version].[Karisma.Patient.Record] PR ON RR.PatientKey = PR.[Key]
LEFT JOIN [Version].[Karisma.WorkSite.Record] WS ON RR.WorkSiteKey = WS.[Key]
LEFT JOIN [Version].[Karisma.Service.Definition] SD ON RS.PerformedServiceDefinitionKey = SD.[Key]
LEFT JOIN [Version].[Karisma.Service.Modality] SM ON SD.ServiceModalityKey = SM.[Key]
LEFT JOIN [Version].[Karisma.Practitioner.Record] PRAC ON DI.ActorKey = PRAC.[Key]
LEFT JOIN [Version].[Karisma.Practitioner.Assignment] PA ON RR.RequestingPractitionerAssignmentKey = PA.[Key]
LEFT JOIN [Version].[Karisma.Practitioner.Record] REFPRAC ON PA.PractitionerRecordKey = REFPRAC.[Key]
WHERE DI.TransactionKey > @after
  AND DI.ExtentKey IS NOT NULL
  AND DI.ExtentLength > 0
ORDER BY DI.TransactionKey ASC`

const karismaAudioBlobQuery = `SELECT Data FROM [System].[Extent] WHERE [Key] = @key`

// Karisma reads dictation metadata and inline audio blobs from a Karisma RIS
// MSSQL database.
type Karisma struct {
	logger *slog.Logger
}

func NewKarisma(logger *slog.Logger) *Karisma {
	return &Karisma{logger: logger}
}

func (k *Karisma) Kind() models.SourceKind { return models.KindKarisma }

func (k *Karisma) open(cfg models.SourceConfig) (*sql.DB, error) {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:   fmt.Sprintf("%s:%d", cfg.DBHost, cfg.DBPort),
		RawQuery: url.Values{
			"database":     {cfg.DBName},
			"dial timeout": {"30"},
		}.Encode(),
	}
	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("opening karisma source %s: %w", cfg.ID, err)
	}
	return db, nil
}

func (k *Karisma) FetchNewRecords(ctx context.Context, cfg models.SourceConfig, afterID int64, limit int) ([]models.SourceRecord, error) {
	db, err := k.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, karismaDictationQuery,
		sql.Named("limit", limit), sql.Named("after", afterID))
	if err != nil {
		return nil, fmt.Errorf("querying karisma dictations: %w", err)
	}
	defer rows.Close()

	var records []models.SourceRecord
	for rows.Next() {
		var (
			transactionKey             int64
			extentKey                  sql.NullInt64
			extentOffset, extentLength sql.NullInt64
			createdTime                sql.NullTime
			patientKey                 sql.NullInt64
			patientID, patientTitle    sql.NullString
			patientFirst, patientLast  sql.NullString
			patientDOB                 sql.NullTime
			requestKey                 sql.NullInt64
			accession, internalID      sql.NullString
			clinicalNotes              sql.NullString
			serviceKey                 sql.NullInt64
			serviceName, serviceCode   sql.NullString
			modalityName               sql.NullString
			workSiteKey                sql.NullInt64
			workSiteName, workSiteCode sql.NullString
			pracName, pracCode         sql.NullString
			refKey                     sql.NullInt64
			refName                    sql.NullString
		)
		if err := rows.Scan(
			&transactionKey, &extentKey, &extentOffset, &extentLength, &createdTime,
			&patientKey, &patientID, &patientTitle, &patientFirst, &patientLast, &patientDOB,
			&requestKey, &accession, &internalID, &clinicalNotes,
			&serviceKey, &serviceName, &serviceCode, &modalityName,
			&workSiteKey, &workSiteName, &workSiteCode,
			&pracName, &pracCode,
			&refKey, &refName,
		); err != nil {
			return nil, fmt.Errorf("scanning karisma dictation row: %w", err)
		}

		given, family := splitPractitionerName(pracName.String)

		rec := models.SourceRecord{
			RecordID:             transactionKey,
			ExtentKey:            extentKey.Int64,
			ExtentOffset:         int(extentOffset.Int64),
			ExtentLength:         int(extentLength.Int64),
			PatientID:            nullKeyString(patientKey),
			PatientUR:            patientID.String,
			PatientTitle:         patientTitle.String,
			PatientGivenNames:    patientFirst.String,
			PatientFamilyName:    patientLast.String,
			OrderID:              nullKeyString(requestKey),
			AccessionNumber:      accession.String,
			InternalIdentifier:   internalID.String,
			Complaint:            clinicalNotes.String,
			ProcedureID:          nullKeyString(serviceKey),
			ProcedureDescription: serviceName.String,
			ServiceCode:          serviceCode.String,
			ModalityCode:         ModalityNameToCode(modalityName.String),
			ModalityName:         modalityName.String,
			DoctorID:             pracCode.String,
			DoctorGivenNames:     given,
			DoctorFamilyName:     family,
			ReferrerID:           nullKeyString(refKey),
			ReferrerFamilyName:   refName.String,
			FacilityID:           nullKeyString(workSiteKey),
			FacilityName:         workSiteName.String,
			FacilityCode:         workSiteCode.String,
		}
		if patientDOB.Valid {
			rec.PatientDOB = patientDOB.Time.Format("2006-01-02")
		}
		if createdTime.Valid {
			t := createdTime.Time
			rec.DictationDate = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading karisma dictation rows: %w", err)
	}
	return records, nil
}

// FetchAudio loads the raw audio blob from System.Extent. Returns (nil, nil)
// when the extent row is missing or empty.
func (k *Karisma) FetchAudio(ctx context.Context, cfg models.SourceConfig, item *models.WorkItem) ([]byte, error) {
	if item.ExtentKey == 0 {
		return nil, nil
	}
	db, err := k.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var data []byte
	err = db.QueryRowContext(ctx, karismaAudioBlobQuery, sql.Named("key", item.ExtentKey)).Scan(&data)
	if err == sql.ErrNoRows {
		k.logger.Warn("no audio blob for extent", "source_id", cfg.ID, "extent_key", item.ExtentKey)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching audio blob for extent %d: %w", item.ExtentKey, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	k.logger.Debug("fetched audio blob", "extent_key", item.ExtentKey, "bytes", len(data))
	return data, nil
}

var karismaCountTables = []string{
	"[Version].[Karisma.Dictation.Instance]",
	"[Version].[Karisma.Patient.Record]",
	"[Version].[Karisma.Practitioner.Record]",
}

func (k *Karisma) CheckConnectivity(ctx context.Context, cfg models.SourceConfig) (map[string]int64, error) {
	db, err := k.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	counts := make(map[string]int64, len(karismaCountTables)+1)
	for _, table := range karismaCountTables {
		var n int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	var maxTK int64
	err = db.QueryRowContext(ctx,
		"SELECT ISNULL(MAX(TransactionKey), 0) FROM [Version].[Karisma.Dictation.Instance]").Scan(&maxTK)
	if err != nil {
		return nil, fmt.Errorf("reading max transaction key: %w", err)
	}
	counts["max_transaction_key"] = maxTK
	return counts, nil
}

// Karisma stores full modality names ("Ultrasound"); map them to the
// standard short codes so keyterm sets and heading defaults line up with
// Visage records.
var karismaModalityMap = []struct {
	name string
	code string
}{
	{"magnetic resonance", "MR"},
	{"nuclear medicine", "NM"},
	{"bone densitometry", "BMD"},
	{"ultrasound", "US"},
	{"radiograph", "CR"},
	{"mammography", "MG"},
	{"fluoroscopy", "DSA"},
	{"angiography", "DSA"},
	{"x-ray", "CR"},
	{"mammo", "MG"},
	{"dexa", "BMD"},
	{"mri", "MR"},
	{"ct", "CT"},
}

// ModalityNameToCode maps a Karisma modality name to a standard code,
// falling back to the uppercased name when it already looks like a code.
func ModalityNameToCode(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, m := range karismaModalityMap {
		if lower == m.name {
			return m.code
		}
	}
	for _, m := range karismaModalityMap {
		if strings.Contains(lower, m.name) {
			return m.code
		}
	}
	if len(name) <= 4 {
		return strings.ToUpper(name)
	}
	return name
}

func nullKeyString(n sql.NullInt64) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatInt(n.Int64, 10)
}

// splitPractitionerName splits a "First Middle Last" full name into given
// names and family name on the last space.
func splitPractitionerName(full string) (given, family string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	idx := strings.LastIndex(full, " ")
	if idx < 0 {
		return "", full
	}
	return full[:idx], full[idx+1:]
}
