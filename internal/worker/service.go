// Package worker runs the polling loop that discovers dictations from the
// configured sources and transcribes them.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/crowdit/radscribe/internal/audio"
	"github.com/crowdit/radscribe/internal/config"
	"github.com/crowdit/radscribe/internal/format"
	"github.com/crowdit/radscribe/internal/metrics"
	"github.com/crowdit/radscribe/internal/models"
	"github.com/crowdit/radscribe/internal/source"
	"github.com/crowdit/radscribe/internal/store"
	"github.com/crowdit/radscribe/internal/transcribe"
)

// Captured error messages are bounded so a misbehaving upstream cannot bloat
// the work-item table.
const maxErrorLength = 2000

// Service is the single-worker polling loop. Sources are processed
// sequentially within a cycle, work items sequentially within a batch; every
// network call blocks. Cancellation is cooperative through the context,
// checked between sources, between items and during the idle sleep.
type Service struct {
	cfg         config.Config
	store       store.Store
	registry    *source.Registry
	resolver    *audio.Resolver
	transcriber transcribe.Transcriber
	formatter   *format.Formatter
	metrics     *metrics.Collector
	logger      *slog.Logger

	// OnlySource restricts the loop to a single source id when non-empty.
	OnlySource string
}

func New(
	cfg config.Config,
	st store.Store,
	registry *source.Registry,
	resolver *audio.Resolver,
	transcriber transcribe.Transcriber,
	formatter *format.Formatter,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:         cfg,
		store:       st,
		registry:    registry,
		resolver:    resolver,
		transcriber: transcriber,
		formatter:   formatter,
		metrics:     metrics.NewCollector(),
		logger:      logger,
	}
}

// Metrics returns a snapshot of the runtime statistics collected so far.
func (s *Service) Metrics() metrics.Snapshot {
	return s.metrics.Snapshot()
}

// Run polls until the context is cancelled. Per-source failures are logged
// and never stop the other sources.
func (s *Service) Run(ctx context.Context) error {
	sources, err := s.enabledSources()
	if err != nil {
		return fmt.Errorf("loading source configs: %w", err)
	}
	if s.OnlySource != "" && len(sources) == 0 {
		return fmt.Errorf("source %q not found or not enabled", s.OnlySource)
	}
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.ID
	}
	s.logger.Info("transcription service starting", "sources", strings.Join(names, ", "))

	for ctx.Err() == nil {
		// Re-read source configs each cycle so edits apply without a restart.
		sources, err = s.enabledSources()
		if err != nil {
			s.logger.Error("reloading source configs", "error", err)
			sleepInterruptible(ctx, s.cfg.PollIntervalSeconds)
			continue
		}

		anyWork := false
		for _, src := range sources {
			if ctx.Err() != nil {
				break
			}
			discoverStart := time.Now()
			discovered, derr := s.discover(ctx, src)
			if derr != nil {
				s.metrics.RecordFailure(metrics.OpDiscovery)
				s.logger.Error("discovery failed", "source_id", src.ID, "error", derr)
			} else {
				s.metrics.RecordTiming(metrics.OpDiscovery, time.Since(discoverStart))
			}
			processed, perr := s.processPending(ctx, src)
			if perr != nil {
				s.logger.Error("processing failed", "source_id", src.ID, "error", perr)
			}
			if discovered > 0 || processed > 0 {
				anyWork = true
			}
		}

		if !anyWork && ctx.Err() == nil {
			interval := minPollInterval(sources, s.cfg.PollIntervalSeconds)
			s.logger.Debug("no work across all sources", "sleep_seconds", interval)
			sleepInterruptible(ctx, interval)
		}
	}

	s.logSummary()
	return nil
}

func (s *Service) logSummary() {
	snap := s.metrics.Snapshot()
	attrs := []any{"uptime_seconds", int(snap.UptimeSeconds)}
	if d := snap.Discovery; d != nil {
		attrs = append(attrs, "discovery_cycles", d.Count, "discovery_failures", d.Failures)
	}
	if tr := snap.Transcription; tr != nil {
		attrs = append(attrs,
			"transcriptions", tr.Count,
			"transcription_failures", tr.Failures,
			"avg_transcribe_ms", int(tr.AvgTimeMs))
	}
	s.logger.Info("transcription service stopped", attrs...)
}

func (s *Service) enabledSources() ([]models.SourceConfig, error) {
	sources, err := s.cfg.EnabledSources()
	if err != nil {
		return nil, err
	}
	if s.OnlySource == "" {
		return sources, nil
	}
	var filtered []models.SourceConfig
	for _, src := range sources {
		if src.ID == s.OnlySource {
			filtered = append(filtered, src)
		}
	}
	return filtered, nil
}

// discover pulls new rows past the source's watermark and records them as
// pending work items. Existing items are absorbed silently but still advance
// the watermark, so re-runs are idempotent.
func (s *Service) discover(ctx context.Context, src models.SourceConfig) (int, error) {
	adapter, err := s.registry.For(src.Kind)
	if err != nil {
		return 0, err
	}
	wm, err := s.store.Watermark(ctx, src.ID)
	if err != nil {
		return 0, err
	}

	rows, err := adapter.FetchNewRecords(ctx, src, wm.LastSeenID, src.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	created := 0
	maxID := wm.LastSeenID
	for _, rec := range rows {
		item := newWorkItem(src.ID, rec)
		ok, err := s.store.CreateIfAbsent(ctx, item)
		if err != nil {
			return created, fmt.Errorf("recording dictation %d: %w", rec.RecordID, err)
		}
		if ok {
			created++
		}
		if rec.RecordID > maxID {
			maxID = rec.RecordID
		}
	}

	if err := s.store.AdvanceWatermark(ctx, src.ID, maxID, time.Now().UTC()); err != nil {
		return created, fmt.Errorf("advancing watermark: %w", err)
	}
	if created > 0 {
		s.logger.Info("discovered new dictations",
			"source_id", src.ID, "count", created, "watermark", maxID)
	}
	return created, nil
}

// processPending works through the oldest pending items for a source. An
// unexpected error on one item is logged and the next item still runs.
func (s *Service) processPending(ctx context.Context, src models.SourceConfig) (int, error) {
	pending, err := s.store.ListPending(ctx, src.ID, src.BatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, item := range pending {
		if ctx.Err() != nil {
			break
		}
		ok, err := s.processItem(ctx, src, item)
		if err != nil {
			s.logger.Error("unexpected error processing dictation",
				"source_id", src.ID, "record_id", item.SourceRecordID, "error", err)
			continue
		}
		if ok {
			processed++
		}
	}
	return processed, nil
}

// processItem takes one pending item to a terminal state: skipped when audio
// cannot be resolved, failed when the transcription call errors, complete
// otherwise. A returned error means the item was left pending (transient
// infrastructure failure).
func (s *Service) processItem(ctx context.Context, src models.SourceConfig, item *models.WorkItem) (bool, error) {
	resolveStart := time.Now()
	res, skipReason, err := s.resolveAudio(ctx, src, item)
	if err != nil {
		s.metrics.RecordFailure(metrics.OpAudioResolve)
		return false, err
	}
	if res == nil {
		return false, s.markSkipped(ctx, src, item, skipReason)
	}
	s.metrics.RecordTiming(metrics.OpAudioResolve, time.Since(resolveStart))

	keyterms := buildKeyterms(item)

	now := time.Now().UTC()
	item.Status = models.StatusTranscribing
	item.StartedAt = &now
	if err := s.store.Update(ctx, item); err != nil {
		return false, err
	}

	transcribeStart := time.Now()
	result, err := s.transcriber.Transcribe(ctx, res.Data, res.ContentType, keyterms)
	if err != nil {
		s.metrics.RecordFailure(metrics.OpTranscription)
		return false, s.markFailed(ctx, src, item, err)
	}
	s.metrics.RecordTranscription(time.Since(transcribeStart), int64(len(res.Data)), int64(len(result.Text)))

	return true, s.storeResult(ctx, src, item, result)
}

// resolveAudio obtains the item's audio bytes. A nil result with a reason
// means the item should be skipped; an error means the source was unreachable
// and the item stays pending.
func (s *Service) resolveAudio(ctx context.Context, src models.SourceConfig, item *models.WorkItem) (*audio.Result, string, error) {
	if src.AudioMode == models.AudioBlob {
		if item.ExtentKey == 0 {
			return nil, "no extent key for audio blob", nil
		}
		adapter, err := s.registry.For(src.Kind)
		if err != nil {
			return nil, "", err
		}
		raw, err := adapter.FetchAudio(ctx, src, item)
		if err != nil {
			return nil, "", err
		}
		if raw == nil {
			return nil, fmt.Sprintf("audio blob not found for extent %d", item.ExtentKey), nil
		}
		res := s.resolver.ResolveBlob(raw, item.ExtentOffset, item.ExtentLength, item.SourceRecordID)
		if res == nil {
			return nil, "audio blob could not be decoded", nil
		}
		return res, "", nil
	}

	path, ok := s.resolver.ResolveFile(src.AudioMountPath, item.AudioRelativePath, item.AudioBasename)
	if !ok {
		return nil, fmt.Sprintf("audio file not found: %s/%s", item.AudioRelativePath, item.AudioBasename), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Sprintf("audio file unreadable: %v", err), nil
	}
	contentType := item.AudioMimeType
	if strings.HasSuffix(path, ".opus") {
		contentType = "audio/ogg"
	}
	if contentType == "" {
		contentType = audio.ContentTypeRaw
	}
	return &audio.Result{Data: data, ContentType: contentType}, "", nil
}

func (s *Service) markSkipped(ctx context.Context, src models.SourceConfig, item *models.WorkItem, reason string) error {
	item.Status = models.StatusSkipped
	item.ErrorMessage = truncateError(reason)
	if err := s.store.Update(ctx, item); err != nil {
		return err
	}
	s.logger.Warn("skipping dictation",
		"source_id", src.ID, "record_id", item.SourceRecordID, "reason", reason)
	return nil
}

func (s *Service) markFailed(ctx context.Context, src models.SourceConfig, item *models.WorkItem, cause error) error {
	now := time.Now().UTC()
	item.Status = models.StatusFailed
	item.ErrorMessage = truncateError(cause.Error())
	item.RetryCount++
	item.CompletedAt = &now
	if err := s.store.Update(ctx, item); err != nil {
		return err
	}
	s.logger.Error("transcription failed",
		"source_id", src.ID, "record_id", item.SourceRecordID, "error", cause)
	return nil
}

func (s *Service) storeResult(ctx context.Context, src models.SourceConfig, item *models.WorkItem, result *transcribe.Result) error {
	now := time.Now().UTC()
	item.Status = models.StatusComplete
	item.TranscriptText = result.Text
	formatStart := time.Now()
	item.FormattedText = s.formatter.Format(ctx, result.Text, format.Input{
		ModalityCode:         item.ModalityCode,
		ProcedureDescription: item.ProcedureDescription,
		ClinicalHistory:      item.Complaint,
		DoctorID:             item.DoctorID,
	})
	s.metrics.RecordTiming(metrics.OpFormatting, time.Since(formatStart))
	item.Confidence = result.Confidence
	item.RequestID = result.RequestID
	item.ProcessingMillis = result.ElapsedMillis
	item.WordsJSON = result.WordsJSON
	item.ParagraphsJSON = result.ParagraphsJSON
	item.CompletedAt = &now
	item.ErrorMessage = ""
	if err := s.store.Update(ctx, item); err != nil {
		return err
	}

	accession := item.AccessionNumber
	if accession == "" {
		accession = "no accession"
	}
	s.logger.Info("transcribed dictation",
		"source_id", src.ID,
		"record_id", item.SourceRecordID,
		"accession", accession,
		"confidence_pct", fmt.Sprintf("%.1f", result.Confidence*100),
		"elapsed_ms", result.ElapsedMillis)
	return nil
}

// Reformat re-runs the formatter over every complete item for a source
// without re-transcribing. Used after correction-table or profile updates.
func (s *Service) Reformat(ctx context.Context, sourceID string, limit int) (int, error) {
	items, err := s.store.ListByStatus(ctx, sourceID, models.StatusComplete, limit)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		if item.TranscriptText == "" {
			continue
		}
		formatted := s.formatter.Format(ctx, item.TranscriptText, format.Input{
			ModalityCode:         item.ModalityCode,
			ProcedureDescription: item.ProcedureDescription,
			ClinicalHistory:      item.Complaint,
			DoctorID:             item.DoctorID,
		})
		if formatted == item.FormattedText {
			continue
		}
		item.FormattedText = formatted
		if err := s.store.Update(ctx, item); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func newWorkItem(sourceID string, rec models.SourceRecord) *models.WorkItem {
	return &models.WorkItem{
		SourceID:             sourceID,
		SourceRecordID:       rec.RecordID,
		AudioBasename:        rec.Basename,
		AudioRelativePath:    rec.RelativePath,
		AudioMimeType:        rec.MimeType,
		AudioDurationMs:      rec.DurationMs,
		ExtentKey:            rec.ExtentKey,
		ExtentOffset:         rec.ExtentOffset,
		ExtentLength:         rec.ExtentLength,
		PatientID:            rec.PatientID,
		PatientUR:            rec.PatientUR,
		PatientTitle:         rec.PatientTitle,
		PatientGivenNames:    rec.PatientGivenNames,
		PatientFamilyName:    rec.PatientFamilyName,
		PatientDOB:           rec.PatientDOB,
		OrderID:              rec.OrderID,
		AccessionNumber:      rec.AccessionNumber,
		InternalIdentifier:   rec.InternalIdentifier,
		Complaint:            rec.Complaint,
		ProcedureID:          rec.ProcedureID,
		ProcedureDescription: rec.ProcedureDescription,
		ServiceCode:          rec.ServiceCode,
		ReasonForStudy:       rec.ReasonForStudy,
		ModalityCode:         rec.ModalityCode,
		ModalityName:         rec.ModalityName,
		BodyPart:             rec.BodyPart,
		DoctorID:             rec.DoctorID,
		DoctorTitle:          rec.DoctorTitle,
		DoctorGivenNames:     rec.DoctorGivenNames,
		DoctorFamilyName:     rec.DoctorFamilyName,
		ReferrerID:           rec.ReferrerID,
		ReferrerTitle:        rec.ReferrerTitle,
		ReferrerGivenNames:   rec.ReferrerGivenNames,
		ReferrerFamilyName:   rec.ReferrerFamilyName,
		FacilityID:           rec.FacilityID,
		FacilityName:         rec.FacilityName,
		FacilityCode:         rec.FacilityCode,
		Status:               models.StatusPending,
		DictationDate:        rec.DictationDate,
		DiscoveredAt:         time.Now().UTC(),
	}
}

func buildKeyterms(item *models.WorkItem) []string {
	var nameParts []string
	if item.PatientGivenNames != "" {
		nameParts = append(nameParts, strings.Fields(item.PatientGivenNames)...)
	}
	if item.PatientFamilyName != "" {
		nameParts = append(nameParts, item.PatientFamilyName)
	}
	return transcribe.BuildKeyterms(transcribe.KeytermInput{
		ModalityCode:         item.ModalityCode,
		PatientNameParts:     nameParts,
		DoctorName:           item.DoctorFamilyName,
		ReferrerName:         item.ReferrerFamilyName,
		ProcedureDescription: item.ProcedureDescription,
	})
}

func truncateError(msg string) string {
	if len(msg) > maxErrorLength {
		return msg[:maxErrorLength]
	}
	return msg
}

func minPollInterval(sources []models.SourceConfig, fallback int) int {
	interval := 0
	for _, src := range sources {
		if src.PollIntervalSeconds > 0 && (interval == 0 || src.PollIntervalSeconds < interval) {
			interval = src.PollIntervalSeconds
		}
	}
	if interval == 0 {
		interval = fallback
	}
	if interval <= 0 {
		interval = 30
	}
	return interval
}

// sleepInterruptible sleeps in one-second increments so shutdown latency is
// bounded regardless of the poll interval.
func sleepInterruptible(ctx context.Context, seconds int) {
	for i := 0; i < seconds; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
