package worker

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdit/radscribe/internal/audio"
	"github.com/crowdit/radscribe/internal/config"
	"github.com/crowdit/radscribe/internal/format"
	"github.com/crowdit/radscribe/internal/models"
	"github.com/crowdit/radscribe/internal/source"
	"github.com/crowdit/radscribe/internal/store"
	"github.com/crowdit/radscribe/internal/transcribe"
)

type fakeAdapter struct {
	kind    models.SourceKind
	records []models.SourceRecord
	audio   map[int64][]byte
}

func (f *fakeAdapter) Kind() models.SourceKind { return f.kind }

func (f *fakeAdapter) FetchNewRecords(_ context.Context, _ models.SourceConfig, afterID int64, limit int) ([]models.SourceRecord, error) {
	var out []models.SourceRecord
	for _, rec := range f.records {
		if rec.RecordID <= afterID {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAdapter) FetchAudio(_ context.Context, _ models.SourceConfig, item *models.WorkItem) ([]byte, error) {
	return f.audio[item.ExtentKey], nil
}

func (f *fakeAdapter) CheckConnectivity(context.Context, models.SourceConfig) (map[string]int64, error) {
	return map[string]int64{}, nil
}

type fakeTranscriber struct {
	result          *transcribe.Result
	err             error
	calls           int
	lastContentType string
	lastKeyterms    []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, contentType string, keyterms []string) (*transcribe.Result, error) {
	f.calls++
	f.lastContentType = contentType
	f.lastKeyterms = keyterms
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestService(adapter source.Adapter, tr transcribe.Transcriber) (*Service, *store.Memory) {
	st := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	formatter := format.NewFormatter(format.NewCache(st, logger), logger)
	svc := New(config.Config{}, st, source.NewRegistryWith(adapter), audio.NewResolver(logger), tr, formatter, logger)
	return svc, st
}

func gzipWAV(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(append([]byte("RIFF"), []byte("\x24\x00\x00\x00WAVEfmt audio")...))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func blobSource(id string) models.SourceConfig {
	return models.SourceConfig{
		ID:        id,
		Kind:      models.KindKarisma,
		Enabled:   true,
		AudioMode: models.AudioBlob,
		BatchSize: 10,
	}
}

func TestDiscoverIsIdempotent(t *testing.T) {
	adapter := &fakeAdapter{
		kind: models.KindKarisma,
		records: []models.SourceRecord{
			{RecordID: 101, ExtentKey: 1},
			{RecordID: 102, ExtentKey: 2},
		},
	}
	svc, st := newTestService(adapter, &fakeTranscriber{})
	ctx := context.Background()
	src := blobSource("k1")

	created, err := svc.discover(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	wm, err := st.Watermark(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(102), wm.LastSeenID)

	created, err = svc.discover(ctx, src)
	require.NoError(t, err)
	assert.Zero(t, created, "second discovery run creates nothing")

	wm, err = st.Watermark(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(102), wm.LastSeenID)

	counts, err := st.CountByStatus(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.StatusPending])
}

func TestProcessBlobItemToComplete(t *testing.T) {
	adapter := &fakeAdapter{
		kind: models.KindKarisma,
		records: []models.SourceRecord{{
			RecordID:          101,
			ExtentKey:         7,
			ModalityCode:      "US",
			PatientGivenNames: "Mary Jane",
			PatientFamilyName: "Smith",
			DoctorFamilyName:  "Nguyen",
		}},
		audio: map[int64][]byte{7: gzipWAV(t)},
	}
	tr := &fakeTranscriber{result: &transcribe.Result{
		Text:       "the findings are there is mild fusion at the joint",
		Confidence: 0.91,
		RequestID:  "req-7",
	}}
	svc, st := newTestService(adapter, tr)
	ctx := context.Background()
	src := blobSource("k1")

	_, err := svc.discover(ctx, src)
	require.NoError(t, err)
	processed, err := svc.processPending(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	item, err := st.Get(ctx, "k1", 101)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, item.Status)
	assert.Equal(t, "the findings are there is mild fusion at the joint", item.TranscriptText)
	assert.Equal(t, "FINDINGS\n\nThere is mild effusion at the joint", item.FormattedText)
	assert.InDelta(t, 0.91, item.Confidence, 1e-9)
	assert.Equal(t, "req-7", item.RequestID)
	require.NotNil(t, item.StartedAt)
	require.NotNil(t, item.CompletedAt)
	assert.Empty(t, item.ErrorMessage)

	assert.Equal(t, audio.ContentTypeWAV, tr.lastContentType, "gzip blob resolves to WAV")
	assert.Contains(t, tr.lastKeyterms, "Smith")
	assert.Contains(t, tr.lastKeyterms, "Nguyen")
	assert.Contains(t, tr.lastKeyterms, "Mary")

	snap := svc.Metrics()
	require.NotNil(t, snap.Transcription)
	assert.Equal(t, int64(1), snap.Transcription.Count)
	require.NotNil(t, snap.Formatting)
	assert.Equal(t, int64(1), snap.Formatting.Count)
}

func TestMissingAudioFileIsSkipped(t *testing.T) {
	adapter := &fakeAdapter{
		kind: models.KindVisage,
		records: []models.SourceRecord{{
			RecordID:     5,
			Basename:     "dict5",
			RelativePath: "2025/01",
		}},
	}
	tr := &fakeTranscriber{}
	svc, st := newTestService(adapter, tr)
	ctx := context.Background()
	src := models.SourceConfig{
		ID:             "v1",
		Kind:           models.KindVisage,
		Enabled:        true,
		AudioMode:      models.AudioFile,
		AudioMountPath: t.TempDir(),
		BatchSize:      10,
	}

	_, err := svc.discover(ctx, src)
	require.NoError(t, err)
	processed, err := svc.processPending(ctx, src)
	require.NoError(t, err)
	assert.Zero(t, processed)

	item, err := st.Get(ctx, "v1", 5)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, item.Status)
	assert.Contains(t, item.ErrorMessage, "audio file not found")
	assert.Zero(t, item.RetryCount, "skipped items do not consume retries")
	assert.Zero(t, tr.calls)
}

func TestMissingBlobIsSkipped(t *testing.T) {
	adapter := &fakeAdapter{
		kind:    models.KindKarisma,
		records: []models.SourceRecord{{RecordID: 9, ExtentKey: 42}},
	}
	svc, st := newTestService(adapter, &fakeTranscriber{})
	ctx := context.Background()
	src := blobSource("k1")

	_, err := svc.discover(ctx, src)
	require.NoError(t, err)
	_, err = svc.processPending(ctx, src)
	require.NoError(t, err)

	item, err := st.Get(ctx, "k1", 9)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, item.Status)
	assert.Contains(t, item.ErrorMessage, "extent 42")
}

func TestTranscriptionFailureThenReset(t *testing.T) {
	adapter := &fakeAdapter{
		kind:    models.KindKarisma,
		records: []models.SourceRecord{{RecordID: 3, ExtentKey: 1, ModalityCode: "US"}},
		audio:   map[int64][]byte{1: gzipWAV(t)},
	}
	tr := &fakeTranscriber{err: errors.New("deepgram unavailable")}
	svc, st := newTestService(adapter, tr)
	ctx := context.Background()
	src := blobSource("k1")

	_, err := svc.discover(ctx, src)
	require.NoError(t, err)
	processed, err := svc.processPending(ctx, src)
	require.NoError(t, err)
	assert.Zero(t, processed)

	item, err := st.Get(ctx, "k1", 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, item.Status)
	assert.Equal(t, "deepgram unavailable", item.ErrorMessage)
	assert.Equal(t, 1, item.RetryCount)

	// Operator reset makes the item eligible again; a healthy service
	// completes it.
	require.NoError(t, st.Reset(ctx, "k1", 3))
	tr.err = nil
	tr.result = &transcribe.Result{Text: "there is no pleural effusion", Confidence: 0.9}

	processed, err = svc.processPending(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	item, err = st.Get(ctx, "k1", 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, item.Status)
	assert.Empty(t, item.ErrorMessage)
}

func TestReformat(t *testing.T) {
	adapter := &fakeAdapter{
		kind:    models.KindKarisma,
		records: []models.SourceRecord{{RecordID: 11, ExtentKey: 1, ModalityCode: "US"}},
		audio:   map[int64][]byte{1: gzipWAV(t)},
	}
	tr := &fakeTranscriber{result: &transcribe.Result{
		Text:       "the findings are there is mild fusion at the joint",
		Confidence: 0.9,
	}}
	svc, st := newTestService(adapter, tr)
	ctx := context.Background()
	src := blobSource("k1")

	_, err := svc.discover(ctx, src)
	require.NoError(t, err)
	_, err = svc.processPending(ctx, src)
	require.NoError(t, err)

	// Simulate a stale formatted rendering from an older rule table.
	item, err := st.Get(ctx, "k1", 11)
	require.NoError(t, err)
	item.FormattedText = "stale"
	require.NoError(t, st.Update(ctx, item))

	updated, err := svc.Reformat(ctx, "k1", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	item, err = st.Get(ctx, "k1", 11)
	require.NoError(t, err)
	assert.Equal(t, "FINDINGS\n\nThere is mild effusion at the joint", item.FormattedText)

	updated, err = svc.Reformat(ctx, "k1", 100)
	require.NoError(t, err)
	assert.Zero(t, updated, "unchanged output is not rewritten")
}

func TestHelperBounds(t *testing.T) {
	long := make([]byte, maxErrorLength*2)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, truncateError(string(long)), maxErrorLength)
	assert.Equal(t, "short", truncateError("short"))

	sources := []models.SourceConfig{
		{PollIntervalSeconds: 60},
		{PollIntervalSeconds: 15},
	}
	assert.Equal(t, 15, minPollInterval(sources, 30))
	assert.Equal(t, 30, minPollInterval(nil, 30))
	assert.Equal(t, 30, minPollInterval(nil, 0), "floor applies when nothing is configured")
}
