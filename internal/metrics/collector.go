// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Failures  int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Payload metrics (only for transcription operations)
	TotalAudioBytes      int64
	TotalTranscriptChars int64
	MinAudioBytes        int64
	MaxAudioBytes        int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	Failures    int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	// Payload stats (nil if not applicable)
	TotalAudioBytes      *int64
	TotalTranscriptChars *int64
	AvgAudioBytes        *float64
	MinAudioBytes        *int64
	MaxAudioBytes        *int64
}

// Snapshot represents the full worker statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Discovery     *OperationSnapshot
	AudioResolve  *OperationSnapshot
	Transcription *OperationSnapshot
	Formatting    *OperationSnapshot
}

// Operation names for the collector.
const (
	OpDiscovery     = "discovery"
	OpAudioResolve  = "audio_resolve"
	OpTranscription = "transcription"
	OpFormatting    = "formatting"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime:       time.Duration(math.MaxInt64),
			MinAudioBytes: math.MaxInt64,
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordFailure counts a failed operation without timing it.
func (c *Collector) RecordFailure(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.getOrCreate(op).Failures++
}

// RecordTranscription records timing and payload sizes for a transcription
// call.
func (c *Collector) RecordTranscription(duration time.Duration, audioBytes, transcriptChars int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(OpTranscription)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalAudioBytes += audioBytes
	m.TotalTranscriptChars += transcriptChars

	if audioBytes < m.MinAudioBytes {
		m.MinAudioBytes = audioBytes
	}
	if audioBytes > m.MaxAudioBytes {
		m.MaxAudioBytes = audioBytes
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includePayload bool) *OperationSnapshot {
	if m == nil || (m.Count == 0 && m.Failures == 0) {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		Failures:    m.Failures,
		TotalTimeMs: m.TotalTime.Milliseconds(),
	}
	if m.Count > 0 {
		snap.AvgTimeMs = float64(m.TotalTime.Milliseconds()) / float64(m.Count)
		snap.MinTimeMs = m.MinTime.Milliseconds()
		snap.MaxTimeMs = m.MaxTime.Milliseconds()
	}

	if includePayload && m.TotalAudioBytes > 0 {
		totalBytes := m.TotalAudioBytes
		totalChars := m.TotalTranscriptChars
		avgBytes := float64(m.TotalAudioBytes) / float64(m.Count)
		minBytes := m.MinAudioBytes
		maxBytes := m.MaxAudioBytes

		// Reset sentinel values for display
		if minBytes == math.MaxInt64 {
			minBytes = 0
		}

		snap.TotalAudioBytes = &totalBytes
		snap.TotalTranscriptChars = &totalChars
		snap.AvgAudioBytes = &avgBytes
		snap.MinAudioBytes = &minBytes
		snap.MaxAudioBytes = &maxBytes
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Discovery:     snapshotOp(c.ops[OpDiscovery], false),
		AudioResolve:  snapshotOp(c.ops[OpAudioResolve], false),
		Transcription: snapshotOp(c.ops[OpTranscription], true),
		Formatting:    snapshotOp(c.ops[OpFormatting], false),
	}
}
