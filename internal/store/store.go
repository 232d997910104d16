// Package store persists transcription work items, per-source watermarks and
// learned doctor profiles.
package store

import (
	"context"
	"time"

	"github.com/crowdit/radscribe/internal/models"
)

// Store is the persistence contract for the pipeline. Exactly one worker
// mutates work items per deployment; implementations only need the storage
// layer's own transactional guarantees.
type Store interface {
	// CreateIfAbsent inserts a work item unless one already exists for
	// (SourceID, SourceRecordID). Returns true when a new item was created.
	CreateIfAbsent(ctx context.Context, item *models.WorkItem) (bool, error)

	// Get returns the work item for (sourceID, recordID) or ErrNotFound.
	Get(ctx context.Context, sourceID string, recordID int64) (*models.WorkItem, error)

	// ListPending returns up to limit pending items for a source, ordered by
	// source record id ascending (oldest first).
	ListPending(ctx context.Context, sourceID string, limit int) ([]*models.WorkItem, error)

	// ListByStatus returns up to limit items in the given status, ordered by
	// source record id ascending.
	ListByStatus(ctx context.Context, sourceID string, status models.Status, limit int) ([]*models.WorkItem, error)

	// Update persists lifecycle and result fields of an existing item.
	Update(ctx context.Context, item *models.WorkItem) error

	// CountByStatus returns item counts per status for a source.
	CountByStatus(ctx context.Context, sourceID string) (map[models.Status]int, error)

	// Reset moves a failed or skipped item back to pending. It is the only
	// path out of a terminal status and exists for operator use.
	Reset(ctx context.Context, sourceID string, recordID int64) error

	// Watermark returns the watermark for a source, creating it at zero on
	// first use.
	Watermark(ctx context.Context, sourceID string) (*models.Watermark, error)

	// AdvanceWatermark moves the watermark forward and stamps the poll time.
	// A lastSeen below the stored value leaves the stored value unchanged.
	AdvanceWatermark(ctx context.Context, sourceID string, lastSeen int64, polledAt time.Time) error

	// DoctorProfile returns the learned profile for a doctor, or ErrNotFound.
	// Profiles are written by the external learner; this is read-only.
	DoctorProfile(ctx context.Context, doctorID string) (*models.DoctorProfile, error)

	Close(ctx context.Context) error
}
