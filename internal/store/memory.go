package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crowdit/radscribe/internal/models"
)

type itemKey struct {
	sourceID string
	recordID int64
}

// Memory is an in-process Store used by tests and --store memory dry runs.
// It enforces the same identity and watermark guarantees as the SurrealDB
// implementation.
type Memory struct {
	mu         sync.RWMutex
	items      map[itemKey]*models.WorkItem
	watermarks map[string]*models.Watermark
	profiles   map[string]*models.DoctorProfile
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		items:      make(map[itemKey]*models.WorkItem),
		watermarks: make(map[string]*models.Watermark),
		profiles:   make(map[string]*models.DoctorProfile),
	}
}

func (m *Memory) CreateIfAbsent(_ context.Context, item *models.WorkItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := itemKey{item.SourceID, item.SourceRecordID}
	if _, ok := m.items[key]; ok {
		return false, nil
	}
	cp := *item
	m.items[key] = &cp
	return true, nil
}

func (m *Memory) Get(_ context.Context, sourceID string, recordID int64) (*models.WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[itemKey{sourceID, recordID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *Memory) ListPending(ctx context.Context, sourceID string, limit int) ([]*models.WorkItem, error) {
	return m.ListByStatus(ctx, sourceID, models.StatusPending, limit)
}

func (m *Memory) ListByStatus(_ context.Context, sourceID string, status models.Status, limit int) ([]*models.WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []*models.WorkItem
	for _, item := range m.items {
		if item.SourceID == sourceID && item.Status == status {
			cp := *item
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].SourceRecordID < items[j].SourceRecordID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *Memory) Update(_ context.Context, item *models.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := itemKey{item.SourceID, item.SourceRecordID}
	if _, ok := m.items[key]; !ok {
		return ErrNotFound
	}
	cp := *item
	m.items[key] = &cp
	return nil
}

func (m *Memory) CountByStatus(_ context.Context, sourceID string) (map[models.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[models.Status]int)
	for _, item := range m.items {
		if item.SourceID == sourceID {
			counts[item.Status]++
		}
	}
	return counts, nil
}

func (m *Memory) Reset(_ context.Context, sourceID string, recordID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemKey{sourceID, recordID}]
	if !ok {
		return ErrNotFound
	}
	if item.Status != models.StatusFailed && item.Status != models.StatusSkipped {
		return fmt.Errorf("%w: status is %s", ErrNotResettable, item.Status)
	}
	item.Status = models.StatusPending
	item.ErrorMessage = ""
	return nil
}

func (m *Memory) Watermark(_ context.Context, sourceID string) (*models.Watermark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wm, ok := m.watermarks[sourceID]
	if !ok {
		wm = &models.Watermark{SourceID: sourceID}
		m.watermarks[sourceID] = wm
	}
	cp := *wm
	return &cp, nil
}

func (m *Memory) AdvanceWatermark(_ context.Context, sourceID string, lastSeen int64, polledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wm, ok := m.watermarks[sourceID]
	if !ok {
		wm = &models.Watermark{SourceID: sourceID}
		m.watermarks[sourceID] = wm
	}
	if lastSeen > wm.LastSeenID {
		wm.LastSeenID = lastSeen
	}
	at := polledAt
	wm.LastPolledAt = &at
	return nil
}

func (m *Memory) DoctorProfile(_ context.Context, doctorID string) (*models.DoctorProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[doctorID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// PutDoctorProfile seeds a profile; tests stand in for the external learner.
func (m *Memory) PutDoctorProfile(p *models.DoctorProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.DoctorID] = p
}

func (m *Memory) Close(context.Context) error {
	return nil
}
