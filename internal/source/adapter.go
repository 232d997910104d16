// Package source contains the record-system adapters the pipeline discovers
// dictations from. The adapter set is closed: each SourceKind maps to exactly
// one implementation, registered at startup.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crowdit/radscribe/internal/models"
)

var ErrUnknownKind = errors.New("unknown source kind")

// Adapter is the per-record-system contract. Adapters hold no connection
// state between calls; each call opens, uses and closes its own connection so
// a flaky source database never pins resources across poll cycles.
type Adapter interface {
	Kind() models.SourceKind

	// FetchNewRecords returns up to limit rows with record id > afterID,
	// ordered ascending.
	FetchNewRecords(ctx context.Context, cfg models.SourceConfig, afterID int64, limit int) ([]models.SourceRecord, error)

	// FetchAudio returns the raw audio bytes for a blob-mode work item, or
	// (nil, nil) when the source has no blob for it. File-mode adapters
	// always return (nil, nil); their audio is resolved from the mount.
	FetchAudio(ctx context.Context, cfg models.SourceConfig, item *models.WorkItem) ([]byte, error)

	// CheckConnectivity verifies the source database is reachable and
	// returns table counts for diagnostics.
	CheckConnectivity(ctx context.Context, cfg models.SourceConfig) (map[string]int64, error)
}

// Registry dispatches source configs to their adapter. Built once at startup;
// adding a source kind means adding an Adapter implementation here.
type Registry struct {
	adapters map[models.SourceKind]Adapter
}

func NewRegistry(logger *slog.Logger) *Registry {
	r := &Registry{adapters: make(map[models.SourceKind]Adapter)}
	r.register(NewVisage(logger))
	r.register(NewKarisma(logger))
	return r
}

// NewRegistryWith builds a registry from explicit adapters. Tests use this to
// substitute fakes for the database-backed implementations.
func NewRegistryWith(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.SourceKind]Adapter)}
	for _, a := range adapters {
		r.register(a)
	}
	return r
}

func (r *Registry) register(a Adapter) {
	r.adapters[a.Kind()] = a
}

// For returns the adapter for a source kind.
func (r *Registry) For(kind models.SourceKind) (Adapter, error) {
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return a, nil
}

// Kinds lists the registered source kinds.
func (r *Registry) Kinds() []models.SourceKind {
	kinds := make([]models.SourceKind, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	return kinds
}
