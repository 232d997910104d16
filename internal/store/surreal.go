package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/crowdit/radscribe/internal/models"
)

func init() {
	// Force HTTP/1.1 for WSS connections to prevent HTTP/2 ALPN negotiation.
	// WebSocket upgrade requires HTTP/1.1 semantics which fail under HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Config holds SurrealDB connection configuration.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
}

// Surreal is the SurrealDB-backed Store with an auto-reconnecting WebSocket
// connection.
type Surreal struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	cfg    Config
	logger logger.Logger
}

var _ Store = (*Surreal)(nil)

// NewSurreal connects to SurrealDB and initializes the schema.
func NewSurreal(ctx context.Context, cfg Config, log *slog.Logger) (*Surreal, error) {
	var sdkLogger logger.Logger
	if log != nil {
		sdkLogger = logger.New(log.Handler())
	} else {
		sdkLogger = logger.New(slog.Default().Handler())
	}

	// surrealcbor handles SurrealDB's custom CBOR tags
	codec := surrealcbor.New()

	// gorillaws requires the base URL without the /rpc suffix (it adds /rpc internally)
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			ws := gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			})
			return ws, nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	if cfg.AuthLevel == "database" {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Namespace: cfg.Namespace,
			Database:  cfg.Database,
			Username:  cfg.Username,
			Password:  cfg.Password,
		})
	} else {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}

	s := &Surreal{conn: conn, db: db, cfg: cfg, logger: sdkLogger}
	if err := s.initSchema(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}

	sdkLogger.Info("SurrealDB connection established")
	return s, nil
}

func (s *Surreal) initSchema(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, SchemaSQL, nil); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close closes the SurrealDB connection.
func (s *Surreal) Close(ctx context.Context) error {
	s.logger.Info("closing SurrealDB connection")
	return s.conn.Close(ctx)
}

func (s *Surreal) CreateIfAbsent(ctx context.Context, item *models.WorkItem) (bool, error) {
	sql := `CREATE type::thing("work_item", [$source, $record]) CONTENT $item`
	_, err := surrealdb.Query[[]models.WorkItem](ctx, s.db, sql, map[string]any{
		"source": item.SourceID,
		"record": item.SourceRecordID,
		"item":   item,
	})
	if err != nil {
		err = wrapQueryError(err)
		if strings.Contains(err.Error(), "already exists") {
			return false, nil
		}
		return false, fmt.Errorf("create work item: %w", err)
	}
	return true, nil
}

func (s *Surreal) Get(ctx context.Context, sourceID string, recordID int64) (*models.WorkItem, error) {
	sql := `SELECT * FROM type::thing("work_item", [$source, $record])`
	results, err := surrealdb.Query[[]models.WorkItem](ctx, s.db, sql, map[string]any{
		"source": sourceID,
		"record": recordID,
	})
	if err != nil {
		return nil, fmt.Errorf("get work item: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

func (s *Surreal) ListPending(ctx context.Context, sourceID string, limit int) ([]*models.WorkItem, error) {
	return s.ListByStatus(ctx, sourceID, models.StatusPending, limit)
}

func (s *Surreal) ListByStatus(ctx context.Context, sourceID string, status models.Status, limit int) ([]*models.WorkItem, error) {
	sql := `
		SELECT * FROM work_item
		WHERE source_id = $source AND status = $status
		ORDER BY source_record_id ASC
		LIMIT $limit
	`
	results, err := surrealdb.Query[[]models.WorkItem](ctx, s.db, sql, map[string]any{
		"source": sourceID,
		"status": string(status),
		"limit":  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s items: %w", status, err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	items := make([]*models.WorkItem, 0, len((*results)[0].Result))
	for i := range (*results)[0].Result {
		items = append(items, &(*results)[0].Result[i])
	}
	return items, nil
}

func (s *Surreal) Update(ctx context.Context, item *models.WorkItem) error {
	sql := `UPDATE type::thing("work_item", [$source, $record]) CONTENT $item`
	results, err := surrealdb.Query[[]models.WorkItem](ctx, s.db, sql, map[string]any{
		"source": item.SourceID,
		"record": item.SourceRecordID,
		"item":   item,
	})
	if err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Surreal) CountByStatus(ctx context.Context, sourceID string) (map[models.Status]int, error) {
	type statusCount struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	sql := `
		SELECT status, count() AS count FROM work_item
		WHERE source_id = $source
		GROUP BY status
	`
	results, err := surrealdb.Query[[]statusCount](ctx, s.db, sql, map[string]any{
		"source": sourceID,
	})
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	counts := make(map[models.Status]int)
	if results != nil && len(*results) > 0 {
		for _, sc := range (*results)[0].Result {
			counts[models.Status(sc.Status)] = sc.Count
		}
	}
	return counts, nil
}

func (s *Surreal) Reset(ctx context.Context, sourceID string, recordID int64) error {
	item, err := s.Get(ctx, sourceID, recordID)
	if err != nil {
		return err
	}
	if item.Status != models.StatusFailed && item.Status != models.StatusSkipped {
		return fmt.Errorf("%w: status is %s", ErrNotResettable, item.Status)
	}
	sql := `
		UPDATE type::thing("work_item", [$source, $record]) SET
			status = "pending",
			error_message = NONE
	`
	if _, err := surrealdb.Query[any](ctx, s.db, sql, map[string]any{
		"source": sourceID,
		"record": recordID,
	}); err != nil {
		return fmt.Errorf("reset work item: %w", err)
	}
	return nil
}

func (s *Surreal) Watermark(ctx context.Context, sourceID string) (*models.Watermark, error) {
	sql := `
		UPSERT type::thing("watermark", $source) SET
			source_id = $source,
			last_seen_id = last_seen_id ?? 0
		RETURN AFTER
	`
	results, err := surrealdb.Query[[]models.Watermark](ctx, s.db, sql, map[string]any{
		"source": sourceID,
	})
	if err != nil {
		return nil, fmt.Errorf("get watermark: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get watermark: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

func (s *Surreal) AdvanceWatermark(ctx context.Context, sourceID string, lastSeen int64, polledAt time.Time) error {
	// math::max keeps the stored value when lastSeen is behind it
	sql := `
		UPSERT type::thing("watermark", $source) SET
			source_id = $source,
			last_seen_id = math::max([last_seen_id ?? 0, $last]),
			last_polled_at = $at
	`
	if _, err := surrealdb.Query[any](ctx, s.db, sql, map[string]any{
		"source": sourceID,
		"last":   lastSeen,
		"at":     polledAt,
	}); err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}

func (s *Surreal) DoctorProfile(ctx context.Context, doctorID string) (*models.DoctorProfile, error) {
	sql := `SELECT * FROM type::thing("doctor_profile", $id)`
	results, err := surrealdb.Query[[]models.DoctorProfile](ctx, s.db, sql, map[string]any{
		"id": doctorID,
	})
	if err != nil {
		return nil, fmt.Errorf("get doctor profile: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}
