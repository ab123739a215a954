// Package store persists security event records in a relational database through GORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/iyulab/cyber-defense/internal/event"
)

// DefaultLimit caps List and Recent when the caller passes a non-positive limit.
const DefaultLimit = 100

// ErrEmptyMarker is returned by marker operations called with an empty marker,
// which would otherwise match every record.
var ErrEmptyMarker = errors.New("marker must not be empty")

// severityOrder ranks canonical severities for ORDER BY; unrecognized values sort last.
const severityOrder = "CASE severity WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC"

// Store is the event store handle. It is safe for concurrent use; every call
// runs in its own GORM session bound to the caller's context.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Filter selects records for List.
type Filter struct {
	Since     time.Time // zero = no lower bound
	Severity  string    // exact match after normalization
	EventType string    // case-insensitive substring
	Limit     int
}

// EventTypeCount is one row of an event-type aggregate.
type EventTypeCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

// Open connects to the database named by dsn. DSNs starting with postgres:// or
// postgresql:// use the Postgres driver; anything else is a SQLite path or URI.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	if isPostgres(dsn) {
		db, err := gorm.Open(postgres.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	}

	db, err := gorm.Open(sqlite.Open(dsn), gcfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// SQLite allows a single writer; in-memory databases are also per-connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// New wraps an open GORM handle. A nil logger disables logging.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Migrate creates or updates the security_logs table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&event.Record{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Insert stores a record and sets its ID. The record is normalized first.
func (s *Store) Insert(ctx context.Context, r *event.Record) error {
	r.ID = 0
	r.Normalize(time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(r).Error
	})
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// InsertBatch stores all records in one transaction; on failure nothing is written.
func (s *Store) InsertBatch(ctx context.Context, records []event.Record) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now()
	for i := range records {
		records[i].ID = 0
		records[i].Normalize(now)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("insert batch of %d: %w", len(records), err)
	}
	return nil
}

// List returns records matching f, ordered by severity (critical first) then most recent.
func (s *Store) List(ctx context.Context, f Filter) ([]event.Record, error) {
	q := s.db.WithContext(ctx).Model(&event.Record{})
	if !f.Since.IsZero() {
		q = q.Where("timestamp >= ?", f.Since.UTC())
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", event.NormalizeSeverity(f.Severity))
	}
	if f.EventType != "" {
		q = q.Where("LOWER(event_type) LIKE ?", "%"+strings.ToLower(f.EventType)+"%")
	}

	var records []event.Record
	err := q.Order(severityOrder).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limitOrDefault(f.Limit)).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Recent returns the most recent records at or after since (zero = unbounded).
func (s *Store) Recent(ctx context.Context, since time.Time, limit int) ([]event.Record, error) {
	q := s.db.WithContext(ctx).Model(&event.Record{})
	if !since.IsZero() {
		q = q.Where("timestamp >= ?", since.UTC())
	}
	var records []event.Record
	err := q.Order("timestamp DESC").Order("id DESC").Limit(limitOrDefault(limit)).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("recent records: %w", err)
	}
	return records, nil
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&event.Record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// SeverityCounts returns per-level counts for records at or after since.
// All four canonical levels are present in the result, zero when absent.
func (s *Store) SeverityCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Severity string
		Count    int64
	}
	q := s.db.WithContext(ctx).Model(&event.Record{}).Select("severity, COUNT(*) AS count")
	if !since.IsZero() {
		q = q.Where("timestamp >= ?", since.UTC())
	}
	if err := q.Group("severity").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("severity counts: %w", err)
	}

	counts := make(map[string]int64, len(event.Severities))
	for _, sev := range event.Severities {
		counts[sev] = 0
	}
	for _, r := range rows {
		if event.ValidSeverities[r.Severity] {
			counts[r.Severity] = r.Count
		}
	}
	return counts, nil
}

// TopEventTypes returns up to limit event types by descending count for records at or after since.
func (s *Store) TopEventTypes(ctx context.Context, since time.Time, limit int) ([]EventTypeCount, error) {
	q := s.db.WithContext(ctx).Model(&event.Record{}).Select("event_type, COUNT(*) AS count")
	if !since.IsZero() {
		q = q.Where("timestamp >= ?", since.UTC())
	}
	var rows []EventTypeCount
	err := q.Group("event_type").
		Order("count DESC").
		Order("event_type ASC").
		Limit(limitOrDefault(limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top event types: %w", err)
	}
	return rows, nil
}

// CountByMarker counts records whose message contains marker.
func (s *Store) CountByMarker(ctx context.Context, marker string) (int64, error) {
	if marker == "" {
		return 0, ErrEmptyMarker
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&event.Record{}).
		Where("message LIKE ?", "%"+marker+"%").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count by marker: %w", err)
	}
	return n, nil
}

// DeleteByMarker removes records whose message contains marker and returns how many were deleted.
func (s *Store) DeleteByMarker(ctx context.Context, marker string) (int64, error) {
	if marker == "" {
		return 0, ErrEmptyMarker
	}
	res := s.db.WithContext(ctx).
		Where("message LIKE ?", "%"+marker+"%").
		Delete(&event.Record{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete by marker: %w", res.Error)
	}
	s.logger.Info("deleted records by marker",
		zap.String("marker", marker),
		zap.Int64("deleted", res.RowsAffected),
	)
	return res.RowsAffected, nil
}

// ReplaceByMarker deletes records whose message contains marker and inserts
// records in the same transaction.
func (s *Store) ReplaceByMarker(ctx context.Context, marker string, records []event.Record) error {
	if marker == "" {
		return ErrEmptyMarker
	}
	now := time.Now()
	for i := range records {
		records[i].ID = 0
		records[i].Normalize(now)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message LIKE ?", "%"+marker+"%").Delete(&event.Record{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("replace by marker: %w", err)
	}
	return nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
