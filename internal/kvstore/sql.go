package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"opcdiary/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one stored key in the SQL backend.
type Entry struct {
	Namespace string    `gorm:"primaryKey;size:64"`
	Key       string    `gorm:"column:kv_key;primaryKey;size:512"`
	Value     string    `gorm:"column:kv_value;type:text;not null"`
	Size      int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (Entry) TableName() string {
	return "kv_entries"
}

// SQLStore keeps keys in the kv_entries table of a Postgres or SQLite
// database. Quota check and upsert run in one transaction.
type SQLStore struct {
	db        *gorm.DB
	namespace string
	quota     int64
	metrics   *observability.StoreMetrics
	tracer    *observability.TraceLayer
	system    string
}

// NewSQLStore wraps an open database. The kv_entries table must exist; see
// database.Migrate.
func NewSQLStore(db *gorm.DB, opts Options) *SQLStore {
	return &SQLStore{
		db:        db,
		namespace: opts.namespace(),
		quota:     opts.Quota,
		metrics:   observability.NewStoreMetrics("sql"),
		tracer:    observability.GetTraceLayer(),
		system:    db.Dialector.Name(),
	}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	defer s.metrics.Track("get")()
	ctx, span := s.tracer.TraceStoreOperation(ctx, s.system, "get", key)
	defer span.End()

	var entry Entry
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND kv_key = ?", s.namespace, key).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		s.metrics.Error("get")
		observability.RecordErrorInContext(ctx, err)
		return "", false, fmt.Errorf("sql get %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	defer s.metrics.Track("set")()
	ctx, span := s.tracer.TraceStoreOperation(ctx, s.system, "set", key)
	defer span.End()

	newSize := entrySize(key, value)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.quota > 0 {
			var used int64
			if err := tx.Model(&Entry{}).
				Where("namespace = ?", s.namespace).
				Select("COALESCE(SUM(size), 0)").
				Scan(&used).Error; err != nil {
				return err
			}
			var oldSize int64
			if err := tx.Model(&Entry{}).
				Where("namespace = ? AND kv_key = ?", s.namespace, key).
				Select("COALESCE(SUM(size), 0)").
				Scan(&oldSize).Error; err != nil {
				return err
			}
			if exceeds(s.quota, used, oldSize, newSize) {
				return ErrQuotaExceeded
			}
		}

		entry := Entry{
			Namespace: s.namespace,
			Key:       key,
			Value:     value,
			Size:      newSize,
			UpdatedAt: time.Now().UTC(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "kv_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"kv_value", "size", "updated_at"}),
		}).Create(&entry).Error
	})

	switch {
	case errors.Is(err, ErrQuotaExceeded):
		s.metrics.Quota()
		return err
	case err != nil:
		s.metrics.Error("set")
		observability.RecordErrorInContext(ctx, err)
		return fmt.Errorf("sql set %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	defer s.metrics.Track("remove")()
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND kv_key = ?", s.namespace, key).
		Delete(&Entry{}).Error
	if err != nil {
		s.metrics.Error("remove")
		return fmt.Errorf("sql remove %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	defer s.metrics.Track("keys")()
	q := s.db.WithContext(ctx).Model(&Entry{}).Where("namespace = ?", s.namespace)
	if prefix != "" {
		q = q.Where(`kv_key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	}
	var keys []string
	if err := q.Order("kv_key").Pluck("kv_key", &keys).Error; err != nil {
		s.metrics.Error("keys")
		return nil, fmt.Errorf("sql keys: %w", err)
	}
	return keys, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Usage reports the bytes currently counted against the quota.
func (s *SQLStore) Usage(ctx context.Context) (int64, int64, error) {
	var used int64
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Where("namespace = ?", s.namespace).
		Select("COALESCE(SUM(size), 0)").
		Scan(&used).Error
	return used, s.quota, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
