package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"opcdiary/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeSQL  = "sql"
	SchemaModeAuto = "auto"
)

// SchemaStatus describes what ApplySchema would do.
type SchemaStatus struct {
	Mode              string
	AppliedVersions   []int
	PendingMigrations []Migration
}

// NormalizeSchemaMode lowercases mode and defaults it to SchemaModeSQL.
func NormalizeSchemaMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return SchemaModeSQL
	}
	return mode
}

// ApplySchema brings the schema up to date: versioned SQL migrations in sql
// mode, GORM AutoMigrate of PersistentModels in auto mode.
func ApplySchema(ctx context.Context, db *gorm.DB, mode string) error {
	switch mode = NormalizeSchemaMode(mode); mode {
	case SchemaModeSQL:
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	case SchemaModeAuto:
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", mode))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	default:
		return fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return nil
}

// GetSchemaStatus lists applied and pending migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, mode string) (*SchemaStatus, error) {
	status := &SchemaStatus{Mode: NormalizeSchemaMode(mode)}
	if status.Mode != SchemaModeSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	appliedSet := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedSet[version] = true
	}
	for _, m := range GetMigrations() {
		if !appliedSet[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}

	return status, nil
}
