// Package kvstore holds the durable backends that answer ContextTool's
// context lookups. The reference deployment fronts a Postgres table keyed
// by (context_key, parameter set); PostgresBackend queries that table
// through gorm, the ORM the rest of the retrieved corpus standardizes on
// for relational access.
package kvstore

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"goa.design/fabric/contexttool"
)

// ContextRow is the row shape of the backing "context_entries" table: one
// row per (context_key, params_hash), with params_hash disambiguating rows
// that share a context_key but were populated for different parameter sets.
type ContextRow struct {
	ContextKey string `gorm:"column:context_key;primaryKey"`
	ParamsHash string `gorm:"column:params_hash;primaryKey"`
	Value      []byte `gorm:"column:value"`
	Metadata   string `gorm:"column:metadata"`
}

func (ContextRow) TableName() string { return "context_entries" }

// PostgresBackend implements contexttool.Backend against a Postgres
// database via gorm.
type PostgresBackend struct {
	db *gorm.DB
}

// Open connects to dsn and returns a PostgresBackend. Callers own migrating
// the "context_entries" table; Open does not run AutoMigrate so that
// deployments control schema changes explicitly.
func Open(dsn string) (*PostgresBackend, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("kvstore: open postgres: %w", err)
	}
	return &PostgresBackend{db: db}, nil
}

// Fetch looks up the row for (contextKey, ParamsHash(params)) and returns
// its stored value and metadata. It returns contexttool.ErrNotFound when no
// row matches, the same sentinel RequestContext checks for, so a genuine
// miss is distinguishable from a backend failure.
func (b *PostgresBackend) Fetch(ctx context.Context, contextKey string, params map[string]string) ([]byte, []string, error) {
	var row ContextRow
	err := b.db.WithContext(ctx).
		Where("context_key = ? AND params_hash = ?", contextKey, ParamsHash(params)).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, contexttool.ErrNotFound
		}
		return nil, nil, fmt.Errorf("kvstore: fetch %s: %w", contextKey, err)
	}

	var meta []string
	if row.Metadata != "" {
		meta = []string{row.Metadata}
	}
	return row.Value, meta, nil
}

// Put upserts a row, used by seed scripts and tests rather than by
// RequestContext itself, which is read-only against the backend.
func (b *PostgresBackend) Put(ctx context.Context, contextKey string, params map[string]string, value []byte, metadata string) error {
	row := ContextRow{ContextKey: contextKey, ParamsHash: ParamsHash(params), Value: value, Metadata: metadata}
	return b.db.WithContext(ctx).Save(&row).Error
}
