package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/tag"
)

// AttributeRepository сохраняет float-атрибуты сущностей (таблица float_attributes).
// Сохраняется settled-состояние: регенерация уже применена к current_value.
type AttributeRepository struct {
	db *pgxpool.Pool
}

// NewAttributeRepository creates a new AttributeRepository.
func NewAttributeRepository(db *pgxpool.Pool) *AttributeRepository {
	return &AttributeRepository{db: db}
}

var floatColumns = []string{
	"entity_id", "tag", "name", "base_value", "current_value",
	"use_max_current", "max_current", "use_min_current", "min_current",
	"use_max_base", "max_base", "use_min_base", "min_base",
	"base_regen_rate", "current_regen_rate", "is_regenerating", "last_regen_timestamp",
}

// SaveFloatAttributes заменяет все атрибуты сущности одной транзакцией.
func (r *AttributeRepository) SaveFloatAttributes(ctx context.Context, entityID int64, attrs []attribute.FloatAttribute) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for entity %d: %w", entityID, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			slog.Error("rollback failed", "entityID", entityID, "error", err)
		}
	}()

	if err := r.SaveFloatAttributesTx(ctx, tx, entityID, attrs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit attributes for entity %d: %w", entityID, err)
	}
	return nil
}

// SaveFloatAttributesTx saves attributes within an existing transaction (full replace).
func (r *AttributeRepository) SaveFloatAttributesTx(ctx context.Context, tx pgx.Tx, entityID int64, attrs []attribute.FloatAttribute) error {
	if _, err := tx.Exec(ctx, `DELETE FROM float_attributes WHERE entity_id = $1`, entityID); err != nil {
		return fmt.Errorf("deleting old attributes for entity %d: %w", entityID, err)
	}

	if len(attrs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(attrs))
	for _, a := range attrs {
		l := a.Limits
		rows = append(rows, []any{
			entityID, a.Tag.String(), a.Name, a.BaseValue, a.CurrentValue,
			l.UseMaxCurrent, l.MaxCurrent, l.UseMinCurrent, l.MinCurrent,
			l.UseMaxBase, l.MaxBase, l.UseMinBase, l.MinBase,
			a.BaseRegenRate, a.CurrentRegenRate, a.IsRegenerating, a.LastRegenTimestamp,
		})
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"float_attributes"},
		floatColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("inserting attributes for entity %d: %w", entityID, err)
	}

	slog.Debug("saved float attributes",
		"entityID", entityID,
		"count", len(attrs))

	return nil
}

// LoadFloatAttributes загружает атрибуты сущности, отсортированные по тегу.
func (r *AttributeRepository) LoadFloatAttributes(ctx context.Context, entityID int64) ([]attribute.FloatAttribute, error) {
	query := `
		SELECT tag, name, base_value, current_value,
		       use_max_current, max_current, use_min_current, min_current,
		       use_max_base, max_base, use_min_base, min_base,
		       base_regen_rate, current_regen_rate, is_regenerating, last_regen_timestamp
		FROM float_attributes
		WHERE entity_id = $1
		ORDER BY tag
	`

	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("querying attributes for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	var attrs []attribute.FloatAttribute
	for rows.Next() {
		var (
			a    attribute.FloatAttribute
			path string
			l    = &a.Limits
		)
		if err := rows.Scan(
			&path, &a.Name, &a.BaseValue, &a.CurrentValue,
			&l.UseMaxCurrent, &l.MaxCurrent, &l.UseMinCurrent, &l.MinCurrent,
			&l.UseMaxBase, &l.MaxBase, &l.UseMinBase, &l.MinBase,
			&a.BaseRegenRate, &a.CurrentRegenRate, &a.IsRegenerating, &a.LastRegenTimestamp,
		); err != nil {
			return nil, fmt.Errorf("scanning attribute row: %w", err)
		}
		a.Tag = tag.New(path)
		attrs = append(attrs, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attribute rows: %w", err)
	}

	return attrs, nil
}

// DeleteEntity removes all stored attributes of an entity.
func (r *AttributeRepository) DeleteEntity(ctx context.Context, entityID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM float_attributes WHERE entity_id = $1`, entityID); err != nil {
		return fmt.Errorf("deleting attributes for entity %d: %w", entityID, err)
	}
	return nil
}
