package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type sqlSlotRepo struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLSlotRepo stores slots in the kv_slots table (see db.Open).
// The queries run unchanged on sqlite and postgres.
func NewSQLSlotRepo(db *sql.DB, logger zerolog.Logger) SlotRepository {
	return &sqlSlotRepo{
		db:     db,
		logger: logger.With().Str("repository", "SQLSlotRepo").Logger(),
	}
}

func (r *sqlSlotRepo) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_slots WHERE slot_key = $1`
	var value string
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("reading slot %s: %w", key, err)
	}
	return []byte(value), nil
}

func (r *sqlSlotRepo) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_slots (slot_key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot_key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, string(value), time.Now().Unix()); err != nil {
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	r.logger.Debug().Str("slot_key", key).Int("bytes", len(value)).Msg("Slot written")
	return nil
}
