package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"warships-rating/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// WatchlistRepository persists the per-channel rosters of tracked
// players.
type WatchlistRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewWatchlistRepository(db *sql.DB, logger zerolog.Logger) *WatchlistRepository {
	return &WatchlistRepository{db: db, logger: logger}
}

// Add tracks a player for a channel. Adding an already-tracked player is
// a no-op and returns the existing entry.
func (r *WatchlistRepository) Add(ctx context.Context, channel, region string, accountID int64) (*domain.TrackedPlayer, error) {
	existing, err := r.get(ctx, channel, region, accountID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check watchlist entry: %w", err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	entry := &domain.TrackedPlayer{
		ID:        id,
		Channel:   channel,
		Region:    region,
		AccountID: accountID,
		AddedAt:   time.Now(),
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO watchlist (id, channel, region, account_id, added_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Channel, entry.Region, entry.AccountID, entry.AddedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("channel", channel).Int64("account_id", accountID).Msg("failed to insert watchlist entry")
		return nil, fmt.Errorf("failed to insert watchlist entry: %w", err)
	}

	r.logger.Debug().Str("channel", channel).Str("region", region).Int64("account_id", accountID).Msg("watchlist entry added")
	return entry, nil
}

func (r *WatchlistRepository) get(ctx context.Context, channel, region string, accountID int64) (*domain.TrackedPlayer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, channel, region, account_id, added_at FROM watchlist WHERE channel = ? AND region = ? AND account_id = ?`,
		channel, region, accountID,
	)
	var entry domain.TrackedPlayer
	if err := row.Scan(&entry.ID, &entry.Channel, &entry.Region, &entry.AccountID, &entry.AddedAt); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns every player a channel tracks, oldest first.
func (r *WatchlistRepository) List(ctx context.Context, channel string) ([]domain.TrackedPlayer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, channel, region, account_id, added_at FROM watchlist WHERE channel = ? ORDER BY added_at ASC`,
		channel,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	var entries []domain.TrackedPlayer
	for rows.Next() {
		var entry domain.TrackedPlayer
		if err := rows.Scan(&entry.ID, &entry.Channel, &entry.Region, &entry.AccountID, &entry.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Remove stops tracking a player for a channel. Removing an untracked
// player reports domain.ErrNotFound.
func (r *WatchlistRepository) Remove(ctx context.Context, channel, region string, accountID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE channel = ? AND region = ? AND account_id = ?`,
		channel, region, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("watchlist entry %s/%s/%d: %w", channel, region, accountID, domain.ErrNotFound)
	}
	r.logger.Debug().Str("channel", channel).Str("region", region).Int64("account_id", accountID).Msg("watchlist entry removed")
	return nil
}
