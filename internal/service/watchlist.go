package service

import (
	"context"
	"sync"

	"warships-rating/internal/cache"
	"warships-rating/internal/constants"
	"warships-rating/internal/domain"
	"warships-rating/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// WatchlistService manages the per-channel rosters of tracked players and
// resolves their ratings in bulk through the player cache.
type WatchlistService struct {
	repo    *repository.WatchlistRepository
	players *cache.PlayerCache
	logger  zerolog.Logger
}

func NewWatchlistService(repo *repository.WatchlistRepository, players *cache.PlayerCache, logger zerolog.Logger) *WatchlistService {
	return &WatchlistService{repo: repo, players: players, logger: logger}
}

func (s *WatchlistService) Add(ctx context.Context, channel, region string, accountID int64) (*domain.TrackedPlayer, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	entry, err := s.repo.Add(ctx, channel, region, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("channel", channel).Int64("account_id", accountID).Msg("failed to add watchlist entry")
		return nil, err
	}
	return entry, nil
}

func (s *WatchlistService) Remove(ctx context.Context, channel, region string, accountID int64) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.repo.Remove(ctx, channel, region, accountID)
}

func (s *WatchlistService) List(ctx context.Context, channel string) ([]domain.TrackedPlayer, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.repo.List(ctx, channel)
}

// Ratings resolves the rating of every player a channel tracks. Players
// that cannot be resolved (hidden, vanished, upstream down with no cached
// copy) are skipped rather than failing the batch.
func (s *WatchlistService) Ratings(ctx context.Context, channel string) ([]*domain.PlayerRating, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	entries, err := s.repo.List(ctx, channel)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results []*domain.PlayerRating
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.ClanFetchConcurrency)
	for _, entry := range entries {
		g.Go(func() error {
			pr, err := s.players.GetRating(gCtx, entry.Region, entry.AccountID, false)
			if err != nil {
				s.logger.Warn().Err(err).Str("channel", channel).Int64("account_id", entry.AccountID).Msg("skipping tracked player")
				return nil
			}
			mu.Lock()
			results = append(results, pr)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info().Str("channel", channel).Int("tracked", len(entries)).Int("resolved", len(results)).Msg("watchlist ratings resolved")
	return results, nil
}
