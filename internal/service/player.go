package service

import (
	"context"

	"warships-rating/internal/cache"
	"warships-rating/internal/constants"
	"warships-rating/internal/domain"

	"github.com/rs/zerolog"
)

// PlayerService fronts the player cache for the transport layer.
type PlayerService struct {
	players *cache.PlayerCache
	logger  zerolog.Logger
}

func NewPlayerService(players *cache.PlayerCache, logger zerolog.Logger) *PlayerService {
	return &PlayerService{players: players, logger: logger}
}

func (s *PlayerService) GetRating(ctx context.Context, region string, accountID int64, refresh bool) (*domain.PlayerRating, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.logger.Info().Str("region", region).Int64("account_id", accountID).Bool("refresh", refresh).Msg("getting player rating")

	result, err := s.players.GetRating(ctx, region, accountID, refresh)
	if err != nil {
		s.logger.Error().Err(err).Str("region", region).Int64("account_id", accountID).Msg("failed to get player rating")
		return nil, err
	}

	s.logger.Info().
		Str("region", region).
		Int64("account_id", accountID).
		Float64("rating", result.Rating).
		Bool("stale", result.Stale).
		Msg("player rating served")
	return result, nil
}
