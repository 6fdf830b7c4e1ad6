package service

import (
	"context"

	"warships-rating/internal/cache"
	"warships-rating/internal/constants"
	"warships-rating/internal/domain"

	"github.com/rs/zerolog"
)

// ClanService fronts the clan cache for the transport layer.
type ClanService struct {
	clans  *cache.ClanCache
	logger zerolog.Logger
}

func NewClanService(clans *cache.ClanCache, logger zerolog.Logger) *ClanService {
	return &ClanService{clans: clans, logger: logger}
}

func (s *ClanService) GetRating(ctx context.Context, region string, clanID int64, refresh bool) (*domain.ClanRating, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.logger.Info().Str("region", region).Int64("clan_id", clanID).Bool("refresh", refresh).Msg("getting clan rating")

	result, err := s.clans.GetRating(ctx, region, clanID, refresh)
	if err != nil {
		s.logger.Error().Err(err).Str("region", region).Int64("clan_id", clanID).Msg("failed to get clan rating")
		return nil, err
	}

	s.logger.Info().
		Str("region", region).
		Int64("clan_id", clanID).
		Float64("rating", result.Rating).
		Int("members", len(result.Members)).
		Bool("stale", result.Stale).
		Msg("clan rating served")
	return result, nil
}
