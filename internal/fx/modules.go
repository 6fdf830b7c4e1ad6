package fx

import (
	"warships-rating/internal/api"
	"warships-rating/internal/cache"
	"warships-rating/internal/config"
	"warships-rating/internal/database"
	"warships-rating/internal/logger"
	"warships-rating/internal/refdata"
	"warships-rating/internal/repository"
	"warships-rating/internal/server"
	"warships-rating/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func provideStore(cfg *config.Config, client *api.Client, log zerolog.Logger) *refdata.Store {
	return refdata.NewStore(cfg, client, log)
}

func providePlayerCache(client *api.Client, store *refdata.Store, log zerolog.Logger) *cache.PlayerCache {
	return cache.NewPlayerCache(client, store, log)
}

func provideClanCache(client *api.Client, players *cache.PlayerCache, log zerolog.Logger) *cache.ClanCache {
	return cache.NewClanCache(client, players, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// upstream client + reference data
	fx.Provide(api.NewClient),
	fx.Provide(provideStore),
	// caches
	fx.Provide(providePlayerCache),
	fx.Provide(provideClanCache),
	// repos
	fx.Provide(repository.NewWatchlistRepository),
	// svc
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewClanService),
	fx.Provide(service.NewWatchlistService),
	// server
	fx.Provide(server.NewRatingServer),
)
