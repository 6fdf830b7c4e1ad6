package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"warships-rating/internal/config"
	"warships-rating/internal/constants"
	fxmodules "warships-rating/internal/fx"
	"warships-rating/internal/middleware"
	"warships-rating/internal/refdata"
	"warships-rating/internal/server"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runRefData),
		fx.Invoke(runServer),
	).Run()
}

func runRefData(lc fx.Lifecycle, store *refdata.Store) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return store.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			store.Stop()
			return nil
		},
	})
}

func runServer(
	lc fx.Lifecycle,
	ratingServer *server.RatingServer,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	mux := http.NewServeMux()
	ratingServer.Register(mux)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(c.Handler(mux))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
