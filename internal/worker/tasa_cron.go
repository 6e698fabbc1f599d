package worker

// tasa_cron.go
// Background goroutine that periodically refreshes today's exchange rate.
// Uses the Circuit Breaker to avoid hammering a downed provider.

import (
	"context"
	"time"

	"minisuper/internal/dto"
	"minisuper/internal/infra"

	"github.com/rs/zerolog/log"
)

// Refrescador forces a rate fetch from the provider.
type Refrescador interface {
	Refrescar(ctx context.Context) (*dto.TasaResponse, error)
}

// TasaCronConfig holds all dependencies for the refresh goroutine.
type TasaCronConfig struct {
	Tasas    Refrescador
	CB       *infra.CircuitBreaker
	Interval time.Duration
}

// StartTasaCron launches a goroutine that refreshes the rate every Interval.
// It respects the context for graceful shutdown.
func StartTasaCron(ctx context.Context, cfg TasaCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("tasa_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("tasa_cron: shutting down")
				return
			case <-ticker.C:
				refrescarTasa(ctx, cfg)
			}
		}
	}()
}

func refrescarTasa(ctx context.Context, cfg TasaCronConfig) {
	// If CB is open, skip entirely
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("tasa_cron: circuit breaker is open, skipping tick")
		return
	}
	t, err := cfg.Tasas.Refrescar(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("tasa_cron: refresh failed")
		return
	}
	log.Info().Str("tasa_bcv", t.TasaBCV.String()).Str("fecha", t.Fecha).Msg("tasa_cron: rate refreshed")
}
