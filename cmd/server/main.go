package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minisuper/internal/config"
	"minisuper/internal/infra"
	"minisuper/internal/repository"
	"minisuper/internal/router"
	"minisuper/internal/service"
	"minisuper/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	// Structured logger: dev pretty, prod JSON
	infra.ConfigureLogger(cfg.Env, cfg.LogLevel)

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if cfg.DBAutoMigrate {
		if err := infra.RunMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Exchange rate: one breaker shared by request-path lookups and the cron
	tasaCB := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{
		Name:             "pydolar",
		FailureThreshold: cfg.CBFailureThreshold,
		SuccessThreshold: 2,
		OpenTimeout:      time.Duration(cfg.CBOpenTimeoutSeconds) * time.Second,
	})
	pydolar := infra.NewPyDolarClient(cfg.PyDolarURL)
	tasaSvc := service.NewTasaService(repository.NewTasaRepository(db), rdb, pydolar, tasaCB, cfg)
	worker.StartTasaCron(ctx, worker.TasaCronConfig{
		Tasas:    tasaSvc,
		CB:       tasaCB,
		Interval: time.Duration(cfg.TasaRefreshMinutes) * time.Minute,
	})

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	pool := worker.NewPool(rdb, map[string]worker.Handler{
		worker.QueueReporteCierre: worker.NewReporteCierreWorker(
			repository.NewCajaRepository(db),
			repository.NewUsuarioRepository(db),
			dispatcher,
			worker.ReporteCierreConfig{
				StoragePath:  cfg.PDFStoragePath,
				Destinatario: cfg.ReporteCierreEmail,
				Empresa:      cfg.EmpresaNombre,
				RIF:          cfg.EmpresaRIF,
			},
		),
		worker.QueueEmail: worker.NewEmailWorker(mailer),
	})
	pool.Start(ctx, cfg.WorkerPoolSize)
	if !mailer.Configurado() {
		log.Warn().Msg("SMTP_HOST not set, cash-close reports will not be emailed")
	}

	r := router.New(cfg, db, rdb, tasaSvc, tasaCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("minisuper POS backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}
