package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"minisuper/internal/apierror"
	"minisuper/internal/config"
	"minisuper/internal/dto"
	"minisuper/internal/infra"
	"minisuper/internal/metrics"
	"minisuper/internal/model"
	"minisuper/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const tasaCachePrefix = "tasa:bcv:"

// ProveedorTasa supplies the current USD→VES rate to the sale and cash flows.
type ProveedorTasa interface {
	TasaActual(ctx context.Context) (decimal.Decimal, error)
}

// FuenteTasa fetches the rate from the external provider.
type FuenteTasa interface {
	ObtenerTasa(ctx context.Context) (*infra.TasaExterna, error)
}

type TasaService interface {
	ProveedorTasa
	Actual(ctx context.Context) (*dto.TasaActualResponse, error)
	Refrescar(ctx context.Context) (*dto.TasaResponse, error)
	ActualizarManual(ctx context.Context, req dto.ActualizarTasaRequest) (*dto.TasaResponse, error)
	Historial(ctx context.Context, limit int) ([]dto.TasaResponse, error)
	Convertir(ctx context.Context, req dto.ConvertirRequest) (*dto.ConvertirResponse, error)
}

type tasaService struct {
	repo   repository.TasaRepository
	rdb    *redis.Client
	fuente FuenteTasa
	cb     *infra.CircuitBreaker
	loc    *time.Location
	ttl    time.Duration
	now    func() time.Time
}

func NewTasaService(repo repository.TasaRepository, rdb *redis.Client, fuente FuenteTasa, cb *infra.CircuitBreaker, cfg *config.Config) TasaService {
	if cb == nil {
		cb = infra.NewCircuitBreaker(infra.DefaultCBConfig())
	}
	ttl := cfg.TasaCacheTTL()
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &tasaService{
		repo:   repo,
		rdb:    rdb,
		fuente: fuente,
		cb:     cb,
		loc:    cfg.Location(),
		ttl:    ttl,
		now:    time.Now,
	}
}

// hoy is today's calendar date in the store timezone, as a UTC midnight
// suitable for the date column.
func (s *tasaService) hoy() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *tasaService) TasaActual(ctx context.Context) (decimal.Decimal, error) {
	t, err := s.resolver(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return t.TasaBCV, nil
}

// resolver looks the rate up in order: redis, today's row, provider, latest row.
func (s *tasaService) resolver(ctx context.Context) (*dto.TasaResponse, error) {
	fecha := s.hoy()

	if t, ok := s.leerCache(ctx, fecha); ok {
		metrics.TasaConsultas.WithLabelValues("cache").Inc()
		return t, nil
	}

	row, err := s.repo.FindByFecha(ctx, fecha)
	if err == nil {
		resp := tasaToResponse(row)
		s.escribirCache(ctx, fecha, resp)
		metrics.TasaConsultas.WithLabelValues("db").Inc()
		return resp, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		log.Warn().Err(err).Msg("tasa: lectura de la tasa del día falló")
	}

	resp, err := s.refrescar(ctx, fecha)
	if err == nil {
		metrics.TasaConsultas.WithLabelValues("pydolar").Inc()
		return resp, nil
	}
	log.Warn().Err(err).Msg("tasa: PyDolar no disponible, usando última tasa conocida")

	ultima, err := s.repo.FindUltima(ctx)
	if err != nil {
		metrics.TasaConsultas.WithLabelValues("error").Inc()
		return nil, apierror.NewRateUnavailable().WithErr(err)
	}
	metrics.TasaConsultas.WithLabelValues("fallback").Inc()
	log.Warn().Str("fecha", ultima.Fecha.Format(fechaISO)).Msg("tasa: usando tasa de un día anterior")
	return tasaToResponse(ultima), nil
}

// refrescar fetches through the circuit breaker, then stores and caches the result.
func (s *tasaService) refrescar(ctx context.Context, fecha time.Time) (*dto.TasaResponse, error) {
	if s.fuente == nil {
		return nil, infra.ErrRespuestaPyDolar
	}
	var ext *infra.TasaExterna
	err := s.cb.Execute(func() error {
		var fetchErr error
		ext, fetchErr = s.fuente.ObtenerTasa(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	row := &model.TasaCambio{
		Fecha:        fecha,
		TasaBCV:      ext.BCV.Round(4),
		TasaParalelo: ext.Paralelo,
		Fuente:       model.FuentePyDolar,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, err
	}
	resp := tasaToResponse(row)
	s.escribirCache(ctx, fecha, resp)
	return resp, nil
}

func (s *tasaService) Actual(ctx context.Context) (*dto.TasaActualResponse, error) {
	t, err := s.resolver(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.TasaActualResponse{Tasa: t.TasaBCV, Fecha: t.Fecha}, nil
}

func (s *tasaService) Refrescar(ctx context.Context) (*dto.TasaResponse, error) {
	resp, err := s.refrescar(ctx, s.hoy())
	if err != nil {
		return nil, apierror.NewRateUnavailable().WithErr(err)
	}
	log.Info().Str("tasa_bcv", resp.TasaBCV.String()).Msg("tasa: actualizada desde PyDolar")
	return resp, nil
}

func (s *tasaService) ActualizarManual(ctx context.Context, req dto.ActualizarTasaRequest) (*dto.TasaResponse, error) {
	if !req.TasaBCV.IsPositive() {
		return nil, apierror.NewValidationError("tasa_bcv debe ser mayor que cero")
	}
	fecha := s.hoy()
	row := &model.TasaCambio{
		Fecha:        fecha,
		TasaBCV:      req.TasaBCV.Round(4),
		TasaParalelo: req.TasaParalelo,
		Fuente:       model.FuenteManual,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, err
	}
	resp := tasaToResponse(row)
	s.escribirCache(ctx, fecha, resp)
	log.Info().Str("tasa_bcv", resp.TasaBCV.String()).Msg("tasa: actualizada manualmente")
	return resp, nil
}

func (s *tasaService) Historial(ctx context.Context, limit int) ([]dto.TasaResponse, error) {
	if limit < 1 || limit > 365 {
		limit = 30
	}
	rows, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TasaResponse, len(rows))
	for i := range rows {
		out[i] = *tasaToResponse(&rows[i])
	}
	return out, nil
}

func (s *tasaService) Convertir(ctx context.Context, req dto.ConvertirRequest) (*dto.ConvertirResponse, error) {
	monto, err := decimal.NewFromString(req.Monto)
	if err != nil || monto.IsNegative() {
		return nil, apierror.NewValidationError("monto inválido")
	}
	tasa, err := s.TasaActual(ctx)
	if err != nil {
		return nil, err
	}
	convertido := aVES(monto, tasa)
	if req.De == "VES" {
		convertido = aUSD(monto, tasa)
	}
	return &dto.ConvertirResponse{
		MontoOriginal:   monto,
		MonedaOrigen:    req.De,
		MontoConvertido: convertido,
		MonedaDestino:   req.A,
		Tasa:            tasa,
	}, nil
}

// ── Cache ────────────────────────────────────────────────────────────────────

func (s *tasaService) leerCache(ctx context.Context, fecha time.Time) (*dto.TasaResponse, bool) {
	if s.rdb == nil {
		return nil, false
	}
	b, err := s.rdb.Get(ctx, tasaCachePrefix+fecha.Format(fechaISO)).Bytes()
	if err != nil {
		return nil, false
	}
	var t dto.TasaResponse
	if err := json.Unmarshal(b, &t); err != nil || !t.TasaBCV.IsPositive() {
		return nil, false
	}
	return &t, true
}

// escribirCache is best effort; a redis outage only costs a DB read.
func (s *tasaService) escribirCache(ctx context.Context, fecha time.Time, t *dto.TasaResponse) {
	if s.rdb == nil {
		return
	}
	b, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, tasaCachePrefix+fecha.Format(fechaISO), b, s.ttl).Err(); err != nil {
		log.Debug().Err(err).Msg("tasa: no se pudo escribir el cache")
	}
}

func tasaToResponse(t *model.TasaCambio) *dto.TasaResponse {
	return &dto.TasaResponse{
		Fecha:        t.Fecha.Format(fechaISO),
		TasaBCV:      t.TasaBCV,
		TasaParalelo: t.TasaParalelo,
		Fuente:       t.Fuente,
	}
}
