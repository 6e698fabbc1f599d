package service

import (
	"context"
	"errors"
	"time"

	"minisuper/internal/apierror"
	"minisuper/internal/dto"
	"minisuper/internal/model"
	"minisuper/internal/repository"
	"minisuper/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CajaService owns registers and the open → closed lifecycle of cash sessions.
// Session totals only move through RegistrarVentaTx and RevertirVentaTx.
type CajaService interface {
	CrearCaja(ctx context.Context, req dto.CrearCajaRequest) (*dto.CajaResponse, error)
	ListarCajas(ctx context.Context) ([]dto.CajaResponse, error)

	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error)
	Estado(ctx context.Context, usuarioID uuid.UUID) (*dto.EstadoCajaResponse, error)
	Historial(ctx context.Context, filter dto.HistorialCajaFilter) (*dto.HistorialCajaResponse, error)

	// SesionAbierta resolves the user's open session on cajaID, or NoOpenSession.
	SesionAbierta(ctx context.Context, usuarioID, cajaID uuid.UUID) (*model.SesionCaja, error)
	RegistrarVentaTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, totalUSD decimal.Decimal) error
	RevertirVentaTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, totalUSD decimal.Decimal) error
}

type cajaService struct {
	repo       repository.CajaRepository
	tasas      ProveedorTasa
	dispatcher *worker.Dispatcher
	now        func() time.Time
}

func NewCajaService(repo repository.CajaRepository, tasas ProveedorTasa, dispatcher *worker.Dispatcher) CajaService {
	return &cajaService{repo: repo, tasas: tasas, dispatcher: dispatcher, now: time.Now}
}

// ── Registers ────────────────────────────────────────────────────────────────

func (s *cajaService) CrearCaja(ctx context.Context, req dto.CrearCajaRequest) (*dto.CajaResponse, error) {
	c := &model.Caja{
		NumeroCaja:  req.NumeroCaja,
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Activo:      true,
	}
	if err := s.repo.CreateCaja(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicado) {
			return nil, apierror.NewConflict("Ya existe una caja con ese número")
		}
		return nil, err
	}
	resp := cajaToResponse(c)
	return &resp, nil
}

func (s *cajaService) ListarCajas(ctx context.Context) ([]dto.CajaResponse, error) {
	cajas, err := s.repo.ListCajas(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CajaResponse, len(cajas))
	for i := range cajas {
		out[i] = cajaToResponse(&cajas[i])
	}
	return out, nil
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	cajaID, err := parseUUID("caja_id", req.CajaID)
	if err != nil {
		return nil, err
	}
	caja, err := s.repo.FindCajaByID(ctx, cajaID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NewNotFound("Caja")
		}
		return nil, err
	}
	if !caja.Activo {
		return nil, apierror.NewConflict("La caja está inactiva")
	}

	// Guard: one open session per user, one per register
	if err := s.verificarLibre(ctx, usuarioID, caja); err != nil {
		return nil, err
	}

	tasa, err := s.tasas.TasaActual(ctx)
	if err != nil {
		return nil, err
	}

	sesion := &model.SesionCaja{
		CajaID:             cajaID,
		UsuarioID:          usuarioID,
		FechaApertura:      s.now(),
		MontoInicialUSD:    redondear(req.MontoInicialUSD),
		MontoInicialVES:    redondear(req.MontoInicialVES),
		TotalVentasUSD:     decimal.Zero,
		TasaCambioApertura: tasa,
		Estado:             model.SesionAbierta,
	}
	if err := s.repo.CreateSesion(ctx, sesion); err != nil {
		// Lost a race against the partial unique indexes; report which one.
		if errors.Is(err, repository.ErrDuplicado) {
			if vErr := s.verificarLibre(ctx, usuarioID, caja); vErr != nil {
				return nil, vErr
			}
			return nil, apierror.NewSessionAlreadyOpenForUser()
		}
		return nil, err
	}
	sesion.Caja = caja

	log.Info().
		Str("sesion_id", sesion.ID.String()).
		Int("numero_caja", caja.NumeroCaja).
		Str("usuario_id", usuarioID.String()).
		Msg("caja: sesión abierta")

	resp := sesionToResponse(sesion)
	return &resp, nil
}

func (s *cajaService) verificarLibre(ctx context.Context, usuarioID uuid.UUID, caja *model.Caja) error {
	if _, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID); err == nil {
		return apierror.NewSessionAlreadyOpenForUser()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := s.repo.FindSesionAbiertaPorCaja(ctx, caja.ID); err == nil {
		return apierror.NewRegisterAlreadyOpen(caja.NumeroCaja)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────

func (s *cajaService) Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error) {
	abierta, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NewNoOpenSession()
		}
		return nil, err
	}
	if req.SesionCajaID != "" && req.SesionCajaID != abierta.ID.String() {
		return nil, apierror.NewNoOpenSession()
	}

	tasaCierre, err := s.tasas.TasaActual(ctx)
	if err != nil {
		log.Warn().Err(err).Str("sesion_id", abierta.ID.String()).Msg("caja: sin tasa al cierre, se usa la de apertura")
		tasaCierre = abierta.TasaCambioApertura
	}

	var cerrada *model.SesionCaja
	var diferencia decimal.Decimal
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		sesion, err := s.repo.FindSesionForUpdateTx(ctx, tx, abierta.ID)
		if err != nil {
			return err
		}
		if sesion.Estado != model.SesionAbierta {
			return apierror.NewNoOpenSession()
		}

		montoUSD := redondear(req.MontoFinalUSD)
		montoVES := redondear(req.MontoFinalVES)
		diferencia = model.DiferenciaCierre(*sesion, montoUSD)
		cierre := repository.CierreSesion{
			FechaCierre:   s.now(),
			MontoFinalUSD: montoUSD,
			MontoFinalVES: montoVES,
			TasaCierre:    tasaCierre,
			DiferenciaUSD: diferencia,
			Observaciones: req.Observaciones,
		}
		if err := s.repo.CerrarSesionTx(ctx, tx, sesion.ID, cierre); err != nil {
			if errors.Is(err, repository.ErrSinFilasAfectadas) {
				return apierror.NewNoOpenSession()
			}
			return err
		}

		sesion.FechaCierre = &cierre.FechaCierre
		sesion.MontoFinalUSD = &montoUSD
		sesion.MontoFinalVES = &montoVES
		sesion.TasaCambioCierre = &tasaCierre
		sesion.DiferenciaUSD = &diferencia
		sesion.Observaciones = req.Observaciones
		sesion.Estado = model.SesionCerrada
		sesion.Caja = abierta.Caja
		cerrada = sesion
		return nil
	})
	if err != nil {
		return nil, err
	}

	resumen, err := s.repo.ResumenPorMetodo(ctx, cerrada.ID)
	if err != nil {
		log.Warn().Err(err).Str("sesion_id", cerrada.ID.String()).Msg("caja: resumen por método no disponible")
		resumen = []dto.ResumenMetodo{}
	}

	log.Info().
		Str("sesion_id", cerrada.ID.String()).
		Str("total_ventas_usd", cerrada.TotalVentasUSD.StringFixed(2)).
		Int("transacciones", cerrada.TotalTransacciones).
		Str("diferencia_usd", diferencia.StringFixed(2)).
		Msg("caja: sesión cerrada")

	// Async cash-close report (best-effort)
	if s.dispatcher != nil {
		payload := worker.ReporteCierrePayload{SesionID: cerrada.ID.String()}
		if err := s.dispatcher.EnqueueReporteCierre(ctx, payload); err != nil {
			log.Warn().Err(err).Str("sesion_id", cerrada.ID.String()).Msg("caja: no se pudo encolar el reporte de cierre")
		}
	}

	return &dto.CierreCajaResponse{
		Sesion:           sesionToResponse(cerrada),
		EsperadoUSD:      redondear(cerrada.MontoInicialUSD.Add(cerrada.TotalVentasUSD)),
		DiferenciaUSD:    diferencia,
		ResumenPorMetodo: resumen,
	}, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *cajaService) Estado(ctx context.Context, usuarioID uuid.UUID) (*dto.EstadoCajaResponse, error) {
	sesion, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &dto.EstadoCajaResponse{IsOpen: false}, nil
		}
		return nil, err
	}
	resp := sesionToResponse(sesion)
	return &dto.EstadoCajaResponse{IsOpen: true, Sesion: &resp}, nil
}

func (s *cajaService) Historial(ctx context.Context, filter dto.HistorialCajaFilter) (*dto.HistorialCajaResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	sesiones, total, err := s.repo.ListHistorial(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SesionCajaResponse, len(sesiones))
	for i := range sesiones {
		out[i] = sesionToResponse(&sesiones[i])
	}
	return &dto.HistorialCajaResponse{
		Cierres:    out,
		Pagination: dto.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// ── Sale hooks ───────────────────────────────────────────────────────────────

func (s *cajaService) SesionAbierta(ctx context.Context, usuarioID, cajaID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionAbiertaPorUsuario(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NewNoOpenSession()
		}
		return nil, err
	}
	if sesion.CajaID != cajaID {
		return nil, apierror.NewNoOpenSession()
	}
	return sesion, nil
}

func (s *cajaService) RegistrarVentaTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, totalUSD decimal.Decimal) error {
	if err := s.repo.SumarVentaTx(ctx, tx, sesionID, totalUSD); err != nil {
		if errors.Is(err, repository.ErrSinFilasAfectadas) {
			return apierror.NewNoOpenSession()
		}
		return err
	}
	return nil
}

// RevertirVentaTx does not require the session to be open: a cancelled sale
// leaves a closed session's totals matching its completed sales.
func (s *cajaService) RevertirVentaTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, totalUSD decimal.Decimal) error {
	return s.repo.RestarVentaTx(ctx, tx, sesionID, totalUSD)
}

func cajaToResponse(c *model.Caja) dto.CajaResponse {
	return dto.CajaResponse{
		ID:          c.ID.String(),
		NumeroCaja:  c.NumeroCaja,
		Nombre:      c.Nombre,
		Descripcion: c.Descripcion,
		Activo:      c.Activo,
	}
}

func sesionToResponse(s *model.SesionCaja) dto.SesionCajaResponse {
	r := dto.SesionCajaResponse{
		ID:                 s.ID.String(),
		CajaID:             s.CajaID.String(),
		UsuarioID:          s.UsuarioID.String(),
		FechaApertura:      s.FechaApertura.Format(fechaHoraISO),
		FechaCierre:        formatFechaHora(s.FechaCierre),
		MontoInicialUSD:    s.MontoInicialUSD,
		MontoInicialVES:    s.MontoInicialVES,
		MontoFinalUSD:      s.MontoFinalUSD,
		MontoFinalVES:      s.MontoFinalVES,
		TotalVentasUSD:     s.TotalVentasUSD,
		TotalTransacciones: s.TotalTransacciones,
		TasaCambioApertura: s.TasaCambioApertura,
		TasaCambioCierre:   s.TasaCambioCierre,
		DiferenciaUSD:      s.DiferenciaUSD,
		Observaciones:      s.Observaciones,
		Estado:             s.Estado,
	}
	if s.Caja != nil {
		r.NumeroCaja = s.Caja.NumeroCaja
		r.NombreCaja = s.Caja.Nombre
	}
	return r
}
