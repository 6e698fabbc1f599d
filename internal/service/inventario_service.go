package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"minisuper/internal/apierror"
	"minisuper/internal/dto"
	"minisuper/internal/metrics"
	"minisuper/internal/model"
	"minisuper/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InventarioService owns inventory lots: FIFO allocation for sales,
// restoration on cancellation, intake and manual adjustment.
type InventarioService interface {
	// IniciarAsignacion starts an allocation bound to the sale transaction tx.
	IniciarAsignacion(tx *gorm.DB) *AsignacionLotes
	// RestaurarTx returns cantidad units to a lot, capped at its initial quantity.
	RestaurarTx(ctx context.Context, tx *gorm.DB, loteID uuid.UUID, cantidad int) error

	CrearLotes(ctx context.Context, req dto.CrearLotesRequest) ([]dto.LoteResponse, error)
	AjustarLote(ctx context.Context, id uuid.UUID, req dto.AjustarLoteRequest) (*dto.LoteResponse, error)
	StockProducto(ctx context.Context, productoID uuid.UUID) (*dto.StockProductoResponse, error)
	ReporteVencimientos(ctx context.Context, dias int) (*dto.ReporteVencimientoResponse, error)
}

type inventarioService struct {
	repo         repository.LoteRepository
	productoRepo repository.ProductoRepository
	tasas        ProveedorTasa
	now          func() time.Time
}

func NewInventarioService(repo repository.LoteRepository, productoRepo repository.ProductoRepository, tasas ProveedorTasa) InventarioService {
	return &inventarioService{repo: repo, productoRepo: productoRepo, tasas: tasas, now: time.Now}
}

// ── Allocation ───────────────────────────────────────────────────────────────

// Toma is the quantity taken from one lot for one sale line.
type Toma struct {
	Lote     model.LoteInventario
	Cantidad int
}

// AsignacionLotes plans FIFO allocations inside one transaction. Asignar locks
// and reads lots but never writes; Confirmar applies every planned decrement.
// A product requested twice in the same sale continues from where the first
// request left off.
type AsignacionLotes struct {
	repo     repository.LoteRepository
	tx       *gorm.DB
	lotes    map[uuid.UUID][]model.LoteInventario
	restante map[uuid.UUID]int
	tomas    []Toma
}

func (s *inventarioService) IniciarAsignacion(tx *gorm.DB) *AsignacionLotes {
	return &AsignacionLotes{
		repo:     s.repo,
		tx:       tx,
		lotes:    make(map[uuid.UUID][]model.LoteInventario),
		restante: make(map[uuid.UUID]int),
	}
}

// Bloquear locks the lots of every product up front, in ascending id order,
// so two sales sharing products always take their row locks in the same order.
func (a *AsignacionLotes) Bloquear(ctx context.Context, productoIDs []uuid.UUID) error {
	ids := slices.Clone(productoIDs)
	slices.SortFunc(ids, func(x, y uuid.UUID) int { return bytes.Compare(x[:], y[:]) })
	for _, id := range slices.Compact(ids) {
		if _, err := a.cargar(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// cargar locks and caches the lots of productoID in FIFO order.
func (a *AsignacionLotes) cargar(ctx context.Context, productoID uuid.UUID) ([]model.LoteInventario, error) {
	if lotes, ok := a.lotes[productoID]; ok {
		return lotes, nil
	}
	lotes, err := a.repo.ListDisponiblesForUpdateTx(ctx, a.tx, productoID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(lotes, model.CompararFIFO)
	for _, l := range lotes {
		a.restante[l.ID] = l.CantidadActual
	}
	a.lotes[productoID] = lotes
	return lotes, nil
}

// Asignar plans cantidad units of p across its lots: dated lots first by
// earliest expiry, then by intake. The result sums to exactly cantidad.
func (a *AsignacionLotes) Asignar(ctx context.Context, p *model.Producto, cantidad int) ([]Toma, error) {
	if cantidad <= 0 {
		return nil, apierror.NewValidationError("la cantidad debe ser mayor que cero")
	}

	lotes, err := a.cargar(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	disponible := 0
	for _, l := range lotes {
		disponible += a.restante[l.ID]
	}
	if disponible < cantidad {
		metrics.StockInsuficiente.Inc()
		return nil, apierror.NewInsufficientStock(p.ID.String(), p.Nombre, disponible, cantidad)
	}

	var tomas []Toma
	pendiente := cantidad
	for _, l := range lotes {
		if pendiente == 0 {
			break
		}
		r := a.restante[l.ID]
		if r == 0 {
			continue
		}
		n := min(r, pendiente)
		a.restante[l.ID] = r - n
		pendiente -= n
		tomas = append(tomas, Toma{Lote: l, Cantidad: n})
	}
	a.tomas = append(a.tomas, tomas...)
	return tomas, nil
}

// Confirmar decrements every planned lot. Each decrement is guarded by
// cantidad_actual >= n, so a lost race surfaces as a conflict.
func (a *AsignacionLotes) Confirmar(ctx context.Context) error {
	for _, t := range a.tomas {
		if err := a.repo.DescontarTx(ctx, a.tx, t.Lote.ID, t.Cantidad); err != nil {
			if errors.Is(err, repository.ErrSinFilasAfectadas) {
				return apierror.NewConflict("el stock cambió durante la venta, intente de nuevo").WithErr(err)
			}
			return err
		}
	}
	a.tomas = nil
	return nil
}

func (s *inventarioService) RestaurarTx(ctx context.Context, tx *gorm.DB, loteID uuid.UUID, cantidad int) error {
	lote, err := s.repo.FindByIDForUpdateTx(ctx, tx, loteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierror.NewNotFound("Lote")
		}
		return err
	}
	nueva := lote.CantidadActual + cantidad
	if nueva > lote.CantidadInicial {
		log.Warn().
			Str("lote_id", loteID.String()).
			Int("cantidad_actual", lote.CantidadActual).
			Int("cantidad_inicial", lote.CantidadInicial).
			Int("restaurar", cantidad).
			Msg("inventario: restauración excede la cantidad inicial, se limita")
		nueva = lote.CantidadInicial
	}
	return s.repo.SetCantidadTx(ctx, tx, loteID, nueva)
}

// ── Intake and adjustment ────────────────────────────────────────────────────

// CrearLotes is all-or-nothing: every entry is checked before any insert and
// the whole batch is rejected with one message per failing index.
func (s *inventarioService) CrearLotes(ctx context.Context, req dto.CrearLotesRequest) ([]dto.LoteResponse, error) {
	if len(req.Lotes) == 0 {
		return nil, apierror.NewValidationError("se requiere al menos un lote")
	}
	tasa, err := s.tasas.TasaActual(ctx)
	if err != nil {
		return nil, err
	}

	hoy := inicioDia(s.now())
	var fallos []dto.ErrorLote
	lotes := make([]model.LoteInventario, 0, len(req.Lotes))
	productos := make(map[uuid.UUID]*model.Producto)

	for i, r := range req.Lotes {
		l, p, msg := s.prepararLote(ctx, r, hoy, productos)
		if msg != "" {
			fallos = append(fallos, dto.ErrorLote{Indice: i, Mensaje: msg})
			continue
		}
		l.TasaCambioRegistro = tasa
		l.FechaIngreso = s.now()
		l.Producto = p
		lotes = append(lotes, l)
	}

	if len(fallos) > 0 {
		errs := make([]string, len(fallos))
		for i, f := range fallos {
			errs[i] = fmt.Sprintf("lotes[%d]: %s", f.Indice, f.Mensaje)
		}
		return nil, apierror.NewValidationErrors("Ningún lote fue registrado", errs, map[string]any{"lotes": fallos})
	}

	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.CreateManyTx(ctx, tx, lotes)
	}); err != nil {
		return nil, err
	}

	log.Info().Int("lotes", len(lotes)).Str("tasa", tasa.String()).Msg("inventario: lotes registrados")

	now := s.now()
	out := make([]dto.LoteResponse, len(lotes))
	for i := range lotes {
		out[i] = loteToResponse(&lotes[i], now)
	}
	return out, nil
}

func (s *inventarioService) prepararLote(ctx context.Context, r dto.CrearLoteRequest, hoy time.Time, cache map[uuid.UUID]*model.Producto) (model.LoteInventario, *model.Producto, string) {
	var l model.LoteInventario

	pid, err := uuid.Parse(r.ProductoID)
	if err != nil {
		return l, nil, "producto_id inválido"
	}
	p, ok := cache[pid]
	if !ok {
		p, err = s.productoRepo.FindByID(ctx, pid)
		if err != nil || !p.Activo {
			return l, nil, "producto no encontrado o inactivo"
		}
		cache[pid] = p
	}
	if r.Cantidad <= 0 {
		return l, nil, "la cantidad debe ser mayor que cero"
	}
	if !r.PrecioCostoUSD.IsPositive() {
		return l, nil, "precio_costo_usd debe ser mayor que cero"
	}

	l = model.LoteInventario{
		ProductoID:      pid,
		NumeroLote:      r.NumeroLote,
		CantidadInicial: r.Cantidad,
		CantidadActual:  r.Cantidad,
		PrecioCostoUSD:  redondear(r.PrecioCostoUSD),
		Observaciones:   r.Observaciones,
	}
	if r.ProveedorID != nil && *r.ProveedorID != "" {
		prov, err := uuid.Parse(*r.ProveedorID)
		if err != nil {
			return l, nil, "proveedor_id inválido"
		}
		l.ProveedorID = &prov
	}
	if r.FechaVencimiento != nil && *r.FechaVencimiento != "" {
		f, err := time.Parse(fechaISO, *r.FechaVencimiento)
		if err != nil {
			return l, nil, "fecha_vencimiento inválida"
		}
		if f.Before(time.Date(hoy.Year(), hoy.Month(), hoy.Day(), 0, 0, 0, 0, time.UTC)) {
			return l, nil, "fecha_vencimiento no puede estar en el pasado"
		}
		l.FechaVencimiento = &f
	}
	return l, p, ""
}

// AjustarLote sets a lot's current quantity to a counted value.
func (s *inventarioService) AjustarLote(ctx context.Context, id uuid.UUID, req dto.AjustarLoteRequest) (*dto.LoteResponse, error) {
	var lote *model.LoteInventario
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		l, err := s.repo.FindByIDForUpdateTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apierror.NewNotFound("Lote")
			}
			return err
		}
		if req.CantidadNueva < 0 || req.CantidadNueva > l.CantidadInicial {
			return apierror.NewValidationError(fmt.Sprintf(
				"cantidad_nueva debe estar entre 0 y %d", l.CantidadInicial))
		}
		if err := s.repo.SetCantidadTx(ctx, tx, id, req.CantidadNueva); err != nil {
			return err
		}
		log.Info().
			Str("lote_id", id.String()).
			Int("anterior", l.CantidadActual).
			Int("nueva", req.CantidadNueva).
			Str("motivo", req.Motivo).
			Msg("inventario: lote ajustado")
		l.CantidadActual = req.CantidadNueva
		lote = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := loteToResponse(lote, s.now())
	return &resp, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *inventarioService) StockProducto(ctx context.Context, productoID uuid.UUID) (*dto.StockProductoResponse, error) {
	p, err := s.productoRepo.FindByID(ctx, productoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NewProductNotFound(productoID.String())
		}
		return nil, err
	}
	lotes, err := s.repo.ListByProducto(ctx, productoID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	resp := &dto.StockProductoResponse{
		ProductoID:  p.ID.String(),
		Producto:    p.Nombre,
		StockMinimo: p.StockMinimo,
		Lotes:       make([]dto.LoteResponse, 0, len(lotes)),
	}
	for i := range lotes {
		resp.StockTotal += lotes[i].CantidadActual
		if lotes[i].CantidadActual > 0 {
			resp.Lotes = append(resp.Lotes, loteToResponse(&lotes[i], now))
		}
	}
	resp.StockBajo = resp.StockTotal <= p.StockMinimo
	return resp, nil
}

// ReporteVencimientos buckets lots with stock that expire within dias days.
func (s *inventarioService) ReporteVencimientos(ctx context.Context, dias int) (*dto.ReporteVencimientoResponse, error) {
	if dias <= 0 {
		dias = 30
	}
	now := s.now()
	hasta := inicioDia(now).AddDate(0, 0, dias)
	lotes, err := s.repo.ListConVencimiento(ctx, hasta)
	if err != nil {
		return nil, err
	}

	resp := &dto.ReporteVencimientoResponse{
		Vencidos:   []dto.LoteResponse{},
		EstaSemana: []dto.LoteResponse{},
		EsteMes:    []dto.LoteResponse{},
		DiasLimite: dias,
	}
	for i := range lotes {
		l := &lotes[i]
		r := loteToResponse(l, now)
		switch {
		case model.Vencido(*l, now):
			resp.Vencidos = append(resp.Vencidos, r)
		case model.PorVencer(*l, now, 7):
			resp.EstaSemana = append(resp.EstaSemana, r)
		default:
			resp.EsteMes = append(resp.EsteMes, r)
		}
	}
	return resp, nil
}

func inicioDia(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func loteToResponse(l *model.LoteInventario, now time.Time) dto.LoteResponse {
	r := dto.LoteResponse{
		ID:                 l.ID.String(),
		ProductoID:         l.ProductoID.String(),
		NumeroLote:         l.NumeroLote,
		CantidadInicial:    l.CantidadInicial,
		CantidadActual:     l.CantidadActual,
		PrecioCostoUSD:     l.PrecioCostoUSD,
		PrecioCostoVES:     model.PrecioCostoVES(*l),
		TasaCambioRegistro: l.TasaCambioRegistro,
		ValorInventarioUSD: model.ValorInventarioUSD(*l),
		ValorInventarioVES: model.ValorInventarioVES(*l),
		FechaVencimiento:   formatFecha(l.FechaVencimiento),
		FechaIngreso:       l.FechaIngreso.Format(fechaHoraISO),
		Vencido:            model.Vencido(*l, now),
		PorVencer:          model.PorVencer(*l, now, 30),
	}
	if l.Producto != nil {
		r.Producto = l.Producto.Nombre
	}
	if l.ProveedorID != nil {
		id := l.ProveedorID.String()
		r.ProveedorID = &id
	}
	return r
}
