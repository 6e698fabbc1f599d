package service

import (
	"context"
	"errors"
	"time"

	"minisuper/internal/apierror"
	"minisuper/internal/config"
	"minisuper/internal/dto"
	"minisuper/internal/metrics"
	"minisuper/internal/model"
	"minisuper/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxIntentosVenta bounds the retries on a numero_venta collision.
const maxIntentosVenta = 3

type VentaService interface {
	CrearVenta(ctx context.Context, usuarioID uuid.UUID, req dto.CrearVentaRequest) (*dto.CrearVentaResponse, error)
	AnularVenta(ctx context.Context, id uuid.UUID, motivo string) (*dto.AnularVentaResponse, error)
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaDetalleResponse, error)
	ObtenerRecibo(ctx context.Context, id uuid.UUID) (*dto.ReciboResponse, error)
	ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	repo         repository.VentaRepository
	productoRepo repository.ProductoRepository
	inventario   InventarioService
	caja         CajaService
	tasas        ProveedorTasa
	numerador    *NumeradorVentas
	empresa      dto.ReciboEmpresa
	now          func() time.Time
}

func NewVentaService(
	repo repository.VentaRepository,
	productoRepo repository.ProductoRepository,
	inventario InventarioService,
	caja CajaService,
	tasas ProveedorTasa,
	numerador *NumeradorVentas,
	cfg *config.Config,
) VentaService {
	empresa := dto.ReciboEmpresa{
		Nombre:    cfg.EmpresaNombre,
		Direccion: cfg.EmpresaDireccion,
		Telefono:  cfg.EmpresaTelefono,
		RIF:       cfg.EmpresaRIF,
	}
	return &ventaService{
		repo:         repo,
		productoRepo: productoRepo,
		inventario:   inventario,
		caja:         caja,
		tasas:        tasas,
		numerador:    numerador,
		empresa:      empresa,
		now:          time.Now,
	}
}

type itemVenta struct {
	productoID uuid.UUID
	cantidad   int
}

// pagosVenta is the validated payment input of one sale.
type pagosVenta struct {
	detalles []model.DetallePago
	totalUSD decimal.Decimal
	totalVES decimal.Decimal
	resumen  string
}

// ── CrearVenta ────────────────────────────────────────────────────────────────
// One transaction per attempt:
//   1. Validate the caller's open session on the register
//   2. Fetch the rate (before the tx, no lock held across the network call)
//   3. Validate payment splits
//   4. BEGIN TX: per item, active product + FIFO plan under row locks
//   5. Money: subtotal, discount, 16% tax, total, received, change
//   6. Sale number, insert sale + lines + splits, apply lot decrements
//   7. Session totals += total (only while still open)
//   8. COMMIT, or retry from 4 when the sale number collided

func (s *ventaService) CrearVenta(ctx context.Context, usuarioID uuid.UUID, req dto.CrearVentaRequest) (*dto.CrearVentaResponse, error) {
	cajaID, err := parseUUID("caja_id", req.CajaID)
	if err != nil {
		return nil, err
	}
	items, err := validarItems(req.Items)
	if err != nil {
		return nil, err
	}
	if req.DescuentoUSD.IsNegative() || req.DescuentoVES.IsNegative() {
		return nil, apierror.NewValidationError("el descuento no puede ser negativo")
	}

	// 1. Validate open session
	sesion, err := s.caja.SesionAbierta(ctx, usuarioID, cajaID)
	if err != nil {
		return nil, err
	}

	// 2. Current rate
	tasa, err := s.tasas.TasaActual(ctx)
	if err != nil {
		return nil, err
	}
	if !tasa.IsPositive() {
		return nil, apierror.NewRateUnavailable()
	}

	// 3. Payment splits
	pagos, err := validarPagos(req.Pagos)
	if err != nil {
		return nil, err
	}

	var venta *model.Venta
	for intento := 1; ; intento++ {
		venta, err = s.registrarVenta(ctx, usuarioID, sesion, tasa, items, pagos, req)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicado) && intento < maxIntentosVenta {
			log.Warn().Int("intento", intento).Msg("venta: numero_venta duplicado, reintentando")
			continue
		}
		return nil, err
	}

	metrics.VentasCreadas.Inc()
	log.Info().
		Str("venta_id", venta.ID.String()).
		Str("numero_venta", venta.NumeroVenta).
		Str("total_usd", venta.TotalUSD.StringFixed(2)).
		Str("metodo_pago", venta.MetodoPago).
		Msg("venta: registrada")

	return &dto.CrearVentaResponse{
		Venta:      ventaToResponse(venta),
		CambioUSD:  venta.CambioUSD,
		CambioVES:  venta.CambioVES,
		TasaCambio: tasa,
	}, nil
}

// registrarVenta runs steps 4-7 in one transaction. Nothing it does survives
// an error: lot decrements are applied only after every check has passed.
func (s *ventaService) registrarVenta(
	ctx context.Context,
	usuarioID uuid.UUID,
	sesion *model.SesionCaja,
	tasa decimal.Decimal,
	items []itemVenta,
	pagos pagosVenta,
	req dto.CrearVentaRequest,
) (*model.Venta, error) {
	var venta *model.Venta
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		asignacion := s.inventario.IniciarAsignacion(tx)
		ids := make([]uuid.UUID, len(items))
		for i, it := range items {
			ids[i] = it.productoID
		}
		if err := asignacion.Bloquear(ctx, ids); err != nil {
			return err
		}

		productos := make(map[uuid.UUID]*model.Producto)
		var detalles []model.DetalleVenta
		subtotalUSD := decimal.Zero
		subtotalVES := decimal.Zero

		// 4. Items in input order
		for _, it := range items {
			p, err := s.productoRepo.FindActivoTx(ctx, tx, it.productoID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apierror.NewProductNotFound(it.productoID.String())
				}
				return err
			}
			productos[p.ID] = p

			tomas, err := asignacion.Asignar(ctx, p, it.cantidad)
			if err != nil {
				return err
			}

			// 5a. One line per lot segment
			unitarioUSD := p.PrecioVentaUSD
			unitarioVES := aVES(unitarioUSD, tasa)
			for _, t := range tomas {
				q := decimal.NewFromInt(int64(t.Cantidad))
				lineaUSD := redondear(unitarioUSD.Mul(q))
				lineaVES := redondear(unitarioVES.Mul(q))
				loteID := t.Lote.ID
				detalles = append(detalles, model.DetalleVenta{
					ProductoID:        p.ID,
					LoteID:            &loteID,
					Cantidad:          t.Cantidad,
					PrecioUnitarioUSD: unitarioUSD,
					PrecioUnitarioVES: unitarioVES,
					SubtotalUSD:       lineaUSD,
					SubtotalVES:       lineaVES,
				})
				subtotalUSD = subtotalUSD.Add(lineaUSD)
				subtotalVES = subtotalVES.Add(lineaVES)
			}
		}

		// 5b. Discount, tax, total
		descuentoUSD := redondear(req.DescuentoUSD)
		descuentoVES := redondear(req.DescuentoVES)
		netoUSD := subtotalUSD.Sub(descuentoUSD)
		netoVES := subtotalVES.Sub(descuentoVES)
		if netoUSD.IsNegative() || netoVES.IsNegative() {
			return apierror.NewValidationError("el descuento excede el subtotal")
		}
		impuestoUSD := redondear(netoUSD.Mul(tasaIVA))
		impuestoVES := redondear(netoVES.Mul(tasaIVA))
		totalUSD := redondear(netoUSD.Add(impuestoUSD))
		totalVES := redondear(netoVES.Add(impuestoVES))

		// 5c. Received, normalized to USD at the sale rate. Compared unrounded:
		// a shortfall of a fraction of a cent is still a shortfall.
		recibidoUSD := pagos.totalUSD.Add(pagos.totalVES.Div(tasa))
		if recibidoUSD.LessThan(totalUSD) {
			return apierror.NewInsufficientPayment(totalUSD, recibidoUSD.Truncate(2))
		}
		cambioUSD := redondear(recibidoUSD.Sub(totalUSD))
		cambioVES := aVES(cambioUSD, tasa)

		// 6. Persist
		numero, err := s.numerador.Siguiente(ctx, tx)
		if err != nil {
			return err
		}
		sesionID := sesion.ID
		v := &model.Venta{
			NumeroVenta:      numero,
			CajaID:           sesion.CajaID,
			UsuarioID:        usuarioID,
			SesionCajaID:     &sesionID,
			SubtotalUSD:      subtotalUSD,
			SubtotalVES:      subtotalVES,
			DescuentoUSD:     descuentoUSD,
			DescuentoVES:     descuentoVES,
			ImpuestoUSD:      impuestoUSD,
			ImpuestoVES:      impuestoVES,
			TotalUSD:         totalUSD,
			TotalVES:         totalVES,
			TasaCambio:       tasa,
			MetodoPago:       pagos.resumen,
			MontoRecibidoUSD: pagos.totalUSD,
			MontoRecibidoVES: pagos.totalVES,
			CambioUSD:        cambioUSD,
			CambioVES:        cambioVES,
			Estado:           model.VentaCompletada,
			Detalles:         detalles,
			Pagos:            append([]model.DetallePago(nil), pagos.detalles...),
		}
		if err := s.repo.Create(ctx, tx, v); err != nil {
			return err
		}
		if err := asignacion.Confirmar(ctx); err != nil {
			return err
		}

		// 7. Session running totals
		if err := s.caja.RegistrarVentaTx(ctx, tx, sesion.ID, totalUSD); err != nil {
			return err
		}

		for i := range v.Detalles {
			v.Detalles[i].Producto = productos[v.Detalles[i].ProductoID]
		}
		venta = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return venta, nil
}

func validarItems(reqs []dto.ItemVentaRequest) ([]itemVenta, error) {
	if len(reqs) == 0 {
		return nil, apierror.NewValidationError("la venta requiere al menos un producto")
	}
	items := make([]itemVenta, len(reqs))
	for i, r := range reqs {
		pid, err := parseUUID("producto_id", r.ProductoID)
		if err != nil {
			return nil, err
		}
		if r.Cantidad <= 0 {
			return nil, apierror.NewValidationError("la cantidad debe ser mayor que cero")
		}
		items[i] = itemVenta{productoID: pid, cantidad: r.Cantidad}
	}
	return items, nil
}

// validarPagos requires every split to carry a positive amount in at least
// one currency and computes the method summary.
func validarPagos(reqs []dto.PagoRequest) (pagosVenta, error) {
	var out pagosVenta
	if len(reqs) == 0 {
		return out, apierror.NewValidationError("la venta requiere al menos un pago")
	}
	out.totalUSD = decimal.Zero
	out.totalVES = decimal.Zero
	for _, r := range reqs {
		if r.MontoUSD.IsNegative() || r.MontoVES.IsNegative() {
			return out, apierror.NewValidationError("los montos de pago no pueden ser negativos")
		}
		if !r.MontoUSD.IsPositive() && !r.MontoVES.IsPositive() {
			return out, apierror.NewValidationError("cada pago debe tener monto_usd o monto_ves mayor que cero")
		}
		usd := redondear(r.MontoUSD)
		ves := redondear(r.MontoVES)
		out.detalles = append(out.detalles, model.DetallePago{
			Metodo:     r.Metodo,
			MontoUSD:   usd,
			MontoVES:   ves,
			Referencia: r.Referencia,
			Notas:      r.Notas,
		})
		out.totalUSD = out.totalUSD.Add(usd)
		out.totalVES = out.totalVES.Add(ves)
	}
	out.resumen = resumenMetodo(out.detalles)
	return out, nil
}

// resumenMetodo is the shared method of all splits, or "mixed".
func resumenMetodo(pagos []model.DetallePago) string {
	if len(pagos) == 0 {
		return ""
	}
	m := pagos[0].Metodo
	for _, p := range pagos[1:] {
		if p.Metodo != m {
			return model.MetodoMixto
		}
	}
	return m
}

// ── AnularVenta ───────────────────────────────────────────────────────────────

func (s *ventaService) AnularVenta(ctx context.Context, id uuid.UUID, motivo string) (*dto.AnularVentaResponse, error) {
	if len([]rune(motivo)) < 10 {
		return nil, apierror.NewValidationError("el motivo debe tener al menos 10 caracteres")
	}

	var venta *model.Venta
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Lock the sale first: concurrent cancels serialize here and only
		// the first one sees estado = completada.
		v, err := s.repo.FindByIDForUpdateTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apierror.NewNotFound("Venta")
			}
			return err
		}
		if v.Estado == model.VentaCancelada {
			return apierror.NewAlreadyCancelled(v.NumeroVenta)
		}

		for _, d := range v.Detalles {
			if d.LoteID == nil {
				continue
			}
			if err := s.inventario.RestaurarTx(ctx, tx, *d.LoteID, d.Cantidad); err != nil {
				return err
			}
		}

		fecha := s.now()
		if err := s.repo.AnularTx(ctx, tx, v.ID, motivo, fecha); err != nil {
			if errors.Is(err, repository.ErrSinFilasAfectadas) {
				return apierror.NewAlreadyCancelled(v.NumeroVenta)
			}
			return err
		}

		if v.SesionCajaID != nil {
			if err := s.caja.RevertirVentaTx(ctx, tx, *v.SesionCajaID, v.TotalUSD); err != nil {
				return err
			}
		}

		v.Estado = model.VentaCancelada
		v.MotivoAnulacion = &motivo
		v.FechaAnulacion = &fecha
		venta = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.VentasAnuladas.Inc()
	log.Info().
		Str("venta_id", venta.ID.String()).
		Str("numero_venta", venta.NumeroVenta).
		Str("motivo", motivo).
		Msg("venta: anulada")

	return &dto.AnularVentaResponse{
		VentaID:          venta.ID.String(),
		NumeroVenta:      venta.NumeroVenta,
		Estado:           venta.Estado,
		MontoReembolsado: venta.TotalUSD,
	}, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

// ObtenerVenta returns the sale with a per-line profit analysis against
// each lot's cost.
func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaDetalleResponse, error) {
	v, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}

	analisis := dto.AnalisisGanancias{
		GananciaTotalUSD: decimal.Zero,
		MargenPromedio:   decimal.Zero,
		Detalle:          make([]dto.GananciaDetalleResponse, 0, len(v.Detalles)),
	}
	sumaMargen := decimal.Zero
	for _, d := range v.Detalles {
		g := model.GananciaDetalle(d)
		analisis.Detalle = append(analisis.Detalle, dto.GananciaDetalleResponse{
			Producto:            nombreProducto(d.Producto),
			Cantidad:            d.Cantidad,
			PrecioVentaUSD:      d.PrecioUnitarioUSD,
			PrecioCostoUSD:      g.CostoUnitarioUSD,
			GananciaUnitariaUSD: g.GananciaUnitaria,
			GananciaTotalUSD:    g.GananciaTotal,
			MargenPorcentaje:    g.MargenPorcentaje,
		})
		analisis.GananciaTotalUSD = analisis.GananciaTotalUSD.Add(g.GananciaTotal)
		sumaMargen = sumaMargen.Add(g.MargenPorcentaje)
	}
	analisis.GananciaTotalVES = aVES(analisis.GananciaTotalUSD, v.TasaCambio)
	if n := len(v.Detalles); n > 0 {
		analisis.MargenPromedio = redondear(sumaMargen.Div(decimal.NewFromInt(int64(n))))
	}

	return &dto.VentaDetalleResponse{
		Venta:             ventaToResponse(v),
		AnalisisGanancias: analisis,
	}, nil
}

// ObtenerRecibo returns the receipt data; rendering is left to the client.
func (s *ventaService) ObtenerRecibo(ctx context.Context, id uuid.UUID) (*dto.ReciboResponse, error) {
	v, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}

	r := &dto.ReciboResponse{
		Empresa: s.empresa,
		Venta: dto.ReciboVenta{
			Numero: v.NumeroVenta,
			Fecha:  v.CreatedAt.Format(fechaHoraISO),
			Estado: v.Estado,
		},
		Items: make([]dto.ReciboItem, 0, len(v.Detalles)),
		Totales: dto.ReciboTotales{
			SubtotalUSD:  v.SubtotalUSD,
			SubtotalVES:  v.SubtotalVES,
			DescuentoUSD: v.DescuentoUSD,
			DescuentoVES: v.DescuentoVES,
			ImpuestoUSD:  v.ImpuestoUSD,
			ImpuestoVES:  v.ImpuestoVES,
			TotalUSD:     v.TotalUSD,
			TotalVES:     v.TotalVES,
		},
		Pago: dto.ReciboPago{
			Metodo:      v.MetodoPago,
			RecibidoUSD: v.MontoRecibidoUSD,
			RecibidoVES: v.MontoRecibidoVES,
			CambioUSD:   v.CambioUSD,
			CambioVES:   v.CambioVES,
			TasaCambio:  v.TasaCambio,
		},
		Footer: dto.ReciboFooter{
			Mensaje:        "Gracias por su compra",
			FechaImpresion: s.now().Format(fechaHoraISO),
		},
	}
	if v.Usuario != nil {
		r.Venta.Cajero = v.Usuario.Nombre
	}
	if v.Caja != nil {
		r.Venta.Caja = v.Caja.Nombre
	}
	for _, d := range v.Detalles {
		item := dto.ReciboItem{
			Nombre:            nombreProducto(d.Producto),
			Cantidad:          d.Cantidad,
			PrecioUnitarioUSD: d.PrecioUnitarioUSD,
			PrecioUnitarioVES: d.PrecioUnitarioVES,
			SubtotalUSD:       d.SubtotalUSD,
			SubtotalVES:       d.SubtotalVES,
		}
		if d.Producto != nil {
			item.Codigo = d.Producto.CodigoBarras
		}
		r.Items = append(r.Items, item)
	}
	return r, nil
}

// ListVentas returns a paginated, filtered list of sales.
func (s *ventaService) ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 20
	}
	ventas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.VentaResponse, len(ventas))
	for i := range ventas {
		out[i] = ventaToResponse(&ventas[i])
	}
	return &dto.VentaListResponse{
		Ventas:     out,
		Pagination: dto.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

func (s *ventaService) buscar(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NewNotFound("Venta")
		}
		return nil, err
	}
	return v, nil
}

func nombreProducto(p *model.Producto) string {
	if p == nil {
		return ""
	}
	return p.Nombre
}

func ventaToResponse(v *model.Venta) dto.VentaResponse {
	r := dto.VentaResponse{
		ID:               v.ID.String(),
		NumeroVenta:      v.NumeroVenta,
		CajaID:           v.CajaID.String(),
		UsuarioID:        v.UsuarioID.String(),
		SubtotalUSD:      v.SubtotalUSD,
		SubtotalVES:      v.SubtotalVES,
		DescuentoUSD:     v.DescuentoUSD,
		DescuentoVES:     v.DescuentoVES,
		ImpuestoUSD:      v.ImpuestoUSD,
		ImpuestoVES:      v.ImpuestoVES,
		TotalUSD:         v.TotalUSD,
		TotalVES:         v.TotalVES,
		TasaCambio:       v.TasaCambio,
		MetodoPago:       v.MetodoPago,
		MontoRecibidoUSD: v.MontoRecibidoUSD,
		MontoRecibidoVES: v.MontoRecibidoVES,
		CambioUSD:        v.CambioUSD,
		CambioVES:        v.CambioVES,
		Estado:           v.Estado,
		MotivoAnulacion:  v.MotivoAnulacion,
		Detalles:         make([]dto.DetalleVentaResponse, 0, len(v.Detalles)),
		Pagos:            make([]dto.PagoResponse, 0, len(v.Pagos)),
		CreatedAt:        v.CreatedAt.Format(fechaHoraISO),
	}
	if v.SesionCajaID != nil {
		id := v.SesionCajaID.String()
		r.SesionCajaID = &id
	}
	if v.Usuario != nil {
		r.Cajero = v.Usuario.Nombre
	}
	for _, d := range v.Detalles {
		dr := dto.DetalleVentaResponse{
			ProductoID:        d.ProductoID.String(),
			Producto:          nombreProducto(d.Producto),
			Cantidad:          d.Cantidad,
			PrecioUnitarioUSD: d.PrecioUnitarioUSD,
			PrecioUnitarioVES: d.PrecioUnitarioVES,
			SubtotalUSD:       d.SubtotalUSD,
			SubtotalVES:       d.SubtotalVES,
		}
		if d.LoteID != nil {
			id := d.LoteID.String()
			dr.LoteID = &id
		}
		r.Detalles = append(r.Detalles, dr)
	}
	for _, p := range v.Pagos {
		r.Pagos = append(r.Pagos, dto.PagoResponse{
			Metodo:     p.Metodo,
			MontoUSD:   p.MontoUSD,
			MontoVES:   p.MontoVES,
			Referencia: p.Referencia,
			Notas:      p.Notas,
		})
	}
	return r
}
