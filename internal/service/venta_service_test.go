package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"minisuper/internal/apierror"
	"minisuper/internal/config"
	"minisuper/internal/dto"
	"minisuper/internal/model"
	"minisuper/internal/repository"
	"minisuper/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dia = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type ventaFixture struct {
	svc       service.VentaService
	cajaSvc   service.CajaService
	ventas    *stubVentaRepo
	productos *stubProductoRepo
	lotes     *stubLoteRepo
	cajas     *stubCajaRepo
	tasa      *fakeTasa
	caja      *model.Caja
	cajero    uuid.UUID
	sesion    *dto.SesionCajaResponse
}

// newVentaFixture wires the real inventory, cash and numbering services
// over in-memory repositories, with an open session for the cashier.
func newVentaFixture(t *testing.T) *ventaFixture {
	t.Helper()
	f := &ventaFixture{
		ventas:    newStubVentaRepo(),
		productos: newStubProductoRepo(),
		lotes:     newStubLoteRepo(),
		cajas:     newStubCajaRepo(),
		tasa:      tasaFija("36.50"),
		cajero:    uuid.New(),
	}
	f.caja = seedCaja(f.cajas, 1)

	cfg := &config.Config{
		EmpresaNombre:    "Minisuper La Esquina",
		EmpresaRIF:       "J-12345678-9",
		EmpresaDireccion: "Av. Principal",
		EmpresaTelefono:  "0212-5550000",
	}
	inventario := service.NewInventarioService(f.lotes, f.productos, f.tasa)
	f.cajaSvc = service.NewCajaService(f.cajas, f.tasa, nil)
	numerador := service.NewNumeradorVentas(f.ventas, time.UTC)
	service.SetNumeradorReloj(numerador, func() time.Time { return dia })
	f.svc = service.NewVentaService(f.ventas, f.productos, inventario, f.cajaSvc, f.tasa, numerador, cfg)

	sesion, err := f.cajaSvc.Abrir(context.Background(), f.cajero, dto.AbrirCajaRequest{
		CajaID:          f.caja.ID.String(),
		MontoInicialUSD: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	f.sesion = sesion
	return f
}

func (f *ventaFixture) request(items []dto.ItemVentaRequest, pagos ...dto.PagoRequest) dto.CrearVentaRequest {
	return dto.CrearVentaRequest{CajaID: f.caja.ID.String(), Items: items, Pagos: pagos}
}

func item(p *model.Producto, cantidad int) dto.ItemVentaRequest {
	return dto.ItemVentaRequest{ProductoID: p.ID.String(), Cantidad: cantidad}
}

func pagoUSD(monto string) dto.PagoRequest {
	return dto.PagoRequest{Metodo: model.MetodoEfectivoUSD, MontoUSD: decimal.RequireFromString(monto)}
}

func pagoVES(metodo, monto string) dto.PagoRequest {
	return dto.PagoRequest{Metodo: metodo, MontoVES: decimal.RequireFromString(monto)}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── CrearVenta ────────────────────────────────────────────────────────────────

func TestCrearVenta_TotalesImpuestoYCambio(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Harina PAN", "7591002000011", "2.50")
	lote := seedLote(f.lotes, p, 20, "1.80", fecha("2026-09-01"), dia.AddDate(0, -1, 0))

	resp, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 2)}, pagoUSD("10"),
	))
	require.NoError(t, err)

	v := resp.Venta
	assert.Equal(t, "202603100001", v.NumeroVenta)
	assert.True(t, dec("5.00").Equal(v.SubtotalUSD))
	assert.True(t, dec("182.50").Equal(v.SubtotalVES))
	assert.True(t, dec("0.80").Equal(v.ImpuestoUSD))
	assert.True(t, dec("29.20").Equal(v.ImpuestoVES))
	assert.True(t, dec("5.80").Equal(v.TotalUSD))
	assert.True(t, dec("211.70").Equal(v.TotalVES))
	assert.True(t, dec("4.20").Equal(resp.CambioUSD))
	assert.True(t, dec("153.30").Equal(resp.CambioVES))
	assert.True(t, dec("36.50").Equal(resp.TasaCambio))
	assert.Equal(t, model.MetodoEfectivoUSD, v.MetodoPago)
	assert.Equal(t, model.VentaCompletada, v.Estado)

	require.Len(t, v.Detalles, 1)
	assert.Equal(t, "Harina PAN", v.Detalles[0].Producto)
	assert.True(t, dec("91.25").Equal(v.Detalles[0].PrecioUnitarioVES))
	assert.Equal(t, 18, f.lotes.cantidad(lote.ID))

	sesion := f.cajas.sesion(uuid.MustParse(f.sesion.ID))
	assert.True(t, dec("5.80").Equal(sesion.TotalVentasUSD))
	assert.Equal(t, 1, sesion.TotalTransacciones)
}

func TestCrearVenta_NumeracionSecuencial(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Café", "7590000000001", "4.00")
	seedLote(f.lotes, p, 10, "3.00", nil, dia)

	var numeros []string
	for rep := 0; rep < 3; rep++ {
		resp, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
			[]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("5"),
		))
		require.NoError(t, err)
		numeros = append(numeros, resp.Venta.NumeroVenta)
	}
	assert.Equal(t, []string{"202603100001", "202603100002", "202603100003"}, numeros)
}

func TestCrearVenta_PagoMixto(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Harina PAN", "7591002000011", "2.50")
	seedLote(f.lotes, p, 20, "1.80", nil, dia)

	// 3 USD + 110 Bs (3.01 USD) covers 5.80
	resp, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 2)},
		pagoUSD("3"),
		pagoVES(model.MetodoPagoMovil, "110"),
	))
	require.NoError(t, err)
	assert.Equal(t, model.MetodoMixto, resp.Venta.MetodoPago)
	assert.True(t, dec("0.21").Equal(resp.CambioUSD))
	assert.True(t, dec("110").Equal(resp.Venta.MontoRecibidoVES))
	assert.Len(t, resp.Venta.Pagos, 2)
}

func TestCrearVenta_MismoMetodoEnVariosPagosNoEsMixto(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	seedLote(f.lotes, p, 5, "0.70", nil, dia)

	resp, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("1"), pagoUSD("1"),
	))
	require.NoError(t, err)
	assert.Equal(t, model.MetodoEfectivoUSD, resp.Venta.MetodoPago)
}

func TestCrearVenta_EscenarioBase(t *testing.T) {
	f := newVentaFixture(t)
	f.tasa.tasa = dec("36.0")
	p := seedProducto(f.productos, "Pan campesino", "7590000000010", "2.00")
	lote := seedLote(f.lotes, p, 10, "1.00", nil, dia)

	resp, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 3)}, pagoUSD("10"),
	))
	require.NoError(t, err)
	assert.True(t, dec("6.00").Equal(resp.Venta.SubtotalUSD))
	assert.True(t, dec("0.96").Equal(resp.Venta.ImpuestoUSD))
	assert.True(t, dec("6.96").Equal(resp.Venta.TotalUSD))
	assert.True(t, dec("3.04").Equal(resp.CambioUSD))
	assert.Equal(t, 7, f.lotes.cantidad(lote.ID))
}

func TestCrearVenta_PagoExactoSinCambio(t *testing.T) {
	t.Run("mixto usd + tarjeta", func(t *testing.T) {
		f := newVentaFixture(t)
		f.tasa.tasa = dec("36.0")
		p := seedProducto(f.productos, "Pan campesino", "7590000000010", "2.00")
		seedLote(f.lotes, p, 10, "1.00", nil, dia)

		tarjeta := dto.PagoRequest{Metodo: model.MetodoTarjeta, MontoUSD: dec("1.96")}
		resp, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
			[]dto.ItemVentaRequest{item(p, 3)}, pagoUSD("5"), tarjeta,
		))
		require.NoError(t, err)
		assert.Equal(t, model.MetodoMixto, resp.Venta.MetodoPago)
		assert.True(t, resp.CambioUSD.IsZero())
		assert.True(t, resp.CambioVES.IsZero())
	})

	t.Run("bolivares exactos", func(t *testing.T) {
		f := newVentaFixture(t)
		p := seedProducto(f.productos, "Harina PAN", "7591002000011", "2.50")
		seedLote(f.lotes, p, 20, "1.80", nil, dia)

		// 211.70 / 36.50 = 5.80
		resp, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
			[]dto.ItemVentaRequest{item(p, 2)}, pagoVES(model.MetodoPagoMovil, "211.70"),
		))
		require.NoError(t, err)
		assert.True(t, resp.CambioUSD.IsZero())
	})
}

func TestCrearVenta_PagoVESFaltaMenosDeUnCentavo(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Harina PAN", "7591002000011", "2.50")
	lote := seedLote(f.lotes, p, 20, "1.80", nil, dia)

	// 211.68 / 36.50 = 5.79945..., short of 5.80 by less than a cent
	_, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 2)}, pagoVES(model.MetodoPagoMovil, "211.68"),
	))
	require.Error(t, err)
	appErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeInsufficientPayment, appErr.Code)
	assert.Equal(t, "5.80", appErr.Details["requerido"])
	assert.Equal(t, "5.79", appErr.Details["recibido"])

	assert.Equal(t, 20, f.lotes.cantidad(lote.ID))
	assert.Empty(t, f.ventas.ventas)
	sesion := f.cajas.sesion(uuid.MustParse(f.sesion.ID))
	assert.Zero(t, sesion.TotalTransacciones)
}

func TestCrearVenta_BloqueaLotesEnOrdenDeProducto(t *testing.T) {
	f := newVentaFixture(t)
	a := seedProducto(f.productos, "Azucar", "7590000000020", "1.50")
	b := seedProducto(f.productos, "Sal", "7590000000021", "0.50")
	seedLote(f.lotes, a, 5, "1.00", nil, dia)
	seedLote(f.lotes, b, 5, "0.30", nil, dia)

	menor, mayor := a, b
	if bytes.Compare(a.ID[:], b.ID[:]) > 0 {
		menor, mayor = b, a
	}

	// Cart lists the higher id first and repeats it
	_, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(mayor, 1), item(menor, 1), item(mayor, 1)}, pagoUSD("10"),
	))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{menor.ID, mayor.ID}, f.lotes.bloqueos)
}

func TestCrearVenta_PagoInsuficiente(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Harina PAN", "7591002000011", "2.50")
	lote := seedLote(f.lotes, p, 20, "1.80", nil, dia)

	_, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 2)}, pagoUSD("5"),
	))
	require.Error(t, err)
	appErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeInsufficientPayment, appErr.Code)
	assert.Equal(t, "5.80", appErr.Details["requerido"])
	assert.Equal(t, "5.00", appErr.Details["recibido"])

	assert.Equal(t, 20, f.lotes.cantidad(lote.ID), "stock must be untouched")
	assert.Empty(t, f.ventas.ventas)
}

func TestCrearVenta_StockInsuficiente(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Aceite", "7590000000003", "5.00")
	seedLote(f.lotes, p, 2, "3.50", nil, dia)
	seedLote(f.lotes, p, 1, "3.60", nil, dia.Add(time.Hour))

	_, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 4)}, pagoUSD("100"),
	))
	require.Error(t, err)
	appErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, 3, appErr.Details["disponible"])
	assert.Equal(t, 4, appErr.Details["solicitado"])
}

func TestCrearVenta_ProductoRepetidoSumaContraElMismoStock(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Aceite", "7590000000003", "5.00")
	seedLote(f.lotes, p, 3, "3.50", nil, dia)

	_, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 2), item(p, 2)}, pagoUSD("100"),
	))
	assert.True(t, apierror.HasCode(err, apierror.CodeInsufficientStock))
}

func TestCrearVenta_FIFOGeneraUnaLineaPorLote(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Leche", "7590000000004", "1.50")
	sinFecha := seedLote(f.lotes, p, 10, "1.00", nil, dia.AddDate(0, 0, -10))
	pronto := seedLote(f.lotes, p, 3, "1.10", fecha("2026-03-20"), dia.AddDate(0, 0, -1))

	resp, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 5)}, pagoUSD("20"),
	))
	require.NoError(t, err)

	require.Len(t, resp.Venta.Detalles, 2)
	assert.Equal(t, pronto.ID.String(), *resp.Venta.Detalles[0].LoteID)
	assert.Equal(t, 3, resp.Venta.Detalles[0].Cantidad)
	assert.Equal(t, sinFecha.ID.String(), *resp.Venta.Detalles[1].LoteID)
	assert.Equal(t, 2, resp.Venta.Detalles[1].Cantidad)
	assert.Equal(t, 0, f.lotes.cantidad(pronto.ID))
	assert.Equal(t, 8, f.lotes.cantidad(sinFecha.ID))
}

func TestCrearVenta_SinSesionAbierta(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	seedLote(f.lotes, p, 5, "0.70", nil, dia)

	_, err := f.svc.CrearVenta(context.Background(), uuid.New(), f.request(
		[]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("1"),
	))
	assert.True(t, apierror.HasCode(err, apierror.CodeNoOpenSession))
}

func TestCrearVenta_OtraCaja(t *testing.T) {
	f := newVentaFixture(t)
	otra := seedCaja(f.cajas, 2)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	seedLote(f.lotes, p, 5, "0.70", nil, dia)

	req := f.request([]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("2"))
	req.CajaID = otra.ID.String()
	_, err := f.svc.CrearVenta(context.Background(), f.cajero, req)
	assert.True(t, apierror.HasCode(err, apierror.CodeNoOpenSession))
}

func TestCrearVenta_ProductoInactivo(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Descontinuado", "7590000000005", "1.00")
	p.Activo = false

	_, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("2"),
	))
	assert.True(t, apierror.HasCode(err, apierror.CodeProductNotFound))
}

func TestCrearVenta_SinTasa(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	seedLote(f.lotes, p, 5, "0.70", nil, dia)
	f.tasa.err = apierror.NewRateUnavailable()

	_, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("2"),
	))
	assert.True(t, apierror.HasCode(err, apierror.CodeRateUnavailable))
}

func TestCrearVenta_DescuentoMayorAlSubtotal(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	lote := seedLote(f.lotes, p, 5, "0.70", nil, dia)

	req := f.request([]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("2"))
	req.DescuentoUSD = dec("1.50")
	_, err := f.svc.CrearVenta(context.Background(), f.cajero, req)
	assert.True(t, apierror.HasCode(err, apierror.CodeValidation))
	assert.Equal(t, 5, f.lotes.cantidad(lote.ID))
}

func TestCrearVenta_DescuentoReduceBaseImponible(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Queso", "7590000000006", "10.00")
	seedLote(f.lotes, p, 5, "7.00", nil, dia)

	req := f.request([]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("20"))
	req.DescuentoUSD = dec("2")
	resp, err := f.svc.CrearVenta(context.Background(), f.cajero, req)
	require.NoError(t, err)
	assert.True(t, dec("1.28").Equal(resp.Venta.ImpuestoUSD))
	assert.True(t, dec("9.28").Equal(resp.Venta.TotalUSD))
}

func TestCrearVenta_ValidacionDeEntrada(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	seedLote(f.lotes, p, 5, "0.70", nil, dia)

	tests := []struct {
		name string
		req  dto.CrearVentaRequest
	}{
		{"sin items", f.request(nil, pagoUSD("1"))},
		{"sin pagos", f.request([]dto.ItemVentaRequest{item(p, 1)})},
		{"cantidad cero", f.request([]dto.ItemVentaRequest{item(p, 0)}, pagoUSD("1"))},
		{"pago vacío", f.request([]dto.ItemVentaRequest{item(p, 1)}, dto.PagoRequest{Metodo: model.MetodoTarjeta})},
		{"pago negativo", f.request([]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("-1"), pagoUSD("5"))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CrearVenta(context.Background(), f.cajero, tc.req)
			assert.True(t, apierror.HasCode(err, apierror.CodeValidation), "got %v", err)
		})
	}
	assert.Empty(t, f.ventas.ventas)
}

func TestCrearVenta_ReintentaNumeroDuplicado(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	lote := seedLote(f.lotes, p, 5, "0.70", nil, dia)
	f.ventas.duplicados = 2

	_, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("2"),
	))
	require.NoError(t, err)
	assert.Equal(t, 3, f.ventas.creates)
	assert.Equal(t, 4, f.lotes.cantidad(lote.ID), "only the committed attempt decrements")
}

func TestCrearVenta_AgotaReintentos(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	seedLote(f.lotes, p, 5, "0.70", nil, dia)
	f.ventas.duplicados = 5

	_, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("2"),
	))
	assert.ErrorIs(t, err, repository.ErrDuplicado)
	assert.Equal(t, 3, f.ventas.creates)
}

// ── AnularVenta ───────────────────────────────────────────────────────────────

func TestAnularVenta_RestauraLotesYSesion(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Leche", "7590000000004", "1.50")
	a := seedLote(f.lotes, p, 3, "1.10", fecha("2026-03-20"), dia)
	b := seedLote(f.lotes, p, 10, "1.00", nil, dia)

	creada, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 5)}, pagoUSD("20"),
	))
	require.NoError(t, err)
	ventaID := uuid.MustParse(creada.Venta.ID)

	resp, err := f.svc.AnularVenta(context.Background(), ventaID, "cliente devolvió la mercancía")
	require.NoError(t, err)
	assert.Equal(t, model.VentaCancelada, resp.Estado)
	assert.True(t, creada.Venta.TotalUSD.Equal(resp.MontoReembolsado))

	assert.Equal(t, 3, f.lotes.cantidad(a.ID))
	assert.Equal(t, 10, f.lotes.cantidad(b.ID))

	sesion := f.cajas.sesion(uuid.MustParse(f.sesion.ID))
	assert.True(t, sesion.TotalVentasUSD.IsZero())
	assert.Equal(t, 0, sesion.TotalTransacciones)

	guardada := f.ventas.ventas[ventaID]
	assert.Equal(t, model.VentaCancelada, guardada.Estado)
	require.NotNil(t, guardada.MotivoAnulacion)
	assert.True(t, creada.Venta.TotalUSD.Equal(guardada.TotalUSD), "amounts stay as historical record")
}

func TestAnularVenta_DobleAnulacion(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	lote := seedLote(f.lotes, p, 5, "0.70", nil, dia)

	creada, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 2)}, pagoUSD("5"),
	))
	require.NoError(t, err)
	id := uuid.MustParse(creada.Venta.ID)

	_, err = f.svc.AnularVenta(context.Background(), id, "error del cajero al cobrar")
	require.NoError(t, err)
	_, err = f.svc.AnularVenta(context.Background(), id, "error del cajero al cobrar")
	assert.True(t, apierror.HasCode(err, apierror.CodeAlreadyCancelled))
	assert.Equal(t, 5, f.lotes.cantidad(lote.ID), "stock restored exactly once")
}

func TestAnularVenta_MotivoCorto(t *testing.T) {
	f := newVentaFixture(t)
	_, err := f.svc.AnularVenta(context.Background(), uuid.New(), "corto")
	assert.True(t, apierror.HasCode(err, apierror.CodeValidation))
}

func TestAnularVenta_NoExiste(t *testing.T) {
	f := newVentaFixture(t)
	_, err := f.svc.AnularVenta(context.Background(), uuid.New(), "venta inexistente de prueba")
	assert.True(t, apierror.HasCode(err, apierror.CodeNotFound))
}

func TestAnularVenta_SesionCerradaIgualDescuenta(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	seedLote(f.lotes, p, 5, "0.70", nil, dia)

	creada, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
		[]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("2"),
	))
	require.NoError(t, err)
	_, err = f.cajaSvc.Cerrar(context.Background(), f.cajero, dto.CerrarCajaRequest{MontoFinalUSD: dec("101.16")})
	require.NoError(t, err)

	_, err = f.svc.AnularVenta(context.Background(), uuid.MustParse(creada.Venta.ID), "anulación posterior al cierre")
	require.NoError(t, err)
	sesion := f.cajas.sesion(uuid.MustParse(f.sesion.ID))
	assert.Equal(t, model.SesionCerrada, sesion.Estado)
	assert.True(t, sesion.TotalVentasUSD.IsZero())
}

// ── Queries ──────────────────────────────────────────────────────────────────

func ventaGuardada(f *ventaFixture, p *model.Producto, lote *model.LoteInventario) *model.Venta {
	loteID := lote.ID
	sesionID := uuid.MustParse(f.sesion.ID)
	v := &model.Venta{
		ID:               uuid.New(),
		NumeroVenta:      "202603100042",
		CajaID:           f.caja.ID,
		UsuarioID:        f.cajero,
		SesionCajaID:     &sesionID,
		SubtotalUSD:      dec("10.00"),
		SubtotalVES:      dec("365.00"),
		DescuentoUSD:     decimal.Zero,
		DescuentoVES:     decimal.Zero,
		ImpuestoUSD:      dec("1.60"),
		ImpuestoVES:      dec("58.40"),
		TotalUSD:         dec("11.60"),
		TotalVES:         dec("423.40"),
		TasaCambio:       dec("36.50"),
		MetodoPago:       model.MetodoEfectivoUSD,
		MontoRecibidoUSD: dec("20"),
		MontoRecibidoVES: decimal.Zero,
		CambioUSD:        dec("8.40"),
		CambioVES:        dec("306.60"),
		Estado:           model.VentaCompletada,
		CreatedAt:        dia,
		Usuario:          &model.Usuario{ID: f.cajero, Nombre: "María Pérez"},
		Caja:             f.caja,
	}
	v.Detalles = []model.DetalleVenta{{
		ID:                uuid.New(),
		VentaID:           v.ID,
		ProductoID:        p.ID,
		LoteID:            &loteID,
		Cantidad:          4,
		PrecioUnitarioUSD: dec("2.50"),
		PrecioUnitarioVES: dec("91.25"),
		SubtotalUSD:       dec("10.00"),
		SubtotalVES:       dec("365.00"),
		Producto:          p,
		Lote:              lote,
	}}
	f.ventas.ventas[v.ID] = v
	return v
}

func TestObtenerVenta_AnalisisDeGanancias(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Harina PAN", "7591002000011", "2.50")
	lote := seedLote(f.lotes, p, 20, "1.80", nil, dia)
	v := ventaGuardada(f, p, lote)

	resp, err := f.svc.ObtenerVenta(context.Background(), v.ID)
	require.NoError(t, err)

	a := resp.AnalisisGanancias
	require.Len(t, a.Detalle, 1)
	assert.True(t, dec("1.80").Equal(a.Detalle[0].PrecioCostoUSD))
	assert.True(t, dec("0.70").Equal(a.Detalle[0].GananciaUnitariaUSD))
	assert.True(t, dec("2.80").Equal(a.GananciaTotalUSD))
	assert.True(t, dec("102.20").Equal(a.GananciaTotalVES))
	assert.True(t, dec("28").Equal(a.MargenPromedio))
	assert.Equal(t, "María Pérez", resp.Venta.Cajero)
}

func TestObtenerRecibo(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Harina PAN", "7591002000011", "2.50")
	lote := seedLote(f.lotes, p, 20, "1.80", nil, dia)
	v := ventaGuardada(f, p, lote)

	r, err := f.svc.ObtenerRecibo(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Minisuper La Esquina", r.Empresa.Nombre)
	assert.Equal(t, "J-12345678-9", r.Empresa.RIF)
	assert.Equal(t, "202603100042", r.Venta.Numero)
	assert.Equal(t, "María Pérez", r.Venta.Cajero)
	assert.Equal(t, f.caja.Nombre, r.Venta.Caja)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "7591002000011", r.Items[0].Codigo)
	assert.True(t, dec("11.60").Equal(r.Totales.TotalUSD))
	assert.True(t, dec("8.40").Equal(r.Pago.CambioUSD))
	assert.Equal(t, "Gracias por su compra", r.Footer.Mensaje)
	assert.NotEmpty(t, r.Footer.FechaImpresion)
}

func TestObtenerVenta_NoExiste(t *testing.T) {
	f := newVentaFixture(t)
	_, err := f.svc.ObtenerVenta(context.Background(), uuid.New())
	assert.True(t, apierror.HasCode(err, apierror.CodeNotFound))
}

func TestListVentas_Paginacion(t *testing.T) {
	f := newVentaFixture(t)
	p := seedProducto(f.productos, "Arroz", "7590000000002", "1.00")
	seedLote(f.lotes, p, 50, "0.70", nil, dia)
	for rep := 0; rep < 5; rep++ {
		_, err := f.svc.CrearVenta(context.Background(), f.cajero, f.request(
			[]dto.ItemVentaRequest{item(p, 1)}, pagoUSD("2"),
		))
		require.NoError(t, err)
	}

	resp, err := f.svc.ListVentas(context.Background(), dto.VentaFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Ventas, 2)
	assert.Equal(t, int64(5), resp.Pagination.Total)
	assert.Equal(t, int64(3), resp.Pagination.Pages)
	assert.Equal(t, "202603100003", resp.Ventas[0].NumeroVenta)

	resp, err = f.svc.ListVentas(context.Background(), dto.VentaFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 20, resp.Pagination.Limit)
}
