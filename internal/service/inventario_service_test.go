package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"minisuper/internal/apierror"
	"minisuper/internal/dto"
	"minisuper/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInventarioSvc(t *testing.T) (service.InventarioService, *stubLoteRepo, *stubProductoRepo) {
	t.Helper()
	lotes := newStubLoteRepo()
	productos := newStubProductoRepo()
	svc := service.NewInventarioService(lotes, productos, tasaFija("36.50"))
	service.SetInventarioReloj(svc, func() time.Time { return dia })
	return svc, lotes, productos
}

func ptr[T any](v T) *T { return &v }

// ── FIFO allocation ───────────────────────────────────────────────────────────

func TestAsignar_FIFOPorVencimientoLuegoIngreso(t *testing.T) {
	svc, lotes, productos := newInventarioSvc(t)
	p := seedProducto(productos, "Yogurt", "7590000000010", "1.20")
	b3 := seedLote(lotes, p, 8, "0.80", nil, dia.AddDate(0, 0, -30))
	b2 := seedLote(lotes, p, 10, "0.85", fecha("2026-05-01"), dia.AddDate(0, 0, -5))
	b1 := seedLote(lotes, p, 5, "0.90", fecha("2026-04-01"), dia.AddDate(0, 0, -1))

	a := svc.IniciarAsignacion(nil)
	tomas, err := a.Asignar(context.Background(), p, 12)
	require.NoError(t, err)

	require.Len(t, tomas, 2)
	assert.Equal(t, b1.ID, tomas[0].Lote.ID)
	assert.Equal(t, 5, tomas[0].Cantidad)
	assert.Equal(t, b2.ID, tomas[1].Lote.ID)
	assert.Equal(t, 7, tomas[1].Cantidad)

	// Nothing is written until the plan is confirmed.
	assert.Equal(t, 5, lotes.cantidad(b1.ID))

	require.NoError(t, a.Confirmar(context.Background()))
	assert.Equal(t, 0, lotes.cantidad(b1.ID))
	assert.Equal(t, 3, lotes.cantidad(b2.ID))
	assert.Equal(t, 8, lotes.cantidad(b3.ID))
}

func TestAsignar_MismoVencimientoDesempataPorIngreso(t *testing.T) {
	svc, lotes, productos := newInventarioSvc(t)
	p := seedProducto(productos, "Jamón", "7590000000011", "6.00")
	reciente := seedLote(lotes, p, 4, "4.00", fecha("2026-04-01"), dia.AddDate(0, 0, -1))
	antiguo := seedLote(lotes, p, 4, "4.10", fecha("2026-04-01"), dia.AddDate(0, 0, -9))

	tomas, err := svc.IniciarAsignacion(nil).Asignar(context.Background(), p, 2)
	require.NoError(t, err)
	require.Len(t, tomas, 1)
	assert.Equal(t, antiguo.ID, tomas[0].Lote.ID)
	assert.NotEqual(t, reciente.ID, tomas[0].Lote.ID)
}

func TestAsignar_StockInsuficienteNoPlanifica(t *testing.T) {
	svc, lotes, productos := newInventarioSvc(t)
	p := seedProducto(productos, "Pan", "7590000000012", "0.50")
	l := seedLote(lotes, p, 3, "0.30", nil, dia)

	a := svc.IniciarAsignacion(nil)
	_, err := a.Asignar(context.Background(), p, 4)
	require.Error(t, err)
	appErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "Pan", appErr.Details["producto"])

	require.NoError(t, a.Confirmar(context.Background()))
	assert.Equal(t, 3, lotes.cantidad(l.ID))
}

func TestConfirmar_CarreraDetectada(t *testing.T) {
	svc, lotes, productos := newInventarioSvc(t)
	p := seedProducto(productos, "Pan", "7590000000012", "0.50")
	l := seedLote(lotes, p, 3, "0.30", nil, dia)

	a := svc.IniciarAsignacion(nil)
	_, err := a.Asignar(context.Background(), p, 3)
	require.NoError(t, err)

	// Another sale takes one unit between planning and confirming.
	require.NoError(t, lotes.DescontarTx(context.Background(), nil, l.ID, 1))

	err = a.Confirmar(context.Background())
	assert.True(t, apierror.HasCode(err, apierror.CodeConflict))
}

// ── Restoration ───────────────────────────────────────────────────────────────

func TestRestaurar_LimitaALaCantidadInicial(t *testing.T) {
	svc, lotes, productos := newInventarioSvc(t)
	p := seedProducto(productos, "Pan", "7590000000012", "0.50")
	l := seedLote(lotes, p, 10, "0.30", nil, dia)
	lotes.lotes[l.ID].CantidadActual = 9

	require.NoError(t, svc.RestaurarTx(context.Background(), nil, l.ID, 5))
	assert.Equal(t, 10, lotes.cantidad(l.ID))
}

func TestRestaurar_LoteInexistente(t *testing.T) {
	svc, _, _ := newInventarioSvc(t)
	err := svc.RestaurarTx(context.Background(), nil, uuid.New(), 1)
	assert.True(t, apierror.HasCode(err, apierror.CodeNotFound))
}

// ── Intake ────────────────────────────────────────────────────────────────────

func TestCrearLotes_RegistraConTasaDelDia(t *testing.T) {
	svc, lotes, productos := newInventarioSvc(t)
	p := seedProducto(productos, "Atún", "7590000000013", "2.00")

	out, err := svc.CrearLotes(context.Background(), dto.CrearLotesRequest{Lotes: []dto.CrearLoteRequest{
		{ProductoID: p.ID.String(), Cantidad: 24, PrecioCostoUSD: dec("1.40"), FechaVencimiento: ptr("2027-01-31")},
		{ProductoID: p.ID.String(), Cantidad: 12, PrecioCostoUSD: dec("1.45"), NumeroLote: ptr("L-0099")},
	}})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, 24, out[0].CantidadActual)
	assert.True(t, dec("36.50").Equal(out[0].TasaCambioRegistro))
	assert.True(t, dec("51.10").Equal(out[0].PrecioCostoVES))
	assert.True(t, dec("33.60").Equal(out[0].ValorInventarioUSD))
	assert.Equal(t, "2027-01-31", *out[0].FechaVencimiento)
	assert.Equal(t, "Atún", out[0].Producto)

	stock, err := lotes.StockDisponible(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 36, stock)
}

func TestCrearLotes_TodoONada(t *testing.T) {
	svc, lotes, productos := newInventarioSvc(t)
	p := seedProducto(productos, "Atún", "7590000000013", "2.00")

	_, err := svc.CrearLotes(context.Background(), dto.CrearLotesRequest{Lotes: []dto.CrearLoteRequest{
		{ProductoID: p.ID.String(), Cantidad: 10, PrecioCostoUSD: dec("1.40")},
		{ProductoID: uuid.NewString(), Cantidad: 10, PrecioCostoUSD: dec("1.40")},
		{ProductoID: p.ID.String(), Cantidad: 10, PrecioCostoUSD: dec("1.40"), FechaVencimiento: ptr("2026-01-01")},
	}})
	require.Error(t, err)
	appErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.CodeValidation, appErr.Code)
	require.Len(t, appErr.Errors, 2)
	assert.True(t, strings.HasPrefix(appErr.Errors[0], "lotes[1]"))
	assert.True(t, strings.HasPrefix(appErr.Errors[1], "lotes[2]"))
	assert.Empty(t, lotes.lotes)
}

// ── Adjustment ────────────────────────────────────────────────────────────────

func TestAjustarLote(t *testing.T) {
	svc, lotes, productos := newInventarioSvc(t)
	p := seedProducto(productos, "Pan", "7590000000012", "0.50")
	l := seedLote(lotes, p, 10, "0.30", nil, dia)

	resp, err := svc.AjustarLote(context.Background(), l.ID, dto.AjustarLoteRequest{CantidadNueva: 7, Motivo: "conteo físico"})
	require.NoError(t, err)
	assert.Equal(t, 7, resp.CantidadActual)
	assert.Equal(t, 7, lotes.cantidad(l.ID))

	_, err = svc.AjustarLote(context.Background(), l.ID, dto.AjustarLoteRequest{CantidadNueva: 11, Motivo: "conteo físico"})
	assert.True(t, apierror.HasCode(err, apierror.CodeValidation))
	assert.Equal(t, 7, lotes.cantidad(l.ID))
}

// ── Queries ──────────────────────────────────────────────────────────────────

func TestStockProducto_StockBajo(t *testing.T) {
	svc, lotes, productos := newInventarioSvc(t)
	p := seedProducto(productos, "Pan", "7590000000012", "0.50")
	seedLote(lotes, p, 3, "0.30", nil, dia)
	agotado := seedLote(lotes, p, 2, "0.30", nil, dia)
	lotes.lotes[agotado.ID].CantidadActual = 0

	resp, err := svc.StockProducto(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.StockTotal)
	assert.True(t, resp.StockBajo)
	assert.Len(t, resp.Lotes, 1, "depleted lots are not listed")
}

func TestReporteVencimientos(t *testing.T) {
	svc, lotes, productos := newInventarioSvc(t)
	p := seedProducto(productos, "Yogurt", "7590000000010", "1.20")
	vencido := seedLote(lotes, p, 2, "0.80", fecha("2026-03-01"), dia)
	semana := seedLote(lotes, p, 2, "0.80", fecha("2026-03-14"), dia)
	mes := seedLote(lotes, p, 2, "0.80", fecha("2026-03-30"), dia)
	seedLote(lotes, p, 2, "0.80", fecha("2026-06-30"), dia)
	seedLote(lotes, p, 2, "0.80", nil, dia)

	r, err := svc.ReporteVencimientos(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 30, r.DiasLimite)
	require.Len(t, r.Vencidos, 1)
	assert.Equal(t, vencido.ID.String(), r.Vencidos[0].ID)
	assert.True(t, r.Vencidos[0].Vencido)
	require.Len(t, r.EstaSemana, 1)
	assert.Equal(t, semana.ID.String(), r.EstaSemana[0].ID)
	require.Len(t, r.EsteMes, 1)
	assert.Equal(t, mes.ID.String(), r.EsteMes[0].ID)
	assert.True(t, r.EsteMes[0].PorVencer)
}
