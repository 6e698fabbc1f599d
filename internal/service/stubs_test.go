package service_test

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"minisuper/internal/dto"
	"minisuper/internal/model"
	"minisuper/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Rate ──────────────────────────────────────────────────────────────────────

type fakeTasa struct {
	tasa decimal.Decimal
	err  error
}

func (f *fakeTasa) TasaActual(_ context.Context) (decimal.Decimal, error) {
	return f.tasa, f.err
}

func tasaFija(v string) *fakeTasa { return &fakeTasa{tasa: decimal.RequireFromString(v)} }

// ── Productos ─────────────────────────────────────────────────────────────────

type stubProductoRepo struct {
	productos map[uuid.UUID]*model.Producto
}

func newStubProductoRepo() *stubProductoRepo {
	return &stubProductoRepo{productos: make(map[uuid.UUID]*model.Producto)}
}

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	for _, existente := range r.productos {
		if existente.CodigoBarras == p.CodigoBarras {
			return repository.ErrDuplicado
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.productos[p.ID] = p
	return nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *stubProductoRepo) FindByBarcode(_ context.Context, barcode string) (*model.Producto, error) {
	for _, p := range r.productos {
		if p.Activo && (p.CodigoBarras == barcode || (p.CodigoInterno != nil && *p.CodigoInterno == barcode)) {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubProductoRepo) FindActivoTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok || !p.Activo {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

func seedProducto(repo *stubProductoRepo, nombre, barcode, precioUSD string) *model.Producto {
	p := &model.Producto{
		ID:             uuid.New(),
		CodigoBarras:   barcode,
		Nombre:         nombre,
		PrecioVentaUSD: decimal.RequireFromString(precioUSD),
		PrecioCostoUSD: decimal.RequireFromString(precioUSD).Mul(decimal.NewFromFloat(0.7)).Round(2),
		StockMinimo:    5,
		UnidadMedida:   "unidad",
		Activo:         true,
	}
	repo.productos[p.ID] = p
	return p
}

// ── Lotes ─────────────────────────────────────────────────────────────────────

// stubLoteRepo is an in-memory LoteRepository. Guarded decrements behave
// like the SQL version: they fail when the lot no longer has enough stock.
type stubLoteRepo struct {
	mu    sync.Mutex
	lotes map[uuid.UUID]*model.LoteInventario
	orden []uuid.UUID
	// bloqueos records the product of every locking read, in call order.
	bloqueos []uuid.UUID
}

func newStubLoteRepo() *stubLoteRepo {
	return &stubLoteRepo{lotes: make(map[uuid.UUID]*model.LoteInventario)}
}

func (r *stubLoteRepo) add(l *model.LoteInventario) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	r.lotes[l.ID] = l
	r.orden = append(r.orden, l.ID)
}

func (r *stubLoteRepo) CreateManyTx(_ context.Context, _ *gorm.DB, lotes []model.LoteInventario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range lotes {
		lotes[i].ID = uuid.New()
		cp := lotes[i]
		r.add(&cp)
	}
	return nil
}

func (r *stubLoteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.LoteInventario, error) {
	return r.FindByIDForUpdateTx(ctx, nil, id)
}

func (r *stubLoteRepo) FindByIDForUpdateTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.LoteInventario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// ListDisponiblesForUpdateTx returns lots in insertion order; callers must sort.
func (r *stubLoteRepo) ListDisponiblesForUpdateTx(_ context.Context, _ *gorm.DB, productoID uuid.UUID) ([]model.LoteInventario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bloqueos = append(r.bloqueos, productoID)
	var out []model.LoteInventario
	for _, id := range r.orden {
		l := r.lotes[id]
		if l.ProductoID == productoID && l.CantidadActual > 0 {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *stubLoteRepo) DescontarTx(_ context.Context, _ *gorm.DB, id uuid.UUID, cantidad int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotes[id]
	if !ok || l.CantidadActual < cantidad {
		return repository.ErrSinFilasAfectadas
	}
	l.CantidadActual -= cantidad
	return nil
}

func (r *stubLoteRepo) SetCantidadTx(_ context.Context, _ *gorm.DB, id uuid.UUID, cantidad int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotes[id]
	if !ok || cantidad > l.CantidadInicial {
		return repository.ErrSinFilasAfectadas
	}
	l.CantidadActual = cantidad
	return nil
}

func (r *stubLoteRepo) ListByProducto(_ context.Context, productoID uuid.UUID) ([]model.LoteInventario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.LoteInventario
	for _, id := range r.orden {
		if l := r.lotes[id]; l.ProductoID == productoID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *stubLoteRepo) ListConVencimiento(_ context.Context, hasta time.Time) ([]model.LoteInventario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.LoteInventario
	for _, id := range r.orden {
		l := r.lotes[id]
		if l.CantidadActual > 0 && l.FechaVencimiento != nil && !l.FechaVencimiento.After(hasta) {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *stubLoteRepo) StockDisponible(_ context.Context, productoID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, l := range r.lotes {
		if l.ProductoID == productoID {
			total += l.CantidadActual
		}
	}
	return total, nil
}

func (r *stubLoteRepo) DB() *gorm.DB { return nil }

var _ repository.LoteRepository = (*stubLoteRepo)(nil)

func (r *stubLoteRepo) cantidad(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lotes[id].CantidadActual
}

func seedLote(repo *stubLoteRepo, p *model.Producto, cantidad int, costo string, vence *time.Time, ingreso time.Time) *model.LoteInventario {
	l := &model.LoteInventario{
		ID:                 uuid.New(),
		ProductoID:         p.ID,
		CantidadInicial:    cantidad,
		CantidadActual:     cantidad,
		PrecioCostoUSD:     decimal.RequireFromString(costo),
		TasaCambioRegistro: decimal.RequireFromString("36.5"),
		FechaVencimiento:   vence,
		FechaIngreso:       ingreso,
	}
	repo.add(l)
	return l
}

func fecha(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

// ── Ventas ────────────────────────────────────────────────────────────────────

type stubVentaRepo struct {
	mu     sync.Mutex
	ventas map[uuid.UUID]*model.Venta
	// duplicados makes the next N Create calls fail with ErrDuplicado.
	duplicados int
	creates    int
}

func newStubVentaRepo() *stubVentaRepo {
	return &stubVentaRepo{ventas: make(map[uuid.UUID]*model.Venta)}
}

func (r *stubVentaRepo) Create(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.duplicados > 0 {
		r.duplicados--
		return repository.ErrDuplicado
	}
	for _, existente := range r.ventas {
		if existente.NumeroVenta == v.NumeroVenta {
			return repository.ErrDuplicado
		}
	}
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	for i := range v.Detalles {
		v.Detalles[i].ID = uuid.New()
		v.Detalles[i].VentaID = v.ID
	}
	for i := range v.Pagos {
		v.Pagos[i].ID = uuid.New()
		v.Pagos[i].VentaID = v.ID
	}
	r.ventas[v.ID] = v
	return nil
}

func (r *stubVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v, nil
}

func (r *stubVentaRepo) FindByIDForUpdateTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *stubVentaRepo) UltimoNumeroDelDiaTx(_ context.Context, _ *gorm.DB, prefijo string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ultimo := ""
	for _, v := range r.ventas {
		if strings.HasPrefix(v.NumeroVenta, prefijo) && v.NumeroVenta > ultimo {
			ultimo = v.NumeroVenta
		}
	}
	return ultimo, nil
}

func (r *stubVentaRepo) AnularTx(_ context.Context, _ *gorm.DB, id uuid.UUID, motivo string, fecha time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok || v.Estado != model.VentaCompletada {
		return repository.ErrSinFilasAfectadas
	}
	v.Estado = model.VentaCancelada
	v.MotivoAnulacion = &motivo
	v.FechaAnulacion = &fecha
	return nil
}

func (r *stubVentaRepo) List(_ context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Venta
	for _, v := range r.ventas {
		if filter.Estado != "" && v.Estado != filter.Estado {
			continue
		}
		if filter.MetodoPago != "" && v.MetodoPago != filter.MetodoPago {
			continue
		}
		out = append(out, *v)
	}
	slices.SortFunc(out, func(a, b model.Venta) int { return strings.Compare(b.NumeroVenta, a.NumeroVenta) })
	total := int64(len(out))
	inicio := (filter.Page - 1) * filter.Limit
	if inicio >= len(out) {
		return []model.Venta{}, total, nil
	}
	return out[inicio:min(inicio+filter.Limit, len(out))], total, nil
}

func (r *stubVentaRepo) DB() *gorm.DB { return nil }

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

// ── Caja ──────────────────────────────────────────────────────────────────────

// stubCajaRepo mimics the partial unique indexes on open sessions.
type stubCajaRepo struct {
	mu       sync.Mutex
	cajas    map[uuid.UUID]*model.Caja
	sesiones map[uuid.UUID]*model.SesionCaja
	resumen  []dto.ResumenMetodo
}

func newStubCajaRepo() *stubCajaRepo {
	return &stubCajaRepo{
		cajas:    make(map[uuid.UUID]*model.Caja),
		sesiones: make(map[uuid.UUID]*model.SesionCaja),
	}
}

func (r *stubCajaRepo) CreateCaja(_ context.Context, c *model.Caja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existente := range r.cajas {
		if existente.NumeroCaja == c.NumeroCaja {
			return repository.ErrDuplicado
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.cajas[c.ID] = c
	return nil
}

func (r *stubCajaRepo) ListCajas(_ context.Context) ([]model.Caja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Caja
	for _, c := range r.cajas {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b model.Caja) int { return a.NumeroCaja - b.NumeroCaja })
	return out, nil
}

func (r *stubCajaRepo) FindCajaByID(_ context.Context, id uuid.UUID) (*model.Caja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cajas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (r *stubCajaRepo) CreateSesion(_ context.Context, s *model.SesionCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.sesiones {
		if e.Estado == model.SesionAbierta && (e.UsuarioID == s.UsuarioID || e.CajaID == s.CajaID) {
			return repository.ErrDuplicado
		}
	}
	s.ID = uuid.New()
	r.sesiones[s.ID] = s
	return nil
}

func (r *stubCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	cp.Caja = r.cajas[s.CajaID]
	return &cp, nil
}

func (r *stubCajaRepo) buscarAbierta(match func(*model.SesionCaja) bool) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sesiones {
		if s.Estado == model.SesionAbierta && match(s) {
			cp := *s
			cp.Caja = r.cajas[s.CajaID]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubCajaRepo) FindSesionAbiertaPorUsuario(_ context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	return r.buscarAbierta(func(s *model.SesionCaja) bool { return s.UsuarioID == usuarioID })
}

func (r *stubCajaRepo) FindSesionAbiertaPorCaja(_ context.Context, cajaID uuid.UUID) (*model.SesionCaja, error) {
	return r.buscarAbierta(func(s *model.SesionCaja) bool { return s.CajaID == cajaID })
}

func (r *stubCajaRepo) FindSesionForUpdateTx(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	return r.FindSesionByID(ctx, id)
}

func (r *stubCajaRepo) CerrarSesionTx(_ context.Context, _ *gorm.DB, id uuid.UUID, c repository.CierreSesion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[id]
	if !ok || s.Estado != model.SesionAbierta {
		return repository.ErrSinFilasAfectadas
	}
	s.Estado = model.SesionCerrada
	s.FechaCierre = &c.FechaCierre
	s.MontoFinalUSD = &c.MontoFinalUSD
	s.MontoFinalVES = &c.MontoFinalVES
	s.TasaCambioCierre = &c.TasaCierre
	s.DiferenciaUSD = &c.DiferenciaUSD
	s.Observaciones = c.Observaciones
	return nil
}

func (r *stubCajaRepo) SumarVentaTx(_ context.Context, _ *gorm.DB, sesionID uuid.UUID, totalUSD decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[sesionID]
	if !ok || s.Estado != model.SesionAbierta {
		return repository.ErrSinFilasAfectadas
	}
	s.TotalVentasUSD = s.TotalVentasUSD.Add(totalUSD)
	s.TotalTransacciones++
	return nil
}

func (r *stubCajaRepo) RestarVentaTx(_ context.Context, _ *gorm.DB, sesionID uuid.UUID, totalUSD decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[sesionID]
	if !ok {
		return repository.ErrSinFilasAfectadas
	}
	s.TotalVentasUSD = s.TotalVentasUSD.Sub(totalUSD)
	s.TotalTransacciones = max(s.TotalTransacciones-1, 0)
	return nil
}

func (r *stubCajaRepo) ListHistorial(_ context.Context, filter dto.HistorialCajaFilter) ([]model.SesionCaja, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SesionCaja
	for _, s := range r.sesiones {
		if filter.CajaID != "" && s.CajaID.String() != filter.CajaID {
			continue
		}
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *stubCajaRepo) ResumenPorMetodo(_ context.Context, _ uuid.UUID) ([]dto.ResumenMetodo, error) {
	return r.resumen, nil
}

func (r *stubCajaRepo) DB() *gorm.DB { return nil }

var _ repository.CajaRepository = (*stubCajaRepo)(nil)

func (r *stubCajaRepo) sesion(id uuid.UUID) model.SesionCaja {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.sesiones[id]
}

func seedCaja(repo *stubCajaRepo, numero int) *model.Caja {
	c := &model.Caja{ID: uuid.New(), NumeroCaja: numero, Nombre: fmt.Sprintf("Caja %d", numero), Activo: true}
	repo.cajas[c.ID] = c
	return c
}

// ── Usuarios ──────────────────────────────────────────────────────────────────

type stubUsuarioRepo struct {
	usuarios map[uuid.UUID]*model.Usuario
}

func newStubUsuarioRepo() *stubUsuarioRepo {
	return &stubUsuarioRepo{usuarios: make(map[uuid.UUID]*model.Usuario)}
}

func (r *stubUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	for _, e := range r.usuarios {
		if e.Username == u.Username {
			return repository.ErrDuplicado
		}
	}
	u.ID = uuid.New()
	r.usuarios[u.ID] = u
	return nil
}

func (r *stubUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	for _, u := range r.usuarios {
		if u.Activo && (u.Username == username || (u.Email != nil && strings.EqualFold(*u.Email, username))) {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	u, ok := r.usuarios[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *stubUsuarioRepo) List(_ context.Context) ([]model.Usuario, error) {
	var out []model.Usuario
	for _, u := range r.usuarios {
		out = append(out, *u)
	}
	return out, nil
}

var _ repository.UsuarioRepository = (*stubUsuarioRepo)(nil)
