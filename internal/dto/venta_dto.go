package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /api/sales.
// Empty fields do not filter.
type VentaFilter struct {
	FechaInicio string `form:"fecha_inicio" validate:"omitempty,datetime=2006-01-02"`
	FechaFin    string `form:"fecha_fin"    validate:"omitempty,datetime=2006-01-02"`
	MetodoPago  string `form:"metodo_pago"  validate:"omitempty,oneof=efectivo_usd efectivo_ves tarjeta transferencia pago_movil mixed"`
	Estado      string `form:"estado"       validate:"omitempty,oneof=completada cancelada"`
	UsuarioID   string `form:"usuario_id"   validate:"omitempty,uuid"`
	Page        int    `form:"page,default=1"   validate:"min=1"`
	Limit       int    `form:"limit,default=20" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Ventas     []VentaResponse `json:"ventas"`
	Pagination Pagination      `json:"pagination"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewPagination computes the page count for total rows.
func NewPagination(page, limit int, total int64) Pagination {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemVentaRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
}

type PagoRequest struct {
	Metodo     string          `json:"metodo"     validate:"required,oneof=efectivo_usd efectivo_ves tarjeta transferencia pago_movil"`
	MontoUSD   decimal.Decimal `json:"monto_usd"  validate:"min=0"`
	MontoVES   decimal.Decimal `json:"monto_ves"  validate:"min=0"`
	Referencia *string         `json:"referencia" validate:"omitempty,max=100"`
	Notas      *string         `json:"notas"      validate:"omitempty,max=255"`
}

type CrearVentaRequest struct {
	CajaID       string             `json:"caja_id"       validate:"required,uuid"`
	Items        []ItemVentaRequest `json:"items"         validate:"required,min=1,dive"`
	Pagos        []PagoRequest      `json:"pagos"         validate:"required,min=1,dive"`
	DescuentoUSD decimal.Decimal    `json:"descuento_usd" validate:"min=0"`
	DescuentoVES decimal.Decimal    `json:"descuento_ves" validate:"min=0"`
}

type AnularVentaRequest struct {
	Motivo string `json:"motivo" validate:"required,min=10,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DetalleVentaResponse struct {
	ProductoID        string          `json:"producto_id"`
	Producto          string          `json:"producto"`
	LoteID            *string         `json:"lote_id,omitempty"`
	Cantidad          int             `json:"cantidad"`
	PrecioUnitarioUSD decimal.Decimal `json:"precio_unitario_usd"`
	PrecioUnitarioVES decimal.Decimal `json:"precio_unitario_ves"`
	SubtotalUSD       decimal.Decimal `json:"subtotal_usd"`
	SubtotalVES       decimal.Decimal `json:"subtotal_ves"`
}

type PagoResponse struct {
	Metodo     string          `json:"metodo"`
	MontoUSD   decimal.Decimal `json:"monto_usd"`
	MontoVES   decimal.Decimal `json:"monto_ves"`
	Referencia *string         `json:"referencia,omitempty"`
	Notas      *string         `json:"notas,omitempty"`
}

type VentaResponse struct {
	ID               string                 `json:"id"`
	NumeroVenta      string                 `json:"numero_venta"`
	CajaID           string                 `json:"caja_id"`
	UsuarioID        string                 `json:"usuario_id"`
	SesionCajaID     *string                `json:"cierre_caja_id,omitempty"`
	Cajero           string                 `json:"cajero,omitempty"`
	SubtotalUSD      decimal.Decimal        `json:"subtotal_usd"`
	SubtotalVES      decimal.Decimal        `json:"subtotal_ves"`
	DescuentoUSD     decimal.Decimal        `json:"descuento_usd"`
	DescuentoVES     decimal.Decimal        `json:"descuento_ves"`
	ImpuestoUSD      decimal.Decimal        `json:"impuesto_usd"`
	ImpuestoVES      decimal.Decimal        `json:"impuesto_ves"`
	TotalUSD         decimal.Decimal        `json:"total_usd"`
	TotalVES         decimal.Decimal        `json:"total_ves"`
	TasaCambio       decimal.Decimal        `json:"tasa_cambio"`
	MetodoPago       string                 `json:"metodo_pago"`
	MontoRecibidoUSD decimal.Decimal        `json:"monto_recibido_usd"`
	MontoRecibidoVES decimal.Decimal        `json:"monto_recibido_ves"`
	CambioUSD        decimal.Decimal        `json:"cambio_usd"`
	CambioVES        decimal.Decimal        `json:"cambio_ves"`
	Estado           string                 `json:"estado"`
	MotivoAnulacion  *string                `json:"motivo_anulacion,omitempty"`
	Detalles         []DetalleVentaResponse `json:"detalles"`
	Pagos            []PagoResponse         `json:"pagos"`
	CreatedAt        string                 `json:"created_at"`
}

// CrearVentaResponse is the payload of POST /api/sales.
type CrearVentaResponse struct {
	Venta      VentaResponse   `json:"venta"`
	CambioUSD  decimal.Decimal `json:"cambio_usd"`
	CambioVES  decimal.Decimal `json:"cambio_ves"`
	TasaCambio decimal.Decimal `json:"tasa_cambio"`
}

type AnularVentaResponse struct {
	VentaID          string          `json:"venta_id"`
	NumeroVenta      string          `json:"numero_venta"`
	Estado           string          `json:"estado"`
	MontoReembolsado decimal.Decimal `json:"monto_reembolsado"`
}

type GananciaDetalleResponse struct {
	Producto            string          `json:"producto"`
	Cantidad            int             `json:"cantidad"`
	PrecioVentaUSD      decimal.Decimal `json:"precio_venta_usd"`
	PrecioCostoUSD      decimal.Decimal `json:"precio_costo_usd"`
	GananciaUnitariaUSD decimal.Decimal `json:"ganancia_unitaria_usd"`
	GananciaTotalUSD    decimal.Decimal `json:"ganancia_total_usd"`
	MargenPorcentaje    decimal.Decimal `json:"margen_porcentaje"`
}

type AnalisisGanancias struct {
	GananciaTotalUSD decimal.Decimal           `json:"ganancia_total_usd"`
	GananciaTotalVES decimal.Decimal           `json:"ganancia_total_ves"`
	MargenPromedio   decimal.Decimal           `json:"margen_promedio"`
	Detalle          []GananciaDetalleResponse `json:"detalle_ganancias"`
}

type VentaDetalleResponse struct {
	Venta             VentaResponse     `json:"venta"`
	AnalisisGanancias AnalisisGanancias `json:"analisis_ganancias"`
}

// ─── Receipt ─────────────────────────────────────────────────────────────────

type ReciboEmpresa struct {
	Nombre    string `json:"nombre"`
	Direccion string `json:"direccion"`
	Telefono  string `json:"telefono"`
	RIF       string `json:"rif"`
}

type ReciboVenta struct {
	Numero string `json:"numero"`
	Fecha  string `json:"fecha"`
	Cajero string `json:"cajero"`
	Caja   string `json:"caja"`
	Estado string `json:"estado"`
}

type ReciboItem struct {
	Codigo            string          `json:"codigo"`
	Nombre            string          `json:"nombre"`
	Cantidad          int             `json:"cantidad"`
	PrecioUnitarioUSD decimal.Decimal `json:"precio_unitario_usd"`
	PrecioUnitarioVES decimal.Decimal `json:"precio_unitario_ves"`
	SubtotalUSD       decimal.Decimal `json:"subtotal_usd"`
	SubtotalVES       decimal.Decimal `json:"subtotal_ves"`
}

type ReciboTotales struct {
	SubtotalUSD  decimal.Decimal `json:"subtotal_usd"`
	SubtotalVES  decimal.Decimal `json:"subtotal_ves"`
	DescuentoUSD decimal.Decimal `json:"descuento_usd"`
	DescuentoVES decimal.Decimal `json:"descuento_ves"`
	ImpuestoUSD  decimal.Decimal `json:"impuesto_usd"`
	ImpuestoVES  decimal.Decimal `json:"impuesto_ves"`
	TotalUSD     decimal.Decimal `json:"total_usd"`
	TotalVES     decimal.Decimal `json:"total_ves"`
}

type ReciboPago struct {
	Metodo      string          `json:"metodo"`
	RecibidoUSD decimal.Decimal `json:"recibido_usd"`
	RecibidoVES decimal.Decimal `json:"recibido_ves"`
	CambioUSD   decimal.Decimal `json:"cambio_usd"`
	CambioVES   decimal.Decimal `json:"cambio_ves"`
	TasaCambio  decimal.Decimal `json:"tasa_cambio"`
}

type ReciboFooter struct {
	Mensaje        string `json:"mensaje"`
	FechaImpresion string `json:"fecha_impresion"`
}

type ReciboResponse struct {
	Empresa ReciboEmpresa `json:"empresa"`
	Venta   ReciboVenta   `json:"venta"`
	Items   []ReciboItem  `json:"items"`
	Totales ReciboTotales `json:"totales"`
	Pago    ReciboPago    `json:"pago"`
	Footer  ReciboFooter  `json:"footer"`
}
