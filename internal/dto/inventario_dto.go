package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearLoteRequest struct {
	ProductoID       string          `json:"producto_id"       validate:"required,uuid"`
	ProveedorID      *string         `json:"proveedor_id"      validate:"omitempty,uuid"`
	NumeroLote       *string         `json:"numero_lote"       validate:"omitempty,max=50"`
	Cantidad         int             `json:"cantidad"          validate:"required,min=1"`
	PrecioCostoUSD   decimal.Decimal `json:"precio_costo_usd"  validate:"gt=0"`
	FechaVencimiento *string         `json:"fecha_vencimiento" validate:"omitempty,datetime=2006-01-02"`
	Observaciones    *string         `json:"observaciones"     validate:"omitempty,max=255"`
}

// CrearLotesRequest is all-or-nothing: one invalid entry rejects the whole batch.
type CrearLotesRequest struct {
	Lotes []CrearLoteRequest `json:"lotes" validate:"required,min=1,max=100,dive"`
}

type AjustarLoteRequest struct {
	CantidadNueva int    `json:"cantidad_nueva" validate:"min=0"`
	Motivo        string `json:"motivo"         validate:"required,min=5,max=255"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LoteResponse struct {
	ID                 string          `json:"id"`
	ProductoID         string          `json:"producto_id"`
	Producto           string          `json:"producto,omitempty"`
	ProveedorID        *string         `json:"proveedor_id,omitempty"`
	NumeroLote         *string         `json:"numero_lote,omitempty"`
	CantidadInicial    int             `json:"cantidad_inicial"`
	CantidadActual     int             `json:"cantidad_actual"`
	PrecioCostoUSD     decimal.Decimal `json:"precio_costo_usd"`
	PrecioCostoVES     decimal.Decimal `json:"precio_costo_ves"`
	TasaCambioRegistro decimal.Decimal `json:"tasa_cambio_registro"`
	ValorInventarioUSD decimal.Decimal `json:"valor_inventario_usd"`
	ValorInventarioVES decimal.Decimal `json:"valor_inventario_ves"`
	FechaVencimiento   *string         `json:"fecha_vencimiento,omitempty"`
	FechaIngreso       string          `json:"fecha_ingreso"`
	Vencido            bool            `json:"vencido"`
	PorVencer          bool            `json:"por_vencer"`
}

// ErrorLote reports why entry Indice of a CrearLotesRequest was rejected.
type ErrorLote struct {
	Indice  int    `json:"indice"`
	Mensaje string `json:"mensaje"`
}

type StockProductoResponse struct {
	ProductoID  string         `json:"producto_id"`
	Producto    string         `json:"producto"`
	StockTotal  int            `json:"stock_total"`
	StockMinimo int            `json:"stock_minimo"`
	StockBajo   bool           `json:"stock_bajo"`
	Lotes       []LoteResponse `json:"lotes"`
}

type ReporteVencimientoResponse struct {
	Vencidos   []LoteResponse `json:"vencidos"`
	EstaSemana []LoteResponse `json:"esta_semana"`
	EsteMes    []LoteResponse `json:"este_mes"`
	DiasLimite int            `json:"dias_limite"`
}
