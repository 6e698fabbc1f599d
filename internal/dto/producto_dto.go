package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	CodigoBarras   string          `json:"codigo_barras"    validate:"required,min=4,max=50"`
	CodigoInterno  *string         `json:"codigo_interno"   validate:"omitempty,max=50"`
	Nombre         string          `json:"nombre"           validate:"required,min=2,max=200"`
	Descripcion    *string         `json:"descripcion"`
	PrecioVentaUSD decimal.Decimal `json:"precio_venta_usd" validate:"gt=0"`
	PrecioCostoUSD decimal.Decimal `json:"precio_costo_usd" validate:"min=0"`
	StockMinimo    int             `json:"stock_minimo"     validate:"min=0"`
	UnidadMedida   string          `json:"unidad_medida"    validate:"omitempty,max=20"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID             string          `json:"id"`
	CodigoBarras   string          `json:"codigo_barras"`
	CodigoInterno  *string         `json:"codigo_interno,omitempty"`
	Nombre         string          `json:"nombre"`
	Descripcion    *string         `json:"descripcion,omitempty"`
	PrecioVentaUSD decimal.Decimal `json:"precio_venta_usd"`
	PrecioCostoUSD decimal.Decimal `json:"precio_costo_usd"`
	StockMinimo    int             `json:"stock_minimo"`
	UnidadMedida   string          `json:"unidad_medida"`
	Activo         bool            `json:"activo"`
}

// ConsultaPrecioResponse is returned by the barcode lookup used at the POS.
type ConsultaPrecioResponse struct {
	Producto        ProductoResponse `json:"producto"`
	PrecioVentaVES  decimal.Decimal  `json:"precio_venta_ves"`
	TasaCambio      decimal.Decimal  `json:"tasa_cambio"`
	StockDisponible int              `json:"stock_disponible"`
}
