package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is a catalog entry. Stock lives in LoteInventario, never here.
type Producto struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodigoBarras   string          `gorm:"uniqueIndex;not null"`
	CodigoInterno  *string         `gorm:"uniqueIndex"`
	Nombre         string          `gorm:"index;not null"`
	Descripcion    *string
	PrecioVentaUSD decimal.Decimal `gorm:"column:precio_venta_usd;type:decimal(12,2);not null"`
	PrecioCostoUSD decimal.Decimal `gorm:"column:precio_costo_usd;type:decimal(12,2);not null"`
	StockMinimo    int             `gorm:"not null;default:5"`
	UnidadMedida   string          `gorm:"not null;default:'unidad'"`
	Activo         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
