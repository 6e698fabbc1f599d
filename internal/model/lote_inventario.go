package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoteInventario is a lot of stock for one product.
// Invariant: 0 <= CantidadActual <= CantidadInicial.
// CantidadActual only changes through sale allocation, cancellation
// restoration and manual adjustment. Lots are never deleted.
type LoteInventario struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_lotes_fifo,priority:1"`
	ProveedorID     *uuid.UUID      `gorm:"type:uuid;index"`
	NumeroLote      *string         `gorm:"type:varchar(50)"`
	CantidadInicial int             `gorm:"not null"`
	CantidadActual  int             `gorm:"not null;check:chk_lotes_cantidad,cantidad_actual >= 0 AND cantidad_actual <= cantidad_inicial"`
	PrecioCostoUSD  decimal.Decimal `gorm:"column:precio_costo_usd;type:decimal(12,2);not null"`
	// TasaCambioRegistro is the rate snapshot taken at intake.
	TasaCambioRegistro decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	FechaVencimiento   *time.Time      `gorm:"type:date;index:idx_lotes_fifo,priority:2"`
	FechaIngreso       time.Time       `gorm:"not null;index:idx_lotes_fifo,priority:3"`
	Observaciones      *string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Producto  *Producto  `gorm:"foreignKey:ProductoID"`
	Proveedor *Proveedor `gorm:"foreignKey:ProveedorID"`
}

func (LoteInventario) TableName() string { return "inventario_lotes" }

// CompararFIFO orders lots for consumption: lots with an expiry date first,
// earliest expiry first, then earliest intake. It returns <0, 0 or >0.
func CompararFIFO(a, b LoteInventario) int {
	switch {
	case a.FechaVencimiento != nil && b.FechaVencimiento == nil:
		return -1
	case a.FechaVencimiento == nil && b.FechaVencimiento != nil:
		return 1
	case a.FechaVencimiento != nil && b.FechaVencimiento != nil && !a.FechaVencimiento.Equal(*b.FechaVencimiento):
		return a.FechaVencimiento.Compare(*b.FechaVencimiento)
	}
	return a.FechaIngreso.Compare(b.FechaIngreso)
}

// PrecioCostoVES is the unit cost in bolívares at the intake rate.
func PrecioCostoVES(l LoteInventario) decimal.Decimal {
	return l.PrecioCostoUSD.Mul(l.TasaCambioRegistro).Round(2)
}

// ValorInventarioUSD is the remaining stock valued at cost.
func ValorInventarioUSD(l LoteInventario) decimal.Decimal {
	return l.PrecioCostoUSD.Mul(decimal.NewFromInt(int64(l.CantidadActual))).Round(2)
}

// ValorInventarioVES is ValorInventarioUSD at the intake rate.
func ValorInventarioVES(l LoteInventario) decimal.Decimal {
	return l.PrecioCostoUSD.Mul(decimal.NewFromInt(int64(l.CantidadActual))).Mul(l.TasaCambioRegistro).Round(2)
}

// Vencido reports whether the lot's expiry date is before today.
func Vencido(l LoteInventario, now time.Time) bool {
	if l.FechaVencimiento == nil {
		return false
	}
	return l.FechaVencimiento.Before(inicioDelDia(now))
}

// PorVencer reports whether the lot expires within the next dias days
// (today included) and is not already expired.
func PorVencer(l LoteInventario, now time.Time, dias int) bool {
	if l.FechaVencimiento == nil || Vencido(l, now) {
		return false
	}
	limite := inicioDelDia(now).AddDate(0, 0, dias)
	return !l.FechaVencimiento.After(limite)
}

func inicioDelDia(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
