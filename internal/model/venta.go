package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	VentaCompletada = "completada"
	VentaCancelada  = "cancelada"

	// MetodoMixto is the payment summary when splits use more than one method.
	MetodoMixto = "mixed"
)

// Metodos de pago aceptados.
const (
	MetodoEfectivoUSD   = "efectivo_usd"
	MetodoEfectivoVES   = "efectivo_ves"
	MetodoTarjeta       = "tarjeta"
	MetodoTransferencia = "transferencia"
	MetodoPagoMovil     = "pago_movil"
)

// Venta is immutable once created except for Estado and the cancellation fields.
// Monetary fields stay as the historical record after cancellation.
type Venta struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NumeroVenta      string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	CajaID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	UsuarioID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	SesionCajaID     *uuid.UUID      `gorm:"column:cierre_caja_id;type:uuid;index"`
	SubtotalUSD      decimal.Decimal `gorm:"column:subtotal_usd;type:decimal(12,2);not null"`
	SubtotalVES      decimal.Decimal `gorm:"column:subtotal_ves;type:decimal(14,2);not null"`
	DescuentoUSD     decimal.Decimal `gorm:"column:descuento_usd;type:decimal(12,2);not null;default:0"`
	DescuentoVES     decimal.Decimal `gorm:"column:descuento_ves;type:decimal(14,2);not null;default:0"`
	ImpuestoUSD      decimal.Decimal `gorm:"column:impuesto_usd;type:decimal(12,2);not null"`
	ImpuestoVES      decimal.Decimal `gorm:"column:impuesto_ves;type:decimal(14,2);not null"`
	TotalUSD         decimal.Decimal `gorm:"column:total_usd;type:decimal(12,2);not null"`
	TotalVES         decimal.Decimal `gorm:"column:total_ves;type:decimal(14,2);not null"`
	TasaCambio       decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	MetodoPago       string          `gorm:"type:varchar(20);not null;index"`
	MontoRecibidoUSD decimal.Decimal `gorm:"column:monto_recibido_usd;type:decimal(12,2);not null"`
	MontoRecibidoVES decimal.Decimal `gorm:"column:monto_recibido_ves;type:decimal(14,2);not null"`
	CambioUSD        decimal.Decimal `gorm:"column:cambio_usd;type:decimal(12,2);not null"`
	CambioVES        decimal.Decimal `gorm:"column:cambio_ves;type:decimal(14,2);not null"`
	Estado           string          `gorm:"type:varchar(20);not null;default:'completada';index"`
	MotivoAnulacion  *string
	FechaAnulacion   *time.Time
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time

	Detalles []DetalleVenta `gorm:"foreignKey:VentaID"`
	Pagos    []DetallePago  `gorm:"foreignKey:VentaID"`
	Usuario  *Usuario       `gorm:"foreignKey:UsuarioID"`
	Caja     *Caja          `gorm:"foreignKey:CajaID"`
}

// DetalleVenta is one allocation of one lot to one sale.
type DetalleVenta struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	LoteID            *uuid.UUID      `gorm:"type:uuid;index"`
	Cantidad          int             `gorm:"not null"`
	PrecioUnitarioUSD decimal.Decimal `gorm:"column:precio_unitario_usd;type:decimal(12,2);not null"`
	PrecioUnitarioVES decimal.Decimal `gorm:"column:precio_unitario_ves;type:decimal(14,2);not null"`
	SubtotalUSD       decimal.Decimal `gorm:"column:subtotal_usd;type:decimal(12,2);not null"`
	SubtotalVES       decimal.Decimal `gorm:"column:subtotal_ves;type:decimal(14,2);not null"`

	Producto *Producto       `gorm:"foreignKey:ProductoID"`
	Lote     *LoteInventario `gorm:"foreignKey:LoteID"`
}

func (DetalleVenta) TableName() string { return "detalle_ventas" }

// DetallePago is one payment-method contribution to a sale.
type DetallePago struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Metodo     string          `gorm:"type:varchar(20);not null"`
	MontoUSD   decimal.Decimal `gorm:"column:monto_usd;type:decimal(12,2);not null;default:0"`
	MontoVES   decimal.Decimal `gorm:"column:monto_ves;type:decimal(14,2);not null;default:0"`
	Referencia *string         `gorm:"type:varchar(100)"`
	Notas      *string
	CreatedAt  time.Time
}

func (DetallePago) TableName() string { return "detalle_pagos" }

// Ganancia is the profit of one sale line against its lot's cost.
type Ganancia struct {
	CostoUnitarioUSD decimal.Decimal
	GananciaUnitaria decimal.Decimal
	GananciaTotal    decimal.Decimal
	MargenPorcentaje decimal.Decimal
}

// GananciaDetalle computes profit for a line. Lines without a loaded lot
// are treated as zero cost.
func GananciaDetalle(d DetalleVenta) Ganancia {
	costo := decimal.Zero
	if d.Lote != nil {
		costo = d.Lote.PrecioCostoUSD
	}
	unitaria := d.PrecioUnitarioUSD.Sub(costo)
	g := Ganancia{
		CostoUnitarioUSD: costo,
		GananciaUnitaria: unitaria.Round(2),
		GananciaTotal:    unitaria.Mul(decimal.NewFromInt(int64(d.Cantidad))).Round(2),
	}
	if !d.PrecioUnitarioUSD.IsZero() {
		g.MargenPorcentaje = unitaria.Div(d.PrecioUnitarioUSD).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return g
}
