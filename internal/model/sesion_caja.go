package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SesionAbierta = "abierta"
	SesionCerrada = "cerrada"
)

// SesionCaja (cierre de caja) is one user's occupancy of one register.
// At most one abierta session per user and per register; both are enforced
// by partial unique indexes (see infra.RunMigrations).
// TotalVentasUSD and TotalTransacciones are only changed through relative
// updates so concurrent sales never overwrite each other.
type SesionCaja struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CajaID             uuid.UUID        `gorm:"type:uuid;not null;index"`
	UsuarioID          uuid.UUID        `gorm:"type:uuid;not null;index"`
	FechaApertura      time.Time        `gorm:"not null"`
	FechaCierre        *time.Time
	MontoInicialUSD    decimal.Decimal  `gorm:"column:monto_inicial_usd;type:decimal(12,2);not null;default:0"`
	MontoInicialVES    decimal.Decimal  `gorm:"column:monto_inicial_ves;type:decimal(14,2);not null;default:0"`
	MontoFinalUSD      *decimal.Decimal `gorm:"column:monto_final_usd;type:decimal(12,2)"`
	MontoFinalVES      *decimal.Decimal `gorm:"column:monto_final_ves;type:decimal(14,2)"`
	TotalVentasUSD     decimal.Decimal  `gorm:"column:total_ventas_usd;type:decimal(12,2);not null;default:0"`
	TotalTransacciones int              `gorm:"not null;default:0"`
	TasaCambioApertura decimal.Decimal  `gorm:"type:decimal(12,4);not null"`
	TasaCambioCierre   *decimal.Decimal `gorm:"type:decimal(12,4)"`
	// DiferenciaUSD = MontoFinalUSD - (MontoInicialUSD + TotalVentasUSD), set on close.
	DiferenciaUSD *decimal.Decimal `gorm:"column:diferencia_usd;type:decimal(12,2)"`
	Observaciones *string
	Estado        string `gorm:"type:varchar(20);not null;default:'abierta'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Caja    *Caja    `gorm:"foreignKey:CajaID"`
	Usuario *Usuario `gorm:"foreignKey:UsuarioID"`
}

func (SesionCaja) TableName() string { return "cierres_caja" }

// DiferenciaCierre is the declared closing cash minus the expected cash.
func DiferenciaCierre(s SesionCaja, montoFinalUSD decimal.Decimal) decimal.Decimal {
	return montoFinalUSD.Sub(s.MontoInicialUSD.Add(s.TotalVentasUSD)).Round(2)
}
