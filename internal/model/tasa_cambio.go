package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	FuentePyDolar = "pydolar"
	FuenteManual  = "manual"
)

// TasaCambio is the USD→VES rate for one calendar day.
type TasaCambio struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Fecha        time.Time        `gorm:"type:date;uniqueIndex;not null"`
	TasaBCV      decimal.Decimal  `gorm:"column:tasa_bcv;type:decimal(12,4);not null"`
	TasaParalelo *decimal.Decimal `gorm:"type:decimal(12,4)"`
	Fuente       string           `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (TasaCambio) TableName() string { return "tasas_cambio" }
