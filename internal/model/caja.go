package model

import (
	"time"

	"github.com/google/uuid"
)

// Caja is a physical cash register.
type Caja struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NumeroCaja  int       `gorm:"uniqueIndex;not null"`
	Nombre      string    `gorm:"not null"`
	Descripcion *string
	Activo      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Caja) TableName() string { return "cajas" }
