package model

import (
	"time"

	"github.com/google/uuid"
)

// Proveedor is the optional supplier of an inventory batch.
type Proveedor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre    string    `gorm:"not null"`
	RIF       string    `gorm:"column:rif;uniqueIndex;not null"`
	Telefono  *string
	Email     *string
	Activo    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Proveedor) TableName() string { return "proveedores" }
