package infra

import (
	"fmt"

	"minisuper/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx. TranslateError is
// on so unique violations surface as gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

// RunMigrations creates or updates all tables, then applies the idempotent
// DDL that AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Proveedor{},
		&model.Producto{},
		&model.LoteInventario{},
		&model.Caja{},
		&model.SesionCaja{},
		&model.Venta{},
		&model.DetalleVenta{},
		&model.DetallePago{},
		&model.TasaCambio{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}

	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements. Each uses IF NOT EXISTS
// semantics so re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// One open session per user and one per register.
		{"uq_cierres_caja_abierta_usuario", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_cierres_caja_abierta_usuario
    ON cierres_caja (usuario_id) WHERE estado = 'abierta'`},
		{"uq_cierres_caja_abierta_caja", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_cierres_caja_abierta_caja
    ON cierres_caja (caja_id) WHERE estado = 'abierta'`},
		// FIFO scan only touches lots with stock left.
		{"idx_lotes_disponibles", `
CREATE INDEX IF NOT EXISTS idx_lotes_disponibles
    ON inventario_lotes (producto_id, fecha_vencimiento, fecha_ingreso)
    WHERE cantidad_actual > 0`},
		{"idx_ventas_sesion_estado", `
CREATE INDEX IF NOT EXISTS idx_ventas_sesion_estado
    ON ventas (cierre_caja_id, estado)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
