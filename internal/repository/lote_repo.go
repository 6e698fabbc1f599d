package repository

import (
	"context"
	"time"

	"minisuper/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ordenFIFO is the consumption order: dated lots first by expiry, then intake.
const ordenFIFO = "fecha_vencimiento ASC NULLS LAST, fecha_ingreso ASC, id ASC"

// LoteRepository covers inventory lots. Every quantity change goes through a
// guarded relative update so the 0 <= actual <= inicial constraint holds under
// concurrency.
type LoteRepository interface {
	CreateManyTx(ctx context.Context, tx *gorm.DB, lotes []model.LoteInventario) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LoteInventario, error)
	FindByIDForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.LoteInventario, error)
	// ListDisponiblesForUpdateTx locks the product's lots with stock, in FIFO order.
	ListDisponiblesForUpdateTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID) ([]model.LoteInventario, error)
	DescontarTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, cantidad int) error
	SetCantidadTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, cantidad int) error
	ListByProducto(ctx context.Context, productoID uuid.UUID) ([]model.LoteInventario, error)
	// ListConVencimiento returns lots with stock expiring on or before hasta.
	ListConVencimiento(ctx context.Context, hasta time.Time) ([]model.LoteInventario, error)
	StockDisponible(ctx context.Context, productoID uuid.UUID) (int, error)
	DB() *gorm.DB
}

type loteRepo struct{ db *gorm.DB }

func NewLoteRepository(db *gorm.DB) LoteRepository { return &loteRepo{db: db} }

func (r *loteRepo) DB() *gorm.DB { return r.db }

func (r *loteRepo) CreateManyTx(ctx context.Context, tx *gorm.DB, lotes []model.LoteInventario) error {
	if len(lotes) == 0 {
		return nil
	}
	return traducir(tx.WithContext(ctx).Omit("Producto", "Proveedor").Create(&lotes).Error)
}

func (r *loteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.LoteInventario, error) {
	var l model.LoteInventario
	if err := r.db.WithContext(ctx).Preload("Producto").Where("id = ?", id).First(&l).Error; err != nil {
		return nil, traducir(err)
	}
	return &l, nil
}

func (r *loteRepo) FindByIDForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.LoteInventario, error) {
	var l model.LoteInventario
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&l).Error
	if err != nil {
		return nil, traducir(err)
	}
	return &l, nil
}

func (r *loteRepo) ListDisponiblesForUpdateTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID) ([]model.LoteInventario, error) {
	var lotes []model.LoteInventario
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("producto_id = ? AND cantidad_actual > 0", productoID).
		Order(ordenFIFO).
		Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) DescontarTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, cantidad int) error {
	res := tx.WithContext(ctx).Model(&model.LoteInventario{}).
		Where("id = ? AND cantidad_actual >= ?", id, cantidad).
		Update("cantidad_actual", gorm.Expr("cantidad_actual - ?", cantidad))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSinFilasAfectadas
	}
	return nil
}

func (r *loteRepo) SetCantidadTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, cantidad int) error {
	res := tx.WithContext(ctx).Model(&model.LoteInventario{}).
		Where("id = ? AND cantidad_inicial >= ?", id, cantidad).
		Update("cantidad_actual", cantidad)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSinFilasAfectadas
	}
	return nil
}

func (r *loteRepo) ListByProducto(ctx context.Context, productoID uuid.UUID) ([]model.LoteInventario, error) {
	var lotes []model.LoteInventario
	err := r.db.WithContext(ctx).
		Preload("Proveedor").
		Where("producto_id = ?", productoID).
		Order(ordenFIFO).
		Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) ListConVencimiento(ctx context.Context, hasta time.Time) ([]model.LoteInventario, error) {
	var lotes []model.LoteInventario
	err := r.db.WithContext(ctx).
		Preload("Producto").
		Where("fecha_vencimiento IS NOT NULL AND fecha_vencimiento <= ? AND cantidad_actual > 0", hasta).
		Order("fecha_vencimiento ASC").
		Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) StockDisponible(ctx context.Context, productoID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Model(&model.LoteInventario{}).
		Select("COALESCE(SUM(cantidad_actual), 0)").
		Where("producto_id = ?", productoID).
		Scan(&total).Error
	return total, err
}
