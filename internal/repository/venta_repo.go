package repository

import (
	"context"
	"time"

	"minisuper/internal/dto"
	"minisuper/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VentaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	FindByIDForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error)
	// UltimoNumeroDelDiaTx returns the greatest numero_venta starting with prefijo,
	// or "" when no sale exists for that day yet.
	UltimoNumeroDelDiaTx(ctx context.Context, tx *gorm.DB, prefijo string) (string, error)
	AnularTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, motivo string, fecha time.Time) error
	List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

// Create inserts the sale with its lines and payments. A numero_venta
// collision surfaces as ErrDuplicado so the caller can retry.
func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return traducir(tx.WithContext(ctx).Create(v).Error)
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Preload("Detalles.Producto").
		Preload("Detalles.Lote").
		Preload("Pagos").
		Preload("Usuario").
		Preload("Caja").
		Where("id = ?", id).
		First(&v).Error
	if err != nil {
		return nil, traducir(err)
	}
	return &v, nil
}

func (r *ventaRepo) FindByIDForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&v).Error
	if err != nil {
		return nil, traducir(err)
	}
	if err := tx.WithContext(ctx).Where("venta_id = ?", id).Find(&v.Detalles).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventaRepo) UltimoNumeroDelDiaTx(ctx context.Context, tx *gorm.DB, prefijo string) (string, error) {
	var numero string
	err := tx.WithContext(ctx).Model(&model.Venta{}).
		Select("COALESCE(MAX(numero_venta), '')").
		Where("numero_venta LIKE ?", prefijo+"%").
		Scan(&numero).Error
	return numero, err
}

func (r *ventaRepo) AnularTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, motivo string, fecha time.Time) error {
	res := tx.WithContext(ctx).Model(&model.Venta{}).
		Where("id = ? AND estado = ?", id, model.VentaCompletada).
		Updates(map[string]any{
			"estado":           model.VentaCancelada,
			"motivo_anulacion": motivo,
			"fecha_anulacion":  fecha,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSinFilasAfectadas
	}
	return nil
}

func (r *ventaRepo) List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Venta{})

	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.MetodoPago != "" {
		q = q.Where("metodo_pago = ?", filter.MetodoPago)
	}
	if filter.UsuarioID != "" {
		q = q.Where("usuario_id = ?", filter.UsuarioID)
	}
	if filter.FechaInicio != "" {
		q = q.Where("DATE(created_at) >= ?", filter.FechaInicio)
	}
	if filter.FechaFin != "" {
		q = q.Where("DATE(created_at) <= ?", filter.FechaFin)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Detalles.Producto").Preload("Pagos").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ventas).Error

	return ventas, total, err
}
