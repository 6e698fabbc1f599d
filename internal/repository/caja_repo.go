package repository

import (
	"context"
	"time"

	"minisuper/internal/dto"
	"minisuper/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Names of the partial unique indexes created by infra.RunMigrations.
const (
	IdxSesionAbiertaUsuario = "uq_cierres_caja_abierta_usuario"
	IdxSesionAbiertaCaja    = "uq_cierres_caja_abierta_caja"
)

// CierreSesion holds the values written when a session closes.
type CierreSesion struct {
	FechaCierre   time.Time
	MontoFinalUSD decimal.Decimal
	MontoFinalVES decimal.Decimal
	TasaCierre    decimal.Decimal
	DiferenciaUSD decimal.Decimal
	Observaciones *string
}

type CajaRepository interface {
	CreateCaja(ctx context.Context, c *model.Caja) error
	ListCajas(ctx context.Context) ([]model.Caja, error)
	FindCajaByID(ctx context.Context, id uuid.UUID) (*model.Caja, error)

	CreateSesion(ctx context.Context, s *model.SesionCaja) error
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error)
	FindSesionAbiertaPorCaja(ctx context.Context, cajaID uuid.UUID) (*model.SesionCaja, error)
	FindSesionForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error)
	CerrarSesionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, c CierreSesion) error

	// SumarVentaTx adds one completed sale to an open session's running totals.
	// Returns ErrSinFilasAfectadas when the session is no longer open.
	SumarVentaTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, totalUSD decimal.Decimal) error
	// RestarVentaTx removes a cancelled sale from the session totals, open or closed.
	RestarVentaTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, totalUSD decimal.Decimal) error

	ListHistorial(ctx context.Context, filter dto.HistorialCajaFilter) ([]model.SesionCaja, int64, error)
	ResumenPorMetodo(ctx context.Context, sesionID uuid.UUID) ([]dto.ResumenMetodo, error)
	DB() *gorm.DB
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateCaja(ctx context.Context, c *model.Caja) error {
	return traducir(r.db.WithContext(ctx).Create(c).Error)
}

func (r *cajaRepo) ListCajas(ctx context.Context) ([]model.Caja, error) {
	var cajas []model.Caja
	err := r.db.WithContext(ctx).Order("numero_caja ASC").Find(&cajas).Error
	return cajas, err
}

func (r *cajaRepo) FindCajaByID(ctx context.Context, id uuid.UUID) (*model.Caja, error) {
	var c model.Caja
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, traducir(err)
	}
	return &c, nil
}

// CreateSesion inserts an open session. The partial unique indexes reject a
// second open session for the same user or register; the caller inspects
// ConstraintDuplicada to tell which.
func (r *cajaRepo) CreateSesion(ctx context.Context, s *model.SesionCaja) error {
	return traducir(r.db.WithContext(ctx).Create(s).Error)
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	if err := r.db.WithContext(ctx).Preload("Caja").Where("id = ?", id).First(&s).Error; err != nil {
		return nil, traducir(err)
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionAbiertaPorUsuario(ctx context.Context, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Preload("Caja").
		Where("usuario_id = ? AND estado = ?", usuarioID, model.SesionAbierta).
		First(&s).Error
	if err != nil {
		return nil, traducir(err)
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionAbiertaPorCaja(ctx context.Context, cajaID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Where("caja_id = ? AND estado = ?", cajaID, model.SesionAbierta).
		First(&s).Error
	if err != nil {
		return nil, traducir(err)
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, traducir(err)
	}
	return &s, nil
}

func (r *cajaRepo) CerrarSesionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, c CierreSesion) error {
	res := tx.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("id = ? AND estado = ?", id, model.SesionAbierta).
		Updates(map[string]any{
			"fecha_cierre":       c.FechaCierre,
			"monto_final_usd":    c.MontoFinalUSD,
			"monto_final_ves":    c.MontoFinalVES,
			"tasa_cambio_cierre": c.TasaCierre,
			"diferencia_usd":     c.DiferenciaUSD,
			"observaciones":      c.Observaciones,
			"estado":             model.SesionCerrada,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSinFilasAfectadas
	}
	return nil
}

func (r *cajaRepo) SumarVentaTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, totalUSD decimal.Decimal) error {
	res := tx.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("id = ? AND estado = ?", sesionID, model.SesionAbierta).
		Updates(map[string]any{
			"total_ventas_usd":    gorm.Expr("total_ventas_usd + ?", totalUSD),
			"total_transacciones": gorm.Expr("total_transacciones + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSinFilasAfectadas
	}
	return nil
}

func (r *cajaRepo) RestarVentaTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, totalUSD decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("id = ?", sesionID).
		Updates(map[string]any{
			"total_ventas_usd":    gorm.Expr("total_ventas_usd - ?", totalUSD),
			"total_transacciones": gorm.Expr("GREATEST(total_transacciones - 1, 0)"),
		}).Error
}

func (r *cajaRepo) ListHistorial(ctx context.Context, filter dto.HistorialCajaFilter) ([]model.SesionCaja, int64, error) {
	var sesiones []model.SesionCaja
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.SesionCaja{})
	if filter.CajaID != "" {
		q = q.Where("caja_id = ?", filter.CajaID)
	}
	if filter.FechaInicio != "" {
		q = q.Where("DATE(fecha_apertura) >= ?", filter.FechaInicio)
	}
	if filter.FechaFin != "" {
		q = q.Where("DATE(fecha_apertura) <= ?", filter.FechaFin)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Caja").
		Order("fecha_apertura DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&sesiones).Error
	return sesiones, total, err
}

func (r *cajaRepo) ResumenPorMetodo(ctx context.Context, sesionID uuid.UUID) ([]dto.ResumenMetodo, error) {
	var resumen []dto.ResumenMetodo
	err := r.db.WithContext(ctx).Model(&model.Venta{}).
		Select("metodo_pago AS metodo, COUNT(*) AS cantidad, COALESCE(SUM(total_usd), 0) AS total_usd, COALESCE(SUM(total_ves), 0) AS total_ves").
		Where("cierre_caja_id = ? AND estado = ?", sesionID, model.VentaCompletada).
		Group("metodo_pago").
		Order("metodo_pago ASC").
		Scan(&resumen).Error
	return resumen, err
}
