package repository

import (
	"context"
	"time"

	"minisuper/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TasaRepository interface {
	FindByFecha(ctx context.Context, fecha time.Time) (*model.TasaCambio, error)
	FindUltima(ctx context.Context) (*model.TasaCambio, error)
	// Upsert stores the rate for t.Fecha, replacing the day's previous value.
	Upsert(ctx context.Context, t *model.TasaCambio) error
	List(ctx context.Context, limit int) ([]model.TasaCambio, error)
}

type tasaRepo struct{ db *gorm.DB }

func NewTasaRepository(db *gorm.DB) TasaRepository { return &tasaRepo{db: db} }

func (r *tasaRepo) FindByFecha(ctx context.Context, fecha time.Time) (*model.TasaCambio, error) {
	var t model.TasaCambio
	if err := r.db.WithContext(ctx).Where("fecha = ?", fecha.Format("2006-01-02")).First(&t).Error; err != nil {
		return nil, traducir(err)
	}
	return &t, nil
}

func (r *tasaRepo) FindUltima(ctx context.Context) (*model.TasaCambio, error) {
	var t model.TasaCambio
	if err := r.db.WithContext(ctx).Order("fecha DESC").First(&t).Error; err != nil {
		return nil, traducir(err)
	}
	return &t, nil
}

func (r *tasaRepo) Upsert(ctx context.Context, t *model.TasaCambio) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fecha"}},
		DoUpdates: clause.AssignmentColumns([]string{"tasa_bcv", "tasa_paralelo", "fuente", "updated_at"}),
	}).Create(t).Error
}

func (r *tasaRepo) List(ctx context.Context, limit int) ([]model.TasaCambio, error) {
	var tasas []model.TasaCambio
	err := r.db.WithContext(ctx).Order("fecha DESC").Limit(limit).Find(&tasas).Error
	return tasas, err
}
