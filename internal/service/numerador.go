package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"minisuper/internal/repository"

	"gorm.io/gorm"
)

const (
	formatoPrefijoVenta = "20060102"
	maxSecuenciaDiaria  = 9999
)

// ErrNumeracionAgotada is returned when a day already used every sequence.
var ErrNumeracionAgotada = errors.New("numeración de ventas agotada para el día")

// NumeradorVentas produces sale numbers YYYYMMDDNNNN. The sequence resets
// daily and is derived from the greatest number already stored for today;
// the unique index on numero_venta catches concurrent duplicates.
type NumeradorVentas struct {
	repo repository.VentaRepository
	loc  *time.Location
	now  func() time.Time
}

func NewNumeradorVentas(repo repository.VentaRepository, loc *time.Location) *NumeradorVentas {
	if loc == nil {
		loc = time.UTC
	}
	return &NumeradorVentas{repo: repo, loc: loc, now: time.Now}
}

// Siguiente returns the next free number for today inside tx.
func (n *NumeradorVentas) Siguiente(ctx context.Context, tx *gorm.DB) (string, error) {
	prefijo := n.now().In(n.loc).Format(formatoPrefijoVenta)
	ultimo, err := n.repo.UltimoNumeroDelDiaTx(ctx, tx, prefijo)
	if err != nil {
		return "", err
	}

	secuencia := 0
	if ultimo != "" {
		secuencia, err = strconv.Atoi(strings.TrimPrefix(ultimo, prefijo))
		if err != nil {
			return "", fmt.Errorf("numero_venta %q mal formado: %w", ultimo, err)
		}
	}
	secuencia++
	if secuencia > maxSecuenciaDiaria {
		return "", ErrNumeracionAgotada
	}
	return fmt.Sprintf("%s%04d", prefijo, secuencia), nil
}
