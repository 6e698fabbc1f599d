package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("registro no encontrado")
	// ErrDuplicado is returned on a unique constraint violation.
	ErrDuplicado = errors.New("registro duplicado")
	// ErrSinFilasAfectadas is returned when a guarded update matched no row.
	ErrSinFilasAfectadas = errors.New("ninguna fila afectada")
)

const pgUniqueViolation = "23505"

// traducir maps driver and gorm errors to the package sentinels.
func traducir(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if esViolacionUnica(err) {
		return errors.Join(ErrDuplicado, err)
	}
	return err
}

func esViolacionUnica(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
