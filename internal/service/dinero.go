package service

import (
	"time"

	"minisuper/internal/apierror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// tasaIVA is the flat sales tax applied to the discounted subtotal.
var tasaIVA = decimal.NewFromFloat(0.16)

const (
	fechaISO     = "2006-01-02"
	fechaHoraISO = time.RFC3339
)

// redondear rounds half away from zero to cents.
func redondear(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// aVES converts a USD amount at rate.
func aVES(usd, tasa decimal.Decimal) decimal.Decimal { return redondear(usd.Mul(tasa)) }

// aUSD converts a VES amount at rate. A zero rate yields zero.
func aUSD(ves, tasa decimal.Decimal) decimal.Decimal {
	if tasa.IsZero() {
		return decimal.Zero
	}
	return redondear(ves.Div(tasa))
}

func parseUUID(campo, v string) (uuid.UUID, error) {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, apierror.NewValidationError(campo + " inválido")
	}
	return id, nil
}

func formatFecha(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(fechaISO)
	return &s
}

func formatFechaHora(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(fechaHoraISO)
	return &s
}
