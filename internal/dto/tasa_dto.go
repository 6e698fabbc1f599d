package dto

import "github.com/shopspring/decimal"

type ActualizarTasaRequest struct {
	TasaBCV      decimal.Decimal  `json:"tasa_bcv"      validate:"gt=0"`
	TasaParalelo *decimal.Decimal `json:"tasa_paralelo"`
}

// ConvertirRequest is bound from the query string of GET /api/currency/convert.
type ConvertirRequest struct {
	Monto string `form:"monto" validate:"required,numeric"`
	De    string `form:"de"    validate:"required,oneof=USD VES"`
	A     string `form:"a"     validate:"required,oneof=USD VES,nefield=De"`
}

type TasaResponse struct {
	Fecha        string           `json:"fecha"`
	TasaBCV      decimal.Decimal  `json:"tasa_bcv"`
	TasaParalelo *decimal.Decimal `json:"tasa_paralelo,omitempty"`
	Fuente       string           `json:"fuente"`
}

type TasaActualResponse struct {
	Tasa  decimal.Decimal `json:"tasa"`
	Fecha string          `json:"fecha"`
}

type ConvertirResponse struct {
	MontoOriginal   decimal.Decimal `json:"monto_original"`
	MonedaOrigen    string          `json:"moneda_origen"`
	MontoConvertido decimal.Decimal `json:"monto_convertido"`
	MonedaDestino   string          `json:"moneda_destino"`
	Tasa            decimal.Decimal `json:"tasa"`
}
