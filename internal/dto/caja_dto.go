package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearCajaRequest struct {
	NumeroCaja  int     `json:"numero_caja" validate:"required,min=1"`
	Nombre      string  `json:"nombre"      validate:"required,min=2,max=100"`
	Descripcion *string `json:"descripcion" validate:"omitempty,max=255"`
}

type AbrirCajaRequest struct {
	CajaID          string          `json:"caja_id"           validate:"required,uuid"`
	MontoInicialUSD decimal.Decimal `json:"monto_inicial_usd" validate:"min=0"`
	MontoInicialVES decimal.Decimal `json:"monto_inicial_ves" validate:"min=0"`
}

type CerrarCajaRequest struct {
	// SesionCajaID is optional; when set it must be the caller's open session.
	SesionCajaID  string          `json:"cierre_caja_id"  validate:"omitempty,uuid"`
	MontoFinalUSD decimal.Decimal `json:"monto_final_usd" validate:"min=0"`
	MontoFinalVES decimal.Decimal `json:"monto_final_ves" validate:"min=0"`
	Observaciones *string         `json:"observaciones"   validate:"omitempty,max=500"`
}

// HistorialCajaFilter is bound from the query string of GET /api/cash-registers/history.
type HistorialCajaFilter struct {
	CajaID      string `form:"caja_id"      validate:"omitempty,uuid"`
	FechaInicio string `form:"fecha_inicio" validate:"omitempty,datetime=2006-01-02"`
	FechaFin    string `form:"fecha_fin"    validate:"omitempty,datetime=2006-01-02"`
	Page        int    `form:"page,default=1"   validate:"min=1"`
	Limit       int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CajaResponse struct {
	ID          string  `json:"id"`
	NumeroCaja  int     `json:"numero_caja"`
	Nombre      string  `json:"nombre"`
	Descripcion *string `json:"descripcion,omitempty"`
	Activo      bool    `json:"activo"`
}

type SesionCajaResponse struct {
	ID                 string           `json:"id"`
	CajaID             string           `json:"caja_id"`
	NumeroCaja         int              `json:"numero_caja,omitempty"`
	NombreCaja         string           `json:"nombre_caja,omitempty"`
	UsuarioID          string           `json:"usuario_id"`
	FechaApertura      string           `json:"fecha_apertura"`
	FechaCierre        *string          `json:"fecha_cierre,omitempty"`
	MontoInicialUSD    decimal.Decimal  `json:"monto_inicial_usd"`
	MontoInicialVES    decimal.Decimal  `json:"monto_inicial_ves"`
	MontoFinalUSD      *decimal.Decimal `json:"monto_final_usd,omitempty"`
	MontoFinalVES      *decimal.Decimal `json:"monto_final_ves,omitempty"`
	TotalVentasUSD     decimal.Decimal  `json:"total_ventas_usd"`
	TotalTransacciones int              `json:"total_transacciones"`
	TasaCambioApertura decimal.Decimal  `json:"tasa_cambio_apertura"`
	TasaCambioCierre   *decimal.Decimal `json:"tasa_cambio_cierre,omitempty"`
	DiferenciaUSD      *decimal.Decimal `json:"diferencia_usd,omitempty"`
	Observaciones      *string          `json:"observaciones,omitempty"`
	Estado             string           `json:"estado"`
}

// ResumenMetodo is the completed-sales total for one payment method in a session.
type ResumenMetodo struct {
	Metodo   string          `json:"metodo"`
	Cantidad int64           `json:"cantidad"`
	TotalUSD decimal.Decimal `json:"total_usd"`
	TotalVES decimal.Decimal `json:"total_ves"`
}

type CierreCajaResponse struct {
	Sesion           SesionCajaResponse `json:"cierre"`
	EsperadoUSD      decimal.Decimal    `json:"esperado_usd"`
	DiferenciaUSD    decimal.Decimal    `json:"diferencia_usd"`
	ResumenPorMetodo []ResumenMetodo    `json:"resumen_por_metodo"`
}

type EstadoCajaResponse struct {
	IsOpen bool                `json:"is_open"`
	Sesion *SesionCajaResponse `json:"cierre,omitempty"`
}

type HistorialCajaResponse struct {
	Cierres    []SesionCajaResponse `json:"cierres"`
	Pagination Pagination           `json:"pagination"`
}
