// Package apierror provides standardized response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"
)

// Envelope is the canonical body for every HTTP response.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// New builds a failure envelope with a single message.
func New(msg string) *Envelope {
	return &Envelope{Success: false, Message: msg}
}

// NewValidation wraps multiple field errors, sorted by field name.
func NewValidation(fields map[string]string) *Envelope {
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	errs := make([]string, 0, len(names))
	for _, f := range names {
		errs = append(errs, fmt.Sprintf("%s: %s", f, fields[f]))
	}
	return &Envelope{Success: false, Message: "Error de validacion", Errors: errs}
}

// OK builds a success envelope.
func OK(data any, msg string) *Envelope {
	return &Envelope{Success: true, Message: msg, Data: data}
}

// Code identifies the kind of failure independently of its message.
type Code string

const (
	CodeValidation                Code = "VALIDATION"
	CodeNotFound                  Code = "NOT_FOUND"
	CodeProductNotFound           Code = "PRODUCT_NOT_FOUND"
	CodeNoOpenSession             Code = "NO_OPEN_SESSION"
	CodeSessionAlreadyOpenForUser Code = "SESSION_ALREADY_OPEN_FOR_USER"
	CodeRegisterAlreadyOpen       Code = "REGISTER_ALREADY_OPEN"
	CodeAlreadyCancelled          Code = "ALREADY_CANCELLED"
	CodeConflict                  Code = "CONFLICT"
	CodeInsufficientStock         Code = "INSUFFICIENT_STOCK"
	CodeInsufficientPayment       Code = "INSUFFICIENT_PAYMENT"
	CodeRateUnavailable           Code = "RATE_UNAVAILABLE"
	CodeUnauthorized              Code = "UNAUTHORIZED"
	CodeInternal                  Code = "INTERNAL"
)

// AppError is a failure the client can act on. Details carries the numeric
// context (available vs requested, required vs received) when relevant.
type AppError struct {
	Code       Code
	Message    string
	Details    map[string]any
	Errors     []string
	HTTPStatus int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches any *AppError with the same Code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithErr attaches the underlying cause.
func (e *AppError) WithErr(err error) *AppError {
	e.Err = err
	return e
}

// As extracts an *AppError from the chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an *AppError with the given code.
func HasCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// HTTPStatus returns the status for err, 500 for non-application errors.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// ── Factories ────────────────────────────────────────────────────────────────

func NewValidationError(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, HTTPStatus: http.StatusUnprocessableEntity}
}

// NewValidationErrors carries one message per offending field or entry.
func NewValidationErrors(msg string, errs []string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		Errors:     errs,
		Details:    details,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func NewNotFound(entity string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s no encontrado", entity),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewProductNotFound(productoID string) *AppError {
	return &AppError{
		Code:       CodeProductNotFound,
		Message:    fmt.Sprintf("Producto %s no encontrado o inactivo", productoID),
		Details:    map[string]any{"producto_id": productoID},
		HTTPStatus: http.StatusNotFound,
	}
}

func NewNoOpenSession() *AppError {
	return &AppError{
		Code:       CodeNoOpenSession,
		Message:    "No hay una caja abierta para este usuario",
		HTTPStatus: http.StatusConflict,
	}
}

func NewSessionAlreadyOpenForUser() *AppError {
	return &AppError{
		Code:       CodeSessionAlreadyOpenForUser,
		Message:    "El usuario ya tiene una caja abierta",
		HTTPStatus: http.StatusConflict,
	}
}

func NewRegisterAlreadyOpen(numeroCaja int) *AppError {
	return &AppError{
		Code:       CodeRegisterAlreadyOpen,
		Message:    fmt.Sprintf("La caja %d ya está abierta", numeroCaja),
		Details:    map[string]any{"numero_caja": numeroCaja},
		HTTPStatus: http.StatusConflict,
	}
}

func NewAlreadyCancelled(numeroVenta string) *AppError {
	return &AppError{
		Code:       CodeAlreadyCancelled,
		Message:    fmt.Sprintf("La venta %s ya está cancelada", numeroVenta),
		Details:    map[string]any{"numero_venta": numeroVenta},
		HTTPStatus: http.StatusConflict,
	}
}

func NewConflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, HTTPStatus: http.StatusConflict}
}

func NewInsufficientStock(productoID, nombre string, disponible, solicitado int) *AppError {
	return &AppError{
		Code: CodeInsufficientStock,
		Message: fmt.Sprintf("Stock insuficiente para %s. Disponible: %d, Solicitado: %d",
			nombre, disponible, solicitado),
		Details: map[string]any{
			"producto_id": productoID,
			"producto":    nombre,
			"disponible":  disponible,
			"solicitado":  solicitado,
		},
		HTTPStatus: http.StatusConflict,
	}
}

func NewInsufficientPayment(requerido, recibido decimal.Decimal) *AppError {
	return &AppError{
		Code: CodeInsufficientPayment,
		Message: fmt.Sprintf("Pago insuficiente. Total: $%s, Recibido: $%s",
			requerido.StringFixed(2), recibido.StringFixed(2)),
		Details: map[string]any{
			"requerido": requerido.StringFixed(2),
			"recibido":  recibido.StringFixed(2),
		},
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewRateUnavailable() *AppError {
	return &AppError{
		Code:       CodeRateUnavailable,
		Message:    "No se pudo obtener la tasa de cambio",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, HTTPStatus: http.StatusUnauthorized}
}

// Response maps err to the status and envelope sent to the client. Non
// application errors become a generic 500 with no internal detail.
func Response(err error) (int, *Envelope) {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError, New("Error interno del servidor")
	}
	env := &Envelope{Success: false, Message: appErr.Message, Errors: appErr.Errors}
	if len(appErr.Details) > 0 {
		env.Data = appErr.Details
	}
	return appErr.HTTPStatus, env
}
