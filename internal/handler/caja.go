package handler

import (
	"net/http"

	"minisuper/internal/dto"
	"minisuper/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una sesion de caja para el usuario autenticado
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} apierror.Envelope{data=dto.SesionCajaResponse}
// @Failure 409 {object} apierror.Envelope
// @Router /api/cash-registers/open [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, resp, "Caja abierta exitosamente")
}

// Cerrar godoc
// @Summary Cierra la sesion abierta y devuelve el resumen por metodo de pago
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Montos declarados"
// @Success 200 {object} apierror.Envelope{data=dto.CierreCajaResponse}
// @Failure 409 {object} apierror.Envelope
// @Router /api/cash-registers/close [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "Caja cerrada exitosamente")
}

// Estado returns whether the authenticated user has an open session.
// @Summary Estado de caja del usuario
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} apierror.Envelope{data=dto.EstadoCajaResponse}
// @Router /api/cash-registers/status [get]
func (h *CajaHandler) Estado(c *gin.Context) {
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Estado(c.Request.Context(), usuarioID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}

// Historial returns a paginated list of sessions filtered by register and dates.
func (h *CajaHandler) Historial(c *gin.Context) {
	var filter dto.HistorialCajaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Historial(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}

func (h *CajaHandler) ListarCajas(c *gin.Context) {
	resp, err := h.svc.ListarCajas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}

func (h *CajaHandler) CrearCaja(c *gin.Context) {
	var req dto.CrearCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearCaja(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, resp, "Caja creada exitosamente")
}
