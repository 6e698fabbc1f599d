package handler

import (
	"net/http"

	"minisuper/internal/dto"
	"minisuper/internal/service"

	"github.com/gin-gonic/gin"
)

type TasaHandler struct{ svc service.TasaService }

func NewTasaHandler(svc service.TasaService) *TasaHandler { return &TasaHandler{svc: svc} }

// Actual godoc
// @Summary Tasa de cambio vigente (USD→VES)
// @Tags moneda
// @Produce json
// @Security BearerAuth
// @Success 200 {object} apierror.Envelope{data=dto.TasaActualResponse}
// @Failure 503 {object} apierror.Envelope
// @Router /api/currency/rate [get]
func (h *TasaHandler) Actual(c *gin.Context) {
	resp, err := h.svc.Actual(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}

// Refrescar forces a fetch from the external provider.
func (h *TasaHandler) Refrescar(c *gin.Context) {
	resp, err := h.svc.Refrescar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "Tasa actualizada desde PyDolar")
}

// ActualizarManual godoc
// @Summary Registra manualmente la tasa del día
// @Tags moneda
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ActualizarTasaRequest true "Tasa"
// @Success 200 {object} apierror.Envelope{data=dto.TasaResponse}
// @Router /api/currency/rate [post]
func (h *TasaHandler) ActualizarManual(c *gin.Context) {
	var req dto.ActualizarTasaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ActualizarManual(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "Tasa actualizada manualmente")
}

func (h *TasaHandler) Historial(c *gin.Context) {
	resp, err := h.svc.Historial(c.Request.Context(), queryInt(c, "limit", 30))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}

// Convertir godoc
// @Summary Convierte un monto entre USD y VES
// @Tags moneda
// @Produce json
// @Security BearerAuth
// @Param monto query string true "Monto"
// @Param de    query string true "USD | VES"
// @Param a     query string true "USD | VES"
// @Success 200 {object} apierror.Envelope{data=dto.ConvertirResponse}
// @Router /api/currency/convert [get]
func (h *TasaHandler) Convertir(c *gin.Context) {
	var req dto.ConvertirRequest
	if !bindQuery(c, &req) {
		return
	}
	resp, err := h.svc.Convertir(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}
