package handler

import (
	"net/http"

	"minisuper/internal/dto"
	"minisuper/internal/service"

	"github.com/gin-gonic/gin"
)

type InventarioHandler struct{ svc service.InventarioService }

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// CrearLotes godoc
// @Summary Registra uno o varios lotes de inventario (todo o nada)
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearLotesRequest true "Lotes"
// @Success 201 {object} apierror.Envelope{data=[]dto.LoteResponse}
// @Failure 422 {object} apierror.Envelope
// @Router /api/inventory/lots [post]
func (h *InventarioHandler) CrearLotes(c *gin.Context) {
	var req dto.CrearLotesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearLotes(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, resp, "Lotes registrados exitosamente")
}

// AjustarLote godoc
// @Summary Ajusta la cantidad disponible de un lote
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "UUID del lote"
// @Param body body dto.AjustarLoteRequest true "Nueva cantidad y motivo"
// @Success 200 {object} apierror.Envelope{data=dto.LoteResponse}
// @Router /api/inventory/lots/{id} [patch]
func (h *InventarioHandler) AjustarLote(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AjustarLoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AjustarLote(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "Lote ajustado exitosamente")
}

// StockProducto returns a product's lots with computed values.
func (h *InventarioHandler) StockProducto(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.StockProducto(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}

// ReporteVencimientos lists lots expiring within ?dias= days (default 30).
func (h *InventarioHandler) ReporteVencimientos(c *gin.Context) {
	dias := queryInt(c, "dias", 30)
	resp, err := h.svc.ReporteVencimientos(c.Request.Context(), dias)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}
