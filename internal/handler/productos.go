package handler

import (
	"net/http"

	"minisuper/internal/dto"
	"minisuper/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductosHandler struct{ svc service.ProductoService }

func NewProductosHandler(svc service.ProductoService) *ProductosHandler {
	return &ProductosHandler{svc: svc}
}

// Crear godoc
// @Summary Crear producto
// @Tags productos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearProductoRequest true "Producto"
// @Success 201 {object} apierror.Envelope{data=dto.ProductoResponse}
// @Failure 409 {object} apierror.Envelope
// @Router /api/products [post]
func (h *ProductosHandler) Crear(c *gin.Context) {
	var req dto.CrearProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, resp, "Producto creado exitosamente")
}

func (h *ProductosHandler) ObtenerPorID(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}

// ConsultarPrecio godoc
// @Summary Consulta de precio por código de barras
// @Description Precio en USD y VES a la tasa vigente y stock disponible en lotes.
// @Tags productos
// @Produce json
// @Security BearerAuth
// @Param codigo path string true "Código de barras o interno"
// @Success 200 {object} apierror.Envelope{data=dto.ConsultaPrecioResponse}
// @Failure 404 {object} apierror.Envelope
// @Router /api/products/barcode/{codigo} [get]
func (h *ProductosHandler) ConsultarPrecio(c *gin.Context) {
	resp, err := h.svc.ConsultarPorCodigo(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}
