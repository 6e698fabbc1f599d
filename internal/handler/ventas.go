package handler

import (
	"net/http"

	"minisuper/internal/dto"
	"minisuper/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// CrearVenta godoc
// @Summary      Registrar una nueva venta
// @Description  Crea una venta atómica: asigna lotes FIFO, calcula IVA y cambio en USD/VES y actualiza la sesión de caja.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearVentaRequest true "Detalle de la venta"
// @Success      201  {object} apierror.Envelope{data=dto.CrearVentaResponse}
// @Failure      400  {object} apierror.Envelope
// @Failure      409  {object} apierror.Envelope
// @Failure      503  {object} apierror.Envelope
// @Router       /api/sales [post]
func (h *VentasHandler) CrearVenta(c *gin.Context) {
	var req dto.CrearVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}

	resp, err := h.svc.CrearVenta(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, resp, "Venta registrada exitosamente")
}

// AnularVenta godoc
// @Summary      Anular venta
// @Description  Anula una venta completada: restaura los lotes y descuenta la sesión de caja.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                 true "UUID de la venta"
// @Param        body body     dto.AnularVentaRequest true "Motivo de anulación"
// @Success      200  {object} apierror.Envelope{data=dto.AnularVentaResponse}
// @Failure      404  {object} apierror.Envelope
// @Failure      409  {object} apierror.Envelope
// @Router       /api/sales/{id}/cancel [put]
func (h *VentasHandler) AnularVenta(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AnularVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AnularVenta(c.Request.Context(), id, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "Venta cancelada exitosamente")
}

// ListarVentas godoc
// @Summary      Listar ventas
// @Description  Lista paginada de ventas filtrada por rango de fechas, método de pago, estado y usuario.
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        fecha_inicio query string false "YYYY-MM-DD"
// @Param        fecha_fin    query string false "YYYY-MM-DD"
// @Param        metodo_pago  query string false "efectivo_usd | efectivo_ves | tarjeta | transferencia | pago_movil | mixed"
// @Param        estado       query string false "completada | cancelada"
// @Param        usuario_id   query string false "UUID del cajero"
// @Param        page         query int    false "Página (default 1)"
// @Param        limit        query int    false "Registros por página (default 20)"
// @Success      200          {object} apierror.Envelope{data=dto.VentaListResponse}
// @Router       /api/sales [get]
func (h *VentasHandler) ListarVentas(c *gin.Context) {
	var filter dto.VentaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListVentas(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}

// ObtenerVenta godoc
// @Summary      Detalle de venta
// @Description  Venta con sus líneas, pagos y análisis de ganancia por lote.
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID de la venta"
// @Success      200 {object} apierror.Envelope{data=dto.VentaDetalleResponse}
// @Failure      404 {object} apierror.Envelope
// @Router       /api/sales/{id} [get]
func (h *VentasHandler) ObtenerVenta(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerVenta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}

// ObtenerRecibo godoc
// @Summary      Datos del recibo
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID de la venta"
// @Success      200 {object} apierror.Envelope{data=dto.ReciboResponse}
// @Failure      404 {object} apierror.Envelope
// @Router       /api/sales/{id}/receipt [get]
func (h *VentasHandler) ObtenerRecibo(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerRecibo(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp, "")
}
