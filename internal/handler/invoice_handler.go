package handler

import (
	"net/http"
	"time"

	"betonflow/internal/middleware"
	"betonflow/internal/service"
	"betonflow/pkg/pagination"
	"betonflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService   service.InvoiceService
	reconcileService service.ReconcileService
	jwtSecret        []byte
}

func NewInvoiceHandler(invoiceService service.InvoiceService, reconcileService service.ReconcileService, jwtSecret []byte) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:   invoiceService,
		reconcileService: reconcileService,
		jwtSecret:        jwtSecret,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices", middleware.RequireAuth(h.jwtSecret))
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PUT("/:id", h.UpdateInvoice)
		invoices.POST("/:id/driver-actions", h.SubmitDriverActions)
	}
	driver := router.Group("/api/driver", middleware.RequireAuth(h.jwtSecret))
	{
		driver.GET("/invoices", h.ListMyInvoices)
	}
}

// CreateInvoice creates an expense invoice, optionally pre-filled from an order
// @Summary      Create expense invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "New invoice"
// @Success      201      {object}  response.Response{data=model.ExpenseInvoice}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a filtered, paginated invoice list. Drivers only see
// their own assignments via mine=true.
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        order_id   query     string  false  "Filter by linked order"
// @Param        driver_id  query     string  false  "Filter by assigned driver"
// @Param        status     query     string  false  "Filter by driver-reported status (delivered, rejected)"
// @Param        from       query     string  false  "Created after (RFC3339)"
// @Param        to         query     string  false  "Created before (RFC3339)"
// @Param        page       query     int     false  "Page number"
// @Param        limit      query     int     false  "Items per page"
// @Success      200        {object}  response.Response{data=response.ListData}
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.InvoiceFilter{
		OrderID:  c.Query("order_id"),
		DriverID: c.Query("driver_id"),
		Status:   c.Query("status"),
		Page:     params.Page,
		Limit:    params.Limit,
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = &t
		}
	}

	invoices, total, err := h.invoiceService.List(c.Request.Context(), middleware.GetActor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, invoices, total, params.Page, params.Limit))
}

// ListMyInvoices is the driver view: invoices assigned to the calling driver
// @Summary      List my invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=response.ListData}
// @Failure      403    {object}  response.Response
// @Router       /api/driver/invoices [get]
func (h *InvoiceHandler) ListMyInvoices(c *gin.Context) {
	params := pagination.Parse(c)
	invoices, total, err := h.invoiceService.ListForDriver(c.Request.Context(), middleware.GetActor(c), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, invoices, total, params.Page, params.Limit))
}

// GetInvoice returns one invoice by id
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=model.ExpenseInvoice}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.Get(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdateInvoice edits delivery/timing before the driver completes the run
// @Summary      Update invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.ExpenseInvoice}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req service.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.Update(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// SubmitDriverActions records the driver's milestones and reconciles the
// linked order's status
// @Summary      Submit driver actions
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.DriverActionsRequest  true  "Driver actions"
// @Success      200      {object}  response.Response{data=model.ExpenseInvoice}
// @Failure      403      {object}  response.Response
// @Router       /api/invoices/{id}/driver-actions [post]
func (h *InvoiceHandler) SubmitDriverActions(c *gin.Context) {
	var req service.DriverActionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.reconcileService.SubmitDriverActions(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}
