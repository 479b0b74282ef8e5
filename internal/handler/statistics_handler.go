package handler

import (
	"fmt"
	"net/http"
	"time"

	"betonflow/internal/excel"
	"betonflow/internal/middleware"
	"betonflow/internal/model"
	"betonflow/internal/policy"
	"betonflow/internal/service"
	"betonflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	reportGenerator   *excel.Generator
	jwtSecret         []byte
}

func NewStatisticsHandler(statisticsService service.StatisticsService, reportGenerator *excel.Generator, jwtSecret []byte) *StatisticsHandler {
	return &StatisticsHandler{
		statisticsService: statisticsService,
		reportGenerator:   reportGenerator,
		jwtSecret:         jwtSecret,
	}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	stats := router.Group("/api/statistics", middleware.RequireAuth(h.jwtSecret))
	{
		stats.GET("", h.GetStatistics)
	}
	reports := router.Group("/api/reports", middleware.RequireAuth(h.jwtSecret,
		model.RoleDirector, model.RoleAccountant, model.RoleManager, model.RoleDispatcher))
	{
		reports.GET("/orders.xlsx", h.OrdersReport)
	}
}

// parsePeriod reads from/to query params, defaulting to the current month.
func parsePeriod(c *gin.Context) (time.Time, time.Time) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now

	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = t.Add(24*time.Hour - time.Second)
		}
	}
	return from, to
}

// GetStatistics returns dashboard counters for a period
// @Summary      Dashboard statistics
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  false  "Period start (YYYY-MM-DD)"
// @Param        to    query     string  false  "Period end (YYYY-MM-DD)"
// @Success      200   {object}  response.Response{data=service.StatisticsResponse}
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	from, to := parsePeriod(c)
	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), middleware.GetActor(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// OrdersReport streams the orders register as an XLSX file
// @Summary      Orders register (XLSX)
// @Tags         statistics
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        from  query  string  false  "Period start (YYYY-MM-DD)"
// @Param        to    query  string  false  "Period end (YYYY-MM-DD)"
// @Success      200
// @Router       /api/reports/orders.xlsx [get]
func (h *StatisticsHandler) OrdersReport(c *gin.Context) {
	from, to := parsePeriod(c)
	actor := middleware.GetActor(c)

	orders, err := h.statisticsService.OrdersForReport(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := h.reportGenerator.Generate(orders, from, to, policy.CanViewMoney(actor.Role))
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("orders_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
