package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrack/internal/period"
	"fintrack/internal/services"
)

// ReportHandler serves read-only financial reports.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// StatisticsQuery holds the statistics query parameters.
type StatisticsQuery struct {
	Mode  period.Kind `form:"mode" binding:"omitempty,report_mode"`
	Month *int        `form:"month" binding:"omitempty,min=1,max=12"`
	Year  *int        `form:"year" binding:"omitempty,min=1"`
}

// GetStatistics returns totals, top expense categories and a running balance series.
// @Summary     Statistics
// @Description Totals by kind, expense categories ranked by spend and a cumulative series for a week, month or year
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       mode  query string false "week, month (default) or year"
// @Param       month query int    false "Month (1-12), defaults to the current month"
// @Param       year  query int    false "Year, defaults to the current year"
// @Success     200 {object} services.Statistics "Statistics"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/statistics [get]
func (h *ReportHandler) GetStatistics(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q StatisticsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	stats, err := h.reportService.GetStatistics(userID, q.Mode, q.Month, q.Year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetBalance returns all-time income, expense and balance.
// @Summary     Balance
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Balance "Balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/balance [get]
func (h *ReportHandler) GetBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	balance, err := h.reportService.GetBalance(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

// GetOverview returns the financial overview bundle.
// @Summary     Financial overview
// @Description Overall and monthly totals, category breakdowns, budgets, six-month trend and recent transactions
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Overview "Overview"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/overview [get]
func (h *ReportHandler) GetOverview(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	overview, err := h.reportService.GetOverview(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
