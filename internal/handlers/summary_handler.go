package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
)

const maxTrendMonths = 24

// SummaryHandler serves the monthly summaries.
type SummaryHandler struct {
	rollupService services.RollupServicer
	auditService  services.AuditServicer
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(rollupService services.RollupServicer, auditService services.AuditServicer) *SummaryHandler {
	return &SummaryHandler{rollupService: rollupService, auditService: auditService}
}

// GetSummaries lists the stored monthly summaries, newest first.
// @Summary     List monthly summaries
// @Tags        summaries
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.MonthlySnapshot] "Paginated summaries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /summaries [get]
func (h *SummaryHandler) GetSummaries(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.rollupService.ListSnapshots(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCurrentSummary recomputes and returns the summary of the current month.
// @Summary     Current month summary
// @Tags        summaries
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.MonthlySnapshot "Summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /summaries/current [get]
func (h *SummaryHandler) GetCurrentSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	snapshot, err := h.rollupService.RecomputeCurrentMonth(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": snapshot})
}

// GetMonthSummary recomputes and returns the summary of one month.
// @Summary     Summary of a month
// @Tags        summaries
// @Produce     json
// @Security    BearerAuth
// @Param       month path int true "Month (1-12)"
// @Param       year  path int true "Year"
// @Success     200 {object} models.MonthlySnapshot "Summary"
// @Failure     400 {object} ErrorResponse "Invalid month or year"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /summaries/{month}/{year} [get]
func (h *SummaryHandler) GetMonthSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	month, err := parsePathInt(c, "month")
	if err != nil {
		respondWithError(c, err)
		return
	}
	year, err := parsePathInt(c, "year")
	if err != nil {
		respondWithError(c, err)
		return
	}

	snapshot, err := h.rollupService.RecomputeMonth(userID, month, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": snapshot})
}

// GetTrends returns the latest summaries with month-over-month trends.
// @Summary     Summary trends
// @Tags        summaries
// @Produce     json
// @Security    BearerAuth
// @Param       months query int false "Number of months (default 6, max 24)"
// @Success     200 {object} services.SnapshotTrends "Trends"
// @Failure     400 {object} ErrorResponse "Invalid months"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /summaries/trends [get]
func (h *SummaryHandler) GetTrends(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	months, err := parseQueryInt(c, "months")
	if err != nil {
		respondWithError(c, err)
		return
	}
	n := 0
	if months != nil {
		if *months < 1 || *months > maxTrendMonths {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "months must be between 1 and 24"))
			return
		}
		n = *months
	}

	trends, err := h.rollupService.GetTrends(userID, n)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, trends)
}

// DeleteSummary removes a stored summary. It is rebuilt on the next read.
// @Summary     Delete a monthly summary
// @Tags        summaries
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Summary ID"
// @Success     200 {object} map[string]string "Summary deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Summary not found"
// @Router      /summaries/{id} [delete]
func (h *SummaryHandler) DeleteSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	snapshotID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.rollupService.DeleteSnapshot(userID, snapshotID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_SUMMARY", "monthly_snapshot", snapshotID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Summary deleted successfully"})
}

// RebuildSummaries recomputes every month of one user.
// @Summary     Rebuild monthly summaries
// @Description Recompute every month from the user's first transaction to the current month (pipeline endpoint)
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header   string         true "Pipeline API key"
// @Param       user_id   path     string         true "User ID"
// @Success     200       {object} map[string]int "Months recomputed"
// @Failure     400       {object} ErrorResponse  "Invalid user ID"
// @Failure     401       {object} ErrorResponse  "Invalid API key"
// @Failure     404       {object} ErrorResponse  "User not found"
// @Failure     503       {object} ErrorResponse  "Pipeline not configured"
// @Router      /pipeline/summaries/{user_id}/rebuild [post]
func (h *SummaryHandler) RebuildSummaries(c *gin.Context) {
	userID, err := parsePathID(c, "user_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	count, err := h.rollupService.RebuildAll(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"months_recomputed": count})
}
