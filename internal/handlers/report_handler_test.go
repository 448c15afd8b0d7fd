package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/period"
	"fintrack/internal/services"
)

// --- mock report service ---

type mockReportService struct {
	getStatisticsFn func(userID string, mode period.Kind, month, year *int) (*services.Statistics, error)
	getBalanceFn    func(userID string) (*services.Balance, error)
	getOverviewFn   func(userID string) (*services.Overview, error)
}

func (m *mockReportService) GetStatistics(userID string, mode period.Kind, month, year *int) (*services.Statistics, error) {
	if m.getStatisticsFn != nil {
		return m.getStatisticsFn(userID, mode, month, year)
	}
	return &services.Statistics{Mode: mode}, nil
}

func (m *mockReportService) GetBalance(userID string) (*services.Balance, error) {
	if m.getBalanceFn != nil {
		return m.getBalanceFn(userID)
	}
	return &services.Balance{}, nil
}

func (m *mockReportService) GetOverview(userID string) (*services.Overview, error) {
	if m.getOverviewFn != nil {
		return m.getOverviewFn(userID)
	}
	return &services.Overview{}, nil
}

var _ services.ReportServicer = (*mockReportService)(nil)

func setupReportRouter(handler *ReportHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/reports/statistics", handler.GetStatistics)
	auth.GET("/reports/balance", handler.GetBalance)
	auth.GET("/reports/overview", handler.GetOverview)
	return r
}

func TestReportHandler_GetStatistics(t *testing.T) {
	t.Run("passes mode month and year", func(t *testing.T) {
		var gotMode period.Kind
		var gotMonth, gotYear *int
		svc := &mockReportService{
			getStatisticsFn: func(_ string, mode period.Kind, month, year *int) (*services.Statistics, error) {
				gotMode, gotMonth, gotYear = mode, month, year
				return &services.Statistics{
					Mode:   mode,
					Month:  *month,
					Year:   *year,
					Totals: services.KindTotals{Income: decimal.NewFromInt(300), Expense: decimal.NewFromInt(100)},
					Series: []services.SeriesPoint{{Label: "2024-02-12", Balance: decimal.NewFromInt(200)}},
				}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(svc))

		rec := doRequest(r, "GET", "/reports/statistics?mode=week&month=2&year=2024", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotMode != period.Week || gotMonth == nil || *gotMonth != 2 || gotYear == nil || *gotYear != 2024 {
			t.Errorf("unexpected arguments %v %v %v", gotMode, gotMonth, gotYear)
		}
		result := parseJSON(t, rec)
		totals := result["totals"].(map[string]interface{})
		if totals["income"] != "300" || totals["expense"] != "100" {
			t.Errorf("unexpected totals: %v", totals)
		}
	})

	t.Run("missing parameters are nil", func(t *testing.T) {
		svc := &mockReportService{
			getStatisticsFn: func(_ string, mode period.Kind, month, year *int) (*services.Statistics, error) {
				if mode != "" || month != nil || year != nil {
					t.Errorf("expected empty arguments, got %v %v %v", mode, month, year)
				}
				return &services.Statistics{Mode: period.Month}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(svc))

		rec := doRequest(r, "GET", "/reports/statistics", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	for _, q := range []string{"mode=day", "month=13", "month=0", "year=-1", "month=march"} {
		t.Run("returns 400 on "+q, func(t *testing.T) {
			r := setupReportRouter(NewReportHandler(&mockReportService{}))

			rec := doRequest(r, "GET", "/reports/statistics?"+q, "")

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}
}

func TestReportHandler_GetBalance(t *testing.T) {
	svc := &mockReportService{
		getBalanceFn: func(_ string) (*services.Balance, error) {
			return &services.Balance{
				Income:  decimal.NewFromInt(5000),
				Expense: decimal.NewFromInt(2100),
				Balance: decimal.NewFromInt(2900),
			}, nil
		},
	}
	r := setupReportRouter(NewReportHandler(svc))

	rec := doRequest(r, "GET", "/reports/balance", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if balance := parseJSON(t, rec)["balance"]; balance != "2900" {
		t.Errorf("expected balance 2900, got %v", balance)
	}
}

func TestReportHandler_GetOverview(t *testing.T) {
	t.Run("returns the bundle", func(t *testing.T) {
		generated := time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC)
		svc := &mockReportService{
			getOverviewFn: func(_ string) (*services.Overview, error) {
				return &services.Overview{
					CurrentBalance:     decimal.NewFromInt(2200),
					Budgets:            []services.BudgetEvaluation{{BudgetID: testBudgetID, Percentage: 80}},
					RecentTransactions: []models.Transaction{},
					GeneratedAt:        generated,
				}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(svc))

		rec := doRequest(r, "GET", "/reports/overview", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["current_balance"] != "2200" || result["generated_at"] != "2024-03-13T12:00:00Z" {
			t.Errorf("unexpected overview: %v", result)
		}
		if budgets := result["budgets"].([]interface{}); len(budgets) != 1 {
			t.Errorf("expected 1 budget, got %d", len(budgets))
		}
	})

	t.Run("returns 500 on store failure", func(t *testing.T) {
		svc := &mockReportService{
			getOverviewFn: func(_ string) (*services.Overview, error) {
				return nil, apperrors.ErrStoreUnavailable
			},
		}
		r := setupReportRouter(NewReportHandler(svc))

		rec := doRequest(r, "GET", "/reports/overview", "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "STORE_UNAVAILABLE")
	})
}
