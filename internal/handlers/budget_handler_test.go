package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

const testBudgetID = "0190a5d2-7c3e-7000-8000-0000000000b1"

// --- mock budget service ---

type mockBudgetService struct {
	listWithSpendFn func(userID string) ([]services.BudgetEvaluation, error)
	listWarningsFn  func(userID string) ([]services.BudgetEvaluation, error)
	getBudgetFn     func(userID, budgetID string) (*services.BudgetEvaluation, error)
	createBudgetFn  func(userID string, input services.CreateBudgetInput) (*models.Budget, error)
	updateBudgetFn  func(userID, budgetID string, input services.UpdateBudgetInput) (*models.Budget, error)
	deleteBudgetFn  func(userID, budgetID string) error
}

func (m *mockBudgetService) ListWithSpend(userID string) ([]services.BudgetEvaluation, error) {
	if m.listWithSpendFn != nil {
		return m.listWithSpendFn(userID)
	}
	return []services.BudgetEvaluation{}, nil
}

func (m *mockBudgetService) ListWarnings(userID string) ([]services.BudgetEvaluation, error) {
	if m.listWarningsFn != nil {
		return m.listWarningsFn(userID)
	}
	return []services.BudgetEvaluation{}, nil
}

func (m *mockBudgetService) GetBudget(userID, budgetID string) (*services.BudgetEvaluation, error) {
	if m.getBudgetFn != nil {
		return m.getBudgetFn(userID, budgetID)
	}
	return &services.BudgetEvaluation{BudgetID: budgetID}, nil
}

func (m *mockBudgetService) CreateBudget(userID string, input services.CreateBudgetInput) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(userID, input)
	}
	return &models.Budget{Base: models.Base{ID: testBudgetID}}, nil
}

func (m *mockBudgetService) UpdateBudget(userID, budgetID string, input services.UpdateBudgetInput) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(userID, budgetID, input)
	}
	return &models.Budget{Base: models.Base{ID: budgetID}}, nil
}

func (m *mockBudgetService) DeleteBudget(userID, budgetID string) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(userID, budgetID)
	}
	return nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/budgets", handler.CreateBudget)
	auth.GET("/budgets", handler.GetBudgets)
	auth.GET("/budgets/warnings", handler.GetBudgetWarnings)
	auth.GET("/budgets/:id", handler.GetBudget)
	auth.PUT("/budgets/:id", handler.UpdateBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	return r
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		var got services.CreateBudgetInput
		svc := &mockBudgetService{
			createBudgetFn: func(userID string, input services.CreateBudgetInput) (*models.Budget, error) {
				got = input
				return &models.Budget{
					Base:        models.Base{ID: testBudgetID},
					UserID:      userID,
					CategoryID:  input.CategoryID,
					LimitAmount: input.LimitAmount,
					Period:      input.Period,
				}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, audit))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":"`+testCategoryID+`","limit_amount":"1500","period":"month","month":4,"year":2024}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.LimitAmount.Equal(decimal.NewFromInt(1500)) || got.Period != models.BudgetPeriodMonthly {
			t.Errorf("unexpected input: %+v", got)
		}
		if got.Month == nil || *got.Month != 4 || got.Year == nil || *got.Year != 2024 {
			t.Errorf("expected pin to 4/2024, got %v %v", got.Month, got.Year)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "CREATE_BUDGET" {
			t.Errorf("unexpected audit entries: %+v", audit.entries)
		}
	})

	t.Run("returns 400 on unknown period", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":"`+testCategoryID+`","limit_amount":"100","period":"day"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid limit", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(_ string, _ services.CreateBudgetInput) (*models.Budget, error) {
				return nil, apperrors.ErrInvalidLimit
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets", `{"category_id":"`+testCategoryID+`","limit_amount":"0"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_LIMIT")
	})

	t.Run("returns 409 on duplicate", func(t *testing.T) {
		audit := &mockAuditService{}
		svc := &mockBudgetService{
			createBudgetFn: func(_ string, _ services.CreateBudgetInput) (*models.Budget, error) {
				return nil, apperrors.ErrDuplicateBudget
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, audit))

		rec := doRequest(r, "POST", "/budgets", `{"category_id":"`+testCategoryID+`","limit_amount":"100","period":"week"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_BUDGET")
		if len(audit.entries) != 0 {
			t.Errorf("expected no audit entry, got %+v", audit.entries)
		}
	})
}

func TestBudgetHandler_GetBudgets(t *testing.T) {
	t.Run("returns evaluations", func(t *testing.T) {
		svc := &mockBudgetService{
			listWithSpendFn: func(_ string) ([]services.BudgetEvaluation, error) {
				return []services.BudgetEvaluation{{
					BudgetID:    testBudgetID,
					LimitAmount: decimal.NewFromInt(1000),
					Spent:       decimal.NewFromInt(850),
					Percentage:  85,
					IsNearLimit: true,
				}}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		data := parseJSON(t, rec)["data"].([]interface{})
		if len(data) != 1 {
			t.Fatalf("expected 1 budget, got %d", len(data))
		}
		budget := data[0].(map[string]interface{})
		if budget["percentage"] != float64(85) || budget["is_near_limit"] != true || budget["spent"] != "850" {
			t.Errorf("unexpected evaluation: %v", budget)
		}
	})

	t.Run("returns 500 on store failure", func(t *testing.T) {
		svc := &mockBudgetService{
			listWithSpendFn: func(_ string) ([]services.BudgetEvaluation, error) {
				return nil, apperrors.ErrStoreUnavailable
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets", "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_GetBudgetWarnings(t *testing.T) {
	called := false
	svc := &mockBudgetService{
		listWarningsFn: func(userID string) ([]services.BudgetEvaluation, error) {
			called = userID == testUserID
			return []services.BudgetEvaluation{{BudgetID: testBudgetID, Percentage: 120, IsOverLimit: true}}, nil
		},
	}
	r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/budgets/warnings", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !called {
		t.Error("expected warnings to be listed for the authenticated user")
	}
	if data := parseJSON(t, rec)["data"].([]interface{}); len(data) != 1 {
		t.Errorf("expected 1 warning, got %d", len(data))
	}
}

func TestBudgetHandler_GetBudget(t *testing.T) {
	svc := &mockBudgetService{
		getBudgetFn: func(_, _ string) (*services.BudgetEvaluation, error) {
			return nil, apperrors.ErrBudgetNotFound
		},
	}
	r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/budgets/"+testBudgetID, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
}

func TestBudgetHandler_UpdateBudget(t *testing.T) {
	t.Run("passes only the provided fields", func(t *testing.T) {
		var got services.UpdateBudgetInput
		svc := &mockBudgetService{
			updateBudgetFn: func(_, budgetID string, input services.UpdateBudgetInput) (*models.Budget, error) {
				got = input
				return &models.Budget{Base: models.Base{ID: budgetID}, LimitAmount: *input.LimitAmount}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/budgets/"+testBudgetID, `{"limit_amount":"2000.50"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.LimitAmount == nil || !got.LimitAmount.Equal(decimal.RequireFromString("2000.5")) {
			t.Errorf("unexpected limit %v", got.LimitAmount)
		}
		if got.Period != nil || got.CategoryID != nil {
			t.Errorf("expected untouched fields to be nil: %+v", got)
		}
	})

	t.Run("returns 400 on malformed id", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/budgets/abc", `{"limit_amount":"10"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_DeleteBudget(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, audit))

		rec := doRequest(r, "DELETE", "/budgets/"+testBudgetID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(audit.entries) != 1 || audit.entries[0].resourceID != testBudgetID {
			t.Errorf("unexpected audit entries: %+v", audit.entries)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockBudgetService{
			deleteBudgetFn: func(_, _ string) error { return apperrors.ErrBudgetNotFound },
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/budgets/"+testBudgetID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
