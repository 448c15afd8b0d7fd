package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

// budgetNow is a Friday; its week runs from Monday 11 to Sunday 17 March.
var budgetNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func (app *testApp) createBudget(t *testing.T, token, body string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/budgets", body, token)
	expectStatus(t, rec, http.StatusCreated)
	return parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(string)
}

func (app *testApp) budgetEvaluation(t *testing.T, token, budgetID string) map[string]interface{} {
	t.Helper()
	rec := app.request("GET", "/api/v1/budgets/"+budgetID, "", token)
	expectStatus(t, rec, http.StatusOK)
	return parseJSON(t, rec)["budget"].(map[string]interface{})
}

func expectState(t *testing.T, eval map[string]interface{}, spent string, percentage float64, near, over bool) {
	t.Helper()
	expectDecimal(t, "spent", eval["spent"], spent)
	if eval["percentage"] != percentage {
		t.Errorf("expected percentage %.0f, got %v", percentage, eval["percentage"])
	}
	if eval["is_near_limit"] != near || eval["is_over_limit"] != over {
		t.Errorf("expected near=%v over=%v, got near=%v over=%v", near, over, eval["is_near_limit"], eval["is_over_limit"])
	}
}

func TestBudgetFlow_MonthlyProgress(t *testing.T) {
	app := setupApp(t, budgetNow)
	token, _, _ := app.registerUser(t, "budget@test.com", "password123")
	food := app.categoryID(t, token, "Food")

	budgetID := app.createBudget(t, token, fmt.Sprintf(`{"category_id":%q,"limit_amount":"500","period":"month"}`, food))

	eval := app.budgetEvaluation(t, token, budgetID)
	expectState(t, eval, "0", 0, false, false)
	expectDecimal(t, "remaining", eval["remaining"], "500")
	if eval["category_name"] != "Food" || eval["period_start"] != "2024-03-01T00:00:00Z" {
		t.Errorf("unexpected evaluation: %v", eval)
	}

	// February spending stays out of the March window.
	app.createTransaction(t, token, food, "expense", "999", "2024-02-28")

	// Exactly 80 percent is a warning but not near the limit.
	app.createTransaction(t, token, food, "expense", "400", "2024-03-10")
	expectState(t, app.budgetEvaluation(t, token, budgetID), "400", 80, false, false)

	rec := app.request("GET", "/api/v1/budgets/warnings", "", token)
	expectStatus(t, rec, http.StatusOK)
	if warnings := parseJSON(t, rec)["data"].([]interface{}); len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}

	app.createTransaction(t, token, food, "expense", "50", "2024-03-12")
	expectState(t, app.budgetEvaluation(t, token, budgetID), "450", 90, true, false)

	app.createTransaction(t, token, food, "expense", "100", "2024-03-14")
	eval = app.budgetEvaluation(t, token, budgetID)
	expectState(t, eval, "550", 110, false, true)
	expectDecimal(t, "remaining", eval["remaining"], "-50")

	// Raising the limit brings the budget back under.
	rec = app.request("PUT", "/api/v1/budgets/"+budgetID, `{"limit_amount":"1000"}`, token)
	expectStatus(t, rec, http.StatusOK)
	expectState(t, app.budgetEvaluation(t, token, budgetID), "550", 55, false, false)
}

func TestBudgetFlow_WeeklyAndPinned(t *testing.T) {
	app := setupApp(t, budgetNow)
	token, _, _ := app.registerUser(t, "periods@test.com", "password123")
	food := app.categoryID(t, token, "Food")
	transport := app.categoryID(t, token, "Transport")

	// Sunday the 10th belongs to the previous week.
	app.createTransaction(t, token, food, "expense", "70", "2024-03-10")
	app.createTransaction(t, token, food, "expense", "30", "2024-03-11")
	app.createTransaction(t, token, food, "expense", "90", "2024-03-17")

	weekly := app.createBudget(t, token, fmt.Sprintf(`{"category_id":%q,"limit_amount":"100","period":"week"}`, food))
	eval := app.budgetEvaluation(t, token, weekly)
	expectState(t, eval, "120", 120, false, true)
	if eval["period_start"] != "2024-03-11T00:00:00Z" {
		t.Errorf("expected the week to start on Monday, got %v", eval["period_start"])
	}

	// A month budget pinned to February reads February.
	app.createTransaction(t, token, transport, "expense", "80", "2024-02-10")
	pinned := app.createBudget(t, token, fmt.Sprintf(`{"category_id":%q,"limit_amount":"100","period":"month","month":2,"year":2024}`, transport))
	expectState(t, app.budgetEvaluation(t, token, pinned), "80", 80, false, false)

	rec := app.request("GET", "/api/v1/budgets", "", token)
	expectStatus(t, rec, http.StatusOK)
	if data := parseJSON(t, rec)["data"].([]interface{}); len(data) != 2 {
		t.Errorf("expected 2 budgets, got %d", len(data))
	}

	rec = app.request("GET", "/api/v1/budgets/warnings", "", token)
	expectStatus(t, rec, http.StatusOK)
	if warnings := parseJSON(t, rec)["data"].([]interface{}); len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %d", len(warnings))
	}
}

func TestBudgetFlow_Validation(t *testing.T) {
	app := setupApp(t, budgetNow)
	token, _, _ := app.registerUser(t, "budgetval@test.com", "password123")
	food := app.categoryID(t, token, "Food")

	rec := app.request("POST", "/api/v1/budgets", fmt.Sprintf(`{"category_id":%q,"limit_amount":"0"}`, food), token)
	expectStatus(t, rec, http.StatusBadRequest)
	expectErrorCode(t, rec, "INVALID_LIMIT")

	rec = app.request("POST", "/api/v1/budgets", fmt.Sprintf(`{"category_id":%q,"limit_amount":"10","period":"day"}`, food), token)
	expectStatus(t, rec, http.StatusBadRequest)

	app.createBudget(t, token, fmt.Sprintf(`{"category_id":%q,"limit_amount":"10"}`, food))
	rec = app.request("POST", "/api/v1/budgets", fmt.Sprintf(`{"category_id":%q,"limit_amount":"20","period":"month"}`, food), token)
	expectStatus(t, rec, http.StatusConflict)
	expectErrorCode(t, rec, "DUPLICATE_BUDGET")
}

func TestBudgetFlow_DeleteFreesSlot(t *testing.T) {
	app := setupApp(t, budgetNow)
	token, _, _ := app.registerUser(t, "budgetdel@test.com", "password123")
	food := app.categoryID(t, token, "Food")
	body := fmt.Sprintf(`{"category_id":%q,"limit_amount":"300","period":"year"}`, food)

	budgetID := app.createBudget(t, token, body)

	rec := app.request("DELETE", "/api/v1/budgets/"+budgetID, "", token)
	expectStatus(t, rec, http.StatusOK)

	rec = app.request("GET", "/api/v1/budgets/"+budgetID, "", token)
	expectStatus(t, rec, http.StatusNotFound)
	expectErrorCode(t, rec, "BUDGET_NOT_FOUND")

	app.createBudget(t, token, body)
}

func TestBudgetFlow_CategoryDeletion(t *testing.T) {
	app := setupApp(t, budgetNow)
	token, _, _ := app.registerUser(t, "budgetcat@test.com", "password123")

	rec := app.request("POST", "/api/v1/categories", `{"name":"Gym","type":"expense"}`, token)
	expectStatus(t, rec, http.StatusCreated)
	gym := parseJSON(t, rec)["category"].(map[string]interface{})["id"].(string)
	budgetID := app.createBudget(t, token, fmt.Sprintf(`{"category_id":%q,"limit_amount":"60"}`, gym))

	// An unused category takes its budgets along.
	rec = app.request("DELETE", "/api/v1/categories/"+gym, "", token)
	expectStatus(t, rec, http.StatusOK)
	rec = app.request("GET", "/api/v1/budgets/"+budgetID, "", token)
	expectStatus(t, rec, http.StatusNotFound)

	// A category with transactions stays.
	food := app.categoryID(t, token, "Food")
	app.createTransaction(t, token, food, "expense", "5", "2024-03-01")
	rec = app.request("DELETE", "/api/v1/categories/"+food, "", token)
	expectStatus(t, rec, http.StatusConflict)
	expectErrorCode(t, rec, "CATEGORY_IN_USE")
}
