package integration

import (
	"net/http"
	"testing"
	"time"
)

var rollupNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func expectSummary(t *testing.T, summary map[string]interface{}, income, expense, balance string) {
	t.Helper()
	if summary == nil {
		t.Fatal("summary not stored")
	}
	expectDecimal(t, "income", summary["income"], income)
	expectDecimal(t, "expense", summary["expense"], expense)
	expectDecimal(t, "current_balance", summary["current_balance"], balance)
}

func TestRollupFlow_CascadeAcrossMonths(t *testing.T) {
	app := setupApp(t, rollupNow)
	token, _, _ := app.registerUser(t, "rollup@test.com", "password123")
	salary := app.categoryID(t, token, "Salary")
	food := app.categoryID(t, token, "Food")

	// January: income and expense.
	app.createTransaction(t, token, salary, "income", "5000", "2024-01-10")
	app.createTransaction(t, token, food, "expense", "1200", "2024-01-20")

	rec := app.request("GET", "/api/v1/summaries/1/2024", "", token)
	expectStatus(t, rec, http.StatusOK)
	jan := parseJSON(t, rec)["summary"].(map[string]interface{})
	expectSummary(t, jan, "5000", "1200", "3800")
	expectDecimal(t, "savings", jan["savings"], "3800")

	// February carries January's closing balance.
	febIncome := app.createTransaction(t, token, salary, "income", "1000", "2024-02-05")
	summaries := app.storedSummaries(t, token)
	expectSummary(t, summaries["2024-02"], "1000", "0", "4800")

	// A backdated expense moves every later stored month.
	backdated := app.createTransaction(t, token, food, "expense", "300", "2024-01-25")
	summaries = app.storedSummaries(t, token)
	expectSummary(t, summaries["2024-01"], "5000", "1500", "3500")
	expectSummary(t, summaries["2024-02"], "1000", "0", "4500")
	if _, ok := summaries["2024-03"]; ok {
		t.Error("cascade must not create months that were never stored")
	}

	// Deleting a transaction recomputes its month.
	rec = app.request("DELETE", "/api/v1/transactions/"+febIncome, "", token)
	expectStatus(t, rec, http.StatusOK)
	summaries = app.storedSummaries(t, token)
	expectSummary(t, summaries["2024-02"], "0", "0", "3500")

	// Moving a transaction to a later month recomputes from the earlier one.
	rec = app.request("PUT", "/api/v1/transactions/"+backdated, `{"date":"2024-02-01"}`, token)
	expectStatus(t, rec, http.StatusOK)
	summaries = app.storedSummaries(t, token)
	expectSummary(t, summaries["2024-01"], "5000", "1200", "3800")
	expectSummary(t, summaries["2024-02"], "0", "300", "3500")
}

func TestRollupFlow_CurrentAndTrends(t *testing.T) {
	app := setupApp(t, rollupNow)
	token, _, _ := app.registerUser(t, "trends@test.com", "password123")
	salary := app.categoryID(t, token, "Salary")
	food := app.categoryID(t, token, "Food")

	app.createTransaction(t, token, salary, "income", "2000", "2024-01-05")
	app.createTransaction(t, token, food, "expense", "400", "2024-01-06")
	app.createTransaction(t, token, food, "expense", "500", "2024-02-06")

	rec := app.request("GET", "/api/v1/summaries/current", "", token)
	expectStatus(t, rec, http.StatusOK)
	current := parseJSON(t, rec)["summary"].(map[string]interface{})
	if current["month"] != float64(3) || current["year"] != float64(2024) {
		t.Fatalf("expected March 2024, got %v/%v", current["month"], current["year"])
	}
	expectSummary(t, current, "0", "0", "1100")

	rec = app.request("GET", "/api/v1/summaries/trends?months=3", "", token)
	expectStatus(t, rec, http.StatusOK)
	trends := parseJSON(t, rec)
	if data := trends["data"].([]interface{}); len(data) != 3 {
		t.Fatalf("expected 3 months, got %d", len(data))
	}
	// March spent nothing against February's 500.
	expense := trends["expense"].(map[string]interface{})
	if expense["direction"] != "down" {
		t.Errorf("expected expense down, got %v", expense["direction"])
	}
	expectDecimal(t, "expense.percentage", expense["percentage"], "100")

	rec = app.request("GET", "/api/v1/summaries/trends?months=30", "", token)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestRollupFlow_DeleteAndRebuild(t *testing.T) {
	app := setupApp(t, rollupNow)
	token, _, userID := app.registerUser(t, "rebuild@test.com", "password123")
	salary := app.categoryID(t, token, "Salary")

	app.createTransaction(t, token, salary, "income", "750", "2024-01-15")

	jan := app.storedSummaries(t, token)["2024-01"]
	rec := app.request("DELETE", "/api/v1/summaries/"+jan["id"].(string), "", token)
	expectStatus(t, rec, http.StatusOK)
	if _, ok := app.storedSummaries(t, token)["2024-01"]; ok {
		t.Fatal("expected January to be deleted")
	}

	rec = app.request("DELETE", "/api/v1/summaries/"+jan["id"].(string), "", token)
	expectStatus(t, rec, http.StatusNotFound)
	expectErrorCode(t, rec, "SNAPSHOT_NOT_FOUND")

	// Without the pipeline key the rebuild is refused.
	rec = app.request("POST", "/api/v1/pipeline/summaries/"+userID+"/rebuild", "", token)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = app.pipelineRequest("POST", "/api/v1/pipeline/summaries/"+userID+"/rebuild")
	expectStatus(t, rec, http.StatusOK)
	if n := parseJSON(t, rec)["months_recomputed"]; n != float64(3) {
		t.Errorf("expected 3 months (January to March), got %v", n)
	}

	summaries := app.storedSummaries(t, token)
	expectSummary(t, summaries["2024-01"], "750", "0", "750")
	expectSummary(t, summaries["2024-02"], "0", "0", "750")
	expectSummary(t, summaries["2024-03"], "0", "0", "750")
}

func TestRollupFlow_InvalidMonth(t *testing.T) {
	app := setupApp(t, rollupNow)
	token, _, _ := app.registerUser(t, "badmonth@test.com", "password123")

	rec := app.request("GET", "/api/v1/summaries/13/2024", "", token)
	expectStatus(t, rec, http.StatusBadRequest)
	expectErrorCode(t, rec, "INVALID_INPUT")
}
