package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/server"
	"fintrack/internal/testutil"
	"fintrack/internal/validator"
)

// pipelineKey guards the pipeline routes of every test app.
const pipelineKey = "integration-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite database. The clock is pinned to now in UTC.
func setupApp(t *testing.T, now time.Time) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	opts := server.Options{
		Location:          time.UTC,
		Clock:             testutil.FixedClock(now),
		ReportConcurrency: 2,
		PipelineAPIKey:    pipelineKey,
	}
	router := server.NewRouter(server.NewServices(db, opts), opts)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// expectStatus fails the test unless rec carries the wanted status.
func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

// expectErrorCode checks the code of an error response.
func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected an error body, got %s", rec.Body.String())
	}
	if errObj["code"] != want {
		t.Errorf("expected error code %s, got %v", want, errObj["code"])
	}
}

// expectDecimal compares a decimal rendered as a JSON string with want.
func expectDecimal(t *testing.T, field string, got interface{}, want string) {
	t.Helper()
	s, ok := got.(string)
	if !ok {
		t.Fatalf("%s: expected a decimal string, got %v", field, got)
	}
	if !decimal.RequireFromString(s).Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: expected %s, got %s", field, want, s)
	}
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"full_name":"Test User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	expectStatus(t, rec, http.StatusCreated)
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	expectStatus(t, rec, http.StatusOK)
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// categoryID looks up one of the user's categories by name.
func (app *testApp) categoryID(t *testing.T, token, name string) string {
	t.Helper()
	rec := app.request("GET", "/api/v1/categories?page_size=100", "", token)
	expectStatus(t, rec, http.StatusOK)
	for _, item := range parseJSON(t, rec)["data"].([]interface{}) {
		category := item.(map[string]interface{})
		if category["name"] == name {
			return category["id"].(string)
		}
	}
	t.Fatalf("category %q not found", name)
	return ""
}

// createTransaction records a transaction and returns its ID.
func (app *testApp) createTransaction(t *testing.T, token, categoryID, txType, amount, date string) string {
	t.Helper()
	body := fmt.Sprintf(`{"category_id":%q,"type":%q,"amount":%q,"date":%q}`, categoryID, txType, amount, date)
	rec := app.request("POST", "/api/v1/transactions", body, token)
	expectStatus(t, rec, http.StatusCreated)
	return parseJSON(t, rec)["transaction"].(map[string]interface{})["id"].(string)
}

// storedSummaries lists the stored monthly summaries, oldest first, keyed by "year-month".
func (app *testApp) storedSummaries(t *testing.T, token string) map[string]map[string]interface{} {
	t.Helper()
	rec := app.request("GET", "/api/v1/summaries?sort=oldest&page_size=100", "", token)
	expectStatus(t, rec, http.StatusOK)
	out := make(map[string]map[string]interface{})
	for _, item := range parseJSON(t, rec)["data"].([]interface{}) {
		summary := item.(map[string]interface{})
		out[fmt.Sprintf("%.0f-%02.0f", summary["year"], summary["month"])] = summary
	}
	return out
}

// pipelineRequest calls a pipeline route with the configured key.
func (app *testApp) pipelineRequest(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(middleware.PipelineKeyHeader, pipelineKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}
