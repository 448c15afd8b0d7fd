package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRebuildRouter guards a rebuild route and leaves a user route open, the
// way the API mounts pipeline endpoints next to bearer-protected ones.
func newRebuildRouter(apiKey string) *gin.Engine {
	r := gin.New()
	pipeline := r.Group("/pipeline", PipelineAuthMiddleware(apiKey))
	pipeline.POST("/summaries/:user_id/rebuild", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.Param("user_id"), "months_recomputed": 3})
	})
	r.GET("/summaries/current", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"summary": "march"})
	})
	return r
}

func rebuild(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/pipeline/summaries/u-42/rebuild", http.NoBody)
	if key != "" {
		req.Header.Set(PipelineKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result), rec.Body.String())
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseBody(t, rec)["error"].(map[string]interface{})
	require.True(t, ok, "expected an error object, got %s", rec.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func TestPipelineAuthMiddleware_AcceptsConfiguredKey(t *testing.T) {
	rec := rebuild(newRebuildRouter("nightly-rollup"), "nightly-rollup")

	require.Equal(t, http.StatusOK, rec.Code)
	body := parseBody(t, rec)
	assert.Equal(t, "u-42", body["user_id"])
	assert.Equal(t, float64(3), body["months_recomputed"])
}

func TestPipelineAuthMiddleware_RejectsOtherKeys(t *testing.T) {
	for name, key := range map[string]string{
		"missing":        "",
		"wrong":          "weekly-rollup",
		"prefix":         "nightly",
		"trailing_space": "nightly-rollup ",
	} {
		t.Run(name, func(t *testing.T) {
			rec := rebuild(newRebuildRouter("nightly-rollup"), key)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "INVALID_API_KEY", errorCode(t, rec))
		})
	}
}

func TestPipelineAuthMiddleware_DisabledWithoutKey(t *testing.T) {
	for _, key := range []string{"", "nightly-rollup"} {
		rec := rebuild(newRebuildRouter(""), key)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "PIPELINE_NOT_CONFIGURED", errorCode(t, rec))
	}
}

func TestPipelineAuthMiddleware_LeavesOtherRoutesAlone(t *testing.T) {
	r := newRebuildRouter("")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summaries/current", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
}
