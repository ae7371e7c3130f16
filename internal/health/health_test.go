package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/socialzwater/backend/internal/testutil"
)

func probe(t *testing.T, r *gin.Engine, path string) (int, CheckStatus) {
	t.Helper()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body CheckStatus
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s: decode: %v", path, err)
	}
	return w.Code, body
}

func TestProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)

	checker := NewChecker(db, rdb)
	r := gin.New()
	checker.RegisterRoutes(r)

	if code, _ := probe(t, r, "/healthz"); code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
	if code, body := probe(t, r, "/readyz"); code != http.StatusServiceUnavailable || body.Status != "not_ready" {
		t.Fatalf("readyz before startup = %d %s", code, body.Status)
	}

	checker.SetReady(true)
	code, body := probe(t, r, "/readyz")
	if code != http.StatusOK || body.Checks["database"].Status != "healthy" || body.Checks["redis"].Status != "healthy" {
		t.Fatalf("readyz = %d %+v", code, body)
	}

	mr.Close()
	code, body = probe(t, r, "/readyz")
	if code != http.StatusServiceUnavailable || body.Status != "degraded" || body.Checks["redis"].Status != "unhealthy" {
		t.Fatalf("readyz without redis = %d %+v", code, body)
	}
	if code, body := probe(t, r, "/health"); code != http.StatusServiceUnavailable || body.Status != "unhealthy" {
		t.Fatalf("health without redis = %d %s", code, body.Status)
	}
}
