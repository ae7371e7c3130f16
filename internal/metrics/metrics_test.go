package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(Submissions.WithLabelValues("duplicate"))
	RecordSubmission("duplicate")
	if got := testutil.ToFloat64(Submissions.WithLabelValues("duplicate")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}

	before = testutil.ToFloat64(RewardTransitions.WithLabelValues("granted"))
	RecordRewardTransition("granted", 3)
	if got := testutil.ToFloat64(RewardTransitions.WithLabelValues("granted")); got != before+3 {
		t.Fatalf("expected %v, got %v", before+3, got)
	}
}

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/sw/adv/:uid/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sw/adv/AB_CD_12345/", nil))

	if n := testutil.CollectAndCount(HTTPDuration, "socialz_http_request_duration_seconds"); n == 0 {
		t.Fatal("expected an observation")
	}
}
