package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBeforeInitIsNoop(t *testing.T) {
	if metricsRegistered {
		t.Skip("metrics already registered by another test")
	}
	assert.NotPanics(t, func() {
		RecordAuthzDecision("view", "allow")
		RecordCredentialOp("memory", "put", nil, time.Millisecond)
		RecordActivity("created", "secret")
	})
}

func TestCounters(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(authzDecisionsTotal.WithLabelValues("delete_secret", "deny"))
	RecordAuthzDecision("delete_secret", "deny")
	assert.Equal(t, before+1, testutil.ToFloat64(authzDecisionsTotal.WithLabelValues("delete_secret", "deny")))

	before = testutil.ToFloat64(credentialOpsTotal.WithLabelValues("ssm", "put", "error"))
	RecordCredentialOp("ssm", "put", errors.New("throttled"), 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(credentialOpsTotal.WithLabelValues("ssm", "put", "error")))

	before = testutil.ToFloat64(activityRecordsTotal.WithLabelValues("viewed", "secret"))
	RecordActivity("viewed", "secret")
	assert.Equal(t, before+1, testutil.ToFloat64(activityRecordsTotal.WithLabelValues("viewed", "secret")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	Init()

	router := mux.NewRouter()
	router.Use(Middleware)
	router.HandleFunc("/api/secrets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods("GET")

	counter := httpRequestsTotal.WithLabelValues("/api/secrets/{id}", "GET", "404")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/secrets/42", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
