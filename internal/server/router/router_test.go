package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmledger/kmledger/internal/analytics"
	"github.com/kmledger/kmledger/internal/domain/errs"
	"github.com/kmledger/kmledger/internal/ratelimit"
	"github.com/kmledger/kmledger/internal/repository/memory"
	"github.com/kmledger/kmledger/internal/server/handlers"
	"github.com/kmledger/kmledger/internal/service/achievements"
	"github.com/kmledger/kmledger/internal/service/alerts"
	"github.com/kmledger/kmledger/internal/service/benchmark"
	"github.com/kmledger/kmledger/internal/service/export"
	"github.com/kmledger/kmledger/internal/service/goals"
	"github.com/kmledger/kmledger/internal/service/owners"
	"github.com/kmledger/kmledger/internal/service/records"
	"github.com/kmledger/kmledger/internal/service/reporting"
)

const adminToken = "admin-secret"

type harness struct {
	engine *gin.Engine
}

func newHarness(t *testing.T, limiter ratelimit.Limiter) *harness {
	t.Helper()
	store := memory.New()

	ownerSvc := owners.NewService(store, nil)
	recordSvc := records.NewService(store, nil)
	reportSvc := reporting.NewService(store, analytics.DefaultTaxTable(), nil)
	goalSvc := goals.NewService(store, nil)
	achSvc := achievements.NewService(store, analytics.DefaultAchievements(), nil)
	recordSvc.OnCreated(achSvc.OnRecordCreated)

	h := handlers.New(handlers.Services{
		Owners:       ownerSvc,
		Records:      recordSvc,
		Reporting:    reportSvc,
		Goals:        goalSvc,
		Benchmark:    benchmark.NewService(store, nil),
		Alerts:       alerts.NewService(store, goalSvc, analytics.DefaultRuleConfig(), nil),
		Achievements: achSvc,
		Export:       export.NewService(recordSvc, reportSvc, store, nil, "", nil),
	}, nil)

	return &harness{engine: New(h, ownerSvc, Options{AdminToken: adminToken, Limiter: limiter}, nil)}
}

func (hs *harness) do(t *testing.T, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	hs.engine.ServeHTTP(rec, req)
	return rec
}

func (hs *harness) provision(t *testing.T, name string) string {
	t.Helper()
	rec := hs.do(t, http.MethodPost, "/api/v1/owners", map[string]string{AdminTokenHeader: adminToken},
		map[string]any{"name": name, "locale": "SP", "vehicleType": "car"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		APIKey string `json:"apiKey"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.APIKey)
	return out.APIKey
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	hs := newHarness(t, nil)
	rec := hs.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOwners_RequireAdminToken(t *testing.T) {
	hs := newHarness(t, nil)

	rec := hs.do(t, http.MethodPost, "/api/v1/owners", nil, map[string]any{"name": "Ana"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = hs.do(t, http.MethodPost, "/api/v1/owners", map[string]string{AdminTokenHeader: "wrong"}, map[string]any{"name": "Ana"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(errs.KindUnauth), decode(t, rec)["code"])
}

func TestAPI_RequiresValidKey(t *testing.T) {
	hs := newHarness(t, nil)

	rec := hs.do(t, http.MethodGet, "/api/v1/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = hs.do(t, http.MethodGet, "/api/v1/me", map[string]string{APIKeyHeader: "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	key := hs.provision(t, "Ana")
	rec = hs.do(t, http.MethodGet, "/api/v1/me", map[string]string{APIKeyHeader: key}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decode(t, rec)["name"])
}

func TestRecords_LifecycleAndIsolation(t *testing.T) {
	hs := newHarness(t, nil)
	ana := map[string]string{APIKeyHeader: hs.provision(t, "Ana")}
	bia := map[string]string{APIKeyHeader: hs.provision(t, "Bia")}

	body := map[string]any{"date": "2025-10-13", "platforms": []string{"uber"}, "revenue": 400, "expenses": 100, "distance": 150}
	rec := hs.do(t, http.MethodPost, "/api/v1/records", ana, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	id := created["id"].(string)
	assert.InDelta(t, 300, created["profit"], 1e-9)

	rec = hs.do(t, http.MethodPost, "/api/v1/records", ana, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = hs.do(t, http.MethodGet, "/api/v1/records/"+id, bia, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = hs.do(t, http.MethodPost, "/api/v1/records", ana, map[string]any{"date": "13/10/2025", "revenue": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errs.KindValidation), decode(t, rec)["code"])

	rec = hs.do(t, http.MethodGet, "/api/v1/stats?from=2025-10-01&to=2025-10-31", ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 300, decode(t, rec)["profit"], 1e-9)

	rec = hs.do(t, http.MethodGet, "/api/v1/stats?from=oct", ana, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = hs.do(t, http.MethodGet, "/api/v1/achievements", ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["achievements"])

	rec = hs.do(t, http.MethodDelete, "/api/v1/records/"+id, ana, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = hs.do(t, http.MethodGet, "/api/v1/records/"+id, ana, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGoals_CreateAndProgress(t *testing.T) {
	hs := newHarness(t, nil)
	key := map[string]string{APIKeyHeader: hs.provision(t, "Ana")}
	period := time.Now().UTC().Format("2006-01-02")

	rec := hs.do(t, http.MethodPost, "/api/v1/goals", key, map[string]any{"type": "weekly", "targetPeriod": period, "targetValue": 1000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = hs.do(t, http.MethodPost, "/api/v1/goals", key, map[string]any{"type": "yearly", "targetPeriod": period, "targetValue": 1000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = hs.do(t, http.MethodGet, "/api/v1/goals", key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["goals"], 1)

	rec = hs.do(t, http.MethodGet, "/api/v1/goals/progress?type=weekly", key, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = hs.do(t, http.MethodGet, "/api/v1/goals/progress?type=custom", key, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBenchmark_RequiresOptIn(t *testing.T) {
	hs := newHarness(t, nil)
	key := map[string]string{APIKeyHeader: hs.provision(t, "Ana")}

	rec := hs.do(t, http.MethodPost, "/api/v1/benchmark/submit", key, map[string]any{"periodType": "monthly"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = hs.do(t, http.MethodGet, "/api/v1/benchmark", key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["insufficientData"])
}

func TestFiscal_CSVAndValidation(t *testing.T) {
	hs := newHarness(t, nil)
	key := map[string]string{APIKeyHeader: hs.provision(t, "Ana")}
	rec := hs.do(t, http.MethodPost, "/api/v1/records", key, map[string]any{"date": "2025-03-10", "revenue": 1000, "expenses": 100, "fuelCost": 100})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = hs.do(t, http.MethodGet, "/api/v1/fiscal/2025?format=csv", key, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fiscal-2025.csv")
	assert.Contains(t, rec.Body.String(), "receita_total")

	rec = hs.do(t, http.MethodGet, "/api/v1/fiscal/1899", key, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImport_MultipartCSV(t *testing.T) {
	hs := newHarness(t, nil)
	key := hs.provision(t, "Ana")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "registros.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("date,revenue,expenses,distance\n2025-10-01,300,50,120\n2025-10-02,abc,0,0\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(APIKeyHeader, key)
	rec := httptest.NewRecorder()
	hs.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.EqualValues(t, 1, out["created"])
	assert.Len(t, out["errors"], 1)

	exp := hs.do(t, http.MethodGet, "/api/v1/export?format=csv", map[string]string{APIKeyHeader: key}, nil)
	require.Equal(t, http.StatusOK, exp.Code)
	assert.True(t, strings.HasPrefix(exp.Body.String(), "date,"))
	assert.Contains(t, exp.Body.String(), "2025-10-01")

	rec = hs.do(t, http.MethodGet, "/api/v1/export?format=pdf", map[string]string{APIKeyHeader: key}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSheets_DisabledIsForbidden(t *testing.T) {
	hs := newHarness(t, nil)
	key := map[string]string{APIKeyHeader: hs.provision(t, "Ana")}
	rec := hs.do(t, http.MethodPost, "/api/v1/sheets/push", key, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAlerts_GenerateListRead(t *testing.T) {
	hs := newHarness(t, nil)
	key := map[string]string{APIKeyHeader: hs.provision(t, "Ana")}
	recent := time.Now().AddDate(0, 0, -2).Format("2006-01-02")
	rec := hs.do(t, http.MethodPost, "/api/v1/records", key, map[string]any{"date": recent, "revenue": 200, "expenses": 150, "distance": 100})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = hs.do(t, http.MethodPost, "/api/v1/alerts/generate", key, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["created"])

	rec = hs.do(t, http.MethodGet, "/api/v1/alerts?unread=maybe", key, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = hs.do(t, http.MethodPost, "/api/v1/alerts/read-all", key, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = hs.do(t, http.MethodGet, "/api/v1/alerts?unread=true", key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["alerts"])

	rec = hs.do(t, http.MethodPatch, "/api/v1/alerts/missing/read", key, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{Allowed: false, Limit: 1, RetryAfter: 30 * time.Second, ResetAt: time.Now().Add(30 * time.Second)}, nil
}

func TestRateLimit_Rejects(t *testing.T) {
	hs := newHarness(t, denyAll{})
	key := map[string]string{APIKeyHeader: hs.provision(t, "Ana")}

	rec := hs.do(t, http.MethodGet, "/api/v1/me", key, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, string(errs.KindRateLimit), decode(t, rec)["code"])
}

func TestRateLimit_MemoryLimiter(t *testing.T) {
	hs := newHarness(t, ratelimit.NewMemoryLimiter(ratelimit.Rule{Requests: 2, Window: time.Hour}, 16))
	key := map[string]string{APIKeyHeader: hs.provision(t, "Ana")}

	assert.Equal(t, http.StatusOK, hs.do(t, http.MethodGet, "/api/v1/me", key, nil).Code)
	rec := hs.do(t, http.MethodGet, "/api/v1/me", key, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusTooManyRequests, hs.do(t, http.MethodGet, "/api/v1/me", key, nil).Code)
}
