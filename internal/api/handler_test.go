package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/icd"
	"github.com/soilicd/soilicd/pkg/method"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

func record(dept string, ca float64) dataset.Record {
	return dataset.Record{Department: dept, Values: soil.Measurements{soil.Calcium: ca}}
}

// National Ca: 4, 6, 5, 8, 2, 2. Andina: 4, 6, 5.
func fixture() *dataset.Dataset {
	return dataset.New([]dataset.Record{
		record("Huila", 4),
		record("Huila", 6),
		record("Tolima", 5),
		record("Meta", 8),
		record("Nariño", 2),
		record("Cauca", 2),
	})
}

type testServer struct {
	mux     *http.ServeMux
	cache   *ReferenceCache
	metrics *Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	metrics := NewMetrics()
	cache := NewReferenceCache(fixture(), 16, metrics)
	engine := scoring.NewEngine(cache, nil)
	h := NewHandler(engine, Options{
		Simulator:  scoring.DefaultSimulatorOptions(),
		Validation: scoring.DefaultValidationOptions(),
	}, metrics)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &testServer{mux: mux, cache: cache, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestSimulate(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/simulate",
		`{"variable": "Ca", "value": "4,5", "department": "Huila"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	resp := decode(t, w)
	assert.Equal(t, 0.845, resp["composite_score"])
	assert.Equal(t, "Moderate", resp["band"])
	assert.Equal(t, "simulator", resp["band_table"])
	_, err := uuid.Parse(resp["evaluation_id"].(string))
	assert.NoError(t, err)

	components, ok := resp["components"].([]any)
	require.True(t, ok)
	assert.Len(t, components, 4)
}

func TestSimulateNumericForms(t *testing.T) {
	s := newTestServer(t)
	for _, value := range []string{`4.5`, `"4.5"`, `" 4,5 "`, `"<4,5"`} {
		w := s.do(t, http.MethodPost, "/v1/simulate",
			`{"variable": "ca", "value": `+value+`, "department": "Huila"}`)
		require.Equal(t, http.StatusOK, w.Code, "value %s: %s", value, w.Body.String())
		assert.Equal(t, 0.845, decode(t, w)["composite_score"], "value %s", value)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      any
		want    float64
		present bool
	}{
		{"1.234,5", 1234.5, true},
		{"4,5", 4.5, true},
		{" 4.5 ", 4.5, true},
		{float64(7), 7, true},
		{"ND", 0, false},
		{"", 0, false},
		{nil, 0, false},
	}
	for _, tc := range tests {
		got, present, err := parseNumber(tc.in)
		require.NoError(t, err, "input %v", tc.in)
		assert.Equal(t, tc.present, present, "input %v", tc.in)
		assert.Equal(t, tc.want, got, "input %v", tc.in)
	}

	_, _, err := parseNumber("alto")
	assert.ErrorIs(t, err, errBadValue)
}

func TestSimulateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "unknown variable", body: `{"variable": "kryptonite", "value": 1}`, want: http.StatusBadRequest},
		{name: "missing value", body: `{"variable": "ca"}`, want: http.StatusBadRequest},
		{name: "non-numeric value", body: `{"variable": "ca", "value": "alto"}`, want: http.StatusBadRequest},
		{name: "bad companion value", body: `{"variable": "ca", "value": 4, "values": {"mg": "n/a"}}`, want: http.StatusBadRequest},
		{name: "bad date", body: `{"variable": "ca", "value": 4, "date": "ayer"}`, want: http.StatusBadRequest},
		{name: "malformed JSON", body: `{"variable":`, want: http.StatusBadRequest},
		{name: "no reference data", body: `{"variable": "p", "value": 12}`, want: http.StatusUnprocessableEntity},
	}
	s := newTestServer(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/simulate", tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestValidate(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/validate", `{"values": {"ca": 4.5, "mg": null}, "crop": "Café"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, "validation", resp["mode"])
	assert.Equal(t, "validation", resp["band_table"])

	w = s.do(t, http.MethodPost, "/v1/validate", `{"values": {"p": 12}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPost, "/v1/validate", `{"values": {"xx": 1}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlerts(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/alerts", `{"values": {"ca": "9", "mg": 1}, "crop": "cafe"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp alertsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, "ca_mg_high", string(resp.Alerts[0].Category))
	assert.NotEmpty(t, resp.Recommendations)
	assert.NotEmpty(t, resp.SkippedRules)

	w = s.do(t, http.MethodPost, "/v1/alerts", `{"values": {}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alerts": []`)
}

func TestMethods(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/methods/cafe/Zn", "")
	require.Equal(t, http.StatusOK, w.Code)
	var col method.Column
	require.NoError(t, json.NewDecoder(w.Body).Decode(&col))
	assert.Equal(t, "zn_olsen", col.Name)
	assert.Equal(t, method.Olsen, col.Method)

	w = s.do(t, http.MethodGet, "/v1/methods/arroz/fe", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fe_doble_acido", decode(t, w)["column"])

	w = s.do(t, http.MethodGet, "/v1/methods/cafe/ca", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBands(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/bands/validation", "")
	require.Equal(t, http.StatusOK, w.Code)
	var table thresholds.BandTable
	require.NoError(t, json.NewDecoder(w.Body).Decode(&table))
	assert.Len(t, table.Breakpoints, 4)
	assert.Equal(t, thresholds.BandCritical, table.Floor)

	w = s.do(t, http.MethodGet, "/v1/bands/dashboard", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	s.do(t, http.MethodPost, "/v1/simulate", `{"variable": "ca", "value": 4.5, "department": "Huila"}`)
	w = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `soilicd_evaluations_total{band="Moderate",mode="simulator"} 1`)
	assert.Contains(t, body, `soilicd_http_requests_total{code="200",route="simulate"} 1`)
}

func TestReferenceCache(t *testing.T) {
	s := newTestServer(t)
	body := `{"variable": "ca", "value": 4.5, "department": "Huila"}`

	first := s.do(t, http.MethodPost, "/v1/simulate", body)
	require.Equal(t, http.StatusOK, first.Code)
	// national and Huila references
	assert.Equal(t, 2, s.cache.Len())

	second := s.do(t, http.MethodPost, "/v1/simulate", body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 2, s.cache.Len())
	assert.Equal(t, decode(t, first)["composite_score"], decode(t, second)["composite_score"])
}

func TestReferenceCacheEviction(t *testing.T) {
	c := NewReferenceCache(fixture(), 1, nil)
	_, err := c.Reference(soil.Calcium, dataset.Filter{}, 1)
	require.NoError(t, err)
	_, err = c.Reference(soil.Calcium, dataset.Filter{Region: dataset.RegionAndina}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	// Errors are not cached.
	_, err = c.Reference(soil.Phosphorus, dataset.Filter{}, 1)
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t)
	handler := APIKeyAuth("secret")(s.mux)

	r := httptest.NewRequest(http.MethodPost, "/v1/alerts", bytes.NewBufferString(`{"values": {}}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/v1/alerts", bytes.NewBufferString(`{"values": {}}`))
	r.Header.Set("X-API-Key", "secret")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodOptions, "/v1/simulate", nil)
	w := httptest.NewRecorder()
	CORS(s.mux).ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: icd.ErrInsufficientData, want: http.StatusUnprocessableEntity},
		{err: method.ErrUnknownElement, want: http.StatusBadRequest},
		{err: method.ErrUnknownCropCategory, want: http.StatusBadRequest},
		{err: thresholds.ErrUnknownBandTable, want: http.StatusBadRequest},
		{err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
