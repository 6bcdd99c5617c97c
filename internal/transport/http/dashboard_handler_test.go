package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apierrors "demcli/internal/errors"
	"demcli/internal/history"
	"demcli/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := history.NewStore(t.TempDir(), slog.Default())
	require.NoError(t, err)
	svc := services.NewDashboardService(store, nil, slog.Default())

	handler := NewDashboardHandler(svc, slog.Default(), apierrors.NewErrorHandler(slog.Default(), false), nil)

	r := chi.NewRouter()
	r.Mount("/api", handler.Routes())

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func testWorkbookBytes(t *testing.T, dataRows ...[]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []any{"CNTRS ORIGINAL", "SHIPOWNER", "DEADLINE RETURN CNTR", "STATUS", "ACTUAL DEPOT RETURN DATE"}
	rows := append([][]any{header}, dataRows...)
	for i, row := range rows {
		for j, cell := range row {
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, axis, cell))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func uploadWorkbook(t *testing.T, ts *httptest.Server, filename string, content []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/data/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func postJSON(t *testing.T, url string, payload string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func doJSON(t *testing.T, method, url, payload string) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestUploadWorkbook(t *testing.T) {
	ts := newTestServer(t)

	resp := uploadWorkbook(t, ts, "week1.xlsx", testWorkbookBytes(t,
		[]any{"ABC1", "MSC", "2024-01-11", "", ""},
		[]any{"DEF2", "COSCO", "2024-02-10", "", ""},
	))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(2), body["count"])
}

func TestUploadWorkbook_MissingFile(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/data/upload", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadWorkbook_GarbageContent(t *testing.T) {
	ts := newTestServer(t)

	resp := uploadWorkbook(t, ts, "junk.xlsx", []byte("not a workbook"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadWorkbook_AllRowsUnusable(t *testing.T) {
	ts := newTestServer(t)

	resp := uploadWorkbook(t, ts, "empty.xlsx", testWorkbookBytes(t,
		[]any{"(vazio)", "MSC", "2024-01-11", "", ""},
	))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestQueryRecords(t *testing.T) {
	ts := newTestServer(t)
	resp := uploadWorkbook(t, ts, "w.xlsx", testWorkbookBytes(t,
		[]any{"ABC1", "MSC", "2024-01-11", "", ""},
		[]any{"DEF2", "COSCO", "2024-02-10", "", ""},
	))
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/data/query", `{
		"filters": {"shipowners": ["MSC"]},
		"sort_field": "container",
		"sort_dir": "asc"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["count"])
}

func TestQueryRecords_InvalidSortDir(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/data/query", `{"sort_dir": "sideways"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueryRecords_InvalidDateFilter(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/data/query", `{"filters": {"deadline_from": "25/01/2024"}}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyticsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	resp := uploadWorkbook(t, ts, "w.xlsx", testWorkbookBytes(t,
		[]any{"ABC1", "MSC", "2024-01-11", "", ""},
		[]any{"RET1", "MSC", "2024-01-10", "ENTREGUE", "2024-01-15"},
	))
	resp.Body.Close()

	for _, path := range []string{"kpis", "buckets", "carriers", "efficiency", "insights"} {
		t.Run(path, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/analytics/"+path, `{}`)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestGetCarriers_InvalidMetric(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/analytics/carriers?metric=bogus", `{}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRatesRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/rates")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(100), data["default"])

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/rates", `{"default": 90, "rates": {"MAERSK": 130}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	data = body["data"].(map[string]any)
	assert.Equal(t, float64(90), data["default"])
}

func TestUpdateRates_RejectsNonPositive(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/rates", `{"default": 0}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/rates", `{"default": 100, "rates": {"MSC": -5}}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetPaid(t *testing.T) {
	ts := newTestServer(t)
	resp := uploadWorkbook(t, ts, "w.xlsx", testWorkbookBytes(t,
		[]any{"RET1", "MSC", "2024-01-10", "ENTREGUE", "2024-01-15"},
	))
	resp.Body.Close()

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/paid/RET1", `{"paid": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/paid/summary")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, data["total_cost"], data["paid_cost"])

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/paid/UNKNOWN", `{"paid": true}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistoryFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := uploadWorkbook(t, ts, "w1.xlsx", testWorkbookBytes(t,
		[]any{"OLD1", "MSC", "2024-01-11", "", ""},
	))
	resp.Body.Close()
	resp = uploadWorkbook(t, ts, "w2.xlsx", testWorkbookBytes(t,
		[]any{"NEW1", "COSCO", "2024-02-01", "", ""},
	))
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	require.Equal(t, float64(1), body["count"])

	metas := body["data"].([]any)
	timestamp := metas[0].(map[string]any)["timestamp"].(string)
	parsed, err := time.Parse(time.RFC3339, timestamp)
	require.NoError(t, err)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/history/"+parsed.Format(time.RFC3339)+"/load", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/data/status")
	require.NoError(t, err)
	body = decodeBody(t, resp)
	status := body["data"].(map[string]any)
	assert.Equal(t, true, status["viewing_history"])

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/history/return", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/data/status")
	require.NoError(t, err)
	body = decodeBody(t, resp)
	status = body["data"].(map[string]any)
	assert.Equal(t, false, status["viewing_history"])
}

func TestLoadSnapshot_BadTimestamp(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/history/yesterday/load", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/history/2024-01-01T00:00:00Z/load", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearData(t *testing.T) {
	ts := newTestServer(t)
	resp := uploadWorkbook(t, ts, "w.xlsx", testWorkbookBytes(t,
		[]any{"ABC1", "MSC", "2024-01-11", "", ""},
	))
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/data/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/data/status")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	status := body["data"].(map[string]any)
	assert.Equal(t, float64(0), status["records"])
}

func TestSetLanguage(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/language", `{"language": "pt"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/language", `{"language": ""}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
