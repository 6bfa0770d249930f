package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/mobility/internal/config"
	"github.com/JonMunkholm/mobility/internal/metrics"
	"github.com/JonMunkholm/mobility/internal/session"
	"github.com/JonMunkholm/mobility/internal/uploads"
)

const sampleCSV = "pays,groupe_instructeur_label,date_depart\n" +
	"FR,IdF,2024-03-01\n" +
	"DE,Bavaria,2022-05-01\n" +
	"FR,IdF,2023-01-10\n"

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Title: "Mobility", Footer: "footer"},
		Server:  config.ServerConfig{Port: 8080, ShutdownTimeout: time.Second, RequestTimeout: 10 * time.Second},
		Upload:  config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: 10 * time.Second},
		Session: config.SessionConfig{CookieName: "mobility_session", TTL: time.Hour, MaxSessions: 10, SweepInterval: time.Minute},
		Filter:  config.FilterConfig{MinYear: 2023, AllRegionsLabel: "All regions", Placeholder: "Not available"},
		Rate:    config.RateLimitConfig{Enabled: false},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testServer struct {
	t       *testing.T
	srv     *Server
	limiter *uploads.Limiter
	cookie  *http.Cookie
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	store := session.NewStore(session.Config{TTL: cfg.Session.TTL, MaxSessions: cfg.Session.MaxSessions})
	limiter := uploads.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	return &testServer{
		t:       t,
		srv:     NewServer(cfg, store, limiter, metrics.New(store.Len)),
		limiter: limiter,
	}
}

// do sends req with the session cookie, capturing it from the first response.
func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	ts.t.Helper()
	if ts.cookie != nil {
		req.AddCookie(ts.cookie)
	}
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "mobility_session" {
			ts.cookie = c
		}
	}
	return rec
}

func (ts *testServer) get(target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return ts.do(req)
}

func (ts *testServer) upload(flow, fileName string, content []byte, headers ...string) *httptest.ResponseRecorder {
	ts.t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(ts.t, err)
	_, err = part.Write(content)
	require.NoError(ts.t, err)
	require.NoError(ts.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/flows/"+flow+"/upload", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return ts.do(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestIndexRedirectsToFirstFlow(t *testing.T) {
	ts := newTestServer(t, testConfig())
	rec := ts.get("/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/flows/learners", rec.Header().Get("Location"))
}

func TestFlowPage_EmptyState(t *testing.T) {
	ts := newTestServer(t, testConfig())
	rec := ts.get("/flows/staff")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload a file to start.")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	require.NotNil(t, ts.cookie)
	assert.True(t, ts.cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ts.cookie.SameSite)
}

func TestUnknownFlow(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.get("/flows/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "FLW001")

	rec = ts.get("/api/flows/nope/filter")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FLW001", decode[ErrorResponse](t, rec).Code)
}

func TestUploadFilterDownloadRoundTrip(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.upload("learners", "export.csv", []byte(sampleCSV))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/flows/learners", rec.Header().Get("Location"))

	// Year only: countries offered, none selected.
	rec = ts.get("/api/flows/learners/filter?applied=1&year=2024")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[FilterResponse](t, rec)
	assert.Equal(t, "need_country", string(res.Stage))
	assert.Equal(t, []int{2023, 2024}, res.Years)
	assert.Equal(t, []string{"FR"}, res.Countries)
	assert.Equal(t, "Select at least one country to continue.", res.Message)

	rec = ts.get("/api/flows/learners/filter?applied=1&year=2024&country=FR")
	res = decode[FilterResponse](t, rec)
	assert.Equal(t, "ready", string(res.Stage))
	assert.Equal(t, []string{"All regions", "IdF"}, res.Regions)
	require.NotNil(t, res.Table)
	assert.Equal(t, [][]string{{"IdF", "FR", "Not available", "Not available"}}, res.Table.Rows)

	rec = ts.get("/flows/learners/download.csv?applied=1&year=2024&country=FR")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "outgoing-learner-mobility_FR_2024.csv", params["filename"])
	assert.Equal(t, "\ufeffRegion,Pays,Etablissement,SIRET\nIdF,FR,Not available,Not available\n", rec.Body.String())

	rec = ts.get("/flows/learners/download.xlsx?applied=1&year=2024&country=FR&region=IdF")
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Region", "Pays", "Etablissement", "SIRET"}, {"IdF", "FR", "Not available", "Not available"}}, rows)
}

func TestFlowPage_RendersResults(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.upload("learners", "export.csv", []byte(sampleCSV))

	rec := ts.get("/flows/learners?applied=1&year=2024&country=FR")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Outgoing learner mobility (1 records)")
	assert.Contains(t, body, "Outgoing learner mobility - FR - 2024")
	assert.Contains(t, body, "Total records: 1")
	assert.Contains(t, body, "/flows/learners/download.csv?")
	assert.Contains(t, body, "<td>IdF</td>")
}

func TestSelectionRememberedPerSession(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.upload("learners", "export.csv", []byte(sampleCSV))

	ts.get("/api/flows/learners/filter?applied=1&year=2024&country=FR")

	res := decode[FilterResponse](t, ts.get("/api/flows/learners/filter"))
	assert.Equal(t, 2024, res.Year)
	assert.Equal(t, []string{"FR"}, res.SelectedCountries)

	// Another browser sees nothing.
	other := newTestServer(t, testConfig())
	other.srv = ts.srv
	rec := other.get("/api/flows/learners/filter")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DATA001", decode[ErrorResponse](t, rec).Code)
}

func TestExplicitEmptySelectionClearsCountries(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.upload("learners", "export.csv", []byte(sampleCSV))
	ts.get("/api/flows/learners/filter?applied=1&year=2024&country=FR")

	res := decode[FilterResponse](t, ts.get("/api/flows/learners/filter?applied=1&year=2024"))
	assert.Equal(t, "need_country", string(res.Stage))
}

func TestUpload_FormatErrorDiscardsPreviousDataset(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.upload("staff", "export.csv", []byte(sampleCSV))

	rec := ts.upload("staff", "notes.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE001")
	assert.Contains(t, rec.Body.String(), "Unsupported file format for notes.pdf")

	rec = ts.get("/api/flows/staff/filter")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpload_SchemaErrorJSON(t *testing.T) {
	ts := newTestServer(t, testConfig())
	rec := ts.upload("incoming", "export.csv", []byte(sampleCSV), "Accept", "application/json")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "VAL004", resp.Code)
	assert.Equal(t, "The following columns are missing from the file: date_debut_accueil", resp.Message)
}

func TestUpload_JSONSuccess(t *testing.T) {
	ts := newTestServer(t, testConfig())
	rec := ts.upload("collective", "export.csv", []byte(sampleCSV), "Accept", "application/json")

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, "collective", resp.Flow)
	assert.Equal(t, 3, resp.Records)
}

func TestUpload_NoFile(t *testing.T) {
	ts := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/flows/learners/upload", strings.NewReader("x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	rec := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decode[ErrorResponse](t, rec).Code)
}

func TestUpload_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 1024
	ts := newTestServer(t, cfg)

	big := sampleCSV + strings.Repeat("FR,IdF,2024-03-01\n", 200)
	rec := ts.upload("learners", "export.csv", []byte(big), "Accept", "application/json")

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE003", decode[ErrorResponse](t, rec).Code)
}

func TestUpload_Busy(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxConcurrent = 1
	cfg.Upload.MaxWaitTime = 20 * time.Millisecond
	ts := newTestServer(t, cfg)

	require.True(t, ts.limiter.TryAcquire())
	defer ts.limiter.Release()

	rec := ts.upload("learners", "export.csv", []byte(sampleCSV), "Accept", "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UPL002", decode[ErrorResponse](t, rec).Code)
}

func TestClear(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.upload("learners", "export.csv", []byte(sampleCSV))

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/flows/learners/clear", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = ts.get("/flows/learners")
	assert.Contains(t, rec.Body.String(), "Upload a file to start.")
}

func TestListFlows(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.upload("incoming", "in.csv", []byte("pays,groupe_instructeur_label,date_debut_accueil\nFR,IdF,2024-01-01\n"))

	flows := decode[[]FlowInfo](t, ts.get("/api/flows"))
	require.Len(t, flows, 4)
	assert.Equal(t, []string{"learners", "staff", "collective", "incoming"},
		[]string{flows[0].Key, flows[1].Key, flows[2].Key, flows[3].Key})
	assert.False(t, flows[0].Loaded)
	assert.True(t, flows[3].Loaded)
	assert.Equal(t, "in.csv", flows[3].FileName)
	assert.Equal(t, 1, flows[3].Records)
	assert.Equal(t, []string{"pays", "groupe_instructeur_label", "date_debut_accueil"}, flows[3].Required)
}

func TestExportAPI(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.upload("learners", "export.csv", []byte(sampleCSV))

	rec := ts.get("/api/flows/learners/export?year=2024")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EXP002", decode[ErrorResponse](t, rec).Code)

	rec = ts.get("/api/flows/learners/export?year=2024&country=FR")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ExportResponse](t, rec)
	assert.Equal(t, 1, resp.Rows)
	assert.Equal(t, "outgoing-learner-mobility_FR_2024.csv", resp.CSV.FileName)
	assert.Empty(t, resp.CSV.Error)
	assert.Contains(t, string(resp.CSV.Data), "IdF,FR")
	assert.Equal(t, "outgoing-learner-mobility_FR_2024.xlsx", resp.XLSX.FileName)
	assert.NotEmpty(t, resp.XLSX.Data)
}

func TestInvalidSelection(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.upload("learners", "export.csv", []byte(sampleCSV))

	rec := ts.get("/api/flows/learners/filter?year=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL001", decode[ErrorResponse](t, rec).Code)

	rec = ts.get("/api/flows/learners/filter?region=" + url.QueryEscape(strings.Repeat("x", 300)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadWithoutDataset(t *testing.T) {
	ts := newTestServer(t, testConfig())
	rec := ts.get("/flows/learners/download.csv?year=2024&country=FR")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DATA001")
}

func TestHealthAndMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Token = "scrape"
	ts := newTestServer(t, cfg)

	rec := ts.get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", health["status"])

	rec = ts.get("/metrics")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ts.upload("learners", "export.csv", []byte(sampleCSV))
	rec = ts.get("/metrics", "Authorization", "Bearer scrape")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mobility_uploads_total{flow="learners",outcome="ok"} 1`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 1}
	ts := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, ts.get("/healthz").Code)
	assert.Equal(t, http.StatusOK, ts.get("/healthz").Code)

	rec := ts.get("/api/flows")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestNotFoundPage(t *testing.T) {
	ts := newTestServer(t, testConfig())
	rec := ts.get("/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NAV001")
}
