package rekaphttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/shared"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/view"
)

var testNow = time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)

type stubService struct {
	mu          sync.Mutex
	windows     []string
	invalidated int
	err         error
}

var testOffices = []rekap.OfficeDescriptor{
	{Sequence: 1, ParentGroup: "KANWIL JAWA TENGAH", Name: "Samsat Semarang I", Officer: "Budi", Endpoint: "http://a", AnnualBudget: 1_200_000},
	{Sequence: 2, Name: "Samsat Kendal", Endpoint: "http://b"},
}

func (s *stubService) Tables(context.Context) ([]string, error) {
	return []string{"keliling", "rekap"}, nil
}

func (s *stubService) Rekap(_ context.Context, table string, window rekap.Window) (rekap.Report, error) {
	s.mu.Lock()
	s.windows = append(s.windows, window.Start.String()+"-"+window.End.String())
	s.mu.Unlock()
	if s.err != nil {
		return rekap.Report{}, s.err
	}
	if table != "rekap" {
		return rekap.Report{}, rekap.ErrTableNotFound
	}
	results := []rekap.FetchResult{
		{Records: []rekap.TransactionRecord{
			{CheckinDate: "02/05/2024", CheckinPlate: "H-1234-AB", CheckinAmount: 100000, CheckinPlateCount: 1},
			{CheckoutDate: "10/05/2024", CheckoutPlate: "H-1234-AB", CheckoutAmount: 100000, CheckoutPlateCount: 1, ConversionNote: "Armada Baru"},
			{CheckinDate: "04/05/2024", CheckinPlate: "H-5555-ZZ", CheckinAmount: 90000, CheckinPlateCount: 1},
		}},
		{Err: errors.New("dial tcp: connection refused")},
	}
	return rekap.Build(table, window, testOffices, results, testNow), nil
}

func (s *stubService) Office(ctx context.Context, table string, seq int, window rekap.Window) (rekap.OfficeDetail, error) {
	report, err := s.Rekap(ctx, table, window)
	if err != nil {
		return rekap.OfficeDetail{}, err
	}
	for i, office := range report.Offices {
		if office.Sequence == seq {
			return rekap.OfficeDetail{Table: table, Start: report.Start, End: report.End, Office: office, Aggregate: report.Aggregates[i]}, nil
		}
	}
	return rekap.OfficeDetail{}, rekap.ErrOfficeNotFound
}

func (s *stubService) Invalidate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
	return nil
}

type stubPDF struct {
	table string
}

func (p *stubPDF) RenderRekap(_ context.Context, payload rekap.Report) ([]byte, error) {
	p.table = payload.Table
	return []byte("%PDF-1.7"), nil
}

type fixture struct {
	handler  *Handler
	service  *stubService
	sessions *shared.SessionManager
	router   chi.Router
}

func newFixture(t *testing.T, pdf PDFService) fixture {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	svc := &stubService{}
	h := NewHandler(nil, svc, templates, shared.NewCSRFManager("csrf"), pdf, "rekap")
	h.WithNow(func() time.Time { return testNow })

	// Fresh sessions never touch Redis, so no client is needed.
	sessions := shared.NewSessionManager(nil, "test_session", time.Hour, false)
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), r)
			require.NoError(t, err)
			sess.SetUser("operator")
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	})
	h.MountRoutes(router)
	router.Route("/api", h.MountAPI)
	return fixture{handler: h, service: svc, sessions: sessions, router: router}
}

func (f fixture) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRekapPageDefaultsToMonthToDate(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Samsat Semarang I")
	assert.Contains(t, body, "SUB TOTAL KANWIL JAWA TENGAH")
	assert.Contains(t, body, "Samsat Kendal: dial tcp: connection refused")
	assert.Contains(t, body, `value="01/05"`)
	assert.Contains(t, body, `value="17/05"`)
	assert.Contains(t, body, "/rekap/kantor/1?end=17%2F05")
	assert.Equal(t, []string{"01/05-17/05"}, f.service.windows)
}

func TestRekapPageAsksForBothDates(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/?start=01/05")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Silakan pilih kedua tanggal")
	assert.Empty(t, f.service.windows)
}

func TestRekapPageRejectsBadDates(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/?start=31/04&end=05/05")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "parameter start tidak valid")
	assert.Empty(t, f.service.windows)
}

func TestRekapPageNormalisesDates(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/?start=1/5&end=3/6")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"01/05-03/06"}, f.service.windows)
}

func TestUnknownTable(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusNotFound, f.get("/?table=nope").Code)
}

func TestSecondaryPages(t *testing.T) {
	f := newFixture(t, nil)

	cases := map[string]string{
		"/rekap/anggaran": "Realisasi Anggaran",
		"/rekap/kuadran":  "Kuadran 1",
		"/rekap/konversi": "Armada Baru",
	}
	for path, want := range cases {
		rec := f.get(path + "?start=01/05&end=31/05")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), want, path)
	}
}

func TestKantorDrillDown(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/rekap/kantor/1?start=01/05&end=31/05")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Samsat Semarang I")
	assert.Contains(t, body, "H-1234-AB")
	assert.Contains(t, body, "H-5555-ZZ")

	assert.Equal(t, http.StatusNotFound, f.get("/rekap/kantor/99?start=01/05&end=31/05").Code)
	assert.Equal(t, http.StatusNotFound, f.get("/rekap/kantor/abc").Code)
}

func TestCSVExport(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/rekap/export.csv?start=01/05&end=31/05")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "iwkbu-rekap-rekap-0105-3105.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Periode,01/05 s.d. 31/05"))

	rec = f.get("/rekap/export.csv?kind=gap&start=01/05&end=31/05")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "H-5555-ZZ")

	assert.Equal(t, http.StatusBadRequest, f.get("/rekap/export.csv?kind=bogus&start=01/05&end=31/05").Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/rekap/export.csv?end=31/05").Code)
}

func TestXLSXExport(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/rekap/export.xlsx?start=01/05&end=31/05")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestPDFExport(t *testing.T) {
	pdf := &stubPDF{}
	f := newFixture(t, pdf)

	rec := f.get("/rekap/export.pdf?start=01/05&end=31/05")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "rekap", pdf.table)

	f = newFixture(t, nil)
	assert.Equal(t, http.StatusInternalServerError, f.get("/rekap/export.pdf?start=01/05&end=31/05").Code)
}

func TestExportsAreRateLimited(t *testing.T) {
	f := newFixture(t, nil)

	var last int
	for i := 0; i < 11; i++ {
		last = f.get("/rekap/export.csv?start=01/05&end=31/05").Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRefreshInvalidatesAndRedirects(t *testing.T) {
	f := newFixture(t, nil)

	form := url.Values{"table": {"rekap"}, "start": {"01/05"}, "end": {"31/05"}, "return": {"/rekap/anggaran"}}
	req := httptest.NewRequest(http.MethodPost, "/rekap/refresh", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/rekap/anggaran?end=31%2F05&start=01%2F05&table=rekap", rec.Header().Get("Location"))
	assert.Equal(t, 1, f.service.invalidated)

	form.Set("return", "//evil.example")
	req = httptest.NewRequest(http.MethodPost, "/rekap/refresh", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/?"))
}

func TestAPIRekap(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/api/rekap?start=01/05&end=31/05")
	require.Equal(t, http.StatusOK, rec.Code)
	var report rekap.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "rekap", report.Table)
	assert.Equal(t, "TOTAL", report.GrandTotal().Label)
	require.Len(t, report.Failures, 1)

	rec = f.get("/api/rekap?start=01/05")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, f.get("/api/rekap?table=nope&start=01/05&end=31/05").Code)
	assert.Equal(t, http.StatusNotFound, f.get("/api/rekap/kantor/42?start=01/05&end=31/05").Code)

	rec = f.get("/api/rekap/kantor/1?start=01/05&end=31/05")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail rekap.OfficeDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Samsat Semarang I", detail.Office.Name)
}

func TestAPITablesAndRefresh(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/api/tables")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tables":["keliling","rekap"],"default":"rekap"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/rekap/refresh", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.service.invalidated)
}

func TestServiceFailureIsServerError(t *testing.T) {
	f := newFixture(t, nil)
	f.service.err = errors.New("redis down")

	assert.Equal(t, http.StatusInternalServerError, f.get("/?start=01/05&end=31/05").Code)
	assert.Equal(t, http.StatusInternalServerError, f.get("/api/rekap?start=01/05&end=31/05").Code)
}

type recordingWarmup struct {
	tables  []string
	windows []string
}

func (w *recordingWarmup) ScheduleWarmup(_ context.Context, table string, window rekap.Window) error {
	w.tables = append(w.tables, table)
	w.windows = append(w.windows, window.Key())
	return nil
}

func TestRefreshSchedulesWarmup(t *testing.T) {
	f := newFixture(t, nil)
	warmup := &recordingWarmup{}
	f.handler.WithWarmup(warmup)

	form := url.Values{"table": {"keliling"}, "start": {"01/05"}, "end": {"31/05"}}
	req := httptest.NewRequest(http.MethodPost, "/rekap/refresh", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"keliling"}, warmup.tables)
	assert.Equal(t, []string{"0105-3105"}, warmup.windows)
}
