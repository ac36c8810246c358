package rekaphttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/platform/httpx"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap/export"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/shared"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/view"
)

const windowRequiredMessage = "Silakan pilih kedua tanggal (awal dan akhir) untuk menampilkan rekap."

// RekapService is the aggregation contract used by the handler.
type RekapService interface {
	Tables(ctx context.Context) ([]string, error)
	Rekap(ctx context.Context, table string, window rekap.Window) (rekap.Report, error)
	Office(ctx context.Context, table string, seq int, window rekap.Window) (rekap.OfficeDetail, error)
	Invalidate(ctx context.Context) error
}

// PDFService renders the rekap table to PDF bytes.
type PDFService interface {
	RenderRekap(ctx context.Context, payload rekap.Report) ([]byte, error)
}

// Warmup schedules a background rebuild after the cache is dropped.
type Warmup interface {
	ScheduleWarmup(ctx context.Context, table string, window rekap.Window) error
}

// Handler serves the dashboard pages, exports and JSON API.
type Handler struct {
	logger       *slog.Logger
	service      RekapService
	templates    *view.Engine
	csrf         *shared.CSRFManager
	pdf          PDFService
	warmup       Warmup
	validate     *validator.Validate
	defaultTable string
	bufPool      sync.Pool
	now          func() time.Time
}

// NewHandler constructs the rekap HTTP handler. pdf may be nil when no
// Gotenberg is configured.
func NewHandler(logger *slog.Logger, service RekapService, templates *view.Engine, csrf *shared.CSRFManager, pdf PDFService, defaultTable string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:       logger,
		service:      service,
		templates:    templates,
		csrf:         csrf,
		pdf:          pdf,
		validate:     newValidator(),
		defaultTable: defaultTable,
		now:          time.Now,
	}
	h.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithWarmup makes refreshes queue a background rebuild of the table.
func (h *Handler) WithWarmup(w Warmup) {
	h.warmup = w
}

// Filters are the query parameters shared by every rekap page.
type Filters struct {
	Table string `validate:"required,max=64,excludesall=/?#"`
	Start string `validate:"omitempty,daymonth"`
	End   string `validate:"omitempty,daymonth"`
}

// Window converts the filters into a matcher window.
func (f Filters) Window() rekap.Window {
	return rekap.ParseWindow(f.Start, f.End)
}

// Query encodes the filters as URL query parameters.
func (f Filters) Query() url.Values {
	q := url.Values{}
	q.Set("table", f.Table)
	if f.Start != "" {
		q.Set("start", f.Start)
	}
	if f.End != "" {
		q.Set("end", f.End)
	}
	return q
}

// Link returns path with the filters attached.
func (f Filters) Link(path string) template.URL {
	return template.URL(path + "?" + f.Query().Encode())
}

// PageData is the view model of the rekap pages.
type PageData struct {
	Filters Filters
	Tables  []string
	Message string
	Report  *rekap.Report
	Detail  *rekap.OfficeDetail
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("daymonth", func(fl validator.FieldLevel) bool {
		_, ok := rekap.ParseDayMonth(fl.Field().String())
		return ok
	})
	return v
}

type validationError struct {
	field string
}

func (e validationError) Error() string {
	return fmt.Sprintf("parameter %s tidak valid", e.field)
}

// parseFilters reads table/start/end. Without any date the window defaults
// to month-to-date; a single date is kept so the page can ask for the other.
func (h *Handler) parseFilters(values url.Values) (Filters, error) {
	f := Filters{
		Table: strings.TrimSpace(values.Get("table")),
		Start: strings.TrimSpace(values.Get("start")),
		End:   strings.TrimSpace(values.Get("end")),
	}
	if f.Table == "" {
		f.Table = h.defaultTable
	}
	if f.Start == "" && f.End == "" {
		w := rekap.MonthToDate(h.now())
		f.Start, f.End = w.Start.String(), w.End.String()
	}
	if err := h.validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return f, validationError{field: strings.ToLower(verrs[0].Field())}
		}
		return f, validationError{field: "filters"}
	}
	// Canonical DD/MM keeps links and cache keys stable.
	if dm, ok := rekap.ParseDayMonth(f.Start); ok {
		f.Start = dm.String()
	}
	if dm, ok := rekap.ParseDayMonth(f.End); ok {
		f.End = dm.String()
	}
	return f, nil
}

func (h *Handler) tables(ctx context.Context) []string {
	tables, err := h.service.Tables(ctx)
	if err != nil {
		h.logError("list tables", err)
		return nil
	}
	return tables
}

// renderPage loads the report for the filters and renders page. Validation
// and missing dates render the page with a message instead of a report.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, page, title string) {
	filters, err := h.parseFilters(r.URL.Query())
	data := PageData{Filters: filters, Tables: h.tables(r.Context())}
	status := http.StatusOK
	switch {
	case err != nil:
		data.Message = err.Error()
		status = http.StatusBadRequest
	case !filters.Window().Complete():
		data.Message = windowRequiredMessage
	default:
		report, err := h.service.Rekap(r.Context(), filters.Table, filters.Window())
		if err != nil {
			if !h.handleServiceError(w, err) {
				return
			}
			data.Message = windowRequiredMessage
			break
		}
		data.Report = &report
	}
	h.render(w, r, status, page, title, data)
}

// handleServiceError writes the response for err and returns false, or
// returns true when the caller should show the missing-window message.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, rekap.ErrWindowRequired):
		return true
	case errors.Is(err, rekap.ErrTableNotFound), errors.Is(err, rekap.ErrOfficeNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, http.StatusText(http.StatusGatewayTimeout), http.StatusGatewayTimeout)
	default:
		h.handleServerError(w, "load rekap", err)
	}
	return false
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data PageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(sess)
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		User:        shared.UserFromContext(r.Context()),
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logError("render "+page, err)
	}
}

func (h *Handler) handleRekap(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/rekap.html", "Rekap")
}

func (h *Handler) handleAnggaran(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/anggaran.html", "Anggaran")
}

func (h *Handler) handleKuadran(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/kuadran.html", "Kuadran")
}

func (h *Handler) handleKonversi(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/konversi.html", "Konversi")
}

func (h *Handler) handleKantor(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil || seq <= 0 {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	filters, err := h.parseFilters(r.URL.Query())
	data := PageData{Filters: filters}
	status := http.StatusOK
	switch {
	case err != nil:
		data.Message = err.Error()
		status = http.StatusBadRequest
	case !filters.Window().Complete():
		data.Message = windowRequiredMessage
	default:
		detail, err := h.service.Office(r.Context(), filters.Table, seq, filters.Window())
		if err != nil {
			if !h.handleServiceError(w, err) {
				return
			}
			data.Message = windowRequiredMessage
			break
		}
		data.Detail = &detail
	}
	title := "Kantor"
	if data.Detail != nil {
		title = data.Detail.Office.Name
	}
	h.render(w, r, status, "pages/kantor.html", title, data)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.logError("invalidate rekap cache", err)
		if sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Gagal memuat ulang data"})
		}
	} else if sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Data akan dibaca ulang dari semua loket"})
	}
	target := "/"
	if ret := r.PostFormValue("return"); strings.HasPrefix(ret, "/") && !strings.HasPrefix(ret, "//") {
		target = ret
	}
	filters, err := h.parseFilters(r.PostForm)
	if err == nil {
		h.scheduleWarmup(r.Context(), filters)
		target = string(filters.Link(target))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) scheduleWarmup(ctx context.Context, filters Filters) {
	if h.warmup == nil {
		return
	}
	if err := h.warmup.ScheduleWarmup(ctx, filters.Table, filters.Window()); err != nil {
		h.logger.Warn("schedule rekap warmup", slog.Any("error", err))
	}
}

// loadExport resolves the report for an export request, writing the error
// response itself when it returns false.
func (h *Handler) loadExport(w http.ResponseWriter, r *http.Request) (rekap.Report, bool) {
	filters, err := h.parseFilters(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return rekap.Report{}, false
	}
	if !filters.Window().Complete() {
		http.Error(w, windowRequiredMessage, http.StatusBadRequest)
		return rekap.Report{}, false
	}
	report, err := h.service.Rekap(r.Context(), filters.Table, filters.Window())
	if err != nil {
		if h.handleServiceError(w, err) {
			http.Error(w, windowRequiredMessage, http.StatusBadRequest)
		}
		return rekap.Report{}, false
	}
	return report, true
}

func exportName(report rekap.Report, kind, ext string) string {
	window := strings.ReplaceAll(report.Start+"-"+report.End, "/", "")
	return fmt.Sprintf("iwkbu-%s-%s-%s.%s", kind, report.Table, window, ext)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadExport(w, r)
	if !ok {
		return
	}
	kind := r.URL.Query().Get("kind")
	write := export.WriteRekapCSV
	switch kind {
	case "", "rekap":
		kind = "rekap"
	case "anggaran":
		write = export.WriteAnggaranCSV
	case "gap":
		write = export.WriteGapCSV
	default:
		http.Error(w, "parameter kind tidak valid", http.StatusBadRequest)
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()
	if err := write(buf, report); err != nil {
		h.handleServerError(w, "write csv", err)
		return
	}
	h.attachment(w, "text/csv; charset=utf-8", exportName(report, kind, "csv"), buf.Bytes())
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadExport(w, r)
	if !ok {
		return
	}
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()
	if err := export.WriteXLSX(buf, report); err != nil {
		h.handleServerError(w, "write xlsx", err)
		return
	}
	h.attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", exportName(report, "rekap", "xlsx"), buf.Bytes())
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.handleServerError(w, "pdf exporter", errors.New("pdf exporter not configured"))
		return
	}
	report, ok := h.loadExport(w, r)
	if !ok {
		return
	}
	pdfBytes, err := h.pdf.RenderRekap(r.Context(), report)
	if err != nil {
		h.logError("render pdf", err)
		http.Error(w, "PDF tidak dapat dibuat saat ini", http.StatusBadGateway)
		return
	}
	h.attachment(w, "application/pdf", exportName(report, "rekap", "pdf"), pdfBytes)
}

func (h *Handler) attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if _, err := w.Write(body); err != nil {
		h.logError("stream "+filename, err)
	}
}

type tablesResponse struct {
	Tables  []string `json:"tables"`
	Default string   `json:"default"`
}

func (h *Handler) apiTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.service.Tables(r.Context())
	if err != nil {
		h.logError("list tables", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tablesResponse{Tables: tables, Default: h.defaultTable})
}

// apiFilters is parseFilters for JSON routes; it answers the problem itself
// when the request cannot be served.
func (h *Handler) apiFilters(w http.ResponseWriter, r *http.Request) (Filters, bool) {
	filters, err := h.parseFilters(r.URL.Query())
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return filters, false
	}
	if !filters.Window().Complete() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", rekap.ErrWindowRequired.Error())
		return filters, false
	}
	return filters, true
}

func (h *Handler) apiError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rekap.ErrWindowRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, rekap.ErrTableNotFound), errors.Is(err, rekap.ErrOfficeNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	default:
		h.logError("api rekap", err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) apiRekap(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.apiFilters(w, r)
	if !ok {
		return
	}
	report, err := h.service.Rekap(r.Context(), filters.Table, filters.Window())
	if err != nil {
		h.apiError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) apiKantor(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil || seq <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: office %q", httpx.ErrNotFound, chi.URLParam(r, "seq")))
		return
	}
	filters, ok := h.apiFilters(w, r)
	if !ok {
		return
	}
	detail, err := h.service.Office(r.Context(), filters.Table, seq, filters.Window())
	if err != nil {
		h.apiError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) apiRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.logError("invalidate rekap cache", err)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServerError(w http.ResponseWriter, msg string, err error) {
	h.logError(msg, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(msg string, err error) {
	if h.logger == nil || err == nil {
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
}
