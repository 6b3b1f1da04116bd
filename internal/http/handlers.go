package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"expensetracker/internal/core"
	"expensetracker/internal/insights"
	applog "expensetracker/internal/log"
	"expensetracker/internal/ocr"
	"expensetracker/internal/receipt"
	"expensetracker/internal/report"
	"expensetracker/internal/voice"
)

// exportTimeout bounds a single export call.
const exportTimeout = 15 * time.Second

// writeError maps engine errors to status codes and logs the failure.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	var collab *core.CollaboratorError
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrUnknownDepartment),
		errors.Is(err, ocr.ErrImageNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrCategoryNotFound),
		errors.Is(err, receipt.ErrNoTotalFound):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, insights.ErrNoExpenses),
		errors.Is(err, voice.ErrListenerClosed):
		status = http.StatusConflict
	case errors.As(err, &collab):
		status = http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
	}

	fields := applog.NewFields().WithOperation(op).WithError(err)
	fields[applog.FieldStatusCode] = status
	logger := applog.FromContext(r.Context())
	if status >= 500 {
		logger.LogFields(r.Context(), slog.LevelError, "Request failed", fields)
		ErrorResponse(status, http.StatusText(status)+": "+err.Error()).Write(w)
		return
	}
	logger.LogFields(r.Context(), slog.LevelWarn, "Request rejected", fields)
	ErrorResponse(status, err.Error()).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	type categoryJSON struct {
		Name       string `json:"name"`
		Department string `json:"department"`
	}
	cats := core.Categories()
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryJSON{Name: c.String(), Department: core.DepartmentFor(c).String()})
	}
	NewResponse().JSON(map[string]any{"categories": out}).Write(w)
}

// handleCreateExpense records a manual entry from "category" and "amount".
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := parseBody(w, r)
	if p == nil {
		return
	}
	ing, err := s.svc.RecordManual(r.Context(), p.Get("category"), p.Get("amount"))
	if err != nil {
		writeError(w, r, applog.OpRecord, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(toIngestion(ing)).Write(w)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	category, err := core.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, r, applog.OpRecord, err)
		return
	}
	entries := s.svc.Entries(category)
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntry(e))
	}
	NewResponse().JSON(map[string]any{"category": category.String(), "entries": out}).Write(w)
}

// handleUploadReceipt records a receipt total. The body carries "category"
// and either "text" (already recognized) or "image_path" (run through OCR).
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	p := parseBody(w, r)
	if p == nil {
		return
	}
	category, err := core.ParseCategory(p.Get("category"))
	if err != nil {
		writeError(w, r, applog.OpUpload, err)
		return
	}

	text, imagePath := p.Get("text"), p.Get("image_path")
	switch {
	case text != "":
		res, err := s.svc.RecordReceiptText(r.Context(), category, text)
		if err != nil {
			writeError(w, r, applog.OpUpload, err)
			return
		}
		NewResponse().Status(http.StatusCreated).JSON(toIngestion(res)).Write(w)
	case imagePath != "":
		res, err := s.svc.UploadReceipt(r.Context(), category, imagePath)
		if err != nil {
			writeError(w, r, applog.OpUpload, err)
			return
		}
		NewResponse().Status(http.StatusCreated).JSON(toIngestion(res)).Write(w)
	default:
		BadRequestError("either text or image_path is required").Write(w)
	}
}

// handleCommand interprets one transcript the same way the voice path does.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	p := parseBody(w, r)
	if p == nil {
		return
	}
	transcript := p.Get("transcript")
	if transcript == "" {
		BadRequestError("transcript is required").Write(w)
		return
	}
	out, err := s.svc.Execute(r.Context(), transcript)
	if err != nil {
		writeError(w, r, applog.OpDispatch, err)
		return
	}
	status := http.StatusOK
	if out.Ingestion != nil {
		status = http.StatusCreated
	}
	NewResponse().Status(status).JSON(toOutcome(out)).Write(w)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	summary := s.svc.Summary()
	totals := make(map[string]moneyJSON, len(summary.ByCategory))
	for _, ca := range summary.ByCategory {
		totals[ca.Category.String()] = toMoney(ca.Amount)
	}
	NewResponse().JSON(map[string]any{
		"totals":      totals,
		"grand_total": toMoney(summary.GrandTotal),
	}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(toSummary(s.svc.Summary())).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(toDashboard(s.svc.Dashboard())).Write(w)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := s.svc.Alerts()
	if r.URL.Query().Get("refresh") == "true" {
		alerts = s.svc.Evaluate()
	}
	NewResponse().JSON(map[string]any{"alerts": toAlerts(alerts)}).Write(w)
}

// handleSetDepartmentLimit replaces a department limit from "limit".
func (s *Server) handleSetDepartmentLimit(w http.ResponseWriter, r *http.Request) {
	dept, err := core.ParseDepartment(chi.URLParam(r, "department"))
	if err != nil {
		writeError(w, r, "set_limit", err)
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	cents, err := core.ParseLimitToCents(p.Get("limit"))
	if err != nil {
		writeError(w, r, "set_limit", fmt.Errorf("limit %q: %w", p.Get("limit"), core.ErrInvalidAmount))
		return
	}
	alerts, err := s.svc.SetDepartmentLimit(r.Context(), dept, core.Money{Cents: cents})
	if err != nil {
		writeError(w, r, "set_limit", err)
		return
	}
	NewResponse().JSON(map[string]any{
		"department": dept.String(),
		"limit":      toMoney(core.Money{Cents: cents}),
		"alerts":     toAlerts(alerts),
	}).Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if s.insights == nil {
		ServiceUnavailableError("insights are not configured").Write(w)
		return
	}
	res, err := s.insights.Insights(r.Context(), s.svc.Summary())
	if err != nil {
		writeError(w, r, applog.OpInsights, err)
		return
	}
	NewResponse().JSON(map[string]any{
		"text":         res.Text,
		"model":        res.Model,
		"cached":       res.Cached,
		"generated_at": res.GeneratedAt,
	}).Write(w)
}

// handleExport hands a dated summary to the configured export backend.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		ServiceUnavailableError("export is not configured").Write(w)
		return
	}
	snap := core.Snapshot{GeneratedAt: s.now(), Summary: s.svc.Summary()}

	ctx, cancel := context.WithTimeout(r.Context(), exportTimeout)
	defer cancel()
	ref, err := s.exporter.Export(ctx, snap)
	if err != nil {
		writeError(w, r, applog.OpExport, &core.CollaboratorError{Collaborator: "export", Err: err})
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		applog.FieldOperation, applog.OpExport, "ref", ref)
	NewResponse().Status(http.StatusCreated).JSON(map[string]any{
		"ref":          ref,
		"generated_at": snap.GeneratedAt,
		"grand_total":  toMoney(snap.Summary.GrandTotal),
	}).Write(w)
}

// handleReport streams the summary as a downloadable text or CSV report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format := report.Format(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = report.FormatText
	}
	contentType := "text/plain; charset=utf-8"
	switch format {
	case report.FormatText:
	case report.FormatCSV:
		contentType = "text/csv; charset=utf-8"
	default:
		BadRequestError(fmt.Sprintf("unknown report format %q", format)).Write(w)
		return
	}

	at := s.now()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.DefaultFilename(at, format)))
	if err := report.Write(w, format, s.svc.Summary(), at); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to write report", "error", err)
	}
}

// handleQR returns the text a QR code for the summary should encode.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	NewResponse().Text(report.QRPayload(s.svc.Summary(), s.now())).Write(w)
}

func (s *Server) handleSecurityStats(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.metrics.snapshot()).Write(w)
}

type voiceStatusJSON struct {
	Available bool `json:"available"`
	Listening bool `json:"listening"`
}

func (s *Server) voiceStatus() voiceStatusJSON {
	if s.voice == nil {
		return voiceStatusJSON{}
	}
	return voiceStatusJSON{Available: true, Listening: s.voice.Listening()}
}

func (s *Server) handleVoiceStatus(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.voiceStatus()).Write(w)
}

// handleVoiceStart resumes background capture; it is a no-op when already listening.
func (s *Server) handleVoiceStart(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil {
		ServiceUnavailableError("no voice source is configured").Write(w)
		return
	}
	if err := s.voice.StartListening(r.Context()); err != nil {
		writeError(w, r, applog.OpVoice, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Voice recognition started")
	NewResponse().JSON(s.voiceStatus()).Write(w)
}

// handleVoiceStop pauses capture. Transcripts already queued are still processed.
func (s *Server) handleVoiceStop(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil {
		ServiceUnavailableError("no voice source is configured").Write(w)
		return
	}
	if err := s.voice.StopListening(r.Context()); err != nil {
		writeError(w, r, applog.OpVoice, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Voice recognition stopped")
	NewResponse().JSON(s.voiceStatus()).Write(w)
}
