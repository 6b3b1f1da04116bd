package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/insights"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/voice"
)

var fixedNow = time.Date(2025, 8, 14, 10, 30, 0, 0, time.UTC)

type fakeInsights struct {
	res insights.Result
	err error
}

func (f fakeInsights) Insights(_ context.Context, _ core.Summary) (insights.Result, error) {
	return f.res, f.err
}

func newTestServer(t *testing.T, opts Options) (*Server, *services.ExpenseService) {
	t.Helper()
	cfg := services.DefaultConfig()
	cfg.Clock = func() time.Time { return fixedNow }
	svc := services.NewExpenseService(cfg, nil, nil)

	opts.Clock = func() time.Time { return fixedNow }
	opts.Logger = applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, svc
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
	}
}

func TestCreateExpense(t *testing.T) {
	srv, svc := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"category":"monthly bills","amount":"1234.50"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decode[ingestionJSON](t, rr)
	if got.Entry.Category != "Monthly Bills" || got.Entry.Amount.Cents != 123450 || got.Entry.Department != "Operations" {
		t.Errorf("unexpected entry %+v", got.Entry)
	}
	want := "Manual entry of ₹1234.50 added successfully to Monthly Bills at 2025-08-14 10:30:00"
	if got.Message != want {
		t.Errorf("message = %q, want %q", got.Message, want)
	}
	if svc.GrandTotal().Cents != 123450 {
		t.Errorf("grand total = %d", svc.GrandTotal().Cents)
	}

	// Numeric JSON amounts parse too.
	rr = do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Food","amount":12.5}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("numeric amount: expected 201, got %d", rr.Code)
	}
}

func TestCreateExpenseRejected(t *testing.T) {
	srv, svc := newTestServer(t, Options{})

	cases := []struct {
		name string
		body string
		code int
	}{
		{"bad amount", "category=Food&amount=abc", http.StatusBadRequest},
		{"zero amount", "category=Food&amount=0", http.StatusBadRequest},
		{"unknown category", "category=Rent&amount=10", http.StatusBadRequest},
		{"malformed json", `{"category":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/expenses", tc.body)
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body.String())
			}
			if decode[errorBody](t, rr).Error == "" {
				t.Error("expected error message")
			}
		})
	}
	if svc.GrandTotal().Cents != 0 {
		t.Errorf("rejected requests must not change state, total=%d", svc.GrandTotal().Cents)
	}
}

func TestCommands(t *testing.T) {
	srv, svc := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/commands", `{"transcript":"please add 500 for soft"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	out := decode[outcomeJSON](t, rr)
	if out.Intent != "add_expense" || out.Ingestion == nil || out.Ingestion.Entry.Category != "Software" {
		t.Errorf("unexpected outcome %+v", out)
	}

	rr = do(t, srv, http.MethodPost, "/api/commands", `{"transcript":"show me the pie chart"}`)
	out = decode[outcomeJSON](t, rr)
	if rr.Code != http.StatusOK || out.Intent != "show_view" || out.View != "pie_chart" {
		t.Errorf("view: got %d %+v", rr.Code, out)
	}

	rr = do(t, srv, http.MethodPost, "/api/commands", `{"transcript":"add 20 for rent"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown hint: expected 422, got %d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/commands", `{"transcript":"what time is it"}`)
	out = decode[outcomeJSON](t, rr)
	if out.Intent != "unrecognized" || out.Message != "Command not recognized: what time is it" {
		t.Errorf("unrecognized: got %+v", out)
	}

	rr = do(t, srv, http.MethodPost, "/api/commands", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty transcript: expected 400, got %d", rr.Code)
	}

	if svc.GrandTotal().Cents != 50000 {
		t.Errorf("grand total = %d, want 50000", svc.GrandTotal().Cents)
	}
}

func TestUploadReceipt(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/receipts", `{"category":"Food","text":"Subtotal: 100.00\nTAX: 18.00\nTOTAL: 118.00"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("text: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decode[ingestionJSON](t, rr)
	if got.Entry.Amount.Cents != 11800 || !strings.HasPrefix(got.Message, "Bill of ₹118.00 added successfully to Food") {
		t.Errorf("unexpected ingestion %+v", got)
	}

	cases := []struct {
		name string
		body string
		code int
	}{
		{"no total", `{"category":"Food","text":"just some words"}`, http.StatusUnprocessableEntity},
		{"missing input", `{"category":"Food"}`, http.StatusBadRequest},
		{"unknown category", `{"category":"Rent","text":"TOTAL 5"}`, http.StatusBadRequest},
		{"no ocr engine", `{"category":"Food","image_path":"/tmp/receipt.png"}`, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/receipts", tc.body)
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestReadViews(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Software","amount":"500"}`)
	do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Food","amount":"500"}`)

	sum := decode[summaryJSON](t, do(t, srv, http.MethodGet, "/api/summary", ""))
	if len(sum.Categories) != len(core.Categories()) || sum.GrandTotal.Cents != 100000 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if len(sum.Shares) != 2 || sum.Shares[0].Category != "Food" || sum.Shares[0].Percent != 50 {
		t.Errorf("unexpected shares %+v", sum.Shares)
	}

	dash := decode[dashboardJSON](t, do(t, srv, http.MethodGet, "/api/dashboard", ""))
	if math.Abs(dash.BudgetUsedPercent-1) > 1e-9 || len(dash.Departments) != 4 || len(dash.SavingsGoals) != 4 {
		t.Errorf("unexpected dashboard %+v", dash)
	}
	if dash.SavingsGoals[2].Saved.Cents != 10000000-100000 {
		t.Errorf("Q3 saved = %d", dash.SavingsGoals[2].Saved.Cents)
	}

	totals := do(t, srv, http.MethodGet, "/api/totals", "")
	if !strings.Contains(totals.Body.String(), `"Software":{"cents":50000`) {
		t.Errorf("totals missing Software: %s", totals.Body.String())
	}

	entries := do(t, srv, http.MethodGet, "/api/expenses/food", "")
	if entries.Code != http.StatusOK || !strings.Contains(entries.Body.String(), `"category":"Food"`) {
		t.Errorf("entries: %d %s", entries.Code, entries.Body.String())
	}
	if rr := do(t, srv, http.MethodGet, "/api/expenses/rent", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown category entries: expected 400, got %d", rr.Code)
	}

	cats := do(t, srv, http.MethodGet, "/api/categories", "")
	if !strings.Contains(cats.Body.String(), `{"name":"Office Supplies","department":"IT"}`) {
		t.Errorf("categories: %s", cats.Body.String())
	}
}

func TestSetDepartmentLimit(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Software","amount":"500"}`)

	rr := do(t, srv, http.MethodPut, "/api/departments/it/limit", `{"limit":"100"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Budget overrun in IT: ₹400.00 over budget") {
		t.Errorf("expected IT overrun alert: %s", rr.Body.String())
	}

	alerts := do(t, srv, http.MethodGet, "/api/alerts", "")
	if !strings.Contains(alerts.Body.String(), `"department":"IT"`) {
		t.Errorf("alerts: %s", alerts.Body.String())
	}

	if rr := do(t, srv, http.MethodPut, "/api/departments/finance/limit", `{"limit":"100"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown department: expected 400, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/departments/IT/limit", `{"limit":"-5"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("negative limit: expected 400, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/departments/IT/limit", `{"limit":"1,000"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("comma limit: expected 400, got %d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/departments/hr/limit", `{"limit":"0"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("zero limit: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"cents":0`) {
		t.Errorf("zero limit not echoed: %s", rr.Body.String())
	}
	if d := svc.Dashboard(); d.Departments[0].Limit.Cents != 0 {
		t.Errorf("HR limit = %v, want 0", d.Departments[0].Limit)
	}
}

func TestInsights(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	if rr := do(t, srv, http.MethodPost, "/api/insights", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured: expected 503, got %d", rr.Code)
	}

	srv, _ = newTestServer(t, Options{Insights: fakeInsights{err: insights.ErrNoExpenses}})
	if rr := do(t, srv, http.MethodPost, "/api/insights", ""); rr.Code != http.StatusConflict {
		t.Errorf("no expenses: expected 409, got %d", rr.Code)
	}

	failing := fakeInsights{err: &core.CollaboratorError{Collaborator: "insights", Err: errors.New("quota")}}
	srv, _ = newTestServer(t, Options{Insights: failing})
	if rr := do(t, srv, http.MethodPost, "/api/insights", ""); rr.Code != http.StatusBadGateway {
		t.Errorf("collaborator failure: expected 502, got %d", rr.Code)
	}

	ok := fakeInsights{res: insights.Result{Text: "Cut travel.", Model: "m"}}
	srv, _ = newTestServer(t, Options{Insights: ok})
	rr := do(t, srv, http.MethodPost, "/api/insights", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Cut travel.") {
		t.Errorf("ok: %d %s", rr.Code, rr.Body.String())
	}
}

func TestExport(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	if rr := do(t, srv, http.MethodPost, "/api/exports", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured: expected 503, got %d", rr.Code)
	}

	mem := export.NewMemory()
	srv, _ = newTestServer(t, Options{Exporter: mem})
	do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Travel","amount":"75"}`)

	rr := do(t, srv, http.MethodPost, "/api/exports", "")
	if rr.Code != http.StatusCreated || !strings.Contains(rr.Body.String(), `"ref":"mem:1"`) {
		t.Fatalf("export: %d %s", rr.Code, rr.Body.String())
	}
	snaps := mem.Snapshots()
	if len(snaps) != 1 || !snaps[0].GeneratedAt.Equal(fixedNow) || snaps[0].Summary.GrandTotal.Cents != 7500 {
		t.Errorf("unexpected snapshots %+v", snaps)
	}
}

func TestReportAndQR(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Food","amount":"10"}`)

	rr := do(t, srv, http.MethodGet, "/api/report?format=csv", "")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "Category,Amount (₹)") {
		t.Fatalf("csv: %d %q", rr.Code, rr.Body.String())
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "expense_report_20250814.csv") {
		t.Errorf("content disposition = %q", cd)
	}

	rr = do(t, srv, http.MethodGet, "/api/report", "")
	if !strings.Contains(rr.Body.String(), "=== COMPANY EXPENSE REPORT ===") {
		t.Errorf("text report: %q", rr.Body.String())
	}

	if rr := do(t, srv, http.MethodGet, "/api/report?format=xml", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown format: expected 400, got %d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/qr", "")
	if !strings.HasPrefix(rr.Body.String(), "=== Expense Summary ===") || !strings.Contains(rr.Body.String(), "Grand Total: ₹10.00") {
		t.Errorf("qr payload: %q", rr.Body.String())
	}
}

func TestRateLimitMutatingRequests(t *testing.T) {
	srv, _ := newTestServer(t, Options{RequestsPerMinute: 2})
	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Food","amount":"1"}`); rr.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Food","amount":"1"}`)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}
	// Reads are not limited.
	if rr := do(t, srv, http.MethodGet, "/api/totals", ""); rr.Code != http.StatusOK {
		t.Errorf("read after limit: expected 200, got %d", rr.Code)
	}

	stats := decode[SecurityStats](t, do(t, srv, http.MethodGet, "/api/security", ""))
	if stats.RateLimitHits != 1 {
		t.Errorf("rate limit hits = %d", stats.RateLimitHits)
	}
}

func TestVoiceControl(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	if got := decode[voiceStatusJSON](t, do(t, srv, http.MethodGet, "/api/voice", "")); got.Available || got.Listening {
		t.Errorf("unconfigured voice reported %+v", got)
	}
	if rr := do(t, srv, http.MethodPost, "/api/voice/start", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured start: expected 503, got %d", rr.Code)
	}

	pr, pw := io.Pipe()
	q := voice.NewQueue(4)
	listener := voice.NewListener(voice.NewLineRecognizer(pr), q, voice.ListenerConfig{ListenTimeout: 20 * time.Millisecond})
	base, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = listener.Close(context.Background())
		pw.Close()
	})
	srv, _ = newTestServer(t, Options{Voice: voice.NewToggle(base, listener)})

	if got := decode[voiceStatusJSON](t, do(t, srv, http.MethodGet, "/api/voice", "")); !got.Available || got.Listening {
		t.Fatalf("expected idle voice, got %+v", got)
	}

	rr := do(t, srv, http.MethodPost, "/api/voice/start", "")
	if rr.Code != http.StatusOK || !decode[voiceStatusJSON](t, rr).Listening {
		t.Fatalf("start: %d %s", rr.Code, rr.Body.String())
	}
	go func() { _, _ = io.WriteString(pw, "show summary\n") }()
	deadline := time.Now().Add(2 * time.Second)
	for q.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := q.Drain(); len(got) != 1 || got[0] != "show summary" {
		t.Fatalf("listener did not capture after start: %q", got)
	}

	rr = do(t, srv, http.MethodPost, "/api/voice/stop", "")
	if rr.Code != http.StatusOK || decode[voiceStatusJSON](t, rr).Listening {
		t.Fatalf("stop: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodPost, "/api/voice/start", "")
	if rr.Code != http.StatusOK || !decode[voiceStatusJSON](t, rr).Listening {
		t.Fatalf("restart: %d %s", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodPost, "/api/voice/stop", ""); rr.Code != http.StatusOK {
		t.Fatalf("second stop: %d", rr.Code)
	}

	cancel()
	if rr := do(t, srv, http.MethodPost, "/api/voice/start", ""); rr.Code != http.StatusConflict {
		t.Errorf("start after shutdown: expected 409, got %d", rr.Code)
	}
}
