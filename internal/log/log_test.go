package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"expensetracker/internal/core"
)

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentVoice, Output: &buf})
	l.Info("Listening")
	if !strings.Contains(buf.String(), "component=voice") {
		t.Errorf("missing component in %q", buf.String())
	}

	buf.Reset()
	l.WithComponent(ComponentOCR).Info("Done")
	out := buf.String()
	if !strings.Contains(out, "component=ocr") || strings.Contains(out, "component=voice") {
		t.Errorf("component not replaced: %q", out)
	}
}

func TestWithEntryFields(t *testing.T) {
	f := NewFields().WithEntry(core.LedgerEntry{
		ID:        "id-1",
		Category:  core.Software,
		Amount:    core.Money{Cents: 999},
		Timestamp: time.Now(),
	}, 2)
	if f[FieldDepartment] != "IT" || f[FieldAmountCents] != int64(999) || f[FieldAlerts] != 2 {
		t.Errorf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Error("ToSlice should emit key/value pairs")
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("expected fallback logger")
	}
}

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	var seen *Logger
	h := middleware.RequestID(Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/totals?x=1", nil))

	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatal("handler should see the request logger")
	}
	out := buf.String()
	for _, want := range []string{"HTTP request completed", "status_code=418", "path=/totals", "request_id=", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}
