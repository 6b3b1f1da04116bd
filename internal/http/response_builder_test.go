package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResponseBuilderJSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		JSON(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilderText(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Text("ok").Write(w)
	if w.Body.String() != "ok" || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected text response %q %q", w.Body.String(), w.Header().Get("Content-Type"))
	}
}

func TestResponseBuilderUnencodable(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"f": func() {}}).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *ResponseBuilder
		code    int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("bad"), http.StatusUnprocessableEntity},
		{"internal", InternalServerError("bad"), http.StatusInternalServerError},
		{"unavailable", ServiceUnavailableError("bad"), http.StatusServiceUnavailable},
		{"too many", TooManyRequestsError("60"), http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.code {
				t.Errorf("Status code = %d, want %d", w.Code, tt.code)
			}
			if !strings.Contains(w.Body.String(), `"error":`) {
				t.Errorf("Body = %q", w.Body.String())
			}
		})
	}
}
