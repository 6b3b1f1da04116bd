package log

import "expensetracker/internal/core"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldBytes       = "bytes"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldEntryID     = "entry_id"
	FieldCategory    = "category"
	FieldDepartment  = "department"
	FieldAmountCents = "amount_cents"
	FieldAlerts      = "alerts"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentExpense  = "expense"
	ComponentVoice    = "voice"
	ComponentOCR      = "ocr"
	ComponentExport   = "export"
	ComponentAMQP     = "amqp"
	ComponentInsights = "insights"
)

// Operations defines standard operation names
const (
	OpRecord   = "record"
	OpUpload   = "upload"
	OpDispatch = "dispatch"
	OpExport   = "export"
	OpInsights = "insights"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
	OpVoice    = "voice"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntry adds the ledger entry, its department and the number of alerts
// active after it was recorded.
func (f LogFields) WithEntry(e core.LedgerEntry, alerts int) LogFields {
	f[FieldEntryID] = e.ID
	f[FieldCategory] = e.Category.String()
	f[FieldDepartment] = core.DepartmentFor(e.Category).String()
	f[FieldAmountCents] = e.Amount.Cents
	f[FieldAlerts] = alerts
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, bytes int) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldBytes] = bytes
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to alternating key/value arguments for slog.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
