package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxBodyBytes caps request bodies. Receipt text is the largest payload.
const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// requestFields is a flat view of a request body. Handlers accept a JSON
// object or form-encoded values and read both the same way.
type requestFields struct {
	values map[string]string
	json   bool
}

// readFields decodes the body of r into flat string fields. A body that
// starts with "{" or declares application/json is decoded as a JSON object;
// anything else is treated as form values.
func readFields(r *http.Request) (*requestFields, error) {
	f := &requestFields{values: map[string]string{}}
	if r.Body == nil {
		return f, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) > maxBodyBytes {
		return nil, errBodyTooLarge
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return f, nil
	}

	if raw[0] == '{' || strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		f.json = true
		for k, v := range obj {
			if s, ok := scalarString(v); ok {
				f.values[k] = s
			}
		}
		return f, nil
	}

	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	for k := range form {
		f.values[k] = form.Get(k)
	}
	return f, nil
}

// Get returns the trimmed value of key with control characters removed.
// Missing keys read as "".
func (f *requestFields) Get(key string) string {
	return strings.TrimSpace(stripControl(f.values[key]))
}

// FromJSON reports whether the body was a JSON object.
func (f *requestFields) FromJSON() bool { return f.json }

// scalarString renders JSON scalars; objects, arrays and null are skipped.
func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return "", false
}

// stripControl drops control characters other than tab, newline and carriage return.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parseBody reads the request fields, writing a 400 when the body cannot be
// decoded. A nil result means the handler should return.
func parseBody(w http.ResponseWriter, r *http.Request) *requestFields {
	f, err := readFields(r)
	if err != nil {
		BadRequestError("invalid request body: " + err.Error()).Write(w)
		return nil
	}
	return f
}
