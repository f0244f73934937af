package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentHome, Output: &buf})
	l.Info("Projection computed", FieldTotal, "915.50")
	l.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentHome || rec[FieldTotal] != "915.50" {
		t.Errorf("unexpected record: %v", rec)
	}

	buf.Reset()
	New(Config{Format: "tint", Component: "x", Output: &buf}).Warn("colored")
	if !strings.Contains(buf.String(), "colored") {
		t.Errorf("tint handler wrote %q", buf.String())
	}

	buf.Reset()
	New(Config{Format: "bogus", Component: "x", Output: &buf}).Info("plain")
	if !strings.Contains(buf.String(), "msg=plain") {
		t.Errorf("text fallback wrote %q", buf.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Component: ComponentHTTP, Output: &buf})

	var seen string
	h := Middleware(base)(RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		FromContext(r.Context()).InfoContext(r.Context(), "handled")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/home", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("request id not propagated: seen=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}
	if !strings.Contains(buf.String(), `"request_id":"abc-123"`) {
		t.Errorf("log line missing request id: %s", buf.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(rec.Header().Get(RequestIDHeader)) != 36 {
		t.Errorf("expected generated uuid, got %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestFromContextDefault(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("expected fallback logger")
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithError(nil).WithEntity("tag", "t1").WithError(errors.New("boom"))
	if f[FieldError] != "boom" || f[FieldEntity] != "tag" {
		t.Errorf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Error("ToSlice should yield key/value pairs")
	}
}
