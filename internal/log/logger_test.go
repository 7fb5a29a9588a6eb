package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("whatever"))
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentHTTP, Output: &buf})

	l.Info("hello")
	l.WithComponent(ComponentReports).Info("again")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "component=http")
	assert.Contains(t, lines[1], "component=reports")
	assert.Equal(t, 1, strings.Count(lines[1], "component="))
}

func TestWithComponentKeepsAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf}).With(FieldRequestID, "req-1")

	l.WithComponent(ComponentAuth).WithComponent(ComponentReports).Info("x")

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "component=reports")
	assert.Equal(t, 1, strings.Count(out, "component="))
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf})

	l.LogError(context.Background(), "store failed", errors.New("boom"), OpUpdate, ErrorTypeDatabase, FieldTransactionID, "t1")

	out := buf.String()
	for _, want := range []string{"level=ERROR", "error=boom", "operation=update", "error_type=database_error", "transaction_id=t1"} {
		assert.Contains(t, out, want)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})

	ctx := WithLogger(context.Background(), base.With(FieldRequestID, "req-42"))
	FromContext(ctx).Info("inside")

	assert.Contains(t, buf.String(), "request_id=req-42")
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	r := httptest.NewRequest(http.MethodGet, "/reports?email=a", nil)

	sl.LogHTTPEnd(context.Background(), r, 200, 3, "1.2.3.4")
	sl.LogHTTPEnd(context.Background(), r, 404, 3, "1.2.3.4")
	sl.LogHTTPEnd(context.Background(), r, 500, 3, "1.2.3.4")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
	assert.NotContains(t, out, "email=a", "query strings are not logged on completion")
}

func TestFromContextFallback(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()).Logger)
}
