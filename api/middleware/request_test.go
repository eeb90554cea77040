package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

func TestRequestIDEchoesUsableHeader(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "api-test", Output: &logs})
	h := RequestID(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logg.Info(r.Context(), "cart fetched")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/carts/c1", nil)
	req.Header.Set(requestIDHeader, "edge-7f3a")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Header().Get(requestIDHeader) != "edge-7f3a" {
		t.Fatalf("expected caller id echoed, got %q", resp.Header().Get(requestIDHeader))
	}
	if !strings.Contains(logs.String(), "edge-7f3a") {
		t.Fatalf("request id missing from log line: %s", logs.String())
	}
}

func TestRequestIDReplacesUnusableHeader(t *testing.T) {
	h := RequestID(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	for _, bad := range []string{"", "has space", "line\nbreak", strings.Repeat("x", maxRequestIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, bad)
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		got := resp.Header().Get(requestIDHeader)
		if got == "" || got == bad || len(got) != 36 {
			t.Fatalf("header %q: expected a minted uuid, got %q", bad, got)
		}
	}
}

func TestRecovererAnswersInternalError(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "api-test", Output: &logs})
	h := Recoverer(logg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil cart line")
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/carts/c1/checkout", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "nil cart line") {
		t.Fatalf("panic value leaked to the client: %s", resp.Body.String())
	}
	if !strings.Contains(logs.String(), "nil cart line") || !strings.Contains(logs.String(), "stack") {
		t.Fatalf("expected panic and stack in logs: %s", logs.String())
	}
}

func TestRecovererRethrowsAbort(t *testing.T) {
	h := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestLoggingWritesOneLinePerRequest(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "api-test", Output: &logs})
	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/api/v1/carts/{cartId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/carts/c9", nil))

	line := logs.String()
	for _, want := range []string{`"level":"warn"`, `"route":"/api/v1/carts/{cartId}"`, `"status":502`, `"bytes":8`, `"path":"/api/v1/carts/c9"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
	if strings.Count(line, "\n") != 1 {
		t.Fatalf("expected a single log line, got %q", line)
	}
}
