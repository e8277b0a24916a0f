package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDEchoedToClient(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.buildRouter()

	t.Run("generated when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("response missing X-Request-ID header")
		}
	})

	t.Run("client id reused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.Header.Set("X-Request-Id", "req-42")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
			t.Errorf("X-Request-ID = %q, want req-42", got)
		}
	})
}

func TestRecoverPanics(t *testing.T) {
	server, _ := newTestServer(t)

	handler := server.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/dev-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body.Error == "" {
		t.Error("error body missing message")
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.buildRouter()

	payload := append([]byte(`{"ids":["`), bytes.Repeat([]byte("a"), maxRequestBodySize+1)...)
	payload = append(payload, []byte(`"]}`)...)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/availability/batch", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
