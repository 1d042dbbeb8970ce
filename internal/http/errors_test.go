package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "rid-123")

	WriteError(rec, http.StatusBadRequest, "invalid_request", "falta state", 2101)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
	var body apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Error != "invalid_request" || body.ErrorDescription != "falta state" {
		t.Fatalf("body: %+v", body)
	}
	if body.ErrorCode != 2101 || body.RequestID != "rid-123" {
		t.Fatalf("body: %+v", body)
	}
	if rec.Header().Get("WWW-Authenticate") != "" {
		t.Fatal("un 400 no debe llevar WWW-Authenticate")
	}
}

func TestWriteErrorInvalidClientChallenge(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusUnauthorized, "invalid_client", "bad credentials", 2201)

	if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="agentgate"` {
		t.Fatalf("WWW-Authenticate: %q", got)
	}
}
