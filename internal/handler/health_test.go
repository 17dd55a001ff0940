package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/olegiv/oblog/internal/version"
)

func TestHealth_PublicIsMinimal(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	assertStatus(t, w.Code, http.StatusOK)

	var body map[string]json.RawMessage
	decodeBody(t, w, &body)
	if len(body) != 1 {
		t.Errorf("public health exposes %d fields; want only status", len(body))
	}
	if string(body["status"]) != `"healthy"` {
		t.Errorf("status = %s; want \"healthy\"", body["status"])
	}
}

func TestHealth_AdminDetails(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	w := env.do(t, http.MethodGet, "/health?verbose=true", nil, cookie)
	assertStatus(t, w.Code, http.StatusOK)

	var status HealthStatus
	decodeBody(t, w, &status)

	if status.Status != "healthy" {
		t.Errorf("status = %q; want healthy", status.Status)
	}
	if status.Version != version.Current().String() {
		t.Errorf("version = %q; want %q", status.Version, version.Current().String())
	}
	if db, ok := status.Checks["database"]; !ok || db.Status != "healthy" {
		t.Errorf("database check = %+v", status.Checks)
	}
	if status.System == nil || status.System.NumCPU < 1 {
		t.Errorf("system info = %+v; want populated on verbose", status.System)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/nothing-here", nil)
	assertStatus(t, w.Code, http.StatusNotFound)
	if body := decodeError(t, w); body.Error.Code != "not_found" {
		t.Errorf("error code = %q; want not_found", body.Error.Code)
	}
}
