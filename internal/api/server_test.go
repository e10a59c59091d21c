package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"garagepro/internal/activity"
	"garagepro/internal/events"
	"garagepro/internal/idle/idletest"
	"garagepro/internal/policy"
	"garagepro/internal/session"
	"garagepro/internal/store"
)

func testServer(t *testing.T, token string) (http.Handler, *session.Manager, *idletest.Clock) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	clock := idletest.NewClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	mgr := session.NewManager(
		policy.NewStatic(time.Minute, nil),
		activity.NewHub(),
		store.NewMemoryStore(),
		events.NewEmitter(logger),
		session.ManagerConfig{Clock: clock},
		logger,
	)
	return NewServer(mgr, token, logger).Handler(), mgr, clock
}

func do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func openSession(t *testing.T, h http.Handler) session.Info {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", session.OpenRequest{UserID: "u1", Role: "manager", BranchID: "b1"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("open status = %d, body = %s", w.Code, w.Body.String())
	}
	var info session.Info
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	return info
}

func TestListSessionsEmpty(t *testing.T) {
	h, _, _ := testServer(t, "")
	w := do(t, h, http.MethodGet, "/sessions", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list []session.Info
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
}

func TestOpenGetAndClose(t *testing.T) {
	h, mgr, _ := testServer(t, "")
	info := openSession(t, h)
	if info.Role != "manager" || info.BranchID != "b1" {
		t.Errorf("unexpected info: %+v", info)
	}

	w := do(t, h, http.MethodGet, "/sessions/"+info.ID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = do(t, h, http.MethodDelete, "/sessions/"+info.ID, nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if mgr.Len() != 0 {
		t.Errorf("sessions = %d after logout", mgr.Len())
	}

	w = do(t, h, http.MethodDelete, "/sessions/"+info.ID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestOpenValidation(t *testing.T) {
	h, _, _ := testServer(t, "")
	tests := []struct {
		name string
		body any
	}{
		{"missing user", session.OpenRequest{Role: "admin"}},
		{"bad role", session.OpenRequest{UserID: "u", Role: "janitor"}},
		{"not json", "just a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/sessions", tt.body, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestActivityKeepsSessionAlive(t *testing.T) {
	h, mgr, clock := testServer(t, "")
	info := openSession(t, h)

	clock.Advance(50 * time.Second)
	w := do(t, h, http.MethodPost, "/sessions/"+info.ID+"/activity", map[string]string{"kind": "key-press"}, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("activity status = %d, body = %s", w.Code, w.Body.String())
	}

	clock.Advance(50 * time.Second)
	if _, err := mgr.Get(info.ID); err != nil {
		t.Fatalf("session expired despite activity: %v", err)
	}

	clock.Advance(10 * time.Second)
	w = do(t, h, http.MethodGet, "/sessions/"+info.ID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d after idle timeout, want 404", w.Code)
	}
}

func TestActivityErrors(t *testing.T) {
	h, _, _ := testServer(t, "")
	info := openSession(t, h)

	w := do(t, h, http.MethodPost, "/sessions/"+info.ID+"/activity", map[string]string{"kind": "hover"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", w.Code)
	}

	w = do(t, h, http.MethodPost, "/sessions/nope/activity", map[string]string{"kind": "scroll"}, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	h, _, _ := testServer(t, "s3cret")

	w := do(t, h, http.MethodGet, "/sessions", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d without token, want 401", w.Code)
	}
	w = do(t, h, http.MethodGet, "/sessions", nil, "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d with wrong token, want 401", w.Code)
	}
	w = do(t, h, http.MethodGet, "/sessions", nil, "s3cret")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d with token, want 200", w.Code)
	}

	// Health stays open for probes.
	w = do(t, h, http.MethodGet, "/healthz", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _, _ := testServer(t, "")
	info := openSession(t, h)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/sessions"},
		{http.MethodPut, "/sessions/" + info.ID},
		{http.MethodGet, "/sessions/" + info.ID + "/activity"},
		{http.MethodPost, "/healthz"},
	}
	for _, tt := range tests {
		w := do(t, h, tt.method, tt.path, nil, "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want 405", tt.method, tt.path, w.Code)
			continue
		}
		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body["error"] != "method not allowed" {
			t.Errorf("%s %s body = %v (%v), want JSON error", tt.method, tt.path, body, err)
		}
	}
}

func TestUnknownPathIsJSON404(t *testing.T) {
	h, _, _ := testServer(t, "")
	w := do(t, h, http.MethodGet, "/sessions/a/b/c", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
}
