package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/praxishealth/praxis/pkg/logging"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	svc := NewService(NewInMemoryStore(), NewSessionCache(nil), nil, time.Hour, logging.Default())
	return NewHandler(svc, "praxis_session", false, logging.Default())
}

func TestSignUp_Success(t *testing.T) {
	handler := newTestHandler(t)

	body, _ := json.Marshal(SignUpRequest{Name: "Dr. Adams", Email: "adams@example.com", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-up", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.SignUp(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}

	var resp sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected session token in response")
	}
	if resp.User == nil || resp.User.Email != "adams@example.com" {
		t.Errorf("unexpected user in response: %+v", resp.User)
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != "praxis_session" {
		t.Error("expected session cookie to be set")
	}
}

func TestSignUp_DuplicateEmailConflict(t *testing.T) {
	handler := newTestHandler(t)

	body, _ := json.Marshal(SignUpRequest{Name: "A", Email: "dup@example.com", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-up", bytes.NewReader(body))
	handler.SignUp(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/auth/sign-up", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.SignUp(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
}

func TestSignUp_ShortPassword(t *testing.T) {
	handler := newTestHandler(t)

	body, _ := json.Marshal(SignUpRequest{Name: "A", Email: "a@example.com", Password: "short"})
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-up", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.SignUp(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestSignIn_WrongPassword(t *testing.T) {
	handler := newTestHandler(t)

	body, _ := json.Marshal(SignUpRequest{Name: "B", Email: "b@example.com", Password: "password123"})
	handler.SignUp(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/auth/sign-up", bytes.NewReader(body)))

	login, _ := json.Marshal(SignInRequest{Email: "b@example.com", Password: "nope-nope"})
	w := httptest.NewRecorder()
	handler.SignIn(w, httptest.NewRequest(http.MethodPost, "/auth/sign-in", bytes.NewReader(login)))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestSignIn_InvalidJSON(t *testing.T) {
	handler := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.SignIn(w, httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader("{")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestMe_WithBearerToken(t *testing.T) {
	handler := newTestHandler(t)

	body, _ := json.Marshal(SignUpRequest{Name: "C", Email: "c@example.com", Password: "password123"})
	signup := httptest.NewRecorder()
	handler.SignUp(signup, httptest.NewRequest(http.MethodPost, "/auth/sign-up", bytes.NewReader(body)))

	var resp sessionResponse
	if err := json.NewDecoder(signup.Body).Decode(&resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w := httptest.NewRecorder()
	handler.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestMe_MissingSession(t *testing.T) {
	handler := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.Me(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}
