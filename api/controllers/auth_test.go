package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ridepoolhq/ridepool-backend/api/middleware"
	"github.com/ridepoolhq/ridepool-backend/internal/auth"
	"github.com/ridepoolhq/ridepool-backend/internal/users"
	pkgerrors "github.com/ridepoolhq/ridepool-backend/pkg/errors"
)

func TestAuthLoginSuccess(t *testing.T) {
	resp := &auth.TokenResponse{AccessToken: "token-value", TokenType: "bearer"}
	svc := &stubAuthService{resp: resp}
	handler := AuthLogin(svc, nil)

	form := strings.NewReader("username=alice&password=hunter22")
	req := httptest.NewRequest(http.MethodPost, "/auth/login", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotReq.Username != "alice" || svc.gotReq.Password != "hunter22" {
		t.Fatalf("unexpected credentials forwarded: %+v", svc.gotReq)
	}
	var envelope struct {
		Data auth.TokenResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccessToken != "token-value" {
		t.Fatalf("unexpected token %q", envelope.Data.AccessToken)
	}
	if envelope.Data.TokenType != "bearer" {
		t.Fatalf("unexpected token type %q", envelope.Data.TokenType)
	}
}

func TestAuthLoginBadCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handler := AuthLogin(svc, nil)

	form := strings.NewReader("username=alice&password=wrong")
	req := httptest.NewRequest(http.MethodPost, "/auth/login", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthMeSuccess(t *testing.T) {
	dto := &users.UserDTO{ID: 7, Username: "carol"}
	handler := AuthMe(stubUserService{got: dto}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 7))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data users.UserDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != 7 {
		t.Fatalf("expected id 7 got %d", envelope.Data.ID)
	}
}

func TestAuthMeMissingContext(t *testing.T) {
	handler := AuthMe(stubUserService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

type stubAuthService struct {
	resp   *auth.TokenResponse
	err    error
	gotReq auth.LoginRequest
}

func (s *stubAuthService) Login(_ context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	s.gotReq = req
	return s.resp, s.err
}
