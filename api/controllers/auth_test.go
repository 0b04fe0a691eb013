package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/accounts"
	"github.com/angelmondragon/storefront-backend/internal/merge"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubAccounts struct {
	result   *accounts.LoginResult
	err      error
	loggedIn string
	revoked  string
}

func (s *stubAccounts) Login(ctx context.Context, email, password string) (*accounts.LoginResult, error) {
	s.loggedIn = email
	return s.result, s.err
}

func (s *stubAccounts) Logout(ctx context.Context, accessID string) error {
	s.revoked = accessID
	return s.err
}

type stubMerger struct {
	result *merge.Result
	err    error
	token  string
}

func (s *stubMerger) MergeOnLogin(ctx context.Context, token string, accountID uuid.UUID) (*merge.Result, error) {
	s.token = token
	return s.result, s.err
}

func loginResult() *accounts.LoginResult {
	return &accounts.LoginResult{
		AccessToken: "jwt",
		AccessID:    "sess-1",
		ExpiresAt:   time.Now().Add(time.Hour),
		Account:     accounts.AccountDTO{ID: uuid.New(), Email: "shopper@example.com"},
	}
}

func loginRequest(guestToken string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"shopper@example.com","password":"secret"}`))
	if guestToken != "" {
		req.Header.Set(middleware.GuestCartHeader, guestToken)
	}
	return req
}

func TestAuthLoginWithoutGuestCart(t *testing.T) {
	merger := &stubMerger{}
	handler := AuthLogin(&stubAccounts{result: loginResult()}, merger, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest(""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if merger.token != "" {
		t.Fatal("merge must not run without a guest token")
	}
	if strings.Contains(resp.Body.String(), "cart_merge") {
		t.Fatalf("unexpected merge payload: %s", resp.Body.String())
	}
}

func TestAuthLoginMergesGuestCart(t *testing.T) {
	cartID := uuid.New()
	merger := &stubMerger{result: &merge.Result{AccountCartID: cartID, Merged: true, LinesMerged: 2}}
	handler := AuthLogin(&stubAccounts{result: loginResult()}, merger, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("guest-token"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if merger.token != "guest-token" {
		t.Fatalf("expected merge with guest token, got %q", merger.token)
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
			CartMerge   struct {
				CartID      uuid.UUID `json:"cart_id"`
				Merged      bool      `json:"merged"`
				LinesMerged int       `json:"lines_merged"`
			} `json:"cart_merge"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccessToken != "jwt" {
		t.Fatalf("expected access token, got %q", envelope.Data.AccessToken)
	}
	if envelope.Data.CartMerge.CartID != cartID || envelope.Data.CartMerge.LinesMerged != 2 {
		t.Fatalf("unexpected merge payload %+v", envelope.Data.CartMerge)
	}
}

func TestAuthLoginIgnoresRetiredGuestToken(t *testing.T) {
	merger := &stubMerger{err: pkgerrors.New(pkgerrors.CodeInvalidIdentity, "anonymous cart token has been retired")}
	svc := &stubAccounts{result: loginResult()}
	handler := AuthLogin(svc, merger, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("stale"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected login to succeed, got %d", resp.Code)
	}
	if svc.revoked != "" {
		t.Fatalf("session of a successful login must stay live, revoked %q", svc.revoked)
	}
	if strings.Contains(resp.Body.String(), "sess-1") {
		t.Fatalf("access id must not be serialized: %s", resp.Body.String())
	}
}

func TestAuthLoginPropagatesMergeFailure(t *testing.T) {
	merger := &stubMerger{err: pkgerrors.Wrap(pkgerrors.CodeTransientStore, errors.New("deadlock"), "merge")}
	svc := &stubAccounts{result: loginResult()}
	handler := AuthLogin(svc, merger, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("guest-token"))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if svc.revoked != "sess-1" {
		t.Fatalf("expected session from failed login to be revoked, got %q", svc.revoked)
	}
	if strings.Contains(resp.Body.String(), "jwt") {
		t.Fatalf("failed login leaked its token: %s", resp.Body.String())
	}
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	handler := AuthLogin(&stubAccounts{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}, &stubMerger{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("guest-token"))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutRevokesSession(t *testing.T) {
	svc := &stubAccounts{}
	handler := middleware.Auth(config.JWTConfig{}, nil, nil)(AuthLogout(svc, nil))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}
	if svc.revoked != "" {
		t.Fatal("logout must not run without a session")
	}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	handler := HealthReady(cfg, map[string]Pinger{"redis": failingPinger{}}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if resp.Header().Get("X-Storefront-Env") != "dev" {
		t.Fatal("expected env header")
	}
}

func TestHealthReadyOK(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	handler := HealthReady(cfg, map[string]Pinger{"db": okPinger{}}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }
