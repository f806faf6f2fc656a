package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hockeyunion/membership/internal/api/middleware"
	"github.com/hockeyunion/membership/internal/core/domain"
)

type stubAuthService struct {
	signUpFn  func(ctx context.Context, email, password string, meta domain.IdentityMetadata) (*domain.Identity, *domain.Session, error)
	signInFn  func(ctx context.Context, email, password string) (*domain.Session, error)
	refreshFn func(ctx context.Context, refreshToken string) (*domain.Session, error)
	signOutFn func(ctx context.Context, accessToken string) error
}

func (s *stubAuthService) SignUp(ctx context.Context, email, password string, meta domain.IdentityMetadata) (*domain.Identity, *domain.Session, error) {
	return s.signUpFn(ctx, email, password, meta)
}

func (s *stubAuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return s.signInFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) GetSession(context.Context, string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}

func (s *stubAuthService) SignOut(ctx context.Context, accessToken string) error {
	return s.signOutFn(ctx, accessToken)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestAuthHandler_SignUp_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		signUpFn: func(ctx context.Context, email, password string, meta domain.IdentityMetadata) (*domain.Identity, *domain.Session, error) {
			if email != "alice@club.na" || meta.Role != "admin" || meta.Name != "Alice" {
				t.Fatalf("unexpected args: %s %+v", email, meta)
			}
			id := &domain.Identity{ID: "U1", Email: email, Metadata: meta}
			return id, &domain.Session{ID: "S1", AccessToken: "tok", User: *id}, nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/v1/signup", `{"email":"alice@club.na","password":"secret1","data":{"name":"Alice","role":"admin"}}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.SignUp(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["id"] != "U1" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
	session, ok := resp["session"].(map[string]any)
	if !ok || session["access_token"] != "tok" {
		t.Fatalf("unexpected session payload: %+v", resp["session"])
	}
}

func TestAuthHandler_SignUp_UserExists(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		signUpFn: func(context.Context, string, string, domain.IdentityMetadata) (*domain.Identity, *domain.Session, error) {
			return nil, nil, domain.ErrUserExists
		},
	}
	handler := NewAuthHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/v1/signup", `{"email":"bob@club.na","password":"secret1"}`), httptest.NewRecorder())

	if err := handler.SignUp(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_SignUp_Validation(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		signUpFn: func(context.Context, string, string, domain.IdentityMetadata) (*domain.Identity, *domain.Session, error) {
			t.Fatalf("should not be called")
			return nil, nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	for _, body := range []string{
		"not-json",
		`{"email":"bob","password":"secret1"}`,
		`{"email":"bob@club.na","password":"123"}`,
	} {
		c := e.NewContext(jsonRequest(http.MethodPost, "/auth/v1/signup", body), httptest.NewRecorder())
		if code := httpStatus(t, handler.SignUp(c)); code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, code)
		}
	}
}

func TestAuthHandler_Token_Password(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		signInFn: func(ctx context.Context, email, password string) (*domain.Session, error) {
			if email != "alice@club.na" || password != "secret1" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &domain.Session{ID: "S1", AccessToken: "tok", RefreshToken: "ref"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/v1/token?grant_type=password", `{"email":"alice@club.na","password":"secret1"}`), rec)

	if err := handler.Token(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access_token"] != "tok" || resp["refresh_token"] != "ref" {
		t.Fatalf("unexpected session: %+v", resp)
	}
}

func TestAuthHandler_Token_InvalidCredentials(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		signInFn: func(context.Context, string, string) (*domain.Session, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/v1/token?grant_type=password", `{"email":"alice@club.na","password":"bad"}`), httptest.NewRecorder())

	if err := handler.Token(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Token_Refresh(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) (*domain.Session, error) {
			if refreshToken != "ref-1" {
				t.Fatalf("unexpected refresh token %q", refreshToken)
			}
			return &domain.Session{ID: "S2", AccessToken: "tok-2"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/v1/token?grant_type=refresh_token", `{"refresh_token":"ref-1"}`), rec)

	if err := handler.Token(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Token_UnsupportedGrant(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{})

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/v1/token?grant_type=magic", `{}`), httptest.NewRecorder())

	if code := httpStatus(t, handler.Token(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	e := newEcho()
	var revoked string
	stub := &stubAuthService{
		signOutFn: func(ctx context.Context, accessToken string) error {
			revoked = accessToken
			return nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/v1/logout", nil), rec)
	c.Set(middleware.CtxAccessToken, "tok-1")

	if err := handler.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if revoked != "tok-1" {
		t.Fatalf("expected tok-1 to be revoked, got %q", revoked)
	}
}

func TestAuthHandler_User(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/v1/user", nil), rec)
	c.Set(middleware.CtxSession, &domain.Session{User: domain.Identity{ID: "U1", Email: "alice@club.na"}})

	if err := handler.User(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "U1" || resp["email"] != "alice@club.na" {
		t.Fatalf("unexpected identity: %+v", resp)
	}
	if _, leaked := resp["PasswordHash"]; leaked {
		t.Fatalf("password hash leaked")
	}
}

func TestAuthHandler_User_RequiresSession(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/v1/user", nil), httptest.NewRecorder())

	if code := httpStatus(t, handler.User(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}
