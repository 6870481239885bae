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

	"github.com/school-records/records-api/internal/api/middleware"
	"github.com/school-records/records-api/internal/core/domain"
	"github.com/school-records/records-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	lookupFn   func(ctx context.Context, username string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Lookup(ctx context.Context, username string) (*domain.User, error) {
	return s.lookupFn(ctx, username)
}

func (s *stubAuthService) Bootstrap(context.Context, ports.AdminAccount) error { return nil }

func newJSONContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Username != "alice" || in.Role != "student" || in.StudentID != "S1" || in.Password != "secret1" {
				t.Fatalf("unexpected args: %+v", in)
			}
			return &domain.User{Username: in.Username, PasswordHash: "$2a$10$hash", Principal: domain.StudentPrincipal("S1")}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/auth/register",
		`{"username":"alice","password":"secret1","role":"student","student_id":"S1","teacher_id":""}`)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	resp := decodeBody(t, rec)
	if resp["username"] != "alice" || resp["role"] != "student" || resp["student_id"] != "S1" {
		t.Fatalf("unexpected user payload: %+v", resp)
	}
	if _, ok := resp["teacher_id"]; ok {
		t.Fatalf("absent linkage should be omitted: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_ServiceErrorsPropagate(t *testing.T) {
	for _, want := range []error{domain.ErrDuplicateUser, domain.ErrInvalidLinkage, domain.ErrStoreUnavailable} {
		stub := &stubAuthService{
			registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
				return nil, want
			},
		}
		c, _ := newJSONContext(http.MethodPost, "/auth/register", `{"username":"bob","password":"p","role":"student"}`)

		if err := NewAuthHandler(stub).Register(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	for _, body := range []string{"not-json", `{"username":"bob","role":"admin"}`, `{"password":"p","role":"admin"}`} {
		c, _ := newJSONContext(http.MethodPost, "/auth/register", body)
		err := handler.Register(c)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("body %q: expected ErrInvalidInput, got %v", body, err)
		}
	}
}

func TestAuthHandler_Register_ValidationNamesField(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, _ := newJSONContext(http.MethodPost, "/auth/register", `{"username":"bob","role":"admin"}`)
	err := handler.Register(c)
	if err == nil || !strings.Contains(err.Error(), "password is required") {
		t.Fatalf("expected field detail in error, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			if username != "alice" || password != "secret1" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &ports.LoginResult{Token: "token123", TokenType: ports.TokenTypeBearer}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/auth/login", `{"username":"alice","password":"secret1"}`)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decodeBody(t, rec)
	if resp["token"] != "token123" || resp["token_type"] != "bearer" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newJSONContext(http.MethodPost, "/auth/login", `{"username":"alice","password":"bad"}`)

	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	for _, body := range []string{"{", `{"username":"alice"}`} {
		c, _ := newJSONContext(http.MethodPost, "/auth/login", body)
		if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("body %q: expected ErrInvalidInput, got %v", body, err)
		}
	}
}

func TestAuthHandler_Me(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, rec := newJSONContext(http.MethodGet, "/auth/me", "")
	middleware.SetIdentity(c, domain.Identity{Username: "bob", Principal: domain.TeacherPrincipal("T7")})

	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decodeBody(t, rec)
	if resp["username"] != "bob" || resp["role"] != "teacher" || resp["teacher_id"] != "T7" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Me_WithoutGuard(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, _ := newJSONContext(http.MethodGet, "/auth/me", "")
	if err := handler.Me(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthHandler_GetUser(t *testing.T) {
	stub := &stubAuthService{
		lookupFn: func(ctx context.Context, username string) (*domain.User, error) {
			if username != "alice" {
				return nil, domain.ErrUserNotFound
			}
			return &domain.User{Username: "alice", PasswordHash: "x", Principal: domain.StudentPrincipal("S1")}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodGet, "/auth/users/alice", "")
	c.SetParamNames("username")
	c.SetParamValues("alice")
	if err := handler.GetUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if resp := decodeBody(t, rec); resp["student_id"] != "S1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}

	c, _ = newJSONContext(http.MethodGet, "/auth/users/ghost", "")
	c.SetParamNames("username")
	c.SetParamValues("ghost")
	if err := handler.GetUser(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
