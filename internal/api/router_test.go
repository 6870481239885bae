package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/school-records/records-api/internal/core/domain"
	"github.com/school-records/records-api/internal/core/ports"
	"github.com/school-records/records-api/internal/core/service"
	"github.com/school-records/records-api/internal/infrastructure/security"
)

const testSecret = "router-test-secret"

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.User)}
}

func (r *memoryUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *memoryUserRepo) Insert(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return nil, domain.ErrDuplicateUser
	}
	u := *user
	u.ID = "id-" + u.Username
	r.users[u.Username] = u
	return &u, nil
}

func (r *memoryUserRepo) CountAdmins(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.Principal.IsAdmin() {
			n++
		}
	}
	return n, nil
}

type testServer struct {
	e *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	hasher, err := security.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := security.NewTokenCodec(security.TokenConfig{Secret: testSecret, TTL: time.Hour})
	require.NoError(t, err)

	svc := service.NewAuthService(newMemoryUserRepo(), hasher, tokens, nil, zerolog.Nop())
	require.NoError(t, svc.Bootstrap(context.Background(), ports.AdminAccount{Username: "admin", Password: "admin"}))

	return &testServer{
		e: NewRouter(Dependencies{
			Auth:   svc,
			Tokens: tokens,
			Logger: zerolog.Nop(),
		}),
	}
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.do(http.MethodPost, "/auth/login", `{"username":"`+username+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_RegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register",
		`{"username":"alice","password":"pw1","role":"student","student_id":"S1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"username": "alice", "role": "student", "student_id": "S1"}, decode(t, rec))
	assert.NotContains(t, rec.Body.String(), "password")

	token := s.login(t, "alice", "pw1")

	rec = s.do(http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"username": "alice", "role": "student", "student_id": "S1"}, decode(t, rec))
}

func TestRouter_RegisterErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register", `{"username":"bob","password":"pw","role":"teacher","teacher_id":"T1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate", `{"username":"bob","password":"other","role":"teacher","teacher_id":"T2"}`, http.StatusConflict},
		{"both linkage fields", `{"username":"carol","password":"pw","role":"student","student_id":"S1","teacher_id":"T1"}`, http.StatusBadRequest},
		{"missing linkage", `{"username":"carol","password":"pw","role":"student"}`, http.StatusBadRequest},
		{"unknown role", `{"username":"carol","password":"pw","role":"janitor"}`, http.StatusBadRequest},
		{"missing password", `{"username":"carol","role":"admin"}`, http.StatusBadRequest},
		{"not json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/auth/register", tt.body, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestRouter_LoginFailuresIndistinguishable(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/auth/register", `{"username":"alice","password":"pw1","role":"student","student_id":"S1"}`, "")

	wrong := s.do(http.MethodPost, "/auth/login", `{"username":"alice","password":"nope"}`, "")
	unknown := s.do(http.MethodPost, "/auth/login", `{"username":"ghost","password":"nope"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestRouter_AccessGuard(t *testing.T) {
	s := newTestServer(t)

	other, err := security.NewTokenCodec(security.TokenConfig{Secret: "someone-else", TTL: time.Hour})
	require.NoError(t, err)
	forged, _, err := other.Issue(domain.Identity{Username: "admin", Principal: domain.AdminPrincipal()})
	require.NoError(t, err)

	expiredCodec, err := security.NewTokenCodec(security.TokenConfig{Secret: testSecret, TTL: time.Nanosecond})
	require.NoError(t, err)
	expired, _, err := expiredCodec.Issue(domain.Identity{Username: "admin", Principal: domain.AdminPrincipal()})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic YWRtaW46YWRtaW4=", http.StatusUnauthorized},
		{"malformed token", "Bearer not-a-token", http.StatusBadRequest},
		{"foreign signature", "Bearer " + forged, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			s.e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_AdminLookup(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/auth/register", `{"username":"alice","password":"pw1","role":"student","student_id":"S1"}`, "")

	studentToken := s.login(t, "alice", "pw1")
	rec := s.do(http.MethodGet, "/auth/users/alice", "", studentToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := s.login(t, "admin", "admin")
	rec = s.do(http.MethodGet, "/auth/users/alice", "", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "S1", decode(t, rec)["student_id"])

	rec = s.do(http.MethodGet, "/auth/users/ghost", "", adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/ready", "", "").Code)

	metrics := s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "school_http_request_duration_seconds")

	notFound := s.do(http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, notFound.Code)
	assert.NotEmpty(t, decode(t, notFound)["error"])
}
