package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/auth"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/shared"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) TouchLogin(ctx context.Context, userID int64) error {
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "test-secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager)
	return handler, sessionManager
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{
		ID:           1,
		Email:        "user@test.local",
		Name:         "Test User",
		PasswordHash: string(hashed),
		IsActive:     true,
		Roles:        []string{"member"},
	}
}

func postLogin(t *testing.T, handler http.Handler, sessionManager *shared.SessionManager, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestLoginSuccessSetsSessionCookie(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass")}
	handler, sessionManager := newAuthHandler(t, repo)

	res := postLogin(t, http.HandlerFunc(handlerLogin(handler)), sessionManager,
		`{"email":"user@test.local","password":"correctpass"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		ID    int64    `json:"id"`
		Roles []string `json:"roles"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != 1 || len(payload.Roles) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	cookies := res.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == sessionManager.CookieName() && c.Value != "" {
			found = true
			if len(repo.sessions) != 1 {
				t.Fatalf("expected session registered in repo")
			}
		}
	}
	if !found {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: activeUser(t, "correctpass")})

	res := postLogin(t, http.HandlerFunc(handlerLogin(handler)), sessionManager,
		`{"email":"user@test.local","password":"wrongpassword"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "correctpass")
	user.IsActive = false
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: user})

	res := postLogin(t, http.HandlerFunc(handlerLogin(handler)), sessionManager,
		`{"email":"user@test.local","password":"correctpass"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestLoginMalformedBody(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	res := postLogin(t, http.HandlerFunc(handlerLogin(handler)), sessionManager, `{"email":`)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}

func TestProfileCarriesIdentityFields(t *testing.T) {
	svc := auth.NewService(&stubRepo{})
	born := time.Date(1990, time.March, 12, 0, 0, 0, 0, time.UTC)
	user := &auth.User{
		ID:            4,
		Email:         "verified@test.local",
		EmailVerified: true,
		Name:          "Vera",
		Phone:         "+15550100",
		BirthDate:     &born,
		Roles:         []string{"member"},
	}

	p := svc.Profile(user)

	if !p.EmailVerified {
		t.Fatal("expected email verification to carry over")
	}
	if p.Phone != user.Phone {
		t.Fatalf("profile phone = %q, want %q", p.Phone, user.Phone)
	}
	if p.BirthDate == nil || !p.BirthDate.Equal(born) {
		t.Fatalf("profile birth date = %v, want %v", p.BirthDate, born)
	}
}

// handlerLogin routes through the real mux so the test exercises MountRoutes.
func handlerLogin(h *auth.Handler) http.HandlerFunc {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r.ServeHTTP
}
