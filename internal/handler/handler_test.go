package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/auth-service/internal/auth"
	"github.com/Dan9191/auth-service/internal/config"
	"github.com/Dan9191/auth-service/internal/models"
	"github.com/Dan9191/auth-service/internal/repository"
	"github.com/Dan9191/auth-service/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory store for endpoint tests.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, users: make(map[int64]*models.User)}
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	user.ID = m.nextID
	m.nextID++
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	found := *u
	return &found, nil
}

func (m *memStore) UpdateUser(_ context.Context, id int64, patch *models.UserPatch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.FullName != nil {
		u.FullName = patch.FullName
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.IsSuperuser != nil {
		u.IsSuperuser = *patch.IsSuperuser
	}
	updated := *u
	return &updated, nil
}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	cfg := &config.Config{
		SuperuserEmail: "admin@example.com",
		SuperuserPass:  "admin",
	}
	store := newMemStore()
	issuer := auth.NewTokenIssuer([]byte("test-secret"), jwt.SigningMethodHS256, 15*time.Minute)
	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := service.NewService(store, issuer, log, cfg)
	require.NoError(t, svc.EnsureSuperuser(context.Background()))

	h := NewHandler(svc, log)
	return NewRouter(h, issuer, store, log)
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func doLogin(t *testing.T, r *mux.Router, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// authHeaders registers the user when needed and returns bearer headers,
// mirroring the usual token-from-email test helper.
func authHeaders(t *testing.T, r *mux.Router, email, fullName, password string) map[string]string {
	t.Helper()

	body := map[string]interface{}{"email": email, "password": password}
	if fullName != "" {
		body["full_name"] = fullName
	}
	rec := doJSON(t, r, http.MethodPost, "/users", body, nil)
	if rec.Code != http.StatusOK {
		require.Equal(t, http.StatusBadRequest, rec.Code, "unexpected registration response: %s", rec.Body.String())
	}

	login := doLogin(t, r, email, password)
	require.Equal(t, http.StatusOK, login.Code, "login failed: %s", login.Body.String())

	var token models.Token
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &token))
	return map[string]string{"Authorization": "Bearer " + token.AccessToken}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestGetRoot(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]interface{}{"message": "Hello World"}, decodeBody(t, rec))
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/users", map[string]interface{}{
		"email":     "josh@example.com",
		"full_name": "Josh Doe",
		"password":  "fake_pass_123",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	// The bootstrap superuser takes id 1.
	require.Equal(t, map[string]interface{}{
		"id":           float64(2),
		"email":        "josh@example.com",
		"full_name":    "Josh Doe",
		"is_active":    true,
		"is_superuser": false,
	}, decodeBody(t, rec))
	require.NotContains(t, rec.Body.String(), "password")
}

func TestCreateUser_IgnoresSuperuserFlag(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/users", map[string]interface{}{
		"email":        "sneaky@example.com",
		"password":     "fake_pass_123",
		"is_superuser": true,
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, decodeBody(t, rec)["is_superuser"])
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	body := map[string]interface{}{"email": "josh@example.com", "password": "fake_pass_123"}

	rec := doJSON(t, r, http.MethodPost, "/users", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/users", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, map[string]interface{}{"detail": "Email already registered"}, decodeBody(t, rec))
}

func TestLoginUser(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/users", map[string]interface{}{
		"email":     "matt@example.com",
		"full_name": "Matt Doe",
		"password":  "fake_pass_123",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	login := doLogin(t, r, "matt@example.com", "fake_pass_123")
	require.Equal(t, http.StatusOK, login.Code)

	body := decodeBody(t, login)
	require.NotEmpty(t, body["access_token"])
	require.Equal(t, "bearer", body["token_type"])
}

func TestLoginUser_UnknownEmail(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	rec := doLogin(t, r, "nobody@example.com", "anything")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	require.Equal(t, map[string]interface{}{"detail": "Incorrect username or password"}, decodeBody(t, rec))
}

func TestLoginUser_FailuresIndistinguishable(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/users", map[string]interface{}{
		"email":    "matt@example.com",
		"password": "fake_pass_123",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	wrongPassword := doLogin(t, r, "matt@example.com", "wrong-password")
	unknownEmail := doLogin(t, r, "nobody@example.com", "anything")

	require.Equal(t, unknownEmail.Code, wrongPassword.Code)
	require.Equal(t, unknownEmail.Body.String(), wrongPassword.Body.String())
	require.Equal(t, unknownEmail.Header().Get("WWW-Authenticate"), wrongPassword.Header().Get("WWW-Authenticate"))
}

func TestGetAuthenticatedActiveUser(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	headers := authHeaders(t, r, "john@example.com", "John Doe", "fake_pass_123")

	rec := doJSON(t, r, http.MethodGet, "/users/me", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]interface{}{
		"id":           float64(2),
		"email":        "john@example.com",
		"full_name":    "John Doe",
		"is_active":    true,
		"is_superuser": false,
	}, decodeBody(t, rec))
}

func TestGetAuthenticatedSuperuser(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	login := doLogin(t, r, "admin@example.com", "admin")
	require.Equal(t, http.StatusOK, login.Code)

	var token models.Token
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &token))

	rec := doJSON(t, r, http.MethodGet, "/users/me", nil, map[string]string{
		"Authorization": "Bearer " + token.AccessToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]interface{}{
		"id":           float64(1),
		"email":        "admin@example.com",
		"full_name":    nil,
		"is_active":    true,
		"is_superuser": true,
	}, decodeBody(t, rec))
}

func TestGetUnauthenticatedUser(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/users/me", nil, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, map[string]interface{}{"detail": "Not authenticated"}, decodeBody(t, rec))
}

func TestGetUserWithInvalidToken(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/users/me", nil, map[string]string{
		"Authorization": "Bearer not.a.jwt",
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, map[string]interface{}{"detail": "Could not validate credentials"}, decodeBody(t, rec))
}

func TestGetUserWithExpiredToken(t *testing.T) {
	t.Parallel()

	// Same secret as newTestRouter, already expired.
	issuer := auth.NewTokenIssuer([]byte("test-secret"), jwt.SigningMethodHS256, 15*time.Minute)
	expired, err := issuer.Issue("admin@example.com", -1*time.Second)
	require.NoError(t, err)

	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/users/me", nil, map[string]string{
		"Authorization": "Bearer " + expired,
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, map[string]interface{}{"detail": "Could not validate credentials"}, decodeBody(t, rec))
}

func TestUpdateUserRequiresSuperuser(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	headers := authHeaders(t, r, "john@example.com", "", "fake_pass_123")

	rec := doJSON(t, r, http.MethodPut, "/users/99", map[string]interface{}{
		"is_active": false,
	}, headers)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, map[string]interface{}{"detail": "The user doesn't have enough privileges"}, decodeBody(t, rec))
}

func TestSetUserAsInactiveWithSuperuser(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	superHeaders := authHeaders(t, r, "admin@example.com", "", "admin")

	rec := doJSON(t, r, http.MethodPost, "/users", map[string]interface{}{
		"email":     "jen@example.com",
		"full_name": "Jen Doe",
		"password":  "fake_pass_123",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := int64(decodeBody(t, rec)["id"].(float64))

	update := doJSON(t, r, http.MethodPut, fmt.Sprintf("/users/%d", id), map[string]interface{}{
		"is_active": false,
	}, superHeaders)
	require.Equal(t, http.StatusOK, update.Code)
	require.Equal(t, map[string]interface{}{
		"id":           float64(id),
		"email":        "jen@example.com",
		"full_name":    "Jen Doe",
		"is_active":    false,
		"is_superuser": false,
	}, decodeBody(t, update))
}

func TestGetInactiveUser(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	superHeaders := authHeaders(t, r, "admin@example.com", "", "admin")
	userHeaders := authHeaders(t, r, "allen@example.com", "Allen Doe", "fake_pass_123")

	rec := doJSON(t, r, http.MethodGet, "/users/me", nil, userHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	id := int64(decodeBody(t, rec)["id"].(float64))

	update := doJSON(t, r, http.MethodPut, fmt.Sprintf("/users/%d", id), map[string]interface{}{
		"is_active": false,
	}, superHeaders)
	require.Equal(t, http.StatusOK, update.Code)

	rec = doJSON(t, r, http.MethodGet, "/users/me", nil, userHeaders)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, map[string]interface{}{"detail": "Inactive user"}, decodeBody(t, rec))
}

func TestUpdateUnknownUser(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	superHeaders := authHeaders(t, r, "admin@example.com", "", "admin")

	rec := doJSON(t, r, http.MethodPut, "/users/999", map[string]interface{}{
		"full_name": "Ghost",
	}, superHeaders)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, map[string]interface{}{
		"detail": "The user with this username does not exist in the system",
	}, decodeBody(t, rec))
}

func TestUpdateUser_PartialFields(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	superHeaders := authHeaders(t, r, "admin@example.com", "", "admin")

	rec := doJSON(t, r, http.MethodPost, "/users", map[string]interface{}{
		"email":     "kim@example.com",
		"full_name": "Kim Doe",
		"password":  "fake_pass_123",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := int64(decodeBody(t, rec)["id"].(float64))

	update := doJSON(t, r, http.MethodPut, fmt.Sprintf("/users/%d", id), map[string]interface{}{
		"full_name": "Kim Smith",
	}, superHeaders)
	require.Equal(t, http.StatusOK, update.Code)

	body := decodeBody(t, update)
	require.Equal(t, "Kim Smith", body["full_name"])
	require.Equal(t, "kim@example.com", body["email"])
	require.Equal(t, true, body["is_active"])
}
