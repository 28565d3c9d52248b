package refresh_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"notes_service/internal/auth"
	"notes_service/internal/http_server/handlers/login"
	"notes_service/internal/http_server/handlers/refresh"
	"notes_service/internal/http_server/handlers/register"
	"notes_service/internal/lib/jwt"
	"notes_service/internal/lib/validation"
	"notes_service/internal/models"
	"notes_service/internal/storage"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStorage struct {
	mu      sync.Mutex
	byEmail map[string]models.User
	byID    map[uuid.UUID]models.User
}

func (f *fakeUserStorage) SaveUser(_ context.Context, email string, passHash []byte) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.byEmail[email]; exists {
		return uuid.Nil, storage.ErrUserExists
	}

	u := models.User{ID: uuid.New(), Email: email, PassHash: passHash}
	f.byEmail[email] = u
	f.byID[u.ID] = u

	return u.ID, nil
}

func (f *fakeUserStorage) User(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byEmail[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStorage) UserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

type fakeTokenStore struct {
	mu   sync.Mutex
	recs map[string]models.RefreshToken
}

func (f *fakeTokenStore) SaveRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recs[userID.String()+":"+tokenHash] = models.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeTokenStore) ConsumeRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string) (models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := userID.String() + ":" + tokenHash

	rec, ok := f.recs[k]
	if !ok {
		return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
	}
	delete(f.recs, k)

	return rec, nil
}

func newTestRouter(t *testing.T) (*chi.Mux, *jwt.Manager) {
	t.Helper()

	secret := base64.StdEncoding.EncodeToString([]byte("test-signing-secret"))
	tokens, err := jwt.New(secret, 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	users := &fakeUserStorage{byEmail: map[string]models.User{}, byID: map[uuid.UUID]models.User{}}
	store := &fakeTokenStore{recs: map[string]models.RefreshToken{}}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	validate := validation.New()

	authService := auth.New(log, users, users, store, tokens)

	r := chi.NewRouter()
	r.Post("/auth/register", register.New(log, validate, authService, nil))
	r.Post("/auth/login", login.New(log, validate, authService))
	r.Post("/auth/refresh", refresh.New(log, validate, authService))

	return r, tokens
}

func post(t *testing.T, router *chi.Mux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

type tokenResponse struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func TestAuthFlow(t *testing.T) {
	router, tokens := newTestRouter(t)

	// register
	rec := post(t, router, "/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "Abcdef123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var regResp struct {
		Status string `json:"status"`
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regResp))
	assert.Equal(t, "OK", regResp.Status)
	require.NotEmpty(t, regResp.UserID)

	// login
	rec = post(t, router, "/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "Abcdef123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var loginResp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.AccessToken)
	require.NotEmpty(t, loginResp.RefreshToken)

	// refresh
	rec = post(t, router, "/auth/refresh", map[string]string{
		"refresh_token": loginResp.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshResp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshResp))
	require.NotEmpty(t, refreshResp.AccessToken)
	require.NotEmpty(t, refreshResp.RefreshToken)

	claims, err := tokens.Verify(refreshResp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, regResp.UserID, claims.Subject)

	// повторный обмен исходного refresh токена отклоняется
	rec = post(t, router, "/auth/refresh", map[string]string{
		"refresh_token": loginResp.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var replayResp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replayResp))
	assert.Equal(t, "refresh token is not recognised (maybe used or expired).", replayResp.Error)
}

func TestRefresh_InvalidToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := post(t, router, "/auth/refresh", map[string]string{
		"refresh_token": "garbage",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid refresh token.", resp.Error)
}

func TestRefresh_MissingToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := post(t, router, "/auth/refresh", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_Validation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "bad email", email: "not-an-email", password: "Abcdef123"},
		{name: "too short", email: "a@b.com", password: "Abc123"},
		{name: "no uppercase", email: "a@b.com", password: "abcdef123"},
		{name: "no digit", email: "a@b.com", password: "Abcdefghi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, router, "/auth/register", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	router, _ := newTestRouter(t)

	body := map[string]string{"email": "a@b.com", "password": "Abcdef123"}

	rec := post(t, router, "/auth/register", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, router, "/auth/register", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := post(t, router, "/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "Abcdef123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// обе причины отказа выглядят одинаково
	for _, body := range []map[string]string{
		{"email": "a@b.com", "password": "WrongPass1"},
		{"email": "nobody@b.com", "password": "Abcdef123"},
	} {
		rec = post(t, router, "/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp tokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Invalid credentials", resp.Error)
	}
}
