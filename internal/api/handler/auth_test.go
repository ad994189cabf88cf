package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/skylift/skylift/internal/api/handler"
	"github.com/skylift/skylift/internal/idp"
	"github.com/skylift/skylift/internal/model"
	"github.com/skylift/skylift/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newNullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models...))
	return db
}

type authEnv struct {
	handler *handler.AuthHandler
	ledger  *session.Ledger
	db      *gorm.DB
}

func newAuthEnv(t *testing.T) authEnv {
	t.Helper()
	db := newTestDB(t, &model.User{}, &model.UserSession{})
	log := newNullLogger()
	ledger := session.NewLedger(session.NewGormStore(db), time.Hour, log)
	provider := idp.NewJWT("test-secret", time.Hour, log)
	return authEnv{
		handler: handler.NewAuthHandler(db, ledger, provider, provider),
		ledger:  ledger,
		db:      db,
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeTokens(t *testing.T, body *bytes.Buffer) (accessToken, sessionToken string) {
	t.Helper()
	var doc struct {
		Data struct {
			Attributes map[string]string `json:"attributes"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&doc))
	return doc.Data.Attributes["access_token"], doc.Data.Attributes["session_token"]
}

func TestRegister_CreatesProfileAndSession(t *testing.T) {
	env := newAuthEnv(t)

	w := postJSON(t, env.handler.Register, "/api/v1/auth/register",
		`{"email":"new@example.com","password":"secret123","first_name":"New","last_name":"User"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	accessToken, sessionToken := decodeTokens(t, w.Body)
	assert.NotEmpty(t, accessToken)
	require.NotEmpty(t, sessionToken)

	var u model.User
	require.NoError(t, env.db.First(&u, "email = ?", "new@example.com").Error)
	assert.Equal(t, "New", u.FirstName)
	assert.True(t, u.IsActive)

	id, err := env.ledger.Authenticate(t.Context(), sessionToken)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, u.ID, id.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newAuthEnv(t)
	body := `{"email":"dup@example.com","password":"secret123"}`

	require.Equal(t, http.StatusCreated, postJSON(t, env.handler.Register, "/api/v1/auth/register", body).Code)
	assert.Equal(t, http.StatusConflict, postJSON(t, env.handler.Register, "/api/v1/auth/register", body).Code)
}

func TestRegister_MissingFields(t *testing.T) {
	env := newAuthEnv(t)
	w := postJSON(t, env.handler.Register, "/api/v1/auth/register", `{"email":"x@example.com"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLogin_RoundTrip(t *testing.T) {
	env := newAuthEnv(t)
	require.Equal(t, http.StatusCreated, postJSON(t, env.handler.Register, "/api/v1/auth/register",
		`{"email":"u@example.com","password":"secret123"}`).Code)

	w := postJSON(t, env.handler.Login, "/api/v1/auth/login",
		`{"email":"u@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	_, sessionToken := decodeTokens(t, w.Body)
	assert.NotEmpty(t, sessionToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newAuthEnv(t)
	require.Equal(t, http.StatusCreated, postJSON(t, env.handler.Register, "/api/v1/auth/register",
		`{"email":"u@example.com","password":"secret123"}`).Code)

	w := postJSON(t, env.handler.Login, "/api/v1/auth/login",
		`{"email":"u@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newAuthEnv(t)
	w := postJSON(t, env.handler.Register, "/api/v1/auth/register",
		`{"email":"u@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	_, sessionToken := decodeTokens(t, w.Body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	rec := httptest.NewRecorder()
	env.handler.Logout(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	id, err := env.ledger.Authenticate(t.Context(), sessionToken)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestPasswordReset_AlwaysAccepted(t *testing.T) {
	env := newAuthEnv(t)
	w := postJSON(t, env.handler.PasswordReset, "/api/v1/auth/password-reset",
		`{"email":"whoever@example.com"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}
