package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permissions-manager/internal/db"
	"permissions-manager/internal/db/repository"
	"permissions-manager/internal/domain"
)

type stubValidator struct {
	claims *IdentityClaims
	err    error
}

func (v *stubValidator) Validate(_ context.Context, _ string) (*IdentityClaims, error) {
	return v.claims, v.err
}

// nextHandler records the context principal the middleware resolved.
func nextHandler() (http.Handler, func() (domain.Principal, bool)) {
	var p domain.Principal
	var found bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, found = domain.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return h, func() (domain.Principal, bool) { return p, found }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func claimsWithEmail(email string) *IdentityClaims {
	return &IdentityClaims{Subject: "sub-1", Email: email}
}

func TestAuth_NoBearerToken(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	_ = writeDB
	users := repository.NewUserRepo(readDB)

	next, _ := nextHandler()
	handler := Auth(&stubValidator{claims: claimsWithEmail("a@b.test")}, users, discardLogger())(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/groups", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestAuth_InvalidToken(t *testing.T) {
	_, readDB := db.OpenTestSQLite(t)
	users := repository.NewUserRepo(readDB)

	next, _ := nextHandler()
	handler := Auth(&stubValidator{err: assert.AnError}, users, discardLogger())(next)

	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_KnownUserBecomesPrincipal(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	users := repository.NewUserRepo(writeDB)
	_ = readDB

	created, err := users.Create(context.Background(), &domain.User{Email: "ops@unity.test", IsAdmin: true})
	require.NoError(t, err)

	next, principal := nextHandler()
	handler := Auth(&stubValidator{claims: claimsWithEmail("Ops@Unity.Test")}, users, discardLogger())(next)

	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	p, ok := principal()
	require.True(t, ok)
	assert.Equal(t, created.ID, p.UserID)
	assert.Equal(t, "ops@unity.test", p.Email)
	assert.True(t, p.IsAdmin)
}

func TestAuth_UnknownEmailPassesWithoutRoles(t *testing.T) {
	_, readDB := db.OpenTestSQLite(t)
	users := repository.NewUserRepo(readDB)

	next, principal := nextHandler()
	handler := Auth(&stubValidator{claims: claimsWithEmail("stranger@unity.test")}, users, discardLogger())(next)

	req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	p, ok := principal()
	require.True(t, ok)
	assert.Zero(t, p.UserID)
	assert.False(t, p.IsAdmin)
	assert.Equal(t, "stranger@unity.test", p.Email)
}

func TestAuth_MissingEmailClaim(t *testing.T) {
	_, readDB := db.OpenTestSQLite(t)
	users := repository.NewUserRepo(readDB)

	next, _ := nextHandler()
	handler := Auth(&stubValidator{claims: &IdentityClaims{Subject: "sub-1"}}, users, discardLogger())(next)

	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHS256Validator_RoundTrip(t *testing.T) {
	validator, err := NewHS256Validator("test-secret")
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"iss":   "local",
		"aud":   "permissions-manager",
		"email": "dev@unity.test",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	claims, err := validator.Validate(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, []string{"permissions-manager"}, claims.Audience)
	assert.Equal(t, "dev@unity.test", claims.Email)
}

func TestHS256Validator_RejectsWrongSecret(t *testing.T) {
	validator, err := NewHS256Validator("right-secret")
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	signed, err := token.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), signed)
	assert.Error(t, err)
}

func TestHS256Validator_RejectsNone(t *testing.T) {
	validator, err := NewHS256Validator("secret")
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), signed)
	assert.Error(t, err)
}
