package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/config"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/loan"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, nil))

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func authProtected(t *testing.T) (http.Handler, *loan.Actor) {
	t.Helper()
	var captured loan.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		require.True(t, ok)
		captured = actor
		w.WriteHeader(http.StatusOK)
	})
	mw := AuthMiddleware(config.AuthConfig{Enabled: true, JWTSecret: testSecret}, testLogger)
	return mw(next), &captured
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("valid admin token passes with actor on context", func(t *testing.T) {
		handler, captured := authProtected(t)

		tokenString := signToken(t, jwt.MapClaims{
			"memberId": 99,
			"role":     "admin",
			"exp":      time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodPost, "/loans/1/actions/approve", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, loan.Actor{MemberID: 99, Role: loan.RoleAdmin}, *captured)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		handler, _ := authProtected(t)

		req := httptest.NewRequest(http.MethodPost, "/loans/1/actions/approve", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		handler, _ := authProtected(t)

		req := httptest.NewRequest(http.MethodPost, "/loans/1/actions/approve", nil)
		req.Header.Set("Authorization", "Token abc")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong signature is rejected", func(t *testing.T) {
		handler, _ := authProtected(t)

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"memberId": 99,
			"role":     "admin",
			"exp":      time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte("some-other-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/loans/1/actions/approve", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		handler, _ := authProtected(t)

		tokenString := signToken(t, jwt.MapClaims{
			"memberId": 99,
			"role":     "admin",
			"exp":      time.Now().Add(-time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodPost, "/loans/1/actions/approve", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		handler, _ := authProtected(t)

		tokenString := signToken(t, jwt.MapClaims{
			"memberId": 99,
			"role":     "superuser",
			"exp":      time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodPost, "/loans/1/actions/approve", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("disabled auth passes everything through", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		mw := AuthMiddleware(config.AuthConfig{Enabled: false}, testLogger)

		req := httptest.NewRequest(http.MethodGet, "/loans/1", nil)
		rr := httptest.NewRecorder()
		mw(next).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
