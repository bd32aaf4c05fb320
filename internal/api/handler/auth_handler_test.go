package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/config"
)

func newAuthHandler() *AuthHandler {
	cfg := config.Config{}
	cfg.Server.Auth.JWTSecret = "test-secret"
	return NewAuthHandler(cfg, logger)
}

func TestGenerateBearerToken(t *testing.T) {
	t.Run("issues token with identity claims", func(t *testing.T) {
		h := newAuthHandler()

		body := `{"memberId":42,"role":"admin"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		h.GenerateBearerToken(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.True(t, strings.HasPrefix(resp["token"], "Bearer "))

		tokenString := strings.TrimPrefix(resp["token"], "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		require.NoError(t, err)
		require.True(t, token.Valid)

		claims := token.Claims.(jwt.MapClaims)
		assert.Equal(t, float64(42), claims["memberId"])
		assert.Equal(t, "admin", claims["role"])
		assert.NotNil(t, claims["exp"])
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		h := newAuthHandler()

		body := `{"memberId":42,"role":"superuser"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		h.GenerateBearerToken(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects missing member id", func(t *testing.T) {
		h := newAuthHandler()

		body := `{"role":"member"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		h.GenerateBearerToken(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
