package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/api/handler/dto"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/config"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/loan"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

type AuthHandler struct {
	cfg    config.Config
	logger *slog.Logger
}

func NewAuthHandler(cfg config.Config, l *slog.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:    cfg,
		logger: l.With("component", "AuthHandler"),
	}
}

// GenerateBearerToken issues a JWT carrying the actor identity claims the
// transition authorization rules rely on.
//
// @Summary Generate a JWT bearer token
// @Description Issues a token with memberId and role claims for use against the protected endpoints.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.TokenRequest true "Actor identity"
// @Success 200 {object} map[string]string "Token successfully generated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request parameters"
// @Router /auth/token [post]
func (h *AuthHandler) GenerateBearerToken(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if req.MemberID <= 0 {
		respondError(w, fmt.Errorf("%w: memberId is required", apperrors.ErrInvalidArgument))
		return
	}
	if req.Role != string(loan.RoleAdmin) && req.Role != string(loan.RoleMember) {
		respondError(w, fmt.Errorf("%w: role must be %q or %q", apperrors.ErrInvalidArgument, loan.RoleAdmin, loan.RoleMember))
		return
	}

	claims := jwt.MapClaims{
		"memberId": req.MemberID,
		"role":     req.Role,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(h.cfg.Server.Auth.JWTSecret))
	if err != nil {
		h.logger.Error("Failed to sign token", "error", err)
		respondError(w, apperrors.ErrInternalServer)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": fmt.Sprintf("Bearer %s", tokenString)})
}
