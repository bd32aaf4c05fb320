package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/config"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/loan"
)

type actorContextKey struct{}

// ActorFromContext returns the authenticated actor placed by AuthMiddleware.
func ActorFromContext(ctx context.Context) (loan.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(loan.Actor)
	return actor, ok
}

// WithActor is used by handler tests to inject an actor without a token.
func WithActor(ctx context.Context, actor loan.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// AuthMiddleware validates the bearer token and stores the actor identity
// (member id and role claims) on the request context.
func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorFromJWT(r, cfg.JWTSecret, logger)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":{"message":"Unauthorized"}}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func actorFromJWT(r *http.Request, secret string, logger *slog.Logger) (loan.Actor, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		logger.Warn("AuthMiddleware: Missing Authorization header")
		return loan.Actor{}, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		logger.Warn("AuthMiddleware: Invalid Authorization header format")
		return loan.Actor{}, false
	}
	tokenString := parts[1]

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			logger.Warn("AuthMiddleware: Unexpected signing method")
			return nil, http.ErrAbortHandler
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		logger.Warn("AuthMiddleware: Invalid token", "error", err)
		return loan.Actor{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		logger.Warn("AuthMiddleware: Unexpected claims type")
		return loan.Actor{}, false
	}

	memberID, _ := claims["memberId"].(float64)
	roleStr, _ := claims["role"].(string)

	var role loan.Role
	switch roleStr {
	case string(loan.RoleAdmin):
		role = loan.RoleAdmin
	case string(loan.RoleMember):
		role = loan.RoleMember
	default:
		logger.Warn("AuthMiddleware: Token missing a known role claim", "role", roleStr)
		return loan.Actor{}, false
	}

	return loan.Actor{MemberID: int64(memberID), Role: role}, true
}
