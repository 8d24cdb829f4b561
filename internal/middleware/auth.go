package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/augenstern326/star-exchange/configs"
	"github.com/augenstern326/star-exchange/internal/httputil"
	"github.com/augenstern326/star-exchange/internal/logger"
	"github.com/augenstern326/star-exchange/internal/models"
)

const (
	UserIDContextKey = "userID"
	RoleContextKey   = "userRole"
)

func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid authorization header")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(configs.AppConfig.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token claims")
			return
		}

		sub, ok := claims["sub"].(float64)
		if !ok {
			logger.Log.Error("jwt subject missing or wrong type")
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token payload")
			return
		}
		role, _ := claims["role"].(string)

		ctx := context.WithValue(r.Context(), UserIDContextKey, uint(sub))
		ctx = context.WithValue(ctx, RoleContextKey, models.Role(role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParentOnly guards parent-initiated mutations. Must run after Authenticated.
func ParentOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(RoleContextKey).(models.Role)
		if role != models.RoleParent {
			httputil.WriteError(w, http.StatusForbidden, "forbidden", "parent account required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserID extracts the authenticated account id from the request context.
func UserID(r *http.Request) (uint, bool) {
	id, ok := r.Context().Value(UserIDContextKey).(uint)
	return id, ok
}
