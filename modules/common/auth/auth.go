package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"reelcraft-server/modules/common/utils"
)

// ErrInvalidToken - missing, malformed, expired or wrongly signed token
var ErrInvalidToken = errors.New("invalid token")

// Claims - Supabase access token claims
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// User - authenticated caller
type User struct {
	ID    string
	Email string
}

type ctxKey struct{}

// ParseToken - verify an HS256 Supabase token and return its user
func ParseToken(secret, tokenString string) (*User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &User{ID: claims.Subject, Email: claims.Email}, nil
}

// Middleware - require a valid bearer token
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(header, "Bearer ")
			if header == "" || tokenString == header {
				utils.WriteError(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "missing bearer token")
				return
			}

			user, err := ParseToken(secret, tokenString)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser - attach the caller to ctx
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext - nil outside authenticated routes
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(ctxKey{}).(*User)
	return user
}
