package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/errors"
)

// authMiddleware requires a valid HMAC-signed bearer token. It protects the
// mutating routes only; read routes stay open.
func authMiddleware(secret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, errors.NewUnauthorizedError("authentication is not configured"))
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, errors.NewUnauthorizedError("missing bearer token"))
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				writeError(w, errors.NewUnauthorizedError("invalid token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IssueToken mints a short-lived token for the mutating routes. Exposed for
// operational tooling.
func IssueToken(secret, subject string, expiry time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(expiry).Unix(),
	})
	return token.SignedString([]byte(secret))
}
