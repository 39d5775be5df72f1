package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

const sessionIssuer = "clinic-order-portal"

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure bool
	Logger *logging.Logger
}

// Session binds every request to a session id carried in an HS256-signed cookie. A
// missing, tampered or expired cookie starts a new session.
func Session(cfg SessionConfig) (func(http.Handler) http.Handler, error) {
	if cfg.Secret == "" {
		return nil, errors.New("middleware: session secret required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "order_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	key := []byte(cfg.Secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil && c.Value != "" {
				id, err := parseSessionToken(c.Value, key)
				if err != nil {
					logger.Debug("rejecting session cookie", "error", err)
				} else {
					sessionID = id
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				token, expires, err := signSessionToken(sessionID, key, cfg.TTL)
				if err != nil {
					logger.Error("failed to sign session cookie", "error", err)
					http.Error(w, "session unavailable", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					Expires:  expires,
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}, nil
}

func signSessionToken(sessionID string, key []byte, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	return signed, expires, err
}

func parseSessionToken(raw string, key []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return key, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenSignatureInvalid
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("middleware: malformed session id")
	}
	return claims.Subject, nil
}

// WithSessionID stores a session id on ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the session id set by Session.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}
