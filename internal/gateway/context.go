package gateway

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
)

type contextKey string

const (
	credentialsKey contextKey = "gateway.credentials"
	authSignalKey  contextKey = "gateway.auth_signal"
)

// Credentials are forwarded verbatim to the remote services.
type Credentials struct {
	Authorization string
	Cookie        string
}

// CredentialsFromRequest copies the headers the clinic services authenticate with.
// Cookies named in omit stay behind; the rest are forwarded as sent.
func CredentialsFromRequest(r *http.Request, omit ...string) Credentials {
	return Credentials{
		Authorization: r.Header.Get("Authorization"),
		Cookie:        stripCookies(r.Header.Get("Cookie"), omit),
	}
}

func stripCookies(header string, omit []string) string {
	if header == "" || len(omit) == 0 {
		return header
	}
	kept := make([]string, 0, strings.Count(header, ";")+1)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, _, _ := strings.Cut(part, "=")
		if slices.Contains(omit, strings.TrimSpace(name)) {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "; ")
}

// WithCredentials attaches credentials to ctx for every gateway call made with it.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

func credentialsFrom(ctx context.Context) Credentials {
	if creds, ok := ctx.Value(credentialsKey).(Credentials); ok {
		return creds
	}
	return Credentials{}
}

// AuthSignal is raised when any call made within a request is rejected with 401/403.
// It is safe for concurrent use by fan-out lookups.
type AuthSignal struct {
	raised atomic.Bool
}

func (s *AuthSignal) Raise() {
	if s != nil {
		s.raised.Store(true)
	}
}

func (s *AuthSignal) Raised() bool {
	return s != nil && s.raised.Load()
}

// WithAuthSignal returns a context carrying a fresh signal.
func WithAuthSignal(ctx context.Context) (context.Context, *AuthSignal) {
	signal := &AuthSignal{}
	return context.WithValue(ctx, authSignalKey, signal), signal
}

// AuthSignalFrom returns the request's signal, or nil if none was attached.
func AuthSignalFrom(ctx context.Context) *AuthSignal {
	signal, _ := ctx.Value(authSignalKey).(*AuthSignal)
	return signal
}
