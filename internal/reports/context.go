package reports

import (
	"context"
	"strings"
)

type requestIDKey struct{}

type sessionKey struct{}

// Session identifies the caller and the profile whose reports are addressed.
type Session struct {
	UserID    string
	ProfileID string
}

// Valid reports whether both identifiers are present.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.UserID) != "" && strings.TrimSpace(s.ProfileID) != ""
}

// WithSession attaches the caller session to ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session attached by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// WithRequestID attaches a request ID to the context for logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// detach keeps request id and session but drops cancellation, for work that
// outlives the request.
func detach(ctx context.Context) context.Context {
	out := context.Background()
	if id := requestIDFromContext(ctx); id != "" {
		out = WithRequestID(out, id)
	}
	if s, ok := SessionFromContext(ctx); ok {
		out = WithSession(out, s)
	}
	return out
}
