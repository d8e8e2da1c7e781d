package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
)

// CurrentUserResolver resolves a bearer token; *app.Context satisfies it.
type CurrentUserResolver interface {
	CurrentUser(ctx context.Context, token string) (*domain.Profile, error)
}

type ctxKey int

const (
	callerKey ctxKey = iota
	tokenKey
)

// tokenFromRequest reads "Authorization: Bearer x", falling back to the
// access_token query parameter for EventSource clients.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	return r.URL.Query().Get("access_token")
}

// callerFrom returns the signed-in profile or nil.
func callerFrom(ctx context.Context) *domain.Profile {
	p, _ := ctx.Value(callerKey).(*domain.Profile)
	return p
}

func sessionFrom(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey).(string)
	return s
}

// tokenlessPaths never resolve the token, so a stale one cannot block them.
var tokenlessPaths = map[string]bool{
	"/health":               true,
	"/api/v1/auth/sign-in":  true,
	"/api/v1/auth/sign-out": true,
}

// Authenticate attaches the caller to the request context. Requests
// without a token pass through anonymously; a stale token gets 401.
func Authenticate(users CurrentUserResolver, logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" || tokenlessPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		p, err := users.CurrentUser(r.Context(), token)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		ctx := context.WithValue(r.Context(), callerKey, p)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logging logs each request and turns handler panics into 500s.
func Logging(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if v := recover(); v != nil {
				logger.Error("Handler panic", zap.Any("panic", v), zap.String("path", r.URL.Path))
				rec.WriteHeader(http.StatusInternalServerError)
			}
			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", time.Since(start)),
			)
		}()
		next.ServeHTTP(rec, r)
	})
}
