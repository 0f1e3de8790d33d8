package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/utilities"
)

// SessionCookie is read when no Authorization header is sent.
const SessionCookie = "__session"

// SubjectHandler receives the verified subject of the request.
type SubjectHandler func(w http.ResponseWriter, r *http.Request, subjectID string)

// Gate rejects requests without a valid session before the wrapped handler runs.
type Gate struct {
	verifier TokenVerifier
	logger   *zap.SugaredLogger
}

func NewGate(v TokenVerifier, logger *zap.SugaredLogger) *Gate {
	return &Gate{verifier: v, logger: logger}
}

// Authenticate returns the subject of the request credential.
func (g *Gate) Authenticate(r *http.Request) (string, error) {
	return g.verifier.Verify(r.Context(), credential(r))
}

func (g *Gate) Wrap(next SubjectHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, err := g.Authenticate(r)
		if err != nil {
			utilities.LoggerFrom(r.Context(), g.logger).Debugw("unauthenticated request", "path", r.URL.Path, "reason", err)
			writeUnauthorized(w)
			return
		}
		next(w, r, sub)
	})
}

// Require is Wrap for plain handlers; the subject is read back with SubjectFromContext.
func (g *Gate) Require(next http.Handler) http.Handler {
	return g.Wrap(func(w http.ResponseWriter, r *http.Request, subjectID string) {
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subjectID)))
	})
}

type subjectCtxKey struct{}

func WithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectCtxKey{}, subjectID)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectCtxKey{}).(string)
	return s, ok && s != ""
}

func credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > len("bearer ") && strings.EqualFold(h[:len("bearer ")], "bearer ") {
			return strings.TrimSpace(h[len("bearer "):])
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "code": "UNAUTHORIZED"})
}
