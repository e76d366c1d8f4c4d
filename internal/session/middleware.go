package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey struct{}

// Session is the cart binding resolved for one request.
type Session struct {
	CartToken string
	// Source names the header the token came from.
	Source string
}

// Middleware resolves the shopper's cart token and stores it in the request
// context. Paths under requiredPrefix are rejected with 400 when no valid
// token is present; other paths pass through unchanged.
func Middleware(requiredPrefix string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			required := requiredPrefix != "" && strings.HasPrefix(r.URL.Path, requiredPrefix)

			sess, err := fromRequest(r)
			if err != nil {
				logger.Warn("invalid session header",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				if required {
					writeSessionError(w, "Invalid "+Header+" header: "+err.Error())
					return
				}
			}
			if sess == nil {
				if required {
					writeSessionError(w, Header+" or "+CartTokenHeader+" header is required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if v, err := FormatHeader(sess.CartToken); err == nil {
				w.Header().Set(Header, v)
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func fromRequest(r *http.Request) (*Session, error) {
	if h := r.Header.Get(Header); h != "" {
		token, err := ParseHeader(h)
		if err != nil {
			return nil, err
		}
		return &Session{CartToken: token, Source: Header}, nil
	}
	if token := strings.TrimSpace(r.Header.Get(CartTokenHeader)); token != "" {
		return &Session{CartToken: token, Source: CartTokenHeader}, nil
	}
	return nil, nil
}

func writeSessionError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = "SESSION_REQUIRED"
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}

// WithSession returns ctx carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored by Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}
