package middleware

import (
	"context"
	"log"
	"net/http"

	"gdbank/internal/shared/auth"
)

type ContextKey string

const SessionIDKey ContextKey = "session_id"

// SessionCookie names the cookie carrying the signed session token.
const SessionCookie = "gdbank_session"

// Session attaches a session id to every request, issuing a new signed
// cookie when the request carries none or an invalid one.
func Session(tokens *auth.JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(SessionCookie); err == nil {
				if claims, err := tokens.Validate(cookie.Value); err == nil {
					next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), claims.SessionID())))
					return
				}
			}

			token, sessionID, err := tokens.NewSession()
			if err != nil {
				log.Printf("Session issue failed: %v", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// SessionID returns the id stored by Session, or "" outside it.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}
