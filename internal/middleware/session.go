package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const SessionIDKey contextKey = "session_id"

const sessionCookieName = "dh_session"

// Session issues and validates anonymous browser sessions. There are no
// user accounts; a signed JWT cookie names the session row that OAuth
// tokens, jobs and cached tips hang off.
type Session struct {
	Secret []byte
}

func NewSession(secret string) *Session {
	return &Session{Secret: []byte(secret)}
}

// Middleware attaches the session ID from the cookie to the request
// context, minting a fresh session when the cookie is missing, expired, or
// tampered with. Every request gets a valid session.
func (s *Session) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := s.sessionFromRequest(r)
		if !ok {
			sessionID = uuid.New()
			if tokenStr, err := s.sign(sessionID); err == nil {
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookieName,
					Value:    tokenStr,
					Path:     "/",
					MaxAge:   int((30 * 24 * time.Hour).Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
		}

		ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Session) sessionFromRequest(r *http.Request) (uuid.UUID, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return uuid.Nil, false
	}
	return s.Parse(cookie.Value)
}

// Parse verifies a signed session token and returns the session ID.
func (s *Session) Parse(tokenStr string) (uuid.UUID, bool) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return uuid.Nil, jwt.ErrSignatureInvalid
		}
		return s.Secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, false
	}

	sidStr, ok := claims["sid"].(string)
	if !ok {
		return uuid.Nil, false
	}

	sid, err := uuid.Parse(sidStr)
	if err != nil {
		return uuid.Nil, false
	}
	return sid, true
}

func (s *Session) sign(sessionID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sid": sessionID.String(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(30 * 24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// GetSessionID extracts the session ID from request context
func GetSessionID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(SessionIDKey).(uuid.UUID)
	return id
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
