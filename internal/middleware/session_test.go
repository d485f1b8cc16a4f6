package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSessionMiddleware_MintsSessionForNewVisitor(t *testing.T) {
	s := NewSession("test-secret")

	var captured uuid.UUID
	handler := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetSessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if captured == uuid.Nil {
		t.Error("Expected a session ID in context for a cookieless request")
	}

	cookies := rr.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == "dh_session" {
			found = true
			if !c.HttpOnly {
				t.Error("Session cookie should be HttpOnly")
			}
			if sid, ok := s.Parse(c.Value); !ok || sid != captured {
				t.Error("Cookie does not round-trip to the context session ID")
			}
		}
	}
	if !found {
		t.Error("Expected a session cookie to be set")
	}
}

func TestSessionMiddleware_ReusesExistingSession(t *testing.T) {
	s := NewSession("test-secret")
	sessionID := uuid.New()
	tokenStr, err := s.sign(sessionID)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	var captured uuid.UUID
	handler := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetSessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "dh_session", Value: tokenStr})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if captured != sessionID {
		t.Errorf("Expected session %s to be reused, got %s", sessionID, captured)
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == "dh_session" {
			t.Error("Should not re-issue a cookie for a valid session")
		}
	}
}

func TestSessionMiddleware_RejectsTamperedCookie(t *testing.T) {
	s := NewSession("test-secret")
	other := NewSession("different-secret")
	tokenStr, _ := other.sign(uuid.New())

	var captured uuid.UUID
	handler := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetSessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "dh_session", Value: tokenStr})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if captured == uuid.Nil {
		t.Error("Tampered cookie should still yield a fresh session")
	}
	if sid, ok := other.Parse(tokenStr); ok && sid == captured {
		t.Error("Foreign session ID must not be accepted")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Request %d unexpectedly limited", i+1)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 on third request, got %d", rr.Code)
	}

	// A different IP is unaffected.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Different IP should not be limited, got %d", rr.Code)
	}
}

func TestRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("Expected request ID to be set on the request")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("Expected request ID on the response")
	}

	// Client-supplied IDs pass through.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id-1")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-ID") != "client-id-1" {
		t.Errorf("Expected client request ID to pass through, got %q", rr.Header().Get("X-Request-ID"))
	}
}
