package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/quillchat/quill/internal/auth"
	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/web/handlers"
)

func newTestSessions(t *testing.T) *auth.Sessions {
	t.Helper()
	sessions, err := auth.NewSessions([]byte(strings.Repeat("k", 32)), time.Hour)
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}
	return sessions
}

func TestRequireSession(t *testing.T) {
	sessions := newTestSessions(t)
	var gotUserID string
	handler := RequireSession(sessions, log.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = handlers.UserID(r.Context())
	}))

	t.Run("valid cookie", func(t *testing.T) {
		token, err := sessions.Issue("sub-1")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
		if gotUserID != "sub-1" {
			t.Errorf("user in context = %q", gotUserID)
		}
	})

	t.Run("missing cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("garbage cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "garbage"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(log.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestLoggingWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	var flushed bool
	handler := LoggingMiddleware(log.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer lost Flusher")
		}
		f.Flush()
		flushed = rec.Flushed
	}))

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !flushed {
		t.Error("flush did not reach the underlying writer")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0.001), 2)
	handler := RateLimitMiddleware(limiter, log.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}
