package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestSessionsRoundTrip(t *testing.T) {
	s, err := NewSessions(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}

	token, err := s.Issue("sub-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	userID, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != "sub-42" {
		t.Errorf("userID = %q, want %q", userID, "sub-42")
	}
}

func TestSessionsRejectsWeakSecret(t *testing.T) {
	if _, err := NewSessions([]byte("short"), time.Hour); !errors.Is(err, ErrWeakSecret) {
		t.Errorf("error = %v, want ErrWeakSecret", err)
	}
}

func TestSessionsRejectsTampered(t *testing.T) {
	s, err := NewSessions(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}
	token, err := s.Issue("sub-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := s.Verify(tampered); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("tampered token error = %v, want ErrInvalidSession", err)
	}

	if _, err := s.Verify("not-a-token"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("garbage token error = %v, want ErrInvalidSession", err)
	}
}

func TestSessionsRejectsWrongSecret(t *testing.T) {
	a, _ := NewSessions(testSecret, time.Hour)
	b, _ := NewSessions([]byte(strings.Repeat("z", 32)), time.Hour)

	token, err := a.Issue("sub-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Verify(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("cross-secret verify error = %v, want ErrInvalidSession", err)
	}
}

func TestSessionsRejectsExpired(t *testing.T) {
	s, err := NewSessions(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}

	issued := time.Now()
	s.now = func() time.Time { return issued }
	token, err := s.Issue("sub-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := s.Verify(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expired token error = %v, want ErrInvalidSession", err)
	}
}
