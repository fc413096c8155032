package security

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParseToken_RoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("signing-secret")
	now := time.Now()

	token, err := IssueToken(42, secret, time.Hour, now)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	userID, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if userID != 42 {
		t.Fatalf("user id mismatch: got %d want 42", userID)
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("signing-secret")
	token, err := IssueToken(7, secret, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	_, err = ParseToken(token, secret)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := IssueToken(7, []byte("right-secret"), time.Hour, time.Now())
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	_, err = ParseToken(token, []byte("wrong-secret"))
	if !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestParseToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}
