package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("test-secret")
	claims := Claims{Sub: "adm_1", Name: "Dana", Role: "dpo", JTI: "jti-1", Exp: time.Now().Add(time.Hour).Unix()}

	token, err := IssueToken(secret, claims)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed != claims {
		t.Fatalf("claims round-trip mismatch: %+v != %+v", parsed, claims)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _ := IssueToken([]byte("secret-a"), Claims{Sub: "adm_1", JTI: "j", Exp: time.Now().Add(time.Hour).Unix()})
	if _, err := ParseToken([]byte("secret-b"), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, _ := IssueToken([]byte("s"), Claims{Sub: "adm_1", JTI: "j", Exp: time.Now().Add(-time.Minute).Unix()})
	if _, err := ParseToken([]byte("s"), token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "nodot", "a.b.c", "!!.=="} {
		if _, err := ParseToken([]byte("s"), token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}
