// ABOUTME: Unit tests for admin JWT verification and generation
// ABOUTME: Tests valid tokens, invalid tokens, expired tokens and role checks

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key-for-jwt-signing-0123456789")

func newTestVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}
	return v
}

func TestNewJWTVerifier_WeakSecret(t *testing.T) {
	_, err := NewJWTVerifier([]byte("short"))
	if !errors.Is(err, ErrWeakSecret) {
		t.Errorf("NewJWTVerifier() error = %v, want ErrWeakSecret", err)
	}
}

func TestJWTVerifier_ValidToken(t *testing.T) {
	verifier := newTestVerifier(t)

	token, err := verifier.Generate("ops", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	admin, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if admin.Subject != "ops" {
		t.Errorf("Verify() subject = %q, want %q", admin.Subject, "ops")
	}
	if admin.ExpiresAt.Before(time.Now()) {
		t.Errorf("Verify() ExpiresAt = %v, want future", admin.ExpiresAt)
	}
}

func TestJWTVerifier_InvalidToken(t *testing.T) {
	verifier := newTestVerifier(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage token", token: "not-a-jwt-token"},
		{name: "malformed JWT", token: "header.payload.signature"},
		{
			name: "wrong secret",
			token: func() string {
				other, _ := NewJWTVerifier([]byte("a-completely-different-secret-value!!"))
				token, _ := other.Generate("ops", time.Hour)
				return token
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	verifier := newTestVerifier(t)

	token, err := verifier.Generate("ops", -time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestJWTVerifier_RequiresAdminRole(t *testing.T) {
	verifier := newTestVerifier(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "someone",
		"role": "viewer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	_, err = verifier.Verify(signed)
	if !errors.Is(err, ErrNotAdmin) {
		t.Errorf("Verify() error = %v, want ErrNotAdmin", err)
	}
}

func TestJWTVerifier_MissingSubject(t *testing.T) {
	verifier := newTestVerifier(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": RoleAdmin,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	_, err = verifier.Verify(signed)
	if !errors.Is(err, ErrMissingClaim) {
		t.Errorf("Verify() error = %v, want ErrMissingClaim", err)
	}

	if _, err := verifier.Generate("", time.Hour); !errors.Is(err, ErrMissingClaim) {
		t.Errorf("Generate(\"\") error = %v, want ErrMissingClaim", err)
	}
}

func TestJWTVerifier_RejectsNoneAlgorithm(t *testing.T) {
	verifier := newTestVerifier(t)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":  "ops",
		"role": RoleAdmin,
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err := verifier.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}
