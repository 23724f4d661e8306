// ABOUTME: JWT admin tokens guarding maintenance operations
// ABOUTME: Uses HS256 signing with a configured secret and a required admin role

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest accepted signing secret in bytes.
const MinSecretLength = 32

// RoleAdmin is the only role accepted by the maintenance entry point.
const RoleAdmin = "admin"

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrNotAdmin     = errors.New("token does not carry the admin role")
	ErrWeakSecret   = fmt.Errorf("admin secret must be at least %d bytes", MinSecretLength)
)

// TokenVerifier defines the interface for admin token verification.
type TokenVerifier interface {
	Verify(tokenString string) (*AdminContext, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier, rejecting secrets shorter than MinSecretLength.
func NewJWTVerifier(secret []byte) (*JWTVerifier, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &JWTVerifier{secret: secret}, nil
}

// Verify validates the token and returns the admin identity it carries.
func (v *JWTVerifier) Verify(tokenString string) (*AdminContext, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if role, _ := claims["role"].(string); role != RoleAdmin {
		return nil, ErrNotAdmin
	}

	admin := &AdminContext{Subject: sub}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		admin.ExpiresAt = exp.Time
	}
	return admin, nil
}

// Generate creates an admin token for subject that expires after expiresIn.
func (v *JWTVerifier) Generate(subject string, expiresIn time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": RoleAdmin,
		"iat":  now.Unix(),
		"exp":  now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
