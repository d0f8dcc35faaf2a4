package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	purposeSession = "session"
	purposeReset   = "password_reset"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies the JWTs used both as API bearer tokens
// and as the persisted client session handle.
type TokenManager struct {
	secret   []byte
	tokenTTL time.Duration
	resetTTL time.Duration
	issuer   string
}

func NewTokenManager(secret string, tokenTTL, resetTTL time.Duration, issuer string) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		resetTTL: resetTTL,
		issuer:   issuer,
	}
}

// Issue signs a session token for the given identity.
func (m *TokenManager) Issue(uid, email, role string) (string, error) {
	return m.sign(uid, email, role, purposeSession, m.tokenTTL)
}

// IssueReset signs a short-lived password-reset token.
func (m *TokenManager) IssueReset(uid, email string) (string, error) {
	return m.sign(uid, email, "", purposeReset, m.resetTTL)
}

func (m *TokenManager) sign(uid, email, role, purpose string, ttl time.Duration) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := &Claims{
		UID:     uid,
		Email:   email,
		Role:    role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses a session token and returns its claims.
func (m *TokenManager) Verify(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, purposeSession)
}

// VerifyReset parses a password-reset token and returns its claims.
func (m *TokenManager) VerifyReset(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, purposeReset)
}

func (m *TokenManager) verify(tokenStr, purpose string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
