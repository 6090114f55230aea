package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates session tokens with a single HMAC
// secret fixed at startup.
type TokenManager struct {
	secret []byte
}

// NewTokenManager creates a manager for the given secret. An empty
// secret gets a random one, which invalidates all sessions on restart;
// fine for a single-user setup that never configured JWT_SECRET.
func NewTokenManager(secret string) *TokenManager {
	if secret == "" {
		b := make([]byte, 32)
		rand.Read(b)
		secret = base64.StdEncoding.EncodeToString(b)
	}
	return &TokenManager{secret: []byte(secret)}
}

// Generate creates a signed token. Sessions last 24 hours, or 30 days
// with rememberMe.
func (m *TokenManager) Generate(userID, username string, rememberMe bool) (string, time.Time, error) {
	expiration := 24 * time.Hour
	if rememberMe {
		expiration = 30 * 24 * time.Hour
	}
	expiresAt := time.Now().Add(expiration)

	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "cinefuse",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	return signed, expiresAt, err
}

// Validate parses and verifies a token string.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// Refresh issues a fresh long-lived token from a still-valid one.
func (m *TokenManager) Refresh(tokenString string) (string, time.Time, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return "", time.Time{}, err
	}
	return m.Generate(claims.UserID, claims.Username, true)
}
