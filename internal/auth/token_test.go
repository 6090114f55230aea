package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewTokenManager("test-secret")

	token, expiresAt, err := m.Generate("u-1", "alice", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if until := time.Until(expiresAt); until < 23*time.Hour || until > 25*time.Hour {
		t.Fatalf("session lifetime out of range: %v", until)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != "u-1" || claims.Username != "alice" {
		t.Fatalf("claims round trip: %+v", claims)
	}
}

func TestRememberMeExtendsSession(t *testing.T) {
	m := NewTokenManager("test-secret")
	_, expiresAt, err := m.Generate("u-1", "alice", true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if time.Until(expiresAt) < 29*24*time.Hour {
		t.Fatalf("remember-me session too short: %v", time.Until(expiresAt))
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a").Generate("u-1", "alice", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := NewTokenManager("secret-b").Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewTokenManager("test-secret")

	claims := Claims{
		UserID:   "u-1",
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.Validate(expired); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	m := NewTokenManager("test-secret")
	token, _, err := m.Generate("u-1", "alice", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := UserFromContext(r.Context())
		if !ok || claims.UserID != "u-1" {
			t.Errorf("claims missing from context: %+v", claims)
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, tc := range []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"no bearer prefix", token, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: got status %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestUserFromContextWithoutClaims(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Fatal("bare context must not yield claims")
	}
}
