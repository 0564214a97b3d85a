package services

import (
	"errors"
	"testing"
	"time"

	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	auth := NewAuthService("test-secret", time.Minute)
	userID := uuid.Must(uuid.NewV7())

	token, err := auth.IssueAccessToken(userID)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	claims, err := auth.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	got, err := claims.CallerID()
	if err != nil || got != userID {
		t.Fatalf("CallerID() = %s, %v; want %s", got, err, userID)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	auth := NewAuthService("test-secret", time.Minute)
	userID := uuid.Must(uuid.NewV7())

	sign := func(method jwt.SigningMethod, key any, claims AccessClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	expired := AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": sign(jwt.SigningMethodHS256, []byte("other-secret"), valid),
		"expired":      sign(jwt.SigningMethodHS256, []byte("test-secret"), expired),
		"hs512":        sign(jwt.SigningMethodHS512, []byte("test-secret"), valid),
	}
	for name, token := range tests {
		if _, err := auth.ParseAccessToken(token); !errors.Is(err, inbox_errors.ErrUnauthorized) {
			t.Errorf("%s: error = %v, want ErrUnauthorized", name, err)
		}
	}
}

func TestCallerIDFallsBackToUserIDClaim(t *testing.T) {
	userID := uuid.Must(uuid.NewV7())
	claims := AccessClaims{UserID: userID.String()}
	got, err := claims.CallerID()
	if err != nil || got != userID {
		t.Fatalf("CallerID() = %s, %v", got, err)
	}

	if _, err := (AccessClaims{UserID: "nope"}).CallerID(); !errors.Is(err, inbox_errors.ErrUnauthorized) {
		t.Fatalf("CallerID(invalid) error = %v", err)
	}
}
