package services

import (
	"errors"
	"time"

	inbox_errors "tenant-inbox/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims are issued by the account service. The caller id is the
// subject, or the user_id claim for older tokens.
type AccessClaims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// CallerID returns the authenticated user id carried by the claims.
func (c AccessClaims) CallerID() (uuid.UUID, error) {
	raw := c.Subject
	if raw == "" {
		raw = c.UserID
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, inbox_errors.ErrUnauthorized
	}
	return id, nil
}

// AuthService verifies bearer tokens. Tokens are only minted here for
// development tooling and tests.
type AuthService struct {
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(jwtSecret string, accessTTL time.Duration) *AuthService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &AuthService{jwtSecret: []byte(jwtSecret), accessTTL: accessTTL}
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, inbox_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, inbox_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return AccessClaims{}, inbox_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, inbox_errors.ErrUnauthorized
	}

	return *claims, nil
}

// IssueAccessToken signs an HS256 token for userID.
func (s *AuthService) IssueAccessToken(userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
