package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/timetable-engine-api/internal/models"
	appErrors "github.com/noah-isme/timetable-engine-api/pkg/errors"
)

// TokenService validates and issues HS256 access tokens for machine clients.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService builds a token service around the shared secret.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// ValidateToken parses and verifies an access token.
func (s *TokenService) ValidateToken(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

// IssueToken mints a token for the given subject and scope.
func (s *TokenService) IssueToken(subject, scope string) (string, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return signed, nil
}
