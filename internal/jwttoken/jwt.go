// Package jwttoken issues and validates the HS256 access tokens the service
// trusts for actor identity and role.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
)

// Claims carries the acting identity inside an access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewService(signingKey string, issuer string, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken signs a token for one actor. Used by ops tooling and
// tests; the service itself only validates.
func (s *Service) GenerateAccessToken(actorID domain.ActorID, role domain.ActorRole, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token, returning the acting identity.
func (s *Service) ValidateToken(tokenString string) (domain.ActorID, domain.ActorRole, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	actorID, err := domain.ParseActorID(claims.Subject)
	if err != nil {
		return domain.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	role, err := domain.ParseActorRole(claims.Role)
	if err != nil {
		return domain.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token role")
	}
	return actorID, role, nil
}
