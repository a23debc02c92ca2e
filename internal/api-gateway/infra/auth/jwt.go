// Package auth issues and validates the HS256 bearer tokens the gateway
// hands out at login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jcmexdev/disqueria/internal/api-gateway/core/domain/entity"
	"github.com/jcmexdev/disqueria/internal/api-gateway/core/ports"
)

var (
	ErrMissingToken = errors.New("auth: missing token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

var (
	_ ports.CredentialValidator = (*JWT)(nil)
	_ ports.TokenIssuer         = (*JWT)(nil)
)

// Claims carries the user id in sub and the email alongside it.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (j *JWT) Issue(subject entity.Subject) (string, error) {
	now := j.now()
	claims := Claims{
		Email: subject.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (j *JWT) Validate(_ context.Context, credential string) (entity.Subject, error) {
	if credential == "" {
		return entity.Subject{}, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return entity.Subject{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return entity.Subject{}, ErrInvalidToken
	}
	return entity.Subject{ID: claims.Subject, Email: claims.Email}, nil
}
