package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/disqueria/internal/api-gateway/core/domain/entity"
)

func TestIssueThenValidate(t *testing.T) {
	j := NewJWT("s3cret", time.Hour)

	token, err := j.Issue(entity.Subject{ID: "u1", Email: "ana@example.com"})
	require.NoError(t, err)

	subject, err := j.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, entity.Subject{ID: "u1", Email: "ana@example.com"}, subject)
}

func TestValidateRejects(t *testing.T) {
	j := NewJWT("s3cret", time.Hour)
	good, err := j.Issue(entity.Subject{ID: "u1"})
	require.NoError(t, err)

	otherKey, err := NewJWT("other", time.Hour).Issue(entity.Subject{ID: "u1"})
	require.NoError(t, err)

	expired := NewJWT("s3cret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.Issue(entity.Subject{ID: "u1"})
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrMissingToken},
		{name: "garbage", token: "not.a.token", want: ErrInvalidToken},
		{name: "wrong key", token: otherKey, want: ErrInvalidToken},
		{name: "expired", token: stale, want: ErrInvalidToken},
		{name: "alg none", token: unsigned, want: ErrInvalidToken},
		{name: "tampered", token: good + "x", want: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.Validate(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
