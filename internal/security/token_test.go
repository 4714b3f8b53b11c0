package security_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcore/internal/security"
)

func TestValidateRoundTrip(t *testing.T) {
	svc := security.NewTokenService("secret")

	token, err := svc.Sign(7, time.Hour)
	require.NoError(t, err)

	uid, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), uid)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := security.NewTokenService("secret-a")
	verifier := security.NewTokenService("secret-b")

	token, err := issuer.Sign(7, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := security.NewTokenService("secret")

	token, err := svc.Sign(7, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := security.NewTokenService("secret")

	_, err := svc.Validate("not-a-token")
	assert.Error(t, err)
}

func TestValidateRejectsNonNumericSubject(t *testing.T) {
	svc := security.NewTokenService("secret")

	claims := jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsUnsignedToken(t *testing.T) {
	svc := security.NewTokenService("secret")

	claims := jwt.MapClaims{"sub": strconv.FormatInt(7, 10)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}
