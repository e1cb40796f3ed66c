package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/portrait-booth/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("s3cret", 42, model.RoleCashier, 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), at.Exp, 5*time.Second)

	c, err := ParseAccessToken("s3cret", at.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.UserID)
	assert.Equal(t, model.RoleCashier, c.Role)

	_, err = ParseAccessToken("other", at.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejects(t *testing.T) {
	expired, err := NewAccessToken("s3cret", 1, model.RoleCustomer, -5)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": 1, "role": "Manager"})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	bad := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 1, "role": "Overlord"})
	raw, err = bad.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(7)
	require.NoError(t, err)
	b, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Len(t, HashRefreshRaw(a.Raw), 64)
	assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
}

func TestCheckPassword(t *testing.T) {
	assert.NoError(t, CheckPassword("Str0ng!pw"))
	for _, pw := range []string{"Sh0r!", "alllower1!", "ALLUPPER1!", "NoDigits!!", "NoSpecial11"} {
		assert.ErrorIs(t, CheckPassword(pw), ErrWeakPassword, pw)
	}
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("Str0ng!pw", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "Str0ng!pw"))
	assert.False(t, VerifyPassword(h, "wrong"))
}

func TestOTP(t *testing.T) {
	secret, err := NewOTPSecret("ana@example.com", 3600)
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	code, err := GenerateOTP(secret, 3600, now)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	assert.True(t, ValidateOTP(code, secret, 3600, now))
	assert.True(t, ValidateOTP(code, secret, 3600, now.Add(time.Hour)), "one period of skew")
	assert.False(t, ValidateOTP(code, secret, 3600, now.Add(3*time.Hour)))
	assert.False(t, ValidateOTP("000000x", secret, 3600, now))
}
