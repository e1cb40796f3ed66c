package utils

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const otpIssuer = "Portrait Booth"

func otpOpts(period uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA256,
	}
}

// NewOTPSecret creates a base32 TOTP secret for account.
func NewOTPSecret(account string, period uint) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      otpIssuer,
		AccountName: account,
		Period:      period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA256,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// GenerateOTP returns the login code for secret at time t.
func GenerateOTP(secret string, period uint, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, otpOpts(period))
}

// ValidateOTP reports whether code is valid for secret at time t, allowing
// one period of clock skew either side.
func ValidateOTP(code, secret string, period uint, t time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, t, otpOpts(period))
	return err == nil && ok
}
