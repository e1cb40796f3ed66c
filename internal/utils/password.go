package utils

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword describes the password rules.
var ErrWeakPassword = errors.New("password needs at least 8 characters with a lower case letter, an upper case letter, a digit and one of !@#$%^&*")

const passwordSpecials = "!@#$%^&*"

// CheckPassword enforces the signup password rules.
func CheckPassword(plain string) error {
	if len(plain) < 8 {
		return ErrWeakPassword
	}
	var lower, upper, digit, special bool
	for _, r := range plain {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
