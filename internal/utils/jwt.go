package utils // package utils provides helpers for tokens, passwords and login codes

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/portrait-booth/internal/model"
)

// AccessToken is a signed JWT together with its expiry.  Clients send it in
// the Authorization header.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is the raw long-lived token handed to the client.  Only its
// SHA-256 hash is stored.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// Claims are the fields read back from a verified access token.
type Claims struct {
	UserID uint64
	Role   model.Role
}

// NewAccessToken signs an HS256 JWT carrying sub (user id), role, exp and iat.
func NewAccessToken(secret string, userID uint64, role model.Role, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role.String(),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ErrInvalidToken covers every way an access token can fail verification.
var ErrInvalidToken = errors.New("invalid token")

// ParseAccessToken verifies raw against secret and returns its claims.
// Only HMAC signed tokens are accepted.
func ParseAccessToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	// JSON numbers decode as float64
	sub, ok := mc["sub"].(float64)
	if !ok || sub <= 0 {
		return Claims{}, ErrInvalidToken
	}
	name, _ := mc["role"].(string)
	role, err := model.ParseRole(name)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: uint64(sub), Role: role}, nil
}

// NewRefreshToken returns a random 96 hex character token valid for ttlDays.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the hex SHA-256 of a raw refresh token.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
