// Package auth holds the bearer token codec and password hashing helpers.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const bearerPrefix = "Bearer "

// Claims is the payload of every token the codec issues: the subject id plus
// the registered expiry, issue time and a unique token id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// Codec signs and verifies HS256 tokens. It holds no state besides the key.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for subjectID that expires after ttl.
func (c *Codec) Issue(subjectID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subjectID) == "" {
		return "", errors.New("empty token subject")
	}

	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: subjectID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks signature and expiry and returns the subject id. Expired,
// tampered and malformed tokens all yield ok == false.
func (c *Codec) Verify(token string) (string, bool) {
	if strings.TrimSpace(token) == "" {
		return "", false
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return "", false
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", false
	}
	return claims.UserID, true
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// header value. Exactly one space separates the scheme from the token.
func ExtractBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", false
	}
	return token, true
}
