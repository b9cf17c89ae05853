// Package auth handles password hashing and the JWT tokens the API
// issues on login. Tokens are HS256-signed with the server secret; there
// is no refresh flow, a client just logs in again when its token
// expires.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken indicates a token that failed signature or claim
// validation, including expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the identity embedded in an access token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and validates access tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewManager returns a Manager signing with secret. Tokens carry issuer
// and expire after ttl.
func NewManager(secret []byte, issuer string, ttl time.Duration) *Manager {
	return &Manager{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue creates a signed access token for the given user.
func (m *Manager) Issue(userID int64, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string and returns its claims.
// Returns ErrInvalidToken for anything that should read as 401: bad
// signature, wrong algorithm, wrong issuer, or expiry.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// UserID returns the numeric user id from the token subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token subject %q: %w", c.Subject, ErrInvalidToken)
	}
	return id, nil
}

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the
// stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
