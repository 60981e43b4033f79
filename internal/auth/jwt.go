// Package auth issues and validates the signed tokens that carry a session.
// Access tokens are short-lived and authorize individual API calls; refresh
// tokens are long-lived and are only good for minting new access tokens.
// Neither is stored server-side: only revoked token IDs are recorded.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrInvalidToken covers malformed tokens, bad signatures and wrong signing
// methods. Expiry is reported separately so the transport can tell the
// client to refresh.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the signed claims carried by both token kinds. The registered
// ID field holds the jti: a random UUID, unique per issued token, used as
// the revocation-lookup key.
type Claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject the token was issued to.
func (c *Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// Token is a freshly signed credential together with the metadata the
// issuing code needs (the jti for auditing, the expiry for revocation).
type Token struct {
	Value     string
	JTI       string
	ExpiresAt time.Time
}

// New signs an HS256 token of the given type for userID, valid for ttl.
func New(secret string, userID uint64, tokenType string, ttl time.Duration) (Token, error) {
	now := time.Now().UTC()
	jti := uuid.NewString()
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, JTI: jti, ExpiresAt: now.Add(ttl)}, nil
}

// NewPair issues the access/refresh pair handed out at login.
func NewPair(secret string, userID uint64, accessTTL, refreshTTL time.Duration) (access, refresh Token, err error) {
	access, err = New(secret, userID, TypeAccess, accessTTL)
	if err != nil {
		return Token{}, Token{}, err
	}
	refresh, err = New(secret, userID, TypeRefresh, refreshTTL)
	if err != nil {
		return Token{}, Token{}, err
	}
	return access, refresh, nil
}

// Parse validates the signature and expiry of raw and returns its claims.
// Tokens signed with anything but HMAC are rejected outright.
func Parse(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
