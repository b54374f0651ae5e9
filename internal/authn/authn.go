// Package authn issues and verifies the JWTs that stand in for a
// caller's signed authorization at the HTTP boundary, grounded on
// _examples/bmachimbira-loyalty/api/internal/auth/jwt.go's
// GenerateToken/ValidateToken shape. spec.md §1 delegates signature
// cryptography itself to "the runtime's require_auth abstraction"
// (ledger.Authorizer); authn is the thing that authenticates an HTTP
// caller and populates that abstraction via ledger.WithCaller, it is
// not a replacement for it.
package authn

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("authn: invalid token")
	ErrExpiredToken = errors.New("authn: token has expired")
)

// Claims identifies the caller address authorized to act as itself
// (lock/release/refund/payout calls all require_auth their own address).
type Claims struct {
	Address string `json:"address"`
	Admin   bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies caller tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue mints a token asserting address is the authenticated caller.
func (i *Issuer) Issue(address string, admin bool) (string, error) {
	claims := Claims{
		Address: address,
		Admin:   admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses and validates tokenString, returning its Claims.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
