package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates a signed token for one issuer.
type TokenValidator interface {
	Validate(tokenString string, kid string) (*Claims, error)
}

// Validator verifies tokens signed with one algorithm family.
type Validator struct {
	method    string
	lookup    func(kid string) (any, bool)
	issuer    string
	clockSkew time.Duration
}

// NewHS256Validator creates a validator for HMAC-signed tokens.
func NewHS256Validator(keyStore *KeyStore, issuer string, clockSkew time.Duration) *Validator {
	return &Validator{
		method: jwt.SigningMethodHS256.Alg(),
		lookup: func(kid string) (any, bool) {
			return keyStore.GetHS256Key(issuer, kid)
		},
		issuer:    issuer,
		clockSkew: clockSkew,
	}
}

// NewRS256Validator creates a validator for RSA-signed tokens.
func NewRS256Validator(keyStore *KeyStore, issuer string, clockSkew time.Duration) *Validator {
	return &Validator{
		method: jwt.SigningMethodRS256.Alg(),
		lookup: func(kid string) (any, bool) {
			return keyStore.GetRS256Key(issuer, kid)
		},
		issuer:    issuer,
		clockSkew: clockSkew,
	}
}

// Validate verifies the signature, expiry and custom claims of a token.
func (v *Validator) Validate(tokenString string, kid string) (*Claims, error) {
	key, ok := v.lookup(kid)
	if !ok {
		return nil, NewAuthError(AuthFailureUnknown, fmt.Sprintf("key not found for issuer %s and kid %s", v.issuer, kid), nil)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithLeeway(v.clockSkew), jwt.WithValidMethods([]string{v.method}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, NewAuthError(AuthFailureTokenExpired, "token expired", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, NewAuthError(AuthFailureInvalidSignature, "invalid signature", err)
		default:
			return nil, NewAuthError(AuthFailureUnknown, "failed to parse token", err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, NewAuthError(AuthFailureUnknown, fmt.Sprintf("invalid token: valid=%v", token.Valid), nil)
	}
	if err := claims.Validate(); err != nil {
		return nil, NewAuthError(AuthFailureUnknown, "invalid claims", err)
	}
	return claims, nil
}
