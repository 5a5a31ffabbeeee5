package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

const defaultKid = "v1"

// KeyResolver picks the validator for a token's issuer.
type KeyResolver struct {
	validators       map[string]TokenValidator
	allowedIssuers   map[string]bool
	allowedAudiences []string
}

// NewKeyResolver creates a new KeyResolver
func NewKeyResolver(allowedIssuers []string, allowedAudiences []string) *KeyResolver {
	issuers := make(map[string]bool, len(allowedIssuers))
	for _, issuer := range allowedIssuers {
		issuers[issuer] = true
	}
	return &KeyResolver{
		validators:       make(map[string]TokenValidator),
		allowedIssuers:   issuers,
		allowedAudiences: allowedAudiences,
	}
}

// RegisterValidator registers a validator for an issuer
func (kr *KeyResolver) RegisterValidator(issuer string, validator TokenValidator) {
	kr.validators[issuer] = validator
}

// Resolve validates a token against the validator of its issuer.
func (kr *KeyResolver) Resolve(_ context.Context, tokenString string) (*Claims, error) {
	issuer, kid, err := peekToken(tokenString)
	if err != nil {
		return nil, NewAuthError(AuthFailureUnknown, "malformed token", err)
	}

	if !kr.allowedIssuers[issuer] {
		return nil, NewAuthError(AuthFailureInvalidIssuer, fmt.Sprintf("issuer not allowed: %s", issuer), nil)
	}
	validator, ok := kr.validators[issuer]
	if !ok {
		return nil, NewAuthError(AuthFailureInvalidIssuer, fmt.Sprintf("no validator for issuer: %s", issuer), nil)
	}

	claims, err := validator.Validate(tokenString, kid)
	if err != nil {
		return nil, err
	}
	if claims.Issuer != issuer {
		return nil, NewAuthError(AuthFailureInvalidIssuer, fmt.Sprintf("issuer mismatch: expected %s, got %s", issuer, claims.Issuer), nil)
	}
	if !kr.validAudience(claims.Audience) {
		return nil, NewAuthError(AuthFailureInvalidAudience, fmt.Sprintf("invalid audience: %v", claims.Audience), nil)
	}
	return claims, nil
}

// peekToken reads the issuer and kid without verifying the signature.
func peekToken(tokenString string) (issuer, kid string, err error) {
	var claims jwt.RegisteredClaims
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims)
	if err != nil {
		return "", "", err
	}
	kid, _ = token.Header["kid"].(string)
	if kid == "" {
		kid = defaultKid
	}
	return claims.Issuer, kid, nil
}

func (kr *KeyResolver) validAudience(audiences []string) bool {
	for _, aud := range audiences {
		if slices.Contains(kr.allowedAudiences, aud) {
			return true
		}
	}
	return false
}
