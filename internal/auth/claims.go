package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims accepted by the API. ActorID is the user id of
// the caller; workspace membership is resolved per request, not from the
// token.
type Claims struct {
	ActorID string `json:"actorId"`
	jwt.RegisteredClaims
}

// Validate performs additional validation on custom claims
func (c *Claims) Validate() error {
	if c.ActorID == "" {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}
