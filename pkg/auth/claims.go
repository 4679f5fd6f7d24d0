package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims carries the shopper identity issued by the storefront API.
type AccessTokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the user id, falling back to the registered subject claim.
func (c *AccessTokenClaims) SubjectID() string {
	if c == nil {
		return ""
	}
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}
