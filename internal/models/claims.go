package models

import "github.com/golang-jwt/jwt/v5"

// Roles known to the marketplace.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserClaims are the claims of an access token issued by the campus identity
// provider. The user id is the token subject.
type UserClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserID returns the authenticated user's id.
func (c *UserClaims) UserID() string {
	return c.Subject
}

// IsAdmin reports whether the token carries the admin role.
func (c *UserClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
