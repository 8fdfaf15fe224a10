package auth

import "github.com/golang-jwt/jwt/v5"

// Roles carried in tokens.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Claims identifies the caller. Subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	Active *bool  `json:"active,omitempty"` // absent means active
}

// IsActive reports whether the account is enabled.
func (c *Claims) IsActive() bool {
	return c.Active == nil || *c.Active
}

// IsAdmin reports whether the caller may use admin-only routes.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
