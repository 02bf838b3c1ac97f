package models

import "github.com/golang-jwt/jwt/v5"

// Role values carried in the JWT. Token issuance happens in the surrounding
// account service; this API only verifies.
const (
	RoleOwner    = "owner"
	RoleMechanic = "mechanic"
	RoleDealer   = "dealer"
)

type JwtCustomClaims struct {
	UserID string `json:"userID"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ErrorResponse is the uniform JSON error body returned by handlers.
type ErrorResponse struct {
	Message string `json:"message"`
}
