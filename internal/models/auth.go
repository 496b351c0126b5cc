package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the bearer token payload accepted by the API.
type JWTClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}
