package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the registered claims carried by access tokens issued to
// the request layer. The engine validates tokens; it does not issue them.
type JWTClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
