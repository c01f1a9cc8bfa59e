package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload. Tokens are minted by the
// account service; AccountID falls back to the numeric subject when absent.
type JWTClaims struct {
	AccountID int64  `json:"account_id"`
	Username  string `json:"username,omitempty"`
	jwt.RegisteredClaims
}
