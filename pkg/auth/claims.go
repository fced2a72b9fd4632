package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID int64
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients. The user id
// also rides in the registered Subject claim for interoperability.
type AccessTokenClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}
