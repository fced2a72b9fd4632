package auth

// LoginRequest carries form credentials for token issuance.
type LoginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// TokenResponse is the issued bearer token payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
