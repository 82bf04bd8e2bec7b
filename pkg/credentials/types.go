package credentials

// Credentials represents the stored session in credentials.toml.
type Credentials struct {
	Version int         `toml:"version"`
	Token   *Token      `toml:"token,omitempty"`
	User    *StoredUser `toml:"user,omitempty"`
}

// Token is the bearer token issued by the backend on login or register.
type Token struct {
	AccessToken string `toml:"access_token"`
	TokenType   string `toml:"token_type,omitempty"`
}

// StoredUser is the profile of the logged in user.
type StoredUser struct {
	ID       int    `toml:"id"`
	Username string `toml:"username"`
	Email    string `toml:"email,omitempty"`
}
