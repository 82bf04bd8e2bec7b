package api

import (
	"context"
	"net/http"
)

type authResponse struct {
	Token *struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	} `json:"token"`
	User *User `json:"user"`

	// Older backends answer with the token at the top level.
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges a username and password for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	return c.authenticate(ctx, "/auth/login", body)
}

// Register creates an account and returns its access token.
func (c *Client) Register(ctx context.Context, username, password, email string) (*AuthResult, error) {
	body := map[string]string{
		"username": username,
		"password": password,
		"email":    email,
	}

	return c.authenticate(ctx, "/auth/register", body)
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) (*AuthResult, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	return resp.normalize()
}

func (r *authResponse) normalize() (*AuthResult, error) {
	switch {
	case r.Token != nil && r.Token.AccessToken != "" && r.User != nil:
		return &AuthResult{
			AccessToken: r.Token.AccessToken,
			TokenType:   r.Token.TokenType,
			User:        r.User,
		}, nil

	case r.AccessToken != "":
		return &AuthResult{
			AccessToken: r.AccessToken,
			TokenType:   r.TokenType,
		}, nil

	default:
		return nil, ErrMalformedAuthResponse
	}
}
