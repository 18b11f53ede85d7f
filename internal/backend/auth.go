package backend

import (
	"context"
	"strings"
)

const loginPath = "/admin/login"

// LoginSession is the session state Login writes the issued token into.
type LoginSession interface {
	TokenHolder
	SetToken(ctx context.Context, token, username string) error
	End(ctx context.Context)
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Token       string `json:"token"`
}

// BearerToken returns the issued token under either key the backend uses.
func (r LoginResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthAPI struct{ c *Client }

func (c *Client) Auth() AuthAPI { return AuthAPI{c: c} }

// Login exchanges credentials for a bearer token and stores it in sess.
func (a AuthAPI) Login(ctx context.Context, sess LoginSession, username, password string) Result[LoginResponse] {
	result := Post[LoginResponse](ctx, a.c, sess, loginPath, loginRequest{
		Username: strings.TrimSpace(username),
		Password: password,
	})
	if !result.Success {
		return result
	}

	token := result.Data.BearerToken()
	if token == "" {
		return failure[LoginResponse]("login response did not include a token", result.StatusCode)
	}
	if err := sess.SetToken(ctx, token, strings.TrimSpace(username)); err != nil {
		return failure[LoginResponse]("failed to store session: "+err.Error(), result.StatusCode)
	}
	return result
}

// Logout drops the token and every cached list for the session. The backend
// keeps no server-side session, so no request is made.
func (a AuthAPI) Logout(ctx context.Context, sess LoginSession) {
	sess.End(ctx)
}

// GetAuthToken returns the token held by sess, or "".
func (a AuthAPI) GetAuthToken(ctx context.Context, sess TokenHolder) string {
	return sess.Token(ctx)
}
