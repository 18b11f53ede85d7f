package auth

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codr1/drivewise-admin/internal/session"
	"github.com/codr1/drivewise-admin/internal/templates/layouts"
)

// DisplayName returns the admin's name from a JWT bearer token's username or
// sub claim. The token is decoded without verification and only used for
// display; non-JWT tokens yield "".
func DisplayName(token string) string {
	if strings.Count(token, ".") != 2 {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, key := range []string{"username", "preferred_username", "name"} {
		if value, ok := claims[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	if sub, err := claims.GetSubject(); err == nil {
		return sub
	}
	return ""
}

// Shell builds the signed-in chrome for a page, preferring the token's claims
// over the username typed at sign-in.
func Shell(ctx context.Context, title, active string) layouts.Shell {
	shell := layouts.Shell{Title: title, Active: active}
	sess := session.FromContext(ctx)
	if sess == nil {
		return shell
	}
	shell.DisplayName = DisplayName(sess.Token(ctx))
	if shell.DisplayName == "" {
		shell.DisplayName = sess.Username(ctx)
	}
	return shell
}
