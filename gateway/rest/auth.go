package rest

import (
	"context"
	"net/url"

	"github.com/zubacap/zubacap-go/core/identity"
)

// Login exchanges credentials for a session token and identity.
func (c *Client) Login(ctx context.Context, identifier, password string) (identity.Session, error) {
	var sess identity.Session
	err := c.post(ctx, "/auth/local", map[string]string{
		"identifier": identifier,
		"password":   password,
	}, &sess)
	return sess, err
}

// Register creates an account. The invitation code, when present, is
// forwarded so the backend associates the account at creation time.
func (c *Client) Register(ctx context.Context, na identity.NewAccount) (identity.Session, error) {
	payload := map[string]string{
		"username": na.Username,
		"email":    na.Email,
		"password": na.Password,
	}
	if na.InvitationCode != "" {
		payload["codigo"] = na.InvitationCode
	}

	var sess identity.Session
	err := c.post(ctx, "/auth/local/register", payload, &sess)
	return sess, err
}

// Me returns the current identity with all relations expanded.
func (c *Client) Me(ctx context.Context) (identity.Identity, error) {
	var me identity.Identity
	err := c.get(ctx, "/users/me", url.Values{"populate": {"*"}}, &me)
	return me, err
}
