package echoportal

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zubacap/zubacap-go/core/session"
)

// cookieCredentials adapts a request/response pair to the credential store
// contract: the token is read from the request cookie and written back as a
// Set-Cookie header. One instance lives per request, so an eviction during
// the request is visible to every later Token call on it.
type cookieCredentials struct {
	ctx     echo.Context
	name    string
	written string
	cleared bool
}

var _ session.CredentialStore = (*cookieCredentials)(nil)

func newCookieCredentials(ctx echo.Context, name string) *cookieCredentials {
	return &cookieCredentials{ctx: ctx, name: name}
}

func (cc *cookieCredentials) Token() (string, bool) {
	if cc.cleared {
		return "", false
	}
	if cc.written != "" {
		return cc.written, true
	}
	cookie, err := cc.ctx.Cookie(cc.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (cc *cookieCredentials) Put(token string, expiresAt time.Time) error {
	cc.cleared = false
	cc.written = token
	cc.ctx.SetCookie(&http.Cookie{
		Name:     cc.name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (cc *cookieCredentials) Clear() {
	cc.cleared = true
	cc.written = ""
	cc.ctx.SetCookie(&http.Cookie{
		Name:     cc.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
