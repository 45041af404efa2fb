package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookhub/oauthbind/pkg/crypto"
)

// CookieOptions defines how the session and access cookies are issued.
type CookieOptions struct {
	Name       string
	AccessName string
	Domain     string
	Secure     bool
	TTL        time.Duration
}

// ID returns the session id from the request cookie, or "".
func (o CookieOptions) ID(c *gin.Context) string {
	id, err := c.Cookie(o.Name)
	if err != nil {
		return ""
	}
	return id
}

// EnsureID returns the request's session id, issuing a new cookie when the
// request has none.
func (o CookieOptions) EnsureID(c *gin.Context) (string, error) {
	if id := o.ID(c); id != "" {
		return id, nil
	}
	id, err := crypto.GenerateSessionID()
	if err != nil {
		return "", err
	}
	o.set(c, o.Name, id, o.TTL)
	return id, nil
}

// SetAccessToken stores the access token for browser clients.
func (o CookieOptions) SetAccessToken(c *gin.Context, token string, ttl time.Duration) {
	o.set(c, o.AccessName, token, ttl)
}

// ClearAccessToken removes the access token cookie.
func (o CookieOptions) ClearAccessToken(c *gin.Context) {
	o.set(c, o.AccessName, "", -1)
}

func (o CookieOptions) set(c *gin.Context, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", o.Domain, o.Secure, true)
}
