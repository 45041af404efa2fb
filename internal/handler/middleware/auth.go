package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "bookhub/oauthbind/pkg/jwt"
	"bookhub/oauthbind/pkg/response"
)

const ContextKeyUserClaims = "user_claims"

// JWTAuth requires a valid access token, taken from the Authorization header
// or, for browser clients, from the access cookie.
func JWTAuth(jwtManager *jwtpkg.Manager, accessCookie string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c, accessCookie)
		if !ok {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		claims, err := jwtManager.Validate(raw)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		if claims.TokenType != jwtpkg.TokenTypeAccess {
			response.Unauthorized(c, "invalid token type")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserClaims, claims)
		c.Next()
	}
}

// OptionalAuth sets the user claims when a valid access token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(jwtManager *jwtpkg.Manager, accessCookie string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c, accessCookie); ok {
			if claims, err := jwtManager.Validate(raw); err == nil && claims.TokenType == jwtpkg.TokenTypeAccess {
				c.Set(ContextKeyUserClaims, claims)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context, accessCookie string) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if accessCookie == "" {
		return "", false
	}
	token, err := c.Cookie(accessCookie)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}
