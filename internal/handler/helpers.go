package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookhub/oauthbind/internal/config"
	"bookhub/oauthbind/internal/handler/middleware"
	"bookhub/oauthbind/internal/service"
	"bookhub/oauthbind/internal/session"
	jwtpkg "bookhub/oauthbind/pkg/jwt"
	"bookhub/oauthbind/pkg/response"
)

var ErrNoClaims = errors.New("claims not found in context")

func getUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	claimsVal, exists := c.Get(middleware.ContextKeyUserClaims)
	if !exists {
		return uuid.Nil, ErrNoClaims
	}
	claims, ok := claimsVal.(*jwtpkg.Claims)
	if !ok {
		return uuid.Nil, ErrNoClaims
	}
	return claims.UserID()
}

// currentUser returns the authenticated user, or nil for anonymous requests.
func currentUser(c *gin.Context) *uuid.UUID {
	id, err := getUserIDFromContext(c)
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &id
}

// initiator names the session and user a handshake belongs to.
func initiator(c *gin.Context, sid string) service.Initiator {
	return service.Initiator{SessionID: sid, UserID: currentUser(c)}
}

// SessionKit bundles the per-session state shared by the handlers.
type SessionKit struct {
	Cookies session.CookieOptions
	Markers *session.MarkerStore
	Flashes *session.FlashStore
	Routes  config.RoutesConfig
	Logger  *zap.Logger
}

// flowResult is how a browser flow ends: where to go next, what to tell the
// user and, after a login, the issued tokens.
type flowResult struct {
	status     int
	redirectTo string
	flash      *session.Flash
	tokens     *service.TokenSet
}

// routeURL maps a route kind to its configured path.
func (k *SessionKit) routeURL(kind service.RouteKind) string {
	switch kind {
	case service.RouteLanding:
		return k.Routes.Landing
	case service.RouteLoginConfirm, service.RouteLogin:
		return k.Routes.Login
	case service.RouteRegister:
		return k.Routes.Register
	default:
		return k.Routes.Landing
	}
}

// finish queues the flash for browsers and redirects them; script clients get
// the same outcome as a JSON envelope.
func (k *SessionKit) finish(c *gin.Context, sessionID string, res flowResult) {
	if res.status == 0 {
		res.status = http.StatusOK
	}

	if middleware.WantsJSON(c) {
		data := gin.H{"redirect_to": res.redirectTo}
		message := "ok"
		if res.flash != nil {
			data["category"] = res.flash.Category
			message = res.flash.Message
		}
		if res.tokens != nil {
			data["tokens"] = res.tokens
		}
		response.Result(c, res.status, message, data)
		return
	}

	if res.flash != nil {
		if err := k.Flashes.Push(c.Request.Context(), sessionID, *res.flash); err != nil {
			k.Logger.Error("queue flash", zap.Error(err))
		}
	}
	c.Redirect(http.StatusFound, res.redirectTo)
}

func newFlash(category session.FlashCategory, message string) *session.Flash {
	return &session.Flash{Category: category, Message: message}
}
