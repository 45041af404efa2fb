package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookhub/oauthbind/internal/handler/middleware"
	"bookhub/oauthbind/internal/provider"
	"bookhub/oauthbind/internal/service"
	"bookhub/oauthbind/internal/session"
	"bookhub/oauthbind/pkg/response"
)

type OAuth2Handler struct {
	oauth2Service service.OAuth2Service
	linkService   service.LinkService
	authService   service.AuthService
	registry      *provider.Registry
	kit           *SessionKit
	logger        *zap.Logger
}

func NewOAuth2Handler(
	oauth2Service service.OAuth2Service,
	linkService service.LinkService,
	authService service.AuthService,
	registry *provider.Registry,
	kit *SessionKit,
	logger *zap.Logger,
) *OAuth2Handler {
	return &OAuth2Handler{
		oauth2Service: oauth2Service,
		linkService:   linkService,
		authService:   authService,
		registry:      registry,
		kit:           kit,
		logger:        logger.Named("oauth2_handler"),
	}
}

// Login starts a provider login. A session that already completed the
// handshake with this provider is routed on the stored link instead.
func (h *OAuth2Handler) Login(c *gin.Context) {
	providerName := c.Param("provider")
	ctx := c.Request.Context()

	sid, err := h.kit.Cookies.EnsureID(c)
	if err != nil {
		h.logger.Error("issue session id", zap.Error(err))
		response.InternalError(c, "failed to start session")
		return
	}

	markers, err := h.kit.Markers.Load(ctx, sid)
	if err != nil {
		h.logger.Warn("load session markers", zap.Error(err))
	}
	if marker, ok := markers[providerName]; ok && marker.ProviderUserID != "" {
		out := h.linkService.BindOrRoute(ctx, providerName, marker.ProviderUserID, currentUser(c), "")
		if out.Target.Kind != service.RouteFallback {
			h.complete(c, sid, providerName, out)
			return
		}
	}

	authURL, err := h.oauth2Service.AuthorizationURL(ctx, providerName, initiator(c, sid))
	if err != nil {
		h.logger.Error("build authorization url", zap.String("provider", providerName), zap.Error(err))
		response.InternalError(c, "failed to generate authorization URL")
		return
	}
	if middleware.WantsJSON(c) {
		response.Success(c, gin.H{"authorize_url": authURL})
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// Callback handles the provider redirect after authorization, successful or not.
func (h *OAuth2Handler) Callback(c *gin.Context) {
	providerName := c.Param("provider")
	display := h.registry.DisplayName(providerName)
	ctx := c.Request.Context()

	sid, err := h.kit.Cookies.EnsureID(c)
	if err != nil {
		h.logger.Error("issue session id", zap.Error(err))
		response.InternalError(c, "failed to start session")
		return
	}

	if code := c.Query("error"); code != "" {
		perr := h.oauth2Service.ProviderFailure(providerName, code, c.Query("error_description"), c.Query("error_uri"))
		h.kit.finish(c, sid, flowResult{
			status:     http.StatusBadRequest,
			redirectTo: h.kit.Routes.Login,
			flash:      newFlash(session.FlashError, perr.Error()),
		})
		return
	}

	hs, err := h.oauth2Service.CompleteHandshake(ctx, providerName, c.Query("code"), c.Query("state"), initiator(c, sid))
	if err != nil {
		res := flowResult{
			status:     http.StatusUnauthorized,
			redirectTo: h.kit.Routes.Login,
			flash:      newFlash(session.FlashError, fmt.Sprintf("Failed to log in with %s.", display)),
		}
		switch {
		case errors.Is(err, service.ErrProfileFetchFailed):
			res.flash.Message = fmt.Sprintf("Failed to fetch user info from %s.", display)
		case errors.Is(err, service.ErrOAuth2InvalidState):
			res.status = http.StatusBadRequest
		case errors.Is(err, service.ErrHandshakeFailed):
		default:
			res.status = http.StatusInternalServerError
			h.logger.Error("complete oauth2 handshake", zap.String("provider", providerName), zap.Error(err))
		}
		h.kit.finish(c, sid, res)
		return
	}

	if err := h.kit.Markers.Put(ctx, sid, providerName, session.Marker{ProviderUserID: hs.ProviderUserID}); err != nil {
		h.logger.Warn("store session marker", zap.String("provider", providerName), zap.Error(err))
	}

	out := h.linkService.BindOrRoute(ctx, providerName, hs.ProviderUserID, currentUser(c), "")
	h.complete(c, sid, providerName, out)
}

// complete turns a binding outcome into the response, logging the session
// in when the outcome names a user.
func (h *OAuth2Handler) complete(c *gin.Context, sid, providerName string, out service.BindOutcome) {
	ctx := c.Request.Context()
	res := flowResult{flash: out.Flash}

	if out.Target.Kind == service.RouteFallback {
		res.redirectTo = out.Target.URL
		if res.redirectTo == "" {
			authURL, err := h.oauth2Service.AuthorizationURL(ctx, providerName, initiator(c, sid))
			if err != nil {
				h.logger.Error("build authorization url", zap.String("provider", providerName), zap.Error(err))
				authURL = h.kit.Routes.Login
			}
			res.redirectTo = authURL
		}
		h.kit.finish(c, sid, res)
		return
	}

	res.redirectTo = h.kit.routeURL(out.Target.Kind)
	if out.Login != uuid.Nil {
		tokens, err := h.authService.IssueTokenSet(ctx, out.Login)
		if err != nil {
			h.logger.Warn("log in through identity link",
				zap.String("provider", providerName),
				zap.String("user_id", out.Login.String()),
				zap.Error(err),
			)
			h.kit.finish(c, sid, flowResult{
				status:     http.StatusForbidden,
				redirectTo: h.kit.Routes.Login,
				flash:      newFlash(session.FlashError, fmt.Sprintf("Failed to log in with %s.", h.registry.DisplayName(providerName))),
			})
			return
		}
		h.kit.Cookies.SetAccessToken(c, tokens.AccessToken, time.Duration(tokens.ExpiresIn)*time.Second)
		res.tokens = tokens
	}
	h.kit.finish(c, sid, res)
}

// Logout forgets every provider the session authenticated through and drops
// the access cookie.
func (h *OAuth2Handler) Logout(c *gin.Context) {
	sid := h.kit.Cookies.ID(c)
	if err := h.kit.Markers.Clear(c.Request.Context(), sid); err != nil {
		h.logger.Warn("clear session markers", zap.Error(err))
	}
	h.kit.Cookies.ClearAccessToken(c)
	h.kit.finish(c, sid, flowResult{redirectTo: h.kit.Routes.Landing})
}

// Flashes pops the queued notifications of the session.
func (h *OAuth2Handler) Flashes(c *gin.Context) {
	flashes, err := h.kit.Flashes.Pop(c.Request.Context(), h.kit.Cookies.ID(c))
	if err != nil {
		h.logger.Error("pop flashes", zap.Error(err))
		response.InternalError(c, "failed to load notifications")
		return
	}
	response.Success(c, gin.H{"flashes": flashes})
}
