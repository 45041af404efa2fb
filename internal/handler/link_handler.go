package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookhub/oauthbind/internal/provider"
	"bookhub/oauthbind/internal/service"
	"bookhub/oauthbind/internal/session"
	"bookhub/oauthbind/pkg/response"
)

// LinkHandler manages the identity links of the authenticated user.
type LinkHandler struct {
	linkService service.LinkService
	registry    *provider.Registry
	kit         *SessionKit
	logger      *zap.Logger
}

func NewLinkHandler(
	linkService service.LinkService,
	registry *provider.Registry,
	kit *SessionKit,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		linkService: linkService,
		registry:    registry,
		kit:         kit,
		logger:      logger.Named("link_handler"),
	}
}

type linkStatus struct {
	Provider    string `json:"provider"`
	DisplayName string `json:"display_name"`
	Linked      bool   `json:"linked"`
}

// Status lists every registered provider with its link state for the user,
// plus the providers the session authenticated through but has not claimed.
func (h *LinkHandler) Status(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	ctx := c.Request.Context()

	linked, err := h.linkService.ListLinkedProviders(ctx, userID)
	if err != nil {
		h.logger.Error("list linked providers", zap.String("user_id", userID.String()), zap.Error(err))
		response.InternalError(c, "failed to list linked providers")
		return
	}
	isLinked := make(map[string]bool, len(linked))
	for _, p := range linked {
		isLinked[p] = true
	}

	names := h.registry.Names()
	statuses := make([]linkStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, linkStatus{
			Provider:    name,
			DisplayName: h.registry.DisplayName(name),
			Linked:      isLinked[name],
		})
	}

	markers, err := h.kit.Markers.Load(ctx, h.kit.Cookies.ID(c))
	if err != nil {
		h.logger.Warn("load session markers", zap.Error(err))
		markers = session.Markers{}
	}
	pending := markers.Pending()
	for _, p := range linked {
		delete(pending, p)
	}

	response.Success(c, gin.H{
		"providers": statuses,
		"pending":   h.linkService.PendingProviders(pending),
	})
}

// Claim attaches the links the session authenticated through to the user.
func (h *LinkHandler) Claim(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	ctx := c.Request.Context()

	markers, err := h.kit.Markers.Load(ctx, h.kit.Cookies.ID(c))
	if err != nil {
		h.logger.Error("load session markers", zap.Error(err))
		response.InternalError(c, "failed to load session")
		return
	}

	claimed, err := h.linkService.ClaimPending(ctx, userID, markers.Pending())
	if err != nil {
		response.InternalError(c, "failed to link accounts")
		return
	}
	linked, err := h.linkService.ListLinkedProviders(ctx, userID)
	if err != nil {
		h.logger.Error("list linked providers", zap.String("user_id", userID.String()), zap.Error(err))
		response.InternalError(c, "failed to list linked providers")
		return
	}

	response.Success(c, gin.H{"claimed": claimed, "linked": linked})
}

// Unlink removes the user's link to :provider and ends on the profile page.
func (h *LinkHandler) Unlink(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	providerName := c.Param("provider")
	display := h.registry.DisplayName(providerName)
	ctx := c.Request.Context()
	sid := h.kit.Cookies.ID(c)

	res := flowResult{redirectTo: h.kit.Routes.Profile}
	switch h.linkService.Unlink(ctx, providerName, userID) {
	case service.UnlinkSuccess:
		if err := h.kit.Markers.Clear(ctx, sid); err != nil {
			h.logger.Warn("clear session markers", zap.Error(err))
		}
		res.flash = newFlash(session.FlashSuccess, fmt.Sprintf("Unlink to %s success.", display))
	case service.UnlinkNotLinked:
		res.status = http.StatusNotFound
		res.flash = newFlash(session.FlashInfo, fmt.Sprintf("Not linked to %s.", display))
	default:
		res.status = http.StatusInternalServerError
		res.flash = newFlash(session.FlashError, fmt.Sprintf("Unlink to %s failed.", display))
	}
	h.kit.finish(c, sid, res)
}
