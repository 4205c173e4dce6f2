package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sms-core-api/internal/models"
	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
	"github.com/noah-isme/sms-core-api/pkg/response"
)

type accessResolver interface {
	ResolveAccess(ctx context.Context, userID string) (*models.UserAccess, error)
}

// IdentityHandler exposes the caller's resolved roles and permissions.
type IdentityHandler struct {
	identity accessResolver
}

// NewIdentityHandler constructs IdentityHandler.
func NewIdentityHandler(identity accessResolver) *IdentityHandler {
	return &IdentityHandler{identity: identity}
}

// Access godoc
// @Summary Active roles and permissions of the caller
// @Tags Identity
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/access [get]
func (h *IdentityHandler) Access(c *gin.Context) {
	userID := actorID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	access, err := h.identity.ResolveAccess(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, access)
}
