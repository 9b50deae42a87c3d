package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribegate/auth"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/server"
	"github.com/kbukum/scribegate/validation"
)

// CreateKeyRequest is the body of POST /v1/keys.
type CreateKeyRequest struct {
	Name   string   `json:"name" validate:"required,max=100"`
	Scopes []string `json:"scopes" validate:"omitempty,max=16,dive,required"`
}

// CreateKey issues an API key for the caller. A key never carries a scope
// its creator lacks.
func (h *Handler) CreateKey(c *gin.Context) {
	caller, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.Validation("request body must be a JSON object").WithCause(err))
		return
	}
	if err := validation.Validate(&req); err != nil {
		h.fail(c, err)
		return
	}
	for _, scope := range req.Scopes {
		if !auth.MatchAny(caller.Permissions, scope) {
			h.fail(c, apperrors.Forbidden("scope exceeds caller permissions").WithDetail("scope", scope))
			return
		}
	}

	created, err := h.keys.Create(c.Request.Context(), caller.UserID, req.Name, req.Scopes)
	if err != nil {
		h.fail(c, err)
		return
	}
	server.RespondCreated(c, created)
}

// ListKeys lists the caller's API keys, revoked ones included.
func (h *Handler) ListKeys(c *gin.Context) {
	caller, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	keys, err := h.keys.List(c.Request.Context(), caller.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	server.RespondOK(c, keys)
}

// RevokeKey revokes one of the caller's API keys.
func (h *Handler) RevokeKey(c *gin.Context) {
	caller, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	id := c.Param("key_id")
	if err := validation.PathUUID("key_id", id); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.keys.Revoke(c.Request.Context(), caller.UserID, id); err != nil {
		h.fail(c, err)
		return
	}
	server.RespondNoContent(c)
}
