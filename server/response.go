package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/scribegate/errors"
)

// Body is the success envelope. Meta is only set on listings.
type Body struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta describes one page of a listing.
type Meta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// RespondWithError renders err with apperrors.Render and attaches it to the
// context for the request logger. Retryable 503s get a Retry-After hint.
func RespondWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := apperrors.Render(err)
	if status == http.StatusServiceUnavailable && body.Error.Retryable {
		c.Header("Retry-After", "5")
	}
	c.AbortWithStatusJSON(status, body)
}

func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Data: data})
}

// RespondPage answers a listing with its pagination.
func RespondPage(c *gin.Context, data any, meta Meta) {
	c.JSON(http.StatusOK, Body{Data: data, Meta: &meta})
}

func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Data: data})
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
