package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/transcription/formatter"
)

var (
	schemaOnce sync.Once
	schemaDoc  []byte
	schemaErr  error
)

// Schema serves the JSON Schema of the listen response.
func (h *Handler) Schema(c *gin.Context) {
	schemaOnce.Do(func() {
		schemaDoc, schemaErr = formatter.Schema()
	})
	if schemaErr != nil {
		h.fail(c, apperrors.Internal(schemaErr))
		return
	}
	c.Data(http.StatusOK, "application/schema+json", schemaDoc)
}
