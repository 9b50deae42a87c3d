package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/scribegate/errors"
)

// abort stops the Gin chain with err rendered as an error response.
func abort(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}

// writeJSON renders err on a plain http.ResponseWriter.
func writeJSON(w http.ResponseWriter, err *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err.HTTPStatus)
	_ = json.NewEncoder(w).Encode(err.ToResponse())
}
