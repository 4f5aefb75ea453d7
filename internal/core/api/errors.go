package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrimatch/agrimatch/internal/types"
)

// respondError writes the uniform error envelope. Not-found sentinels map
// to 404; everything else unexpected is a 500 with the detail kept in the
// log rather than the response.
func (a *API) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrSubsidyNotFound),
		errors.Is(err, types.ErrRuleSetNotFound),
		errors.Is(err, types.ErrMatchRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		a.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// badRequest writes a 400 with the given message.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
