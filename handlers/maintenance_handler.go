package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go-url-registry/types"
	"go.uber.org/zap"
)

// DeleteLink purges a single link regardless of expiry.
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	shortCode := c.Param("short_code")
	if err := h.service.Delete(ctx, shortCode); err != nil {
		h.handleError(c, err, shortCode)
		return
	}

	h.metrics.LinksPurgedTotal.WithLabelValues("single").Inc()
	c.Status(http.StatusNoContent)
}

// PurgeExpired removes every expired link.
func (h *LinkHandler) PurgeExpired(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	removed, err := h.service.PurgeExpired(ctx)
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	h.metrics.LinksPurgedTotal.WithLabelValues("expired").Add(float64(removed))
	h.logger.Info("Expired links purged", zap.Int("removed", removed), zap.String("ip", c.ClientIP()))
	c.JSON(http.StatusOK, types.PurgeResponse{Removed: removed})
}

// PurgeAll removes every link.
func (h *LinkHandler) PurgeAll(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	removed, err := h.service.PurgeAll(ctx)
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	h.metrics.LinksPurgedTotal.WithLabelValues("all").Add(float64(removed))
	h.logger.Warn("All links purged", zap.Int("removed", removed), zap.String("ip", c.ClientIP()))
	c.JSON(http.StatusOK, types.PurgeResponse{Removed: removed})
}
