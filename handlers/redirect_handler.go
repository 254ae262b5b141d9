// Package handlers provides HTTP request handlers for the URL registry service.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go-url-registry/registry"
	"go-url-registry/types"
	"go-url-registry/utils"
	"go.uber.org/zap"
)

const errInvalidRedirectURL = "Invalid redirect URL"

// RedirectLink resolves a short code, records the click and redirects to
// the original URL.
func (h *LinkHandler) RedirectLink(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	shortCode := c.Param("short_code")
	meta := types.ClickMeta{
		Source:   utils.RequestSource(c.GetHeader("Referer"), c.GetHeader("Origin")),
		Location: h.locator.Locate(c.ClientIP()),
	}

	link, err := h.service.Resolve(ctx, shortCode, meta)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrExpired):
			h.metrics.ExpiredHitsTotal.Inc()
		case errors.Is(err, registry.ErrInvalidURL):
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRedirectURL})
			return
		}
		h.handleError(c, err, shortCode)
		return
	}

	h.metrics.RedirectsTotal.Inc()
	h.logger.Info("Redirecting",
		zap.String("shortCode", shortCode),
		zap.String("originalUrl", link.OriginalURL),
		zap.String("source", meta.Source),
		zap.String("location", meta.Location),
		zap.Int64("clickCount", link.ClickCount),
	)
	c.Redirect(http.StatusFound, link.OriginalURL)
}
