package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
	invalidQRSize = "QR size must be between 64 and 1024 pixels"
)

// QRCode renders the short URL of a link as a PNG QR code.
func (h *LinkHandler) QRCode(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < minQRSize || parsed > maxQRSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalidQRSize})
			return
		}
		size = parsed
	}

	shortCode := c.Param("short_code")
	link, err := h.service.Get(ctx, shortCode)
	if err != nil {
		h.handleError(c, err, shortCode)
		return
	}

	png, err := qrcode.Encode(h.shortURL(link.ShortCode), qrcode.Medium, size)
	if err != nil {
		h.logger.Error("QR encoding failed", zap.String("shortCode", shortCode), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
