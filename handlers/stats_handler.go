package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go-url-registry/registry"
	"go-url-registry/types"
)

// GetStats returns summary counters and every link, expired ones included.
func (h *LinkHandler) GetStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	links, err := h.service.List(ctx)
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	summary := registry.Summarize(links, h.now())
	resp := types.StatsResponse{
		TotalLinks:   summary.TotalLinks,
		ActiveLinks:  summary.ActiveLinks,
		ExpiredLinks: summary.ExpiredLinks,
		TotalClicks:  summary.TotalClicks,
		Links:        make([]types.LinkResponse, 0, len(links)),
	}
	for _, link := range links {
		resp.Links = append(resp.Links, h.toResponse(link))
	}

	c.JSON(http.StatusOK, resp)
}

// GetLinkStats returns one link with its full click log without counting a click.
func (h *LinkHandler) GetLinkStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	shortCode := c.Param("short_code")
	link, err := h.service.Get(ctx, shortCode)
	if err != nil {
		h.handleError(c, err, shortCode)
		return
	}

	resp := types.LinkStatsResponse{
		LinkResponse: h.toResponse(link),
		Clicks:       link.Clicks,
	}
	if resp.Clicks == nil {
		resp.Clicks = []types.ClickEvent{}
	}
	c.JSON(http.StatusOK, resp)
}
