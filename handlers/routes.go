// Package handlers provides HTTP request handlers for the URL registry service.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go-url-registry/metrics"
)

// ReservedCodes returns the first path segments of the static routes. A
// short code equal to one of them would be shadowed by that route.
func ReservedCodes() []string {
	return []string{"shorten", "stats", "qr", "links", "maintenance", "health", "metrics"}
}

// RegisterRoutes sets up all the routes for the URL registry service and
// applies the CORS and metrics middleware.
func RegisterRoutes(r *gin.Engine, handler LinkHandlerInterface, m *metrics.Metrics, gatherer prometheus.Gatherer) {
	r.Use(CORSMiddleware())
	if m != nil {
		r.Use(MetricsMiddleware(m))
	}

	r.POST("/shorten", handler.CreateLink)
	r.POST("/shorten/batch", handler.CreateBatch)

	r.GET("/stats", handler.GetStats)
	r.GET("/stats/:short_code", handler.GetLinkStats)
	r.GET("/qr/:short_code", handler.QRCode)

	r.DELETE("/links/:short_code", handler.DeleteLink)

	maintenance := r.Group("/maintenance")
	{
		maintenance.POST("/purge-expired", handler.PurgeExpired)
		maintenance.POST("/purge-all", handler.PurgeAll)
	}

	r.GET("/health", handler.HealthCheck)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Redirection route (registered last as it is the catch-all)
	r.GET("/:short_code", handler.RedirectLink)
}
