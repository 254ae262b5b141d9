// Package handlers provides HTTP request handlers for the URL registry service.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go-url-registry/config"
	"go-url-registry/geo"
	"go-url-registry/metrics"
	"go-url-registry/registry"
	"go-url-registry/types"
	"go.uber.org/zap"
)

const (
	invalidRequestBody  = "Invalid request body"
	invalidURLProvided  = "Invalid URL provided"
	invalidShortCode    = "Custom code must be %d-%d alphanumeric characters"
	invalidValidity     = "Validity must be between %d and %d minutes"
	batchTooLarge       = "Batch may contain at most %d URLs"
	errorTimeout        = "Request timed out"
	storageCapacityFull = "Storage capacity reached"
	shortCodeTaken      = "Short code already in use"
	shortURLNotFound    = "Short URL not found"
	shortURLExpired     = "Short URL has expired"
	codeSpaceExhausted  = "Could not allocate a short code, try again"
	internalError       = "Internal server error"
)

// LinkHandlerInterface defines the methods that a link handler should implement.
type LinkHandlerInterface interface {
	CreateLink(c *gin.Context)
	CreateBatch(c *gin.Context)
	RedirectLink(c *gin.Context)
	GetStats(c *gin.Context)
	GetLinkStats(c *gin.Context)
	QRCode(c *gin.Context)
	DeleteLink(c *gin.Context)
	PurgeExpired(c *gin.Context)
	PurgeAll(c *gin.Context)
	HealthCheck(c *gin.Context)
}

// LinkHandler holds the dependencies for handling link operations.
type LinkHandler struct {
	service  registry.Service
	validate *validator.Validate
	config   *config.Config
	locator  geo.Locator
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewLinkHandler creates and returns a new LinkHandler instance.
// A nil locator falls back to geo.StaticLocator and nil metrics to a
// private registry.
func NewLinkHandler(ctx context.Context, service registry.Service, cfg *config.Config, locator geo.Locator, m *metrics.Metrics, logger *zap.Logger) (LinkHandlerInterface, error) {
	if service == nil {
		return nil, errors.New("service cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if locator == nil {
		locator = geo.StaticLocator{}
	}
	if m == nil {
		m = metrics.NewMetrics(prometheus.NewRegistry())
	}

	handler := &LinkHandler{
		service:  service,
		validate: validator.New(),
		config:   cfg,
		locator:  locator,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return handler, nil
}

// errorResponse maps a registry error to an HTTP status and client message.
func (h *LinkHandler) errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, registry.ErrInvalidURL):
		return http.StatusBadRequest, invalidURLProvided
	case errors.Is(err, registry.ErrInvalidValidity):
		return http.StatusBadRequest, fmt.Sprintf(invalidValidity, h.config.MinValidityMinutes, h.config.MaxValidityMinutes)
	case errors.Is(err, registry.ErrInvalidShortCode):
		return http.StatusBadRequest, fmt.Sprintf(invalidShortCode, h.config.MinCodeLength, h.config.MaxCodeLength)
	case errors.Is(err, registry.ErrShortCodeTaken):
		return http.StatusConflict, shortCodeTaken
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, shortURLNotFound
	case errors.Is(err, registry.ErrExpired):
		return http.StatusGone, shortURLExpired
	case errors.Is(err, registry.ErrStorageFull):
		return http.StatusInsufficientStorage, storageCapacityFull
	case errors.Is(err, registry.ErrCodeSpaceExhausted):
		return http.StatusServiceUnavailable, codeSpaceExhausted
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, errorTimeout
	default:
		return http.StatusInternalServerError, internalError
	}
}

// handleError sends the error response matching err.
func (h *LinkHandler) handleError(c *gin.Context, err error, shortCode string) {
	status, message := h.errorResponse(err)
	switch {
	case status == http.StatusInternalServerError:
		h.logger.Error("Unexpected error", zap.String("shortCode", shortCode), zap.Error(err))
	case status == http.StatusRequestTimeout:
		h.logger.Warn("Request timed out", zap.String("shortCode", shortCode))
	default:
		h.logger.Debug("Request rejected", zap.String("shortCode", shortCode), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": message})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, registry.ErrInvalidURL),
		errors.Is(err, registry.ErrInvalidValidity),
		errors.Is(err, registry.ErrInvalidShortCode):
		return "invalid"
	case errors.Is(err, registry.ErrShortCodeTaken):
		return "taken"
	case errors.Is(err, registry.ErrStorageFull):
		return "storage_full"
	case errors.Is(err, registry.ErrCodeSpaceExhausted):
		return "exhausted"
	default:
		return "error"
	}
}

func (h *LinkHandler) shortURL(code string) string {
	return strings.TrimRight(h.config.BaseURL, "/") + "/" + code
}

func (h *LinkHandler) toResponse(link types.ShortLink) types.LinkResponse {
	return types.LinkResponse{
		ID:           link.ID,
		ShortCode:    link.ShortCode,
		ShortURL:     h.shortURL(link.ShortCode),
		OriginalURL:  link.OriginalURL,
		IsCustomCode: link.IsCustomCode,
		CreatedAt:    link.CreatedAt,
		ExpiresAt:    link.ExpiresAt,
		Expired:      link.IsExpired(h.now()),
		ClickCount:   link.ClickCount,
	}
}

// create runs one shorten request through the registry and records metrics.
func (h *LinkHandler) create(ctx context.Context, req types.ShortenRequest) (types.ShortLink, error) {
	link, err := h.service.Create(ctx, strings.TrimSpace(req.OriginalURL), strings.TrimSpace(req.CustomCode), req.ValidityMinutes)
	if err != nil {
		h.metrics.CreateFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return types.ShortLink{}, err
	}

	kind := metrics.KindGenerated
	if link.IsCustomCode {
		kind = metrics.KindCustom
	}
	h.metrics.LinksCreatedTotal.WithLabelValues(kind).Inc()
	return link, nil
}

// CreateLink handles the creation of a new short link.
func (h *LinkHandler) CreateLink(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	var input types.ShortenRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Debug("Error decoding request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidRequestBody})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		h.logger.Debug("Invalid input", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidURLProvided})
		return
	}

	link, err := h.create(ctx, input)
	if err != nil {
		h.handleError(c, err, input.CustomCode)
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(link))
}

// CreateBatch shortens several URLs at once. Items succeed or fail
// independently; the response lists each outcome in request order.
func (h *LinkHandler) CreateBatch(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	var input types.BatchShortenRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Debug("Error decoding batch request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidRequestBody})
		return
	}
	if len(input.URLs) > h.config.MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(batchTooLarge, h.config.MaxBatchSize)})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		h.logger.Debug("Invalid batch input", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidURLProvided})
		return
	}

	resp := types.BatchShortenResponse{Results: make([]types.BatchResult, 0, len(input.URLs))}
	for _, item := range input.URLs {
		result := types.BatchResult{OriginalURL: item.OriginalURL}

		link, err := h.create(ctx, item)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				h.handleError(c, err, "")
				return
			}
			_, result.Error = h.errorResponse(err)
			resp.Failed++
		} else {
			linkResp := h.toResponse(link)
			result.Link = &linkResp
			resp.Created++
		}
		resp.Results = append(resp.Results, result)
	}

	h.logger.Info("Batch processed", zap.Int("created", resp.Created), zap.Int("failed", resp.Failed))
	c.JSON(http.StatusCreated, resp)
}
