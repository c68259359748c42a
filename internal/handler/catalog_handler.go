package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sisacad-enrollment/internal/middleware"
	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
	"github.com/noah-isme/sisacad-enrollment/pkg/response"
)

type catalogService interface {
	Offerings(ctx context.Context) ([]models.SectionOffering, bool, error)
	InvalidateOfferings(ctx context.Context) error
}

type availabilityService interface {
	Availability(ctx context.Context, sectionID string) (*models.SectionAvailability, error)
}

// CatalogHandler exposes course offerings and live seat counts.
type CatalogHandler struct {
	catalog  catalogService
	capacity availabilityService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog catalogService, capacity availabilityService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, capacity: capacity}
}

// Offerings godoc
// @Summary List course offerings
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /offerings [get]
func (h *CatalogHandler) Offerings(c *gin.Context) {
	if h.catalog == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrModelUnavailable, "catalog is not configured"))
		return
	}
	start := time.Now()
	offerings, cacheHit, err := h.catalog.Offerings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, offerings, nil, meta)
}

// Availability godoc
// @Summary Live seat availability for a section
// @Tags Catalog
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/availability [get]
func (h *CatalogHandler) Availability(c *gin.Context) {
	if h.capacity == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrModelUnavailable, "capacity is not configured"))
		return
	}
	availability, err := h.capacity.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Refresh godoc
// @Summary Drop cached offerings
// @Tags Admin
// @Produce json
// @Success 204
// @Router /admin/catalog/refresh [post]
func (h *CatalogHandler) Refresh(c *gin.Context) {
	if h.catalog == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrModelUnavailable, "catalog is not configured"))
		return
	}
	if err := h.catalog.InvalidateOfferings(c.Request.Context()); err != nil {
		response.Error(c, appErrors.Internal(err, "failed to refresh catalog cache"))
		return
	}
	response.NoContent(c)
}
