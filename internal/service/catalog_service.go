package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
)

const offeringsCacheKey = "catalog:offerings"

type offeringsReader interface {
	ListOfferings(ctx context.Context) ([]models.SectionOffering, error)
}

// CatalogService lists course offerings through the read-through cache.
type CatalogService struct {
	repo   offeringsReader
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo offeringsReader, cache *CacheService, ttl time.Duration, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, ttl: ttl, logger: log}
}

// Offerings returns every section with its course and whether it came from cache.
// Seat counts are not part of the cached payload.
func (s *CatalogService) Offerings(ctx context.Context) ([]models.SectionOffering, bool, error) {
	if s.repo == nil {
		return nil, false, appErrors.Clone(appErrors.ErrModelUnavailable, "catalog is not configured")
	}

	var cached []models.SectionOffering
	if hit, _ := s.cache.Get(ctx, offeringsCacheKey, &cached); hit {
		return cached, true, nil
	}

	offerings, err := s.repo.ListOfferings(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	if offerings == nil {
		offerings = []models.SectionOffering{}
	}
	_ = s.cache.Set(ctx, offeringsCacheKey, offerings, s.ttl)
	return offerings, false, nil
}

// InvalidateOfferings drops the cached catalog.
func (s *CatalogService) InvalidateOfferings(ctx context.Context) error {
	return s.cache.Invalidate(ctx, "catalog:*")
}
