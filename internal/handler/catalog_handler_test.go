package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
)

func TestCatalogHandlerOfferingsReportsCacheHit(t *testing.T) {
	catalog := &fakeCatalog{hit: true, offerings: []models.SectionOffering{{
		CourseSection: models.CourseSection{ID: "sec-a", Section: "A", Capacity: 30},
		CourseCode:    "CS101",
		Credits:       4,
	}}}
	h := NewCatalogHandler(catalog, nil)

	c, rec := newTestContext(http.MethodGet, "/offerings", "", studentClaims)
	h.Offerings(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")

	var offerings []models.SectionOffering
	require.NoError(t, json.Unmarshal(env.Data, &offerings))
	require.Len(t, offerings, 1)
	assert.Equal(t, "CS101", offerings[0].CourseCode)
}

func TestCatalogHandlerAvailability(t *testing.T) {
	h := NewCatalogHandler(nil, &fakeAvailability{availability: &models.SectionAvailability{Capacity: 30, Enrolled: 28, OutstandingHolds: 1, AvailableSeats: 1}})

	c, rec := newTestContext(http.MethodGet, "/sections/sec-a/availability", "", studentClaims)
	c.Params = append(c.Params, ginParam("id", "sec-a"))
	h.Availability(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var availability models.SectionAvailability
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &availability))
	assert.Equal(t, "sec-a", availability.SectionID)
	assert.Equal(t, 1, availability.AvailableSeats)
}

func TestCatalogHandlerAvailabilityUnknownSection(t *testing.T) {
	h := NewCatalogHandler(nil, &fakeAvailability{err: appErrors.Clone(appErrors.ErrInvalidReference, "section not found")})

	c, rec := newTestContext(http.MethodGet, "/sections/nope/availability", "", studentClaims)
	h.Availability(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "INVALID_REFERENCE", errorCode(t, rec))
}

func TestCatalogHandlerRefresh(t *testing.T) {
	catalog := &fakeCatalog{}
	h := NewCatalogHandler(catalog, nil)

	c, rec := newTestContext(http.MethodPost, "/admin/catalog/refresh", "", adminClaims)
	h.Refresh(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, catalog.invalidated)

	catalog.err = errors.New("redis down")
	c, rec = newTestContext(http.MethodPost, "/admin/catalog/refresh", "", adminClaims)
	h.Refresh(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
