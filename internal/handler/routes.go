package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sisacad-enrollment/internal/middleware"
	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Catalog *CatalogHandler
	Cart    *CartHandler
	Admin   *AdminHandler
	Metrics *MetricsHandler
}

// Register mounts every enrollment route on api behind bearer authentication.
func (h Handlers) Register(api *gin.RouterGroup, tokens middleware.TokenValidator) {
	authed := api.Group("")
	authed.Use(middleware.JWT(tokens))
	authed.GET("/sections/:id/availability", h.Catalog.Availability)

	student := authed.Group("")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	student.GET("/offerings", middleware.WithResponseMeta(), h.Catalog.Offerings)
	student.GET("/cart", h.Cart.Get)
	student.POST("/cart", h.Cart.Open)
	student.POST("/cart/items", h.Cart.AddItem)
	student.DELETE("/cart/items/:sectionId", h.Cart.RemoveItem)
	student.POST("/cart/confirm", h.Cart.Confirm)
	student.GET("/enrollments", h.Cart.Enrollments)

	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	staff.GET("/enrollment-attempts", h.Admin.Attempts)
	staff.POST("/admin/sweeps", h.Admin.Sweep)
	staff.POST("/admin/catalog/refresh", h.Catalog.Refresh)
	staff.GET("/admin/metrics/summary", h.Metrics.Summary)
}

// RegisterOps mounts unauthenticated operational endpoints at the root.
func (h Handlers) RegisterOps(r gin.IRoutes) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
}
