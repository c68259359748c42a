package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
	"github.com/noah-isme/sisacad-enrollment/pkg/response"
)

type attemptLister interface {
	List(ctx context.Context, filter models.EnrollmentAttemptFilter) ([]models.EnrollmentAttempt, *models.Pagination, error)
}

type expirySweeper interface {
	Sweep(ctx context.Context, now time.Time) (*models.SweepResult, error)
}

// AdminHandler exposes staff-only enrollment operations.
type AdminHandler struct {
	attempts attemptLister
	sweeper  expirySweeper
	now      func() time.Time
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(attempts attemptLister, sweeper expirySweeper) *AdminHandler {
	return &AdminHandler{attempts: attempts, sweeper: sweeper, now: func() time.Time { return time.Now().UTC() }}
}

// Attempts godoc
// @Summary Enrollment attempt audit feed
// @Tags Admin
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param termId query string false "Filter by term"
// @Param action query string false "ADD_TO_CART, REMOVE_FROM_CART or CONFIRM"
// @Param since query string false "RFC3339 lower bound on created_at"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollment-attempts [get]
func (h *AdminHandler) Attempts(c *gin.Context) {
	if h.attempts == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrModelUnavailable, "attempt store is not configured"))
		return
	}
	filter := models.EnrollmentAttemptFilter{
		StudentID: c.Query("studentId"),
		TermID:    c.Query("termId"),
		Action:    strings.ToUpper(c.Query("action")),
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "since must be RFC3339"))
			return
		}
		filter.Since = &since
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	attempts, pagination, err := h.attempts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, pagination)
}

// Sweep godoc
// @Summary Release expired holds now
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/sweeps [post]
func (h *AdminHandler) Sweep(c *gin.Context) {
	if h.sweeper == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrModelUnavailable, "sweeper is not configured"))
		return
	}
	result, err := h.sweeper.Sweep(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
