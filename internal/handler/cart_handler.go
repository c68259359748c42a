package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	"github.com/noah-isme/sisacad-enrollment/internal/service"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
	"github.com/noah-isme/sisacad-enrollment/pkg/response"
)

type cartService interface {
	GetOrCreateActiveCart(ctx context.Context, studentID, termID string) (*models.Cart, error)
	AddToCart(ctx context.Context, studentID string, req service.AddToCartRequest) (*models.CartItem, error)
	RemoveFromCart(ctx context.Context, studentID, termID, sectionID string) error
	ActiveCart(ctx context.Context, studentID, termID string) (*models.CartView, error)
	MyEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

type confirmService interface {
	Confirm(ctx context.Context, studentID, termID string) (*models.ConfirmResult, error)
}

// CartTermRequest optionally names the term a cart request applies to.
type CartTermRequest struct {
	TermID string `json:"term_id"`
}

// CartHandler exposes the student's enrollment cart.
type CartHandler struct {
	carts        cartService
	confirmer    confirmService
	activeTermID string
}

// NewCartHandler constructs CartHandler. activeTermID applies when a request omits the term.
func NewCartHandler(carts cartService, confirmer confirmService, activeTermID string) *CartHandler {
	return &CartHandler{carts: carts, confirmer: confirmer, activeTermID: activeTermID}
}

// Get godoc
// @Summary Active cart
// @Tags Cart
// @Produce json
// @Param termId query string false "Term ID, defaults to the active term"
// @Success 200 {object} response.Envelope
// @Router /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	studentID, termID, ok := h.scope(c, c.Query("termId"))
	if !ok {
		return
	}
	view, err := h.carts.ActiveCart(c.Request.Context(), studentID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Open godoc
// @Summary Open the cart for a term
// @Tags Cart
// @Accept json
// @Produce json
// @Param payload body CartTermRequest false "Term to open, defaults to the active term"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cart [post]
func (h *CartHandler) Open(c *gin.Context) {
	studentID, termID, ok := h.scopeFromBody(c)
	if !ok {
		return
	}
	cart, err := h.carts.GetOrCreateActiveCart(c.Request.Context(), studentID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cart, nil)
}

// AddItem godoc
// @Summary Reserve a section in the cart
// @Tags Cart
// @Accept json
// @Produce json
// @Param payload body service.AddToCartRequest true "Section selection"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req service.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	studentID, termID, ok := h.scope(c, req.TermID)
	if !ok {
		return
	}
	req.TermID = termID
	item, err := h.carts.AddToCart(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// RemoveItem godoc
// @Summary Remove a section from the cart
// @Tags Cart
// @Produce json
// @Param sectionId path string true "Section ID"
// @Param termId query string false "Term ID, defaults to the active term"
// @Success 204
// @Router /cart/items/{sectionId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	studentID, termID, ok := h.scope(c, c.Query("termId"))
	if !ok {
		return
	}
	if err := h.carts.RemoveFromCart(c.Request.Context(), studentID, termID, c.Param("sectionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Confirm godoc
// @Summary Confirm the cart into enrollments
// @Tags Cart
// @Accept json
// @Produce json
// @Param payload body CartTermRequest false "Term to confirm"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /cart/confirm [post]
func (h *CartHandler) Confirm(c *gin.Context) {
	studentID, termID, ok := h.scopeFromBody(c)
	if !ok {
		return
	}
	if h.confirmer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrModelUnavailable, "confirmation is not configured"))
		return
	}
	result, err := h.confirmer.Confirm(c.Request.Context(), studentID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Enrollments godoc
// @Summary Sections the caller is enrolled in
// @Tags Cart
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *CartHandler) Enrollments(c *gin.Context) {
	studentID, err := studentFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.carts == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrModelUnavailable, "cart store is not configured"))
		return
	}
	enrollments, err := h.carts.MyEnrollments(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// scope resolves the calling student and term, writing the error response itself.
func (h *CartHandler) scope(c *gin.Context, explicitTerm string) (string, string, bool) {
	studentID, err := studentFromContext(c)
	if err != nil {
		response.Error(c, err)
		return "", "", false
	}
	termID, err := resolveTerm(explicitTerm, h.activeTermID)
	if err != nil {
		response.Error(c, err)
		return "", "", false
	}
	if h.carts == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrModelUnavailable, "cart store is not configured"))
		return "", "", false
	}
	return studentID, termID, true
}

// scopeFromBody reads an optional CartTermRequest body, falling back to the termId query.
func (h *CartHandler) scopeFromBody(c *gin.Context) (string, string, bool) {
	var req CartTermRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return "", "", false
	}
	if req.TermID == "" {
		req.TermID = c.Query("termId")
	}
	return h.scope(c, req.TermID)
}
