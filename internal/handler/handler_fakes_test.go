package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sisacad-enrollment/internal/middleware"
	"github.com/noah-isme/sisacad-enrollment/internal/models"
	"github.com/noah-isme/sisacad-enrollment/internal/service"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
)

type fakeCarts struct {
	openTerm    string
	addReq      service.AddToCartRequest
	addStudent  string
	addErr      error
	removed     []string
	viewTerm    string
	view        *models.CartView
	enrollments []models.Enrollment
	err         error
}

func (f *fakeCarts) GetOrCreateActiveCart(_ context.Context, studentID, termID string) (*models.Cart, error) {
	f.openTerm = termID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Cart{ID: "cart-1", StudentID: studentID, TermID: termID, IsActive: true}, nil
}

func (f *fakeCarts) AddToCart(_ context.Context, studentID string, req service.AddToCartRequest) (*models.CartItem, error) {
	f.addStudent = studentID
	f.addReq = req
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &models.CartItem{ID: "item-1", SectionID: req.SectionID}, nil
}

func (f *fakeCarts) RemoveFromCart(_ context.Context, studentID, termID, sectionID string) error {
	f.removed = append(f.removed, studentID+"/"+termID+"/"+sectionID)
	return f.err
}

func (f *fakeCarts) ActiveCart(_ context.Context, _ string, termID string) (*models.CartView, error) {
	f.viewTerm = termID
	return f.view, f.err
}

func (f *fakeCarts) MyEnrollments(context.Context, string) ([]models.Enrollment, error) {
	return f.enrollments, f.err
}

type fakeConfirmer struct {
	termID string
	result *models.ConfirmResult
	err    error
}

func (f *fakeConfirmer) Confirm(_ context.Context, _ string, termID string) (*models.ConfirmResult, error) {
	f.termID = termID
	return f.result, f.err
}

type fakeCatalog struct {
	offerings   []models.SectionOffering
	hit         bool
	err         error
	invalidated int
}

func (f *fakeCatalog) Offerings(context.Context) ([]models.SectionOffering, bool, error) {
	return f.offerings, f.hit, f.err
}

func (f *fakeCatalog) InvalidateOfferings(context.Context) error {
	f.invalidated++
	return f.err
}

type fakeAvailability struct {
	availability *models.SectionAvailability
	err          error
}

func (f *fakeAvailability) Availability(_ context.Context, sectionID string) (*models.SectionAvailability, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := *f.availability
	out.SectionID = sectionID
	return &out, nil
}

type fakeAttempts struct {
	filter models.EnrollmentAttemptFilter
	err    error
}

func (f *fakeAttempts) List(_ context.Context, filter models.EnrollmentAttemptFilter) ([]models.EnrollmentAttempt, *models.Pagination, error) {
	f.filter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.EnrollmentAttempt{{ID: "att-1", Action: filter.Action}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

type fakeSweeper struct {
	cutoff time.Time
	err    error
}

func (f *fakeSweeper) Sweep(_ context.Context, now time.Time) (*models.SweepResult, error) {
	f.cutoff = now
	if f.err != nil {
		return nil, f.err
	}
	return &models.SweepResult{ReservationsReleased: 2, ItemsReleased: 2, Cutoff: now}, nil
}

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

var (
	studentClaims = &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}
	adminClaims   = &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin}
)

func newTestContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *envelopeError         `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func newTestRouter(h Handlers, tokens tokenTable) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterOps(r)
	h.Register(r.Group("/api/v1"), tokens)
	return r
}

func doRequest(r http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func ginParam(key, value string) gin.Param {
	return gin.Param{Key: key, Value: value}
}
