package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sisacad-enrollment/internal/middleware"
	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// studentFromContext returns the calling student's id or a typed auth error.
func studentFromContext(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if !claims.IsStudent() {
		return "", appErrors.Clone(appErrors.ErrForbidden, "only students have an enrollment cart")
	}
	return claims.UserID, nil
}

// resolveTerm prefers the explicit term and falls back to the configured active term.
func resolveTerm(explicit, fallback string) (string, error) {
	if term := strings.TrimSpace(explicit); term != "" {
		return term, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "termId is required")
}
