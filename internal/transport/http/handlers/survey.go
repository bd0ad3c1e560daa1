package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/middleware"
)

// SurveyAccessChecker answers survey session access questions.
type SurveyAccessChecker interface {
	CanAccessSurveySession(ctx context.Context, userID, sessionID string) bool
}

// SurveyHandler exposes survey session and geographic access checks.
type SurveyHandler struct {
	access SurveyAccessChecker
}

// NewSurveyHandler constructs SurveyHandler.
func NewSurveyHandler(access SurveyAccessChecker) *SurveyHandler {
	return &SurveyHandler{access: access}
}

// SessionAccess godoc
// @Summary Check survey session access
// @Tags Survey
// @Produce json
// @Security BearerAuth
// @Param id path string true "Survey session id"
// @Success 200 {object} AccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/survey-sessions/{id}/access [get]
func (h *SurveyHandler) SessionAccess(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		middleware.AbortWithCode(c, http.StatusUnauthorized, middleware.CodeTokenMissing)
		return
	}

	if !h.access.CanAccessSurveySession(c.Request.Context(), userID, c.Param("id")) {
		middleware.AbortWithCode(c, http.StatusForbidden, middleware.CodeSurveyDenied)
		return
	}
	c.JSON(http.StatusOK, AccessResponse{Allowed: true})
}

// GeoCheck godoc
// @Summary Check geographic access
// @Description Answers 200 when RequireGeographicAccess admitted the requested scope.
// @Tags Survey
// @Produce json
// @Security BearerAuth
// @Param governorateId query string false "Governorate"
// @Param districtId query string false "District"
// @Param subDistrictId query string false "Sub-district"
// @Param neighborhoodId query string false "Neighborhood"
// @Success 200 {object} AccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/geo/check [get]
func (h *SurveyHandler) GeoCheck(c *gin.Context) {
	resp := AccessResponse{Allowed: true}
	if scope, ok := middleware.GetGeographicScope(c); ok {
		resp.Scope = &scope
	}
	c.JSON(http.StatusOK, resp)
}
