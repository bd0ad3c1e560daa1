package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/logger"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/middleware"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/usecase"
)

// MobileLoginService issues mobile tokens.
type MobileLoginService interface {
	Login(ctx context.Context, input usecase.LoginInput) (*usecase.LoginResult, error)
}

// MobileAuthHandler exposes the mobile login and identity endpoints.
type MobileAuthHandler struct {
	auth MobileLoginService
}

// NewMobileAuthHandler constructs MobileAuthHandler.
func NewMobileAuthHandler(auth MobileLoginService) *MobileAuthHandler {
	return &MobileAuthHandler{auth: auth}
}

// Login godoc
// @Summary Mobile login
// @Description Verifies username and password and issues a signed mobile token bound to the device.
// @Tags Mobile
// @Accept json
// @Produce json
// @Param request body MobileLoginRequest true "Login payload"
// @Success 200 {object} MobileLoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/v1/mobile/auth/login [post]
func (h *MobileAuthHandler) Login(c *gin.Context) {
	var req MobileLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithCode(c, http.StatusBadRequest, middleware.CodeInvalidRequest)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Username: req.Username,
		Password: req.Password,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		logger.WithContext(c.Request.Context()).Info("mobile login rejected",
			zap.String("username", logger.MaskString(req.Username)),
			zap.Error(err),
		)
		middleware.RespondWithMappedError(c, err, loginErrors...)
		return
	}

	c.JSON(http.StatusOK, MobileLoginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		UserID:      result.UserID,
		SessionID:   result.SessionID,
	})
}

// Me godoc
// @Summary Current mobile identity
// @Description Returns the enriched identity attached by the mobile auth gate.
// @Tags Mobile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/mobile/me [get]
func (h *MobileAuthHandler) Me(c *gin.Context) {
	auth, ok := middleware.GetAuthContext(c)
	if !ok {
		middleware.AbortWithCode(c, http.StatusUnauthorized, middleware.CodeTokenMissing)
		return
	}
	c.JSON(http.StatusOK, newMeResponse(auth))
}
