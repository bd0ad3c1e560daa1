package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/middleware"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/usecase"
)

// SyncUsecase is the delta sync surface used by the handler.
type SyncUsecase interface {
	Push(ctx context.Context, in usecase.PushInput) (*usecase.PushResult, error)
	Pull(ctx context.Context, in usecase.PullInput) (*usecase.PullResult, error)
	ListConflicts(ctx context.Context, userID, sessionID string) ([]domain.SyncConflict, error)
	ResolveConflicts(ctx context.Context, in usecase.ResolveInput) (*usecase.ResolveResult, error)
}

// SyncHandler exposes delta sync endpoints for mobile clients.
type SyncHandler struct {
	sync SyncUsecase
}

// NewSyncHandler constructs SyncHandler.
func NewSyncHandler(sync SyncUsecase) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// RegisterRoutes binds the sync endpoints. Callers apply authentication.
func (h *SyncHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/pull", h.Pull)
	r.POST("/push", h.Push)
	r.GET("/conflicts", h.Conflicts)
	r.POST("/resolve-conflicts", h.ResolveConflicts)
}

// Pull godoc
// @Summary Pull changed records
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Param table query string true "Table name"
// @Param sessionId query string true "Survey session"
// @Param since query int false "Revision cursor"
// @Param limit query int false "Page size"
// @Success 200 {object} PullResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/sync/pull [get]
func (h *SyncHandler) Pull(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		middleware.AbortWithCode(c, http.StatusUnauthorized, middleware.CodeTokenMissing)
		return
	}

	since, err := queryInt64(c, "since")
	if err != nil {
		middleware.AbortWithCode(c, http.StatusBadRequest, middleware.CodeInvalidRequest)
		return
	}
	limit, err := queryInt64(c, "limit")
	if err != nil {
		middleware.AbortWithCode(c, http.StatusBadRequest, middleware.CodeInvalidRequest)
		return
	}

	result, err := h.sync.Pull(c.Request.Context(), usecase.PullInput{
		UserID:    userID,
		SessionID: c.Query("sessionId"),
		TableName: c.Query("table"),
		Since:     since,
		Limit:     int(limit),
	})
	if err != nil {
		middleware.RespondWithMappedError(c, err, syncErrors...)
		return
	}

	records := make([]RecordPayload, 0, len(result.Records))
	for _, record := range result.Records {
		records = append(records, newRecordPayload(record))
	}
	c.JSON(http.StatusOK, PullResponse{Records: records, Cursor: result.Cursor, HasMore: result.HasMore})
}

// Push godoc
// @Summary Push local edits
// @Description Applies each delta or records a conflict. Outcomes are returned in request order.
// @Tags Sync
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PushRequest true "Deltas"
// @Success 200 {object} PushResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /api/v1/sync/push [post]
func (h *SyncHandler) Push(c *gin.Context) {
	auth, ok := middleware.GetAuthContext(c)
	if !ok {
		middleware.AbortWithCode(c, http.StatusUnauthorized, middleware.CodeTokenMissing)
		return
	}

	var req PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithCode(c, http.StatusBadRequest, middleware.CodeInvalidRequest)
		return
	}

	result, err := h.sync.Push(c.Request.Context(), usecase.PushInput{
		SessionID: req.SessionID,
		UserID:    auth.UserID,
		Deltas:    req.Deltas,
	})
	if err != nil {
		middleware.RespondWithMappedError(c, err, syncErrors...)
		return
	}

	c.JSON(http.StatusOK, PushResponse{
		Outcomes:  result.Outcomes,
		Conflicts: newConflictPayloads(result.Conflicts),
	})
}

// Conflicts godoc
// @Summary List unresolved conflicts
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Param sessionId query string false "Sync session"
// @Success 200 {object} ConflictListResponse
// @Router /api/v1/sync/conflicts [get]
func (h *SyncHandler) Conflicts(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		middleware.AbortWithCode(c, http.StatusUnauthorized, middleware.CodeTokenMissing)
		return
	}

	conflicts, err := h.sync.ListConflicts(c.Request.Context(), userID, c.Query("sessionId"))
	if err != nil {
		middleware.RespondWithMappedError(c, err, syncErrors...)
		return
	}
	c.JSON(http.StatusOK, ConflictListResponse{Conflicts: newConflictPayloads(conflicts)})
}

// ResolveConflicts godoc
// @Summary Resolve conflicts
// @Description Applies explicit resolutions. Rejected items are listed with their error code; the rest are applied.
// @Tags Sync
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ResolveConflictsRequest true "Resolutions"
// @Success 200 {object} ResolveConflictsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ResolveConflictsErrorResponse
// @Router /api/v1/sync/resolve-conflicts [post]
func (h *SyncHandler) ResolveConflicts(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		middleware.AbortWithCode(c, http.StatusUnauthorized, middleware.CodeTokenMissing)
		return
	}

	var req ResolveConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithCode(c, http.StatusBadRequest, middleware.CodeInvalidRequest)
		return
	}

	result, err := h.sync.ResolveConflicts(c.Request.Context(), usecase.ResolveInput{
		SessionID:   req.SessionID,
		UserID:      userID,
		Resolutions: req.Resolutions,
	})
	if err != nil {
		if result == nil {
			middleware.RespondWithMappedError(c, err, syncErrors...)
			return
		}
		// The batch aborted midway; report what was already committed.
		_ = c.Error(err)
		middleware.AbortWithBody(c, http.StatusInternalServerError, middleware.CodeInternal, ResolveConflictsErrorResponse{
			ErrorResponse: middleware.NewErrorResponse(c, middleware.CodeInternal),
			Resolved:      result.Resolved,
			Failures:      newFailurePayloads(result.Failures),
		})
		return
	}

	c.JSON(http.StatusOK, ResolveConflictsResponse{Resolved: result.Resolved, Failures: newFailurePayloads(result.Failures)})
}

func newFailurePayloads(failures []usecase.ResolutionFailure) []ResolutionFailurePayload {
	out := make([]ResolutionFailurePayload, 0, len(failures))
	for _, failure := range failures {
		code := failureCode(failure.Err)
		out = append(out, ResolutionFailurePayload{
			ConflictID: failure.ConflictID,
			Code:       code,
			Error:      middleware.Message(code),
		})
	}
	return out
}

func queryInt64(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
