package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/middleware"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/usecase"
)

// AttachmentService is the object ACL surface used by the handler.
type AttachmentService interface {
	RequestUpload(ctx context.Context, uploaderID string, req usecase.UploadRequest) (*usecase.UploadTicket, error)
	PresignDownload(ctx context.Context, userID, key string) (usecase.Decision, *port.PresignedRequest, error)
	AuthorizeObject(ctx context.Context, userID, key string, requested domain.Permission) (usecase.Decision, error)
	SetObjectACLPolicy(ctx context.Context, key string, policy domain.ObjectACLPolicy) error
}

// AttachmentHandler issues presigned URLs for attachments guarded by object ACLs.
type AttachmentHandler struct {
	acl AttachmentService
}

// NewAttachmentHandler constructs AttachmentHandler.
func NewAttachmentHandler(acl AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{acl: acl}
}

// UploadURL godoc
// @Summary Request an upload URL
// @Description Allocates an attachment key owned by the caller and presigns a single PUT carrying the ACL policy.
// @Tags Attachments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UploadURLRequest true "Attachment description"
// @Success 201 {object} UploadURLResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/attachments/upload-url [post]
func (h *AttachmentHandler) UploadURL(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		middleware.AbortWithCode(c, http.StatusUnauthorized, middleware.CodeTokenMissing)
		return
	}

	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithCode(c, http.StatusBadRequest, middleware.CodeInvalidRequest)
		return
	}

	ticket, err := h.acl.RequestUpload(c.Request.Context(), userID, req.toUsecase())
	if err != nil {
		middleware.RespondWithMappedError(c, err, attachmentErrors...)
		return
	}

	c.JSON(http.StatusCreated, UploadURLResponse{
		ObjectID: ticket.ObjectID,
		Key:      ticket.Key,
		Upload:   newPresignedPayload(ticket.Request),
		Policy:   ticket.Policy,
	})
}

// Download godoc
// @Summary Presign an attachment download
// @Description Anonymous callers may download public objects; anything else needs a bearer token.
// @Tags Attachments
// @Produce json
// @Security BearerAuth
// @Param key path string true "Object key"
// @Success 200 {object} DownloadResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/attachments/{key} [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	userID, authenticated := middleware.GetAuthenticatedUserID(c)
	key, ok := objectKey(c)
	if !ok {
		middleware.AbortWithCode(c, http.StatusBadRequest, middleware.CodeInvalidRequest)
		return
	}

	decision, presigned, err := h.acl.PresignDownload(c.Request.Context(), userID, key)
	if err != nil {
		middleware.RespondWithMappedError(c, err, attachmentErrors...)
		return
	}
	if !decision.Allowed {
		if !authenticated {
			middleware.AbortWithCode(c, http.StatusUnauthorized, middleware.CodeTokenMissing)
			return
		}
		middleware.AbortWithCode(c, http.StatusForbidden, decision.Code)
		return
	}

	c.JSON(http.StatusOK, DownloadResponse{Key: key, Download: newPresignedPayload(*presigned)})
}

// ReplaceACL godoc
// @Summary Replace an attachment ACL policy
// @Description Requires WRITE on the current policy. The policy is replaced wholesale.
// @Tags Attachments
// @Accept json
// @Security BearerAuth
// @Param key path string true "Object key"
// @Param request body domain.ObjectACLPolicy true "New policy"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/attachments/acl/{key} [put]
func (h *AttachmentHandler) ReplaceACL(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		middleware.AbortWithCode(c, http.StatusUnauthorized, middleware.CodeTokenMissing)
		return
	}
	key, ok := objectKey(c)
	if !ok {
		middleware.AbortWithCode(c, http.StatusBadRequest, middleware.CodeInvalidRequest)
		return
	}

	var policy domain.ObjectACLPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		middleware.AbortWithCode(c, http.StatusBadRequest, middleware.CodeInvalidRequest)
		return
	}

	decision, err := h.acl.AuthorizeObject(c.Request.Context(), userID, key, domain.PermissionWrite)
	if err != nil {
		middleware.RespondWithMappedError(c, err, attachmentErrors...)
		return
	}
	if !decision.Allowed {
		middleware.AbortWithCode(c, http.StatusForbidden, decision.Code)
		return
	}

	if err := h.acl.SetObjectACLPolicy(c.Request.Context(), key, policy); err != nil {
		middleware.RespondWithMappedError(c, err, attachmentErrors...)
		return
	}
	c.Status(http.StatusNoContent)
}

func objectKey(c *gin.Context) (string, bool) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
