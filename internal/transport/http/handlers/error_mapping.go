package handlers

import (
	"errors"
	"net/http"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/middleware"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/usecase"
)

var loginErrors = []middleware.ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Code: middleware.CodeInvalidCredentials},
	{Err: usecase.ErrAccountDisabled, Status: http.StatusForbidden, Code: middleware.CodeAccountDisabled},
	{Err: domain.ErrConfiguration, Status: http.StatusInternalServerError, Code: middleware.CodeServerConfig},
}

var syncErrors = []middleware.ErrorCase{
	{Err: usecase.ErrInvalidSyncRequest, Status: http.StatusBadRequest, Code: middleware.CodeInvalidRequest},
	{Err: usecase.ErrTooManyDeltas, Status: http.StatusRequestEntityTooLarge, Code: middleware.CodeTooManyDeltas},
	{Err: usecase.ErrInvalidStrategy, Status: http.StatusBadRequest, Code: middleware.CodeInvalidRequest},
	{Err: usecase.ErrStrategyNotAllowed, Status: http.StatusUnprocessableEntity, Code: middleware.CodeStrategyNotAllowed},
	{Err: usecase.ErrSessionAccessDenied, Status: http.StatusForbidden, Code: middleware.CodeSurveyDenied},
}

// resolutionFailures maps per-conflict rejections to codes carried in the
// resolve response.
var resolutionFailures = []middleware.ErrorCase{
	{Err: usecase.ErrConflictNotFound, Status: http.StatusNotFound, Code: middleware.CodeConflictNotFound},
	{Err: usecase.ErrConflictForbidden, Status: http.StatusForbidden, Code: middleware.CodeConflictForbidden},
	{Err: usecase.ErrConflictAlreadyResolved, Status: http.StatusConflict, Code: middleware.CodeConflictResolved},
	{Err: usecase.ErrConflictStale, Status: http.StatusConflict, Code: middleware.CodeConflictStale},
	{Err: usecase.ErrStrategyNotAllowed, Status: http.StatusUnprocessableEntity, Code: middleware.CodeStrategyNotAllowed},
	{Err: usecase.ErrResolutionInvalid, Status: http.StatusUnprocessableEntity, Code: middleware.CodeResolutionInvalid},
}

var attachmentErrors = []middleware.ErrorCase{
	{Err: usecase.ErrObjectNotFound, Status: http.StatusNotFound, Code: middleware.CodeObjectNotFound},
	{Err: usecase.ErrInvalidPolicy, Status: http.StatusBadRequest, Code: middleware.CodeInvalidRequest},
	{Err: usecase.ErrInvalidFilename, Status: http.StatusBadRequest, Code: middleware.CodeInvalidRequest},
	{Err: domain.ErrConfiguration, Status: http.StatusInternalServerError, Code: middleware.CodeServerConfig},
}

func failureCode(err error) string {
	for _, candidate := range resolutionFailures {
		if errors.Is(err, candidate.Err) {
			return candidate.Code
		}
	}
	return middleware.CodeInternal
}
