package handler

import (
	"errors"
	"net/http"

	"github.com/etests/etests-backend/internal/response"
	"github.com/etests/etests-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

var errorMappings = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrTokenInvalid, http.StatusUnauthorized, response.ErrTokenInvalid},
	{service.ErrTokenExpired, http.StatusUnauthorized, response.ErrTokenExpired},
	{service.ErrSessionInvalidated, http.StatusUnauthorized, response.ErrSessionInvalidated},
	{service.ErrAccountDisabled, http.StatusForbidden, response.ErrAccountDisabled},
	{service.ErrEmailTaken, http.StatusConflict, response.ErrConflict},
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrAlreadyCompleted, http.StatusConflict, response.ErrAlreadyCompleted},
	{service.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted},
	{service.ErrExpiredAttempt, http.StatusConflict, response.ErrExpiredAttempt},
	{service.ErrNotSubmitted, http.StatusConflict, response.ErrNotSubmitted},
	{service.ErrInvalidSubmission, http.StatusBadRequest, response.ErrInvalidSubmission},
	{service.ErrInvalidAnswer, http.StatusUnprocessableEntity, response.ErrInvalidAnswer},
	{service.ErrInvalidWindow, http.StatusUnprocessableEntity, response.ErrInvalidWindow},
}

// classify maps a service error to its HTTP status and error code.
func classify(err error) (int, response.ErrCode) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// fail writes the envelope for err. Unknown errors are attached to the gin
// context for the logger and reported as internal.
func fail(c *gin.Context, err error) {
	status, code := classify(err)
	if code == response.ErrInternal {
		_ = c.Error(err)
	}
	response.Fail(c, status, code)
}

// paramUUID parses a path parameter, writing INVALID_ID on failure.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
