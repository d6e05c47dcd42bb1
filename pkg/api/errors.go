package api

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"blog/pkg/auth"
	"blog/pkg/media"
	"blog/pkg/storage"
)

var (
	errAuthorMismatch = errors.New("author does not match the authenticated user")
	errEmptyText      = errors.New("text is required")
	errBlogFields     = errors.New("title and description are required")
	errRejected       = errors.New("text was rejected by moderation")
	errBadBody        = errors.New("invalid request body")
)

// errorStatus maps a handler error to the response status and message.
// Unknown errors are reported as a generic server error.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest, "Email and password are required"
	case errors.Is(err, auth.ErrDuplicateAccount):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, errEmptyText):
		return http.StatusBadRequest, "Text is required"
	case errors.Is(err, errBlogFields):
		return http.StatusBadRequest, "Title and description are required"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "Token is not valid"
	case errors.Is(err, errAuthorMismatch):
		return http.StatusForbidden, "Author does not match the authenticated user"
	case errors.Is(err, storage.ErrBlogNotFound):
		return http.StatusNotFound, "Blog not found"
	case errors.Is(err, storage.ErrCommentNotFound):
		return http.StatusNotFound, "Comment not found"
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "Upload is too large"
	case errors.Is(err, errRejected):
		return http.StatusUnprocessableEntity, "Text contains banned words"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

// fail writes the response for err. Server errors are logged at error level,
// client errors at debug level.
func fail(w http.ResponseWriter, handler, sID string, err error) {
	status, msg := errorStatus(err)
	writeError(w, status, msg)

	if status >= http.StatusInternalServerError {
		log.Errorf("[%s][%s] %v", handler, sID, err)
		return
	}
	log.Debugf("[%s][%s] %v", handler, sID, err)
}
