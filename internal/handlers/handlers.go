package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iseelabs/isee/internal/pkg/xerr"
)

// httpStatusFor maps a business code onto the HTTP status it travels with.
func httpStatusFor(code int) int {
	switch code {
	case xerr.InvalidParamsCode, xerr.MalformedBodyCode, xerr.MissingFieldCode, xerr.UnsupportedTypeCode:
		return http.StatusBadRequest
	case xerr.UnauthorizedCode, xerr.TokenInvalidCode, xerr.InvalidCredentialsCode, xerr.AccountNotVerifiedCode:
		return http.StatusUnauthorized
	case xerr.ForbiddenCode:
		return http.StatusForbidden
	case xerr.NotFoundCode, xerr.UserNotFoundCode, xerr.VideoNotFoundCode, xerr.CommentNotFoundCode, xerr.ImageNotFoundCode:
		return http.StatusNotFound
	case xerr.DuplicateTitleCode, xerr.ImageAlreadyExistsCode,
		xerr.UserAlreadyExistsCode, xerr.EmailAlreadyExistsCode:
		return http.StatusNotAcceptable
	default:
		return http.StatusInternalServerError
	}
}

// respondError translates a service error into the JSON envelope.
func respondError(c *gin.Context, err error) {
	var codeErr *xerr.CodeError
	if errors.As(err, &codeErr) {
		xerr.Error(c, httpStatusFor(codeErr.Code), codeErr.Code, codeErr.Error())
		return
	}
	xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, xerr.ErrInternalServer.Error())
}

// pathID parses the numeric :id path parameter. Writes a 400 and returns
// ok=false on garbage.
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}
