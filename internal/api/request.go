package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kickgym/internal/auth"
)

const maxPageSize = 200

// Requester returns the authenticated identity, answering 401 when the
// route was mounted without the auth middleware.
func Requester(c *gin.Context) (auth.Identity, bool) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return auth.Identity{}, false
	}
	return id, true
}

// Page reads limit/offset query parameters, clamping them to sane bounds.
func Page(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > maxPageSize {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
