package checkin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kickgym/internal/api"
	"kickgym/internal/apperr"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Toggle godoc
// @Summary      Toggle check-in
// @Description  Checks a member in, or out when they are already on the premises. Staff only.
// @Tags         checkins
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      ToggleRequest  true  "Member number or badge code"
// @Success      200      {object}  ToggleResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /admin/checkins [post]
func (h *Handler) Toggle(c *gin.Context) {
	var req ToggleRequest
	if !api.BindJSON(c, &req) {
		return
	}

	res, err := apperr.RetryConflict(func() (*ToggleResult, error) {
		return h.service.Toggle(c.Request.Context(), req.Identifier, req.Method)
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListOpen godoc
// @Summary      Members on premises
// @Description  Lists open check-in sessions. Staff only.
// @Tags         checkins
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   OpenSession
// @Failure      503  {object}  api.ErrorResponse
// @Router       /admin/checkins/open [get]
func (h *Handler) ListOpen(c *gin.Context) {
	sessions, err := h.service.ListOpen(c.Request.Context())
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}
