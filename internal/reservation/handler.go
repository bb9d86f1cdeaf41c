package reservation

import (
	"context"
	"net/http"
	"strconv"
	"time"

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

// Book godoc
// @Summary      Book a training slot
// @Description  Debits one session credit and creates a confirmed reservation. Staff may book on behalf of member_id.
// @Tags         reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      BookRequest  true  "Slot"
// @Success      201      {object}  BookingResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      402      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /reservations [post]
func (h *Handler) Book(c *gin.Context) {
	requester, ok := api.Requester(c)
	if !ok {
		return
	}
	var req BookRequest
	if !api.BindJSON(c, &req) {
		return
	}

	resp, err := apperr.RetryConflict(func() (*BookingResponse, error) {
		return h.service.Book(c.Request.Context(), requester, req)
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List reservations
// @Description  Lists the requester's reservations, latest slot first. Staff may pass member_id.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        member_id  query     int  false  "Member (staff only)"
// @Param        limit      query     int  false  "Page size"  default(50)
// @Param        offset     query     int  false  "Offset"     default(0)
// @Success      200        {array}   Reservation
// @Failure      403        {object}  api.ErrorResponse
// @Router       /reservations [get]
func (h *Handler) List(c *gin.Context) {
	requester, ok := api.Requester(c)
	if !ok {
		return
	}

	memberID := requester.MemberID
	if raw := c.Query("member_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			api.BadRequest(c, "invalid member_id")
			return
		}
		if !requester.CanActFor(id) {
			api.RespondError(c, apperr.Forbidden("only staff may list another member's reservations"))
			return
		}
		memberID = id
	}
	limit, offset := api.Page(c)

	out, err := h.service.List(c.Request.Context(), memberID, limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Cancel godoc
// @Summary      Cancel reservation
// @Description  Cancels a confirmed reservation and returns its session credit.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Reservation ID"
// @Success      200  {object}  BookingResponse
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /reservations/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	requester, ok := api.Requester(c)
	if !ok {
		return
	}
	id, ok := api.IDParam(c, "id")
	if !ok {
		return
	}

	resp, err := apperr.RetryConflict(func() (*BookingResponse, error) {
		return h.service.Cancel(c.Request.Context(), requester, id)
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reschedule godoc
// @Summary      Reschedule reservation
// @Description  Cancels a confirmed reservation and books its replacement without moving credits.
// @Tags         reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                true  "Reservation ID"
// @Param        request  body      RescheduleRequest  true  "New slot"
// @Success      200      {object}  RescheduleResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /reservations/{id}/reschedule [post]
func (h *Handler) Reschedule(c *gin.Context) {
	requester, ok := api.Requester(c)
	if !ok {
		return
	}
	id, ok := api.IDParam(c, "id")
	if !ok {
		return
	}
	var req RescheduleRequest
	if !api.BindJSON(c, &req) {
		return
	}

	resp, err := apperr.RetryConflict(func() (*RescheduleResponse, error) {
		return h.service.Reschedule(c.Request.Context(), requester, id, req)
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Complete godoc
// @Summary      Complete reservation
// @Description  Marks a confirmed reservation as attended. Staff only.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Reservation ID"
// @Success      200  {object}  Reservation
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /admin/reservations/{id}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	h.close(c, h.service.Complete)
}

// MarkNoShow godoc
// @Summary      Mark no-show
// @Description  Marks a confirmed reservation as missed. The credit is not returned. Staff only.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Reservation ID"
// @Success      200  {object}  Reservation
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /admin/reservations/{id}/no-show [post]
func (h *Handler) MarkNoShow(c *gin.Context) {
	h.close(c, h.service.MarkNoShow)
}

func (h *Handler) close(c *gin.Context, op func(ctx context.Context, id int) (*Reservation, error)) {
	id, ok := api.IDParam(c, "id")
	if !ok {
		return
	}

	r, err := apperr.RetryConflict(func() (*Reservation, error) {
		return op(c.Request.Context(), id)
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Stats godoc
// @Summary      Reservation stats
// @Description  Counts reservations starting in [from, to) per local day and per trainer. Staff only.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  true  "Range start (RFC3339)"
// @Param        to    query     string  true  "Range end (RFC3339)"
// @Success      200   {object}  StatsReport
// @Failure      400   {object}  api.ErrorResponse
// @Router       /admin/reservations/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr == "" || toStr == "" {
		api.BadRequest(c, "from and to query params are required")
		return
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		api.BadRequest(c, "invalid from format, use RFC3339")
		return
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		api.BadRequest(c, "invalid to format, use RFC3339")
		return
	}

	report, err := h.service.Stats(c.Request.Context(), from.UTC(), to.UTC())
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
