package event

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

// ListEvents godoc
// @Summary      List upcoming events
// @Description  Returns upcoming events with their registration count and free seats.
// @Tags         events
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   EventWithSeats
// @Failure      503  {object}  api.ErrorResponse
// @Router       /events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.service.ListUpcoming(c.Request.Context())
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// CreateEvent godoc
// @Summary      Create event
// @Description  Schedules an event. Omit capacity for unlimited seats. Staff only.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateEventRequest  true  "Event"
// @Success      201      {object}  Event
// @Failure      400      {object}  api.ErrorResponse
// @Router       /admin/events [post]
func (h *Handler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if !api.BindJSON(c, &req) {
		return
	}
	e, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// Register godoc
// @Summary      Register for event
// @Description  Claims a seat on the event for the requester.
// @Tags         events
// @Security     BearerAuth
// @Produce      json
// @Param        eventID  path      int  true  "Event ID"
// @Success      201      {object}  Registration
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /events/{eventID}/register [post]
func (h *Handler) Register(c *gin.Context) {
	requester, ok := api.Requester(c)
	if !ok {
		return
	}
	eventID, ok := api.IDParam(c, "eventID")
	if !ok {
		return
	}

	reg, err := apperr.RetryConflict(func() (*Registration, error) {
		return h.service.Register(c.Request.Context(), requester, eventID)
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

// Unregister godoc
// @Summary      Cancel event registration
// @Description  Gives the requester's seat back.
// @Tags         events
// @Security     BearerAuth
// @Produce      json
// @Param        eventID  path      int  true  "Event ID"
// @Success      200      {object}  Registration
// @Failure      404      {object}  api.ErrorResponse
// @Router       /events/{eventID}/registration [delete]
func (h *Handler) Unregister(c *gin.Context) {
	requester, ok := api.Requester(c)
	if !ok {
		return
	}
	eventID, ok := api.IDParam(c, "eventID")
	if !ok {
		return
	}

	reg, err := apperr.RetryConflict(func() (*Registration, error) {
		return h.service.Unregister(c.Request.Context(), requester, eventID)
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}
