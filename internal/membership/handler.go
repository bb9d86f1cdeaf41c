package membership

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

// ListPlans godoc
// @Summary      List plans
// @Description  Returns the plans currently on sale.
// @Tags         plans
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Plan
// @Failure      503  {object}  api.ErrorResponse
// @Router       /plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context(), false)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// PurchasePlan godoc
// @Summary      Purchase plan
// @Description  Applies a plan to the requester's account. Staff may purchase on behalf of member_id.
// @Tags         plans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        planID   path      int                  true   "Plan ID"
// @Param        request  body      PurchasePlanRequest  false  "Optional member on whose behalf staff purchase"
// @Success      200      {object}  Account
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /plans/{planID}/purchase [post]
func (h *Handler) PurchasePlan(c *gin.Context) {
	requester, ok := api.Requester(c)
	if !ok {
		return
	}
	planID, ok := api.IDParam(c, "planID")
	if !ok {
		return
	}

	var req PurchasePlanRequest
	if c.Request.ContentLength > 0 && !api.BindJSON(c, &req) {
		return
	}

	memberID := requester.MemberID
	if req.MemberID != nil {
		if !requester.CanActFor(*req.MemberID) {
			api.RespondError(c, apperr.Forbidden("only staff may purchase for another member"))
			return
		}
		memberID = *req.MemberID
	}

	acct, err := apperr.RetryConflict(func() (*Account, error) {
		return h.service.PurchasePlan(c.Request.Context(), memberID, planID)
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

// CreditHistory godoc
// @Summary      Credit history
// @Description  Lists the requester's session-credit movements, newest first.
// @Tags         members
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"  default(50)
// @Param        offset  query     int  false  "Offset"     default(0)
// @Success      200     {array}   CreditEntry
// @Failure      503     {object}  api.ErrorResponse
// @Router       /me/credits [get]
func (h *Handler) CreditHistory(c *gin.Context) {
	requester, ok := api.Requester(c)
	if !ok {
		return
	}
	limit, offset := api.Page(c)

	entries, err := h.service.CreditHistory(c.Request.Context(), requester.MemberID, limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// CreatePlan godoc
// @Summary      Create plan
// @Description  Adds a plan to the catalog. Staff only.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreatePlanRequest  true  "Plan"
// @Success      201      {object}  Plan
// @Failure      400      {object}  api.ErrorResponse
// @Router       /admin/plans [post]
func (h *Handler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if !api.BindJSON(c, &req) {
		return
	}

	plan, err := h.service.CreatePlan(c.Request.Context(), req)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// UpdateStatus godoc
// @Summary      Change account status
// @Description  Suspends, reactivates or cancels a membership account. Staff only.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        memberID  path      int                  true  "Member ID"
// @Param        request   body      UpdateStatusRequest  true  "New status"
// @Success      200       {object}  Account
// @Failure      404       {object}  api.ErrorResponse
// @Failure      409       {object}  api.ErrorResponse
// @Router       /admin/members/{memberID}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	memberID, ok := api.IDParam(c, "memberID")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !api.BindJSON(c, &req) {
		return
	}

	acct, err := apperr.RetryConflict(func() (*Account, error) {
		return h.service.SetStatus(c.Request.Context(), memberID, req.Status)
	})
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}
