package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/httpresp"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/account"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/budget"
)

type BudgetHandler struct {
	budgets  *budget.Workflow
	accounts *account.Accounts
}

func NewBudgetHandler(budgets *budget.Workflow, accounts *account.Accounts) *BudgetHandler {
	return &BudgetHandler{budgets: budgets, accounts: accounts}
}

type SetBudgetStatusRequest struct {
	Status       string `json:"status" binding:"required"`
	DeniedReason string `json:"denied_reason"`
}

func (h *BudgetHandler) filter(c *gin.Context) (budget.Filter, error) {
	from, to, err := parseDateRange(c, clinicLocation(c, h.accounts))
	if err != nil {
		return budget.Filter{}, err
	}
	return budget.Filter{
		Status:     c.Query("status"),
		From:       from,
		To:         to,
		AssigneeID: c.Query("assignee_id"),
		Search:     c.Query("q"),
	}, nil
}

func (h *BudgetHandler) List(c *gin.Context) {
	f, err := h.filter(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	items, err := h.budgets.List(c.Request.Context(), c.GetString(middleware.ContextClinicID), f)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, items)
}

func (h *BudgetHandler) KPIs(c *gin.Context) {
	f, err := h.filter(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	kpis, err := h.budgets.KPIs(c.Request.Context(), c.GetString(middleware.ContextClinicID), f)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, kpis)
}

func (h *BudgetHandler) Create(c *gin.Context) {
	var req budget.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	b, err := h.budgets.Create(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, b)
}

func (h *BudgetHandler) Get(c *gin.Context) {
	item, err := h.budgets.Get(c.Request.Context(), c.GetString(middleware.ContextClinicID), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, item)
}

func (h *BudgetHandler) Update(c *gin.Context) {
	var req budget.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	b, err := h.budgets.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, b)
}

func (h *BudgetHandler) SetStatus(c *gin.Context) {
	var req SetBudgetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	res, err := h.budgets.SetStatus(c.Request.Context(), middleware.Actor(c), budget.StatusInput{
		BudgetID:     c.Param("id"),
		Status:       req.Status,
		DeniedReason: req.DeniedReason,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, res)
}

func (h *BudgetHandler) Present(c *gin.Context) {
	res, err := h.budgets.Present(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, res)
}
