package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/httpresp"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/account"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
)

type ClinicHandler struct {
	accounts *account.Accounts
	leads    *lead.Directory
}

func NewClinicHandler(accounts *account.Accounts, leads *lead.Directory) *ClinicHandler {
	return &ClinicHandler{accounts: accounts, leads: leads}
}

func (h *ClinicHandler) GetMeClinic(c *gin.Context) {
	clinic, err := h.accounts.Clinic(c.Request.Context(), c.GetString(middleware.ContextClinicID))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, clinic)
}

func (h *ClinicHandler) UpdateMeClinic(c *gin.Context) {
	var req account.ClinicPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Dados inválidos na requisição.")
		return
	}

	clinic, err := h.accounts.UpdateClinic(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, clinic)
}

// ======================================================
// PIPELINE STAGES
// ======================================================

type ReplaceStagesRequest struct {
	Stages []models.PipelineStage `json:"stages" binding:"required"`
}

func (h *ClinicHandler) ListStages(c *gin.Context) {
	stages, err := h.leads.ListStages(c.Request.Context(), c.GetString(middleware.ContextClinicID))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, stages)
}

func (h *ClinicHandler) ReplaceStages(c *gin.Context) {
	var req ReplaceStagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Dados inválidos na requisição.")
		return
	}

	stages, err := h.leads.ReplaceStages(c.Request.Context(), middleware.Actor(c), req.Stages)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, stages)
}
