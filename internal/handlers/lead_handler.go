package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/dto"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/httpresp"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/tag"
)

// ======================================================
// HANDLER
// ======================================================

type LeadHandler struct {
	leads *lead.Directory
	tags  *tag.Index
}

func NewLeadHandler(leads *lead.Directory, tags *tag.Index) *LeadHandler {
	return &LeadHandler{leads: leads, tags: tags}
}

// ======================================================
// REQUESTS
// ======================================================

type MoveStageRequest struct {
	StageKey   string `json:"stage_key" binding:"required"`
	LossReason string `json:"loss_reason"`
}

type ConvertRequest struct {
	PatientID string `json:"patient_id" binding:"required"`
}

func bindError(c *gin.Context) {
	httperr.BadRequest(c, "invalid_request", "Dados inválidos.")
}

// ======================================================
// LIST / BOARD
// ======================================================

func (h *LeadHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	clinicID := c.GetString(middleware.ContextClinicID)

	leads, err := h.leads.List(ctx, clinicID, lead.Filter{
		StageKey: c.Query("stage"),
		OwnerID:  c.Query("owner_id"),
		Source:   c.Query("source"),
		TagID:    c.Query("tag_id"),
		Search:   c.Query("q"),
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	if c.Query("view") == "board" {
		stages, err := h.leads.ListStages(ctx, clinicID)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		httpresp.List(c, dto.Board(stages, leads))
		return
	}

	httpresp.List(c, leads)
}

// ======================================================
// CRUD
// ======================================================

func (h *LeadHandler) Create(c *gin.Context) {
	var req lead.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	l, err := h.leads.Create(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, l)
}

func (h *LeadHandler) Import(c *gin.Context) {
	var req lead.ImportBatch
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	res, err := h.leads.Import(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, res)
}

func (h *LeadHandler) Get(c *gin.Context) {
	d, err := h.leads.Get(c.Request.Context(), c.GetString(middleware.ContextClinicID), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, d)
}

func (h *LeadHandler) Update(c *gin.Context) {
	var req lead.Patch
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	l, err := h.leads.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, l)
}

// ======================================================
// STAGE / CONVERSION
// ======================================================

func (h *LeadHandler) MoveStage(c *gin.Context) {
	var req MoveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	l, err := h.leads.MoveToStage(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.StageKey, req.LossReason)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, l)
}

func (h *LeadHandler) Convert(c *gin.Context) {
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	l, err := h.leads.ConvertToPatient(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.PatientID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, l)
}

// ======================================================
// TIMELINE / MESSAGES
// ======================================================

func (h *LeadHandler) Timeline(c *gin.Context) {
	events, err := h.leads.ListTimelineEvents(c.Request.Context(), c.GetString(middleware.ContextClinicID), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, events)
}

func (h *LeadHandler) AddTimelineEvent(c *gin.Context) {
	var req lead.TimelineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	ev, err := h.leads.AddTimelineEvent(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, ev)
}

func (h *LeadHandler) Messages(c *gin.Context) {
	logs, err := h.leads.ListMessageLogs(c.Request.Context(), c.GetString(middleware.ContextClinicID), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, logs)
}

func (h *LeadHandler) LogMessage(c *gin.Context) {
	var req lead.MessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	m, err := h.leads.LogMessage(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, m)
}

// ======================================================
// TAGS
// ======================================================

func (h *LeadHandler) Tags(c *gin.Context) {
	tags, err := h.tags.ListForLead(c.Request.Context(), c.GetString(middleware.ContextClinicID), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, tags)
}

func (h *LeadHandler) AttachTag(c *gin.Context) {
	l, err := h.tags.Attach(c.Request.Context(), middleware.Actor(c), c.Param("id"), c.Param("tagID"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, l)
}

func (h *LeadHandler) DetachTag(c *gin.Context) {
	l, err := h.tags.Detach(c.Request.Context(), middleware.Actor(c), c.Param("id"), c.Param("tagID"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, l)
}
