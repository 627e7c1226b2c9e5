package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/httpresp"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/task"
)

type TaskHandler struct {
	tasks *task.Scheduler
}

func NewTaskHandler(tasks *task.Scheduler) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type LinkAppointmentRequest struct {
	AppointmentID string `json:"appointment_id" binding:"required"`
}

// List returns a flat list, or the due-date buckets with ?group=bucket.
func (h *TaskHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	clinicID := c.GetString(middleware.ContextClinicID)
	f := task.Filter{
		Status:     c.Query("status"),
		Type:       c.Query("type"),
		LeadID:     c.Query("lead_id"),
		PatientID:  c.Query("patient_id"),
		AssigneeID: c.Query("assignee_id"),
	}

	if c.Query("group") == "bucket" {
		groups, err := h.tasks.GroupByBucket(ctx, clinicID, f)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		httpresp.OK(c, groups)
		return
	}

	tasks, err := h.tasks.List(ctx, clinicID, f)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, tasks)
}

func (h *TaskHandler) Summary(c *gin.Context) {
	s, err := h.tasks.Summary(c.Request.Context(), c.GetString(middleware.ContextClinicID))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, s)
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req task.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	t, err := h.tasks.Create(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, t)
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req task.Patch
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	t, err := h.tasks.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, t)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		httperr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) Complete(c *gin.Context) {
	t, err := h.tasks.Complete(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, t)
}

func (h *TaskHandler) Cancel(c *gin.Context) {
	t, err := h.tasks.Cancel(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, t)
}

func (h *TaskHandler) LinkAppointment(c *gin.Context) {
	var req LinkAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	t, err := h.tasks.LinkAppointmentAndComplete(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.AppointmentID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, t)
}
