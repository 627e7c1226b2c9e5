package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/httpresp"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/tag"
)

type TagHandler struct {
	tags *tag.Index
}

func NewTagHandler(tags *tag.Index) *TagHandler {
	return &TagHandler{tags: tags}
}

func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tags.ListAll(c.Request.Context(), c.GetString(middleware.ContextClinicID))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, tags)
}

func (h *TagHandler) Categories(c *gin.Context) {
	cats, err := h.tags.ListCategories(c.Request.Context(), c.GetString(middleware.ContextClinicID))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, cats)
}

// Create answers 200 with the existing tag when it is a duplicate.
func (h *TagHandler) Create(c *gin.Context) {
	var req tag.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	t, created, err := h.tags.Create(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	if created {
		httpresp.Created(c, t)
		return
	}
	httpresp.OK(c, t)
}
