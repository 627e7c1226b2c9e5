package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/httpresp"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/patient"
)

type PatientHandler struct {
	patients *patient.Registry
}

func NewPatientHandler(patients *patient.Registry) *PatientHandler {
	return &PatientHandler{patients: patients}
}

func (h *PatientHandler) List(c *gin.Context) {
	patients, err := h.patients.List(c.Request.Context(), c.GetString(middleware.ContextClinicID))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, patients)
}
