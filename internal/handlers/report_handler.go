package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/httpresp"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/account"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/report"
)

type ReportHandler struct {
	reports  *report.Aggregator
	exporter *report.Exporter
	accounts *account.Accounts
}

func NewReportHandler(reports *report.Aggregator, exporter *report.Exporter, accounts *account.Accounts) *ReportHandler {
	return &ReportHandler{reports: reports, exporter: exporter, accounts: accounts}
}

func (h *ReportHandler) rangeOf(c *gin.Context) (report.Range, bool) {
	from, to, err := parseDateRange(c, clinicLocation(c, h.accounts))
	if err != nil {
		httperr.Respond(c, err)
		return report.Range{}, false
	}
	return report.Range{From: from, To: to}, true
}

func (h *ReportHandler) Funnel(c *gin.Context) {
	rng, ok := h.rangeOf(c)
	if !ok {
		return
	}

	f, err := h.reports.Funnel(c.Request.Context(), c.GetString(middleware.ContextClinicID), rng)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, f)
}

func (h *ReportHandler) Latency(c *gin.Context) {
	rng, ok := h.rangeOf(c)
	if !ok {
		return
	}

	l, err := h.reports.Latency(c.Request.Context(), c.GetString(middleware.ContextClinicID), rng)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, l)
}

func (h *ReportHandler) Owners(c *gin.Context) {
	rng, ok := h.rangeOf(c)
	if !ok {
		return
	}

	owners, err := h.reports.Owners(c.Request.Context(), c.GetString(middleware.ContextClinicID), rng)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, owners)
}

func (h *ReportHandler) Stages(c *gin.Context) {
	stages, err := h.reports.TimeInStage(c.Request.Context(), c.GetString(middleware.ContextClinicID))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.List(c, stages)
}

func (h *ReportHandler) Export(c *gin.Context) {
	if !h.exporter.Enabled() {
		httperr.Write(c, http.StatusServiceUnavailable, "export_disabled", "Exportação de relatórios não configurada.")
		return
	}

	rng, ok := h.rangeOf(c)
	if !ok {
		return
	}

	clinicID := c.GetString(middleware.ContextClinicID)
	location, err := h.exporter.Export(c.Request.Context(), clinicID, rng)
	if err != nil {
		log.Printf("[WARN] report export clinic %s: %v", clinicID, err)
		httperr.Write(c, http.StatusBadGateway, "export_failed", "Falha ao exportar o relatório.")
		return
	}

	httpresp.Created(c, gin.H{"location": location})
}
