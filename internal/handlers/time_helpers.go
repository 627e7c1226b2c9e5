package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
	"github.com/BruksfildServices01/clinic-crm/internal/timezone"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/account"
)

// --------------------------------------------------
// Datas de filtro no fuso da clínica
// --------------------------------------------------

// resolve o timezone oficial da clínica do token
func clinicLocation(c *gin.Context, accounts *account.Accounts) *time.Location {
	clinic, err := accounts.Clinic(c.Request.Context(), c.GetString(middleware.ContextClinicID))
	if err != nil {
		return timezone.Location(timezone.DefaultTimezone)
	}
	return timezone.Location(clinic.Timezone)
}

func parseDateIn(loc *time.Location, dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, loc)
}

// parseDateRange reads ?from=YYYY-MM-DD&to=YYYY-MM-DD. Both days are
// inclusive; the returned upper bound is the midnight after "to".
func parseDateRange(c *gin.Context, loc *time.Location) (from, to *time.Time, err error) {
	if s := c.Query("from"); s != "" {
		t, perr := parseDateIn(loc, s)
		if perr != nil {
			return nil, nil, httperr.ErrValidation("invalid_date", "Data inválida.")
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, perr := parseDateIn(loc, s)
		if perr != nil {
			return nil, nil, httperr.ErrValidation("invalid_date", "Data inválida.")
		}
		t = t.AddDate(0, 0, 1)
		to = &t
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, httperr.ErrValidation("invalid_range", "Período inválido.")
	}
	return from, to, nil
}
