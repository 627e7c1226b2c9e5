package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/httpresp"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/account"
)

type MeHandler struct {
	accounts *account.Accounts
}

func NewMeHandler(accounts *account.Accounts) *MeHandler {
	return &MeHandler{accounts: accounts}
}

func (h *MeHandler) GetMe(c *gin.Context) {
	acc, err := h.accounts.Me(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, acc)
}
