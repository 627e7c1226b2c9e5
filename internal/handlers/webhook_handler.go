package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
)

// WebhookHandler receives lead-ads submissions. The clinic comes from the
// path since the caller carries no user token.
type WebhookHandler struct {
	leads *lead.Directory
	token string
}

func NewWebhookHandler(leads *lead.Directory, token string) *WebhookHandler {
	return &WebhookHandler{leads: leads, token: token}
}

func (h *WebhookHandler) tokenMatches(got string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

// Verify answers the subscription handshake.
func (h *WebhookHandler) Verify(c *gin.Context) {
	if h.token == "" || c.Query("hub.mode") != "subscribe" || !h.tokenMatches(c.Query("hub.verify_token")) {
		httperr.Write(c, http.StatusForbidden, "invalid_verify_token", "Token de verificação inválido.")
		return
	}

	c.String(http.StatusOK, c.Query("hub.challenge"))
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.token != "" && !h.tokenMatches(c.GetHeader("X-Webhook-Token")) {
		httperr.Unauthorized(c, "invalid_webhook_token", "Token do webhook inválido.")
		return
	}

	var req lead.AdsPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c)
		return
	}

	res, err := h.leads.IngestAdsLead(c.Request.Context(), c.Param("clinicID"), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}
