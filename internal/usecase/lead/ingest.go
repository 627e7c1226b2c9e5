package lead

import (
	"context"
	"errors"
	"strings"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
	"github.com/BruksfildServices01/clinic-crm/internal/validators"
)

// AdsField is one answered question of a lead-ads form.
type AdsField struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type AdsPayload struct {
	LeadgenID    string     `json:"leadgen_id"`
	FormID       string     `json:"form_id"`
	AdID         string     `json:"ad_id"`
	CampaignName string     `json:"campaign_name"`
	FieldData    []AdsField `json:"field_data"`
}

type IngestResult struct {
	Lead    models.Lead `json:"lead"`
	Created bool        `json:"created"`
}

var (
	emailKeys    = []string{"email", "e-mail", "e_mail"}
	phoneKeys    = []string{"phone", "telefone", "celular", "whatsapp", "fone", "tel"}
	fullNameKeys = []string{"full_name", "nome_completo", "nome completo", "full name"}
	nameKeys     = []string{"name", "nome"}
	interestKeys = []string{"interesse", "interest", "tratamento", "procedimento", "servico"}
)

func matchesAny(key string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(key, c) {
			return true
		}
	}
	return false
}

// Normalize maps arbitrary form questions onto name, phone, email and
// interest by keyword. The first match for each wins, except that a full
// name question beats a generic name question.
func Normalize(p AdsPayload) domain.AdsLead {
	out := domain.AdsLead{
		LeadgenID:    p.LeadgenID,
		FormID:       p.FormID,
		AdID:         p.AdID,
		CampaignName: p.CampaignName,
		Fields:       map[string]string{},
	}

	var first, last, fullName, anyName string
	for _, f := range p.FieldData {
		value := ""
		for _, v := range f.Values {
			if v = strings.TrimSpace(v); v != "" {
				value = v
				break
			}
		}
		if value == "" {
			continue
		}
		out.Fields[f.Name] = value

		key := validators.Fold(f.Name)
		switch {
		case matchesAny(key, emailKeys):
			if out.Email == "" {
				out.Email = validators.NormalizeEmail(value)
			}
		case matchesAny(key, phoneKeys):
			if out.Phone == "" {
				out.Phone = validators.Digits(value)
			}
		case matchesAny(key, fullNameKeys):
			if fullName == "" {
				fullName = value
			}
		case strings.Contains(key, "first_name") || strings.Contains(key, "primeiro"):
			first = value
		case strings.Contains(key, "last_name") || strings.Contains(key, "sobrenome"):
			last = value
		case matchesAny(key, interestKeys):
			if out.Interest == "" {
				out.Interest = value
			}
		case matchesAny(key, nameKeys):
			if anyName == "" {
				anyName = value
			}
		}
	}

	switch {
	case fullName != "":
		out.Name = fullName
	case first != "" || last != "":
		out.Name = strings.TrimSpace(first + " " + last)
	default:
		out.Name = anyName
	}
	return out
}

// IngestAdsLead creates or refreshes a lead from a lead-ads submission,
// deduplicating by phone. It runs without a user actor.
func (d *Directory) IngestAdsLead(ctx context.Context, clinicID string, p AdsPayload) (*IngestResult, error) {
	ads := Normalize(p)
	if ads.Name == "" && ads.Phone == "" && ads.Email == "" {
		return nil, httperr.ErrValidation("empty_lead_payload", "payload sem nome, telefone ou e-mail")
	}

	actor := models.SystemActor(clinicID)
	var out IngestResult
	res, err := d.store.RunInTransaction(ctx, func(tx store.Tx) error {
		if _, err := lookup.Clinic(tx, clinicID); err != nil {
			return err
		}

		existing, err := tx.FindLeadByPhone(clinicID, validators.CanonicalPhone(ads.Phone))
		switch {
		case err == nil:
			now := tx.Now()
			if ads.Name != "" {
				existing.Name = ads.Name
			}
			existing.LastContactAt = &now
			existing.UpdatedAt = now
			if err := tx.SaveLead(existing); err != nil {
				return err
			}
			if _, err := timeline.Append(tx, actor, existing.ID, domain.MetaLeadUpdated{AdsLead: ads}); err != nil {
				return err
			}
			out = IngestResult{Lead: existing}
			return nil

		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		l, err := CreateTx(tx, actor, CreateInput{
			Name:     ads.Name,
			Phone:    ads.Phone,
			Email:    ads.Email,
			Source:   string(domain.SourceMetaAds),
			Interest: ads.Interest,
			Notes:    ads.CampaignName,
		})
		if err != nil {
			return err
		}
		if _, err := timeline.Append(tx, actor, l.ID, domain.MetaLeadReceived{AdsLead: ads}); err != nil {
			return err
		}
		out = IngestResult{Lead: l, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(d.pub, res)
	return &out, nil
}
