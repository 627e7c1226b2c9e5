package lead

import (
	"sort"
	"strings"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

// ===============================
// Canonical stages
// ===============================

const (
	StageNew         = "novo_lead"
	StageContacted   = "contato_realizado"
	StagePresented   = "orcamento_apresentado"
	StageNegotiation = "em_negociacao"
	StageApproved    = "aprovado"
	StageTreatment   = "em_tratamento"
	StageCompleted   = "finalizado"
	StageLost        = "perdido"
)

var defaultStages = []models.PipelineStage{
	{Key: StageNew, Label: "Novo lead", Order: 1, Color: "#64748b"},
	{Key: StageContacted, Label: "Contato realizado", Order: 2, Color: "#0ea5e9"},
	{Key: "avaliacao_agendada", Label: "Avaliação agendada", Order: 3, Color: "#6366f1"},
	{Key: "avaliacao_realizada", Label: "Avaliação realizada", Order: 4, Color: "#8b5cf6"},
	{Key: StagePresented, Label: "Orçamento apresentado", Order: 5, Color: "#f59e0b"},
	{Key: StageNegotiation, Label: "Em negociação", Order: 6, Color: "#f97316"},
	{Key: StageApproved, Label: "Aprovado", Order: 7, Color: "#22c55e"},
	{Key: StageTreatment, Label: "Em tratamento", Order: 8, Color: "#14b8a6"},
	{Key: StageCompleted, Label: "Finalizado", Order: 9, Color: "#15803d"},
	{Key: StageLost, Label: "Perdido", Order: 10, Color: "#ef4444"},
}

// DefaultStages returns the ten-stage pipeline used when a clinic has none configured.
func DefaultStages(clinicID string) []models.PipelineStage {
	out := make([]models.PipelineStage, len(defaultStages))
	copy(out, defaultStages)
	for i := range out {
		out[i].ClinicID = clinicID
	}
	return out
}

// Registry is the ordered, read-only view over a clinic's pipeline.
type Registry struct {
	stages []models.PipelineStage
	index  map[string]int
}

// NewRegistry builds a registry, falling back to DefaultStages when
// stages is empty.
func NewRegistry(clinicID string, stages []models.PipelineStage) Registry {
	if len(stages) == 0 {
		stages = DefaultStages(clinicID)
	}

	sorted := make([]models.PipelineStage, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	idx := make(map[string]int, len(sorted))
	for i, s := range sorted {
		idx[s.Key] = i
	}
	return Registry{stages: sorted, index: idx}
}

func (r Registry) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Initial is the stage with the lowest order.
func (r Registry) Initial() string {
	if len(r.stages) == 0 {
		return StageNew
	}
	return r.stages[0].Key
}

func (r Registry) Stages() []models.PipelineStage {
	out := make([]models.PipelineStage, len(r.stages))
	copy(out, r.stages)
	return out
}

func (r Registry) Label(key string) string {
	if i, ok := r.index[key]; ok {
		return r.stages[i].Label
	}
	return key
}

// ValidateStages checks a replacement pipeline and returns it sorted by order.
func ValidateStages(clinicID string, stages []models.PipelineStage) ([]models.PipelineStage, error) {
	if len(stages) == 0 {
		return nil, httperr.ErrValidation("stages_required", "informe ao menos uma etapa")
	}

	seen := make(map[string]struct{}, len(stages))
	out := make([]models.PipelineStage, 0, len(stages))
	for _, s := range stages {
		s.Key = strings.TrimSpace(s.Key)
		s.Label = strings.TrimSpace(s.Label)
		if s.Key == "" {
			return nil, httperr.ErrValidation("stage_key_required", "etapa sem chave")
		}
		if _, dup := seen[s.Key]; dup {
			return nil, httperr.ErrValidation("duplicate_stage", "etapa duplicada: "+s.Key)
		}
		if s.Order <= 0 {
			return nil, httperr.ErrValidation("invalid_stage_order", "ordem inválida para "+s.Key)
		}
		if s.Label == "" {
			s.Label = s.Key
		}
		seen[s.Key] = struct{}{}
		s.ClinicID = clinicID
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}
