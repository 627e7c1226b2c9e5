package budget

import (
	"math"
	"strings"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

// NormalizeItems trims descriptions, drops blank zero-valued rows and
// requires at least one remaining item.
func NormalizeItems(items []models.BudgetItem) ([]models.BudgetItem, error) {
	out := make([]models.BudgetItem, 0, len(items))
	for _, it := range items {
		it.Description = strings.TrimSpace(it.Description)
		if it.Value < 0 || math.IsNaN(it.Value) || math.IsInf(it.Value, 0) {
			return nil, httperr.ErrValidation("invalid_item_value", "valor de item inválido")
		}
		if it.Description == "" && it.Value == 0 {
			continue
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, httperr.ErrValidation("items_required", "informe ao menos um item")
	}
	return out, nil
}

// Total sums the item values unless an override is supplied.
func Total(items []models.BudgetItem, override *float64) float64 {
	if override != nil {
		return *override
	}
	var sum float64
	for _, it := range items {
		sum += it.Value
	}
	return math.Round(sum*100) / 100
}
