package lead

// MoveOutcome classifies a best-effort stage move triggered as a side
// effect of another operation.
type MoveOutcome string

const (
	MoveApplied       MoveOutcome = "applied"
	MoveNotApplicable MoveOutcome = "not_applicable"
	MoveFailed        MoveOutcome = "failed"
)

type MoveResult struct {
	Outcome MoveOutcome `json:"outcome"`
	Stage   string      `json:"stage"`
	Err     error       `json:"-"`
}

func (r MoveResult) Warning() string {
	if r.Outcome != MoveFailed || r.Err == nil {
		return ""
	}
	return "falha ao mover lead para " + r.Stage + ": " + r.Err.Error()
}
