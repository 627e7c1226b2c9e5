package lead

// Reminder is the follow-up a stage implies when a lead enters it.
type Reminder struct {
	Title    string
	Days     int
	Priority string
}

var stageReminders = map[string]Reminder{
	StageContacted:   {Title: "Retomar contato", Days: 1, Priority: "medium"},
	StageNegotiation: {Title: "Acompanhar negociação", Days: 2, Priority: "high"},
}

func ReminderFor(stageKey string) (Reminder, bool) {
	r, ok := stageReminders[stageKey]
	return r, ok
}
