package budget_test

import (
	"context"
	"testing"
	"time"

	budgetdomain "github.com/BruksfildServices01/clinic-crm/internal/domain/budget"
	leaddomain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/budget"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/enginetest"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/patient"
)

type fixture struct {
	*enginetest.Env
	leads *lead.Directory
	flow  *budget.Workflow
}

func setup(t *testing.T) *fixture {
	env := enginetest.New(t)
	return &fixture{
		Env:   env,
		leads: lead.NewDirectory(env.Store, env.Pub),
		flow:  budget.NewWorkflow(env.Store, patient.NewRegistry(env.Store), env.Pub, 0),
	}
}

func (f *fixture) newLead(t *testing.T) *models.Lead {
	t.Helper()
	l, err := f.leads.Create(context.Background(), f.Actor, lead.CreateInput{
		Name:   "Marcos",
		Phone:  "11977776666",
		Source: "site",
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	return l
}

func (f *fixture) newBudget(t *testing.T, leadID string) *models.Budget {
	t.Helper()
	b, err := f.flow.Create(context.Background(), f.Actor, budget.CreateInput{
		LeadID: leadID,
		Title:  "Implante",
		Items: []models.BudgetItem{
			{Description: "Implante unitário", Value: 3200},
			{Description: "Coroa", Value: 1300.5},
		},
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	return b
}

// checkApprovalInvariants asserts that approved budgets point at the lead's
// patient and denied ones carry a reason.
func (f *fixture) checkApprovalInvariants(t *testing.T, budgetID string) {
	t.Helper()
	item, err := f.flow.Get(context.Background(), f.Clinic.ID, budgetID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	b := item.Budget
	switch budgetdomain.Status(b.Status) {
	case budgetdomain.StatusApproved:
		l := f.Lead(t, b.LeadID)
		if b.PatientID == nil || l.PatientID == nil || *b.PatientID != *l.PatientID {
			t.Fatalf("approved budget patient %v does not match lead patient %v", b.PatientID, l.PatientID)
		}
	case budgetdomain.StatusDenied:
		if b.DeniedReason == "" {
			t.Fatalf("denied budget without reason")
		}
	}
}

func TestCreateSchedulesFollowUp(t *testing.T) {
	f := setup(t)
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	if b.Status != string(budgetdomain.StatusInAnalysis) {
		t.Fatalf("status = %s", b.Status)
	}
	if b.Total != 4500.5 {
		t.Fatalf("total = %v", b.Total)
	}

	tasks := f.Tasks(t)
	if len(tasks) != 1 {
		t.Fatalf("expected one follow-up task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Type != "budget_followup" || task.Status != "pending" {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.BudgetID == nil || *task.BudgetID != b.ID || task.LeadID == nil || *task.LeadID != l.ID {
		t.Fatalf("task links wrong: %+v", task)
	}
	gap := task.DueAt.Sub(b.CreatedAt)
	if gap < 48*time.Hour || gap > 48*time.Hour+time.Millisecond {
		t.Fatalf("follow-up due %v after creation, want 48h", gap)
	}

	events := f.Events(t, l.ID)
	if got := enginetest.CountType(events, string(leaddomain.EventBudgetCreated)); got != 1 {
		t.Fatalf("budget_created = %d", got)
	}
	if got := enginetest.CountType(events, string(leaddomain.EventBudgetFollowUp)); got != 1 {
		t.Fatalf("budget follow-up events = %d", got)
	}

	item, err := f.flow.Get(context.Background(), f.Clinic.ID, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item.Title != "Implante" || len(item.Items) != 2 || item.LeadName != "Marcos" {
		t.Fatalf("round trip mismatch: %+v", item)
	}
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.newLead(t)

	if _, err := f.flow.Create(ctx, f.Actor, budget.CreateInput{LeadID: l.ID}); !httperr.IsBusiness(err, "title_required") {
		t.Fatalf("expected title_required, got %v", err)
	}
	if _, err := f.flow.Create(ctx, f.Actor, budget.CreateInput{LeadID: l.ID, Title: "x"}); !httperr.IsBusiness(err, "items_required") {
		t.Fatalf("expected items_required, got %v", err)
	}
	if _, err := f.flow.Create(ctx, f.Actor, budget.CreateInput{
		LeadID: "missing",
		Title:  "x",
		Items:  []models.BudgetItem{{Description: "a", Value: 1}},
	}); !httperr.IsNotFound(err) {
		t.Fatalf("expected lead not found, got %v", err)
	}
	if len(f.Tasks(t)) != 0 {
		t.Fatalf("failed creates left tasks behind")
	}
}

func TestDenyRequiresReason(t *testing.T) {
	f := setup(t)
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	_, err := f.flow.SetStatus(context.Background(), f.Actor, budget.StatusInput{
		BudgetID: b.ID,
		Status:   "reprovado",
	})
	if !httperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	item, _ := f.flow.Get(context.Background(), f.Clinic.ID, b.ID)
	if item.Status != string(budgetdomain.StatusInAnalysis) {
		t.Fatalf("status changed to %s", item.Status)
	}
}

func TestDenyMovesLeadToLost(t *testing.T) {
	f := setup(t)
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	res, err := f.flow.SetStatus(context.Background(), f.Actor, budget.StatusInput{
		BudgetID:     b.ID,
		Status:       "reprovado",
		DeniedReason: "Preço",
	})
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if res.StageMove == nil || res.StageMove.Outcome != leaddomain.MoveApplied {
		t.Fatalf("unexpected stage move %+v", res.StageMove)
	}
	got := f.Lead(t, l.ID)
	if got.StageKey != leaddomain.StageLost || got.LossReason != "Preço" {
		t.Fatalf("lead not lost: %+v", got)
	}
	f.checkApprovalInvariants(t, b.ID)
}

func TestDenyWithoutLostStage(t *testing.T) {
	f := setup(t)
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	f.SetStages(t, []models.PipelineStage{
		{Key: leaddomain.StageNew, Label: "Novo", Order: 1},
		{Key: leaddomain.StageApproved, Label: "Aprovado", Order: 2},
	})

	res, err := f.flow.SetStatus(context.Background(), f.Actor, budget.StatusInput{
		BudgetID:     b.ID,
		Status:       "reprovado",
		DeniedReason: "Sem retorno",
	})
	if err != nil {
		t.Fatalf("deny should succeed without a lost stage: %v", err)
	}
	if res.Budget.Status != string(budgetdomain.StatusDenied) {
		t.Fatalf("status = %s", res.Budget.Status)
	}
	if res.StageMove == nil || res.StageMove.Outcome != leaddomain.MoveNotApplicable {
		t.Fatalf("expected not_applicable move, got %+v", res.StageMove)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("not_applicable should not warn: %v", res.Warnings)
	}
	if got := f.Lead(t, l.ID).StageKey; got != leaddomain.StageNew {
		t.Fatalf("lead stage changed to %s", got)
	}
}

func TestApproveCreatesSinglePatient(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	for i := 0; i < 2; i++ {
		res, err := f.flow.SetStatus(ctx, f.Actor, budget.StatusInput{BudgetID: b.ID, Status: "aprovado"})
		if err != nil {
			t.Fatalf("approve %d: %v", i, err)
		}
		if res.Budget.PatientID == nil {
			t.Fatalf("approve %d: no patient", i)
		}
	}

	patients := f.Patients(t)
	if len(patients) != 1 {
		t.Fatalf("expected one patient, got %d", len(patients))
	}
	if patients[0].OriginLeadID == nil || *patients[0].OriginLeadID != l.ID {
		t.Fatalf("patient origin = %v", patients[0].OriginLeadID)
	}

	got := f.Lead(t, l.ID)
	if got.StageKey != leaddomain.StageApproved {
		t.Fatalf("stage = %s", got.StageKey)
	}
	events := f.Events(t, l.ID)
	if n := enginetest.CountType(events, string(leaddomain.EventBudgetApproved)); n != 1 {
		t.Fatalf("budget_approved = %d", n)
	}
	if n := enginetest.CountType(events, string(leaddomain.EventConvertedToPatient)); n != 1 {
		t.Fatalf("converted_to_patient = %d", n)
	}
	f.checkApprovalInvariants(t, b.ID)

	// a second budget for the converted lead reuses the patient
	b2 := f.newBudget(t, l.ID)
	if _, err := f.flow.SetStatus(ctx, f.Actor, budget.StatusInput{BudgetID: b2.ID, Status: "aprovado"}); err != nil {
		t.Fatalf("approve second: %v", err)
	}
	if len(f.Patients(t)) != 1 {
		t.Fatalf("second approval created another patient")
	}
	f.checkApprovalInvariants(t, b2.ID)
}

func TestApproveAfterDenyClearsReason(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	if _, err := f.flow.SetStatus(ctx, f.Actor, budget.StatusInput{BudgetID: b.ID, Status: "reprovado", DeniedReason: "Caro"}); err != nil {
		t.Fatalf("deny: %v", err)
	}
	res, err := f.flow.SetStatus(ctx, f.Actor, budget.StatusInput{BudgetID: b.ID, Status: "aprovado"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Budget.DeniedReason != "" || res.Budget.DeniedAt != nil {
		t.Fatalf("denial not cleared: %+v", res.Budget)
	}
	got := f.Lead(t, l.ID)
	if got.StageKey != leaddomain.StageApproved {
		t.Fatalf("lead should move from lost to approved")
	}
	if got.LossReason != "" {
		t.Fatalf("loss reason kept after leaving lost: %q", got.LossReason)
	}
	f.checkApprovalInvariants(t, b.ID)
}

func TestConvertToOtherPatientKeepsApprovedBudgetLinked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	if _, err := f.flow.SetStatus(ctx, f.Actor, budget.StatusInput{BudgetID: b.ID, Status: "aprovado"}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err := f.Store.RunInTransaction(ctx, func(tx store.Tx) error {
		return tx.CreatePatient(models.Patient{ID: "p2", ClinicID: f.Clinic.ID, Name: "Outro"})
	})
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	if _, err := f.leads.ConvertToPatient(ctx, f.Actor, l.ID, "p2"); !httperr.IsBusiness(err, "patient_conflict") {
		t.Fatalf("expected patient_conflict, got %v", err)
	}
	if pid := f.Lead(t, l.ID).PatientID; pid == nil || *pid == "p2" {
		t.Fatalf("lead patient = %v", pid)
	}
	f.checkApprovalInvariants(t, b.ID)
}

func TestReopenSchedulesAnotherFollowUp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	if _, err := f.flow.SetStatus(ctx, f.Actor, budget.StatusInput{BudgetID: b.ID, Status: "reprovado", DeniedReason: "Caro"}); err != nil {
		t.Fatalf("deny: %v", err)
	}
	res, err := f.flow.SetStatus(ctx, f.Actor, budget.StatusInput{BudgetID: b.ID, Status: "em_analise"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if res.Budget.Status != string(budgetdomain.StatusInAnalysis) || res.Budget.DeniedReason != "" {
		t.Fatalf("reopen left %+v", res.Budget)
	}
	if n := len(f.Tasks(t)); n != 2 {
		t.Fatalf("expected two follow-up tasks, got %d", n)
	}
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	f := setup(t)
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	_, err := f.flow.SetStatus(context.Background(), f.Actor, budget.StatusInput{BudgetID: b.ID, Status: "pago"})
	if !httperr.IsBusiness(err, "invalid_budget_status") {
		t.Fatalf("expected invalid_budget_status, got %v", err)
	}
}

func TestPresent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	res, err := f.flow.Present(ctx, f.Actor, b.ID)
	if err != nil {
		t.Fatalf("present: %v", err)
	}
	if res.Budget.PresentedAt == nil {
		t.Fatalf("presentedAt not set")
	}
	if f.Lead(t, l.ID).StageKey != leaddomain.StagePresented {
		t.Fatalf("lead not moved to presented stage")
	}

	if _, err := f.flow.SetStatus(ctx, f.Actor, budget.StatusInput{BudgetID: b.ID, Status: "aprovado"}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.flow.Present(ctx, f.Actor, b.ID); !httperr.IsBusiness(err, "invalid_state") {
		t.Fatalf("expected invalid_state, got %v", err)
	}
}

func TestUpdateRecomputesTotal(t *testing.T) {
	f := setup(t)
	l := f.newLead(t)
	b := f.newBudget(t, l.ID)

	title := "Implante + enxerto"
	updated, err := f.flow.Update(context.Background(), f.Actor, b.ID, budget.UpdateInput{
		Title: &title,
		Items: []models.BudgetItem{{Description: "Enxerto", Value: 800}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title || updated.Total != 800 {
		t.Fatalf("unexpected update %+v", updated)
	}
}

func TestListAndKPIs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.newLead(t)
	b1 := f.newBudget(t, l.ID)
	f.Clock.Advance(time.Hour)
	b2 := f.newBudget(t, l.ID)

	if _, err := f.flow.SetStatus(ctx, f.Actor, budget.StatusInput{BudgetID: b1.ID, Status: "aprovado"}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	items, err := f.flow.List(ctx, f.Clinic.ID, budget.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != b2.ID {
		t.Fatalf("expected newest first: %+v", items)
	}

	approved, _ := f.flow.List(ctx, f.Clinic.ID, budget.Filter{Status: "aprovado"})
	if len(approved) != 1 || approved[0].ID != b1.ID {
		t.Fatalf("status filter failed")
	}

	kpi, err := f.flow.KPIs(ctx, f.Clinic.ID, budget.Filter{})
	if err != nil {
		t.Fatalf("kpis: %v", err)
	}
	if kpi.Total != 2 || kpi.Approved != 1 || kpi.InAnalysis != 1 || kpi.ApprovalRate != 0.5 {
		t.Fatalf("unexpected kpis %+v", kpi)
	}
	if kpi.TotalValue != 9001 || kpi.ApprovedValue != 4500.5 {
		t.Fatalf("unexpected values %+v", kpi)
	}
}
