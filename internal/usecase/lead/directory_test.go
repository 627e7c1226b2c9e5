package lead_test

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/enginetest"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
)

func newDirectory(t *testing.T) (*enginetest.Env, *lead.Directory) {
	env := enginetest.New(t)
	return env, lead.NewDirectory(env.Store, env.Pub)
}

func strp(s string) *string { return &s }

// lastStatusChangeTo checks that the latest status_change lands on the
// lead's current stage.
func assertStageConsistent(t *testing.T, env *enginetest.Env, l models.Lead) {
	t.Helper()
	var last *domain.StatusChange
	for _, ev := range env.Events(t, l.ID) {
		if ev.Type != string(domain.EventStatusChange) {
			continue
		}
		p, err := domain.Decode(ev)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		sc := p.(domain.StatusChange)
		last = &sc
	}
	if last == nil {
		t.Fatalf("lead %s has no status_change", l.ID)
	}
	if last.ToStage != l.StageKey {
		t.Fatalf("last status_change toStage=%s, lead stage=%s", last.ToStage, l.StageKey)
	}
}

func TestCreateDefaultsToInitialStage(t *testing.T) {
	env, dir := newDirectory(t)

	l, err := dir.Create(context.Background(), env.Actor, lead.CreateInput{
		Name:   "Maria",
		Phone:  "(11) 99999-8888",
		Source: "manual",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.StageKey != domain.StageNew {
		t.Fatalf("stage = %s, want %s", l.StageKey, domain.StageNew)
	}
	if l.Phone != "11999998888" {
		t.Fatalf("phone = %s", l.Phone)
	}

	events := env.Events(t, l.ID)
	if len(events) != 1 || events[0].Type != string(domain.EventStatusChange) {
		t.Fatalf("unexpected events %+v", events)
	}
	if v, ok := events[0].Payload["fromStage"]; !ok || v != nil {
		t.Fatalf("creation event should carry fromStage=null, got %v", events[0].Payload)
	}
	if len(env.Pub.Events) != 1 {
		t.Fatalf("expected the committed event to be published")
	}
	assertStageConsistent(t, env, *l)
}

func TestCreateValidation(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()

	if _, err := dir.Create(ctx, env.Actor, lead.CreateInput{Name: "x"}); !httperr.IsBusiness(err, "source_required") {
		t.Fatalf("expected source_required, got %v", err)
	}
	if _, err := dir.Create(ctx, env.Actor, lead.CreateInput{Source: "fax"}); !httperr.IsBusiness(err, "invalid_source") {
		t.Fatalf("expected invalid_source, got %v", err)
	}
	if _, err := dir.Create(ctx, env.Actor, lead.CreateInput{Source: "site", StageKey: "nope"}); !httperr.IsInvalidStage(err) {
		t.Fatalf("expected invalid stage, got %v", err)
	}
}

func TestUpdateRecordsPriorStage(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()

	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Name: "João", Source: "site"})
	updated, err := dir.Update(ctx, env.Actor, l.ID, lead.Patch{
		StageKey: strp("avaliacao_agendada"),
		Notes:    strp("prefere manhã"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StageKey != "avaliacao_agendada" || updated.Notes != "prefere manhã" {
		t.Fatalf("patch not applied: %+v", updated)
	}

	events := env.Events(t, l.ID)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	p, _ := domain.Decode(events[1])
	sc := p.(domain.StatusChange)
	if sc.FromStage == nil || *sc.FromStage != domain.StageNew || sc.ToStage != "avaliacao_agendada" {
		t.Fatalf("unexpected status change %+v", sc)
	}

	// same stage: no new event
	if _, err := dir.Update(ctx, env.Actor, l.ID, lead.Patch{StageKey: strp("avaliacao_agendada")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if n := len(env.Events(t, l.ID)); n != 2 {
		t.Fatalf("unchanged stage should not append, got %d events", n)
	}

	if _, err := dir.Update(ctx, env.Actor, "missing", lead.Patch{}); !httperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMoveToStageTwiceRecordsBothEvents(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()

	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Name: "Carla", Source: "instagram"})

	for i := 0; i < 2; i++ {
		moved, err := dir.MoveToStage(ctx, env.Actor, l.ID, domain.StageApproved, "")
		if err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		if moved.StageKey != domain.StageApproved {
			t.Fatalf("move %d: stage = %s", i, moved.StageKey)
		}
	}

	events := env.Events(t, l.ID)
	var changes []domain.StatusChange
	for _, ev := range events {
		if ev.Type == string(domain.EventStatusChange) {
			p, _ := domain.Decode(ev)
			changes = append(changes, p.(domain.StatusChange))
		}
	}
	// creation + two moves
	if len(changes) != 3 {
		t.Fatalf("expected 3 status changes, got %d", len(changes))
	}
	last := changes[2]
	if last.FromStage == nil || *last.FromStage != domain.StageApproved || last.ToStage != domain.StageApproved {
		t.Fatalf("second move should be aprovado -> aprovado, got %+v", last)
	}
	assertStageConsistent(t, env, env.Lead(t, l.ID))
}

func TestMoveToStageRejectsUnknownStage(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()
	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Source: "site"})

	_, err := dir.MoveToStage(ctx, env.Actor, l.ID, "inexistente", "")
	if !httperr.IsInvalidStage(err) {
		t.Fatalf("expected invalid stage, got %v", err)
	}
	if got := env.Lead(t, l.ID).StageKey; got != domain.StageNew {
		t.Fatalf("stage changed on failure: %s", got)
	}
	if n := len(env.Events(t, l.ID)); n != 1 {
		t.Fatalf("failed move appended events: %d", n)
	}
}

func TestMoveToLostStoresReason(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()
	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Source: "site"})

	moved, err := dir.MoveToStage(ctx, env.Actor, l.ID, domain.StageLost, "Sem interesse")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.LossReason != "Sem interesse" {
		t.Fatalf("loss reason = %q", moved.LossReason)
	}
	if moved.LastContactAt == nil {
		t.Fatalf("lastContactAt should be refreshed")
	}
}

func TestStageReminderOnlyWhenStageChanges(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()
	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Source: "site"})

	if _, err := dir.MoveToStage(ctx, env.Actor, l.ID, domain.StageContacted, ""); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := dir.MoveToStage(ctx, env.Actor, l.ID, domain.StageContacted, ""); err != nil {
		t.Fatalf("re-move: %v", err)
	}

	tasks := env.Tasks(t)
	if len(tasks) != 1 {
		t.Fatalf("expected one reminder task, got %d", len(tasks))
	}
	if tasks[0].Type != "lead_followup" || tasks[0].LeadID == nil || *tasks[0].LeadID != l.ID {
		t.Fatalf("unexpected reminder %+v", tasks[0])
	}
	if got := enginetest.CountType(env.Events(t, l.ID), string(domain.EventFollowUpCreated)); got != 1 {
		t.Fatalf("follow_up_created events = %d", got)
	}
}

// failingTasks rejects every task insert.
type failingTasks struct {
	store.Tx
}

func (failingTasks) CreateTask(models.Task) error { return errors.New("disk full") }

func TestTryMoveAbortsWhenWritesFail(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()
	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Source: "site"})
	before := len(env.Events(t, l.ID))

	_, err := env.Store.RunInTransaction(ctx, func(tx store.Tx) error {
		_, err := lead.TryMoveToStage(failingTasks{tx}, env.Actor, l.ID, domain.StageContacted, "")
		return err
	})
	if err == nil {
		t.Fatalf("expected the reminder failure to abort the transaction")
	}

	if got := env.Lead(t, l.ID).StageKey; got != domain.StageNew {
		t.Fatalf("stage = %s", got)
	}
	if got := len(env.Events(t, l.ID)); got != before {
		t.Fatalf("%d events appended by a failed move", got-before)
	}
}

func TestTryMoveReportsMissingStage(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()
	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Source: "site"})

	var mv domain.MoveResult
	_, err := env.Store.RunInTransaction(ctx, func(tx store.Tx) error {
		var err error
		mv, err = lead.TryMoveToStage(tx, env.Actor, l.ID, "inexistente", "")
		return err
	})
	if err != nil || mv.Outcome != domain.MoveNotApplicable {
		t.Fatalf("outcome = %+v err = %v", mv, err)
	}
}

func TestLeavingLostClearsLossReason(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()
	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Source: "site"})

	if _, err := dir.MoveToStage(ctx, env.Actor, l.ID, domain.StageLost, "Sem retorno"); err != nil {
		t.Fatalf("lose: %v", err)
	}
	back, err := dir.MoveToStage(ctx, env.Actor, l.ID, domain.StageNegotiation, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if back.LossReason != "" || env.Lead(t, l.ID).LossReason != "" {
		t.Fatalf("loss reason kept: %q", back.LossReason)
	}

	events := env.Events(t, l.ID)
	last := events[len(events)-1]
	if last.Type != string(domain.EventFollowUpCreated) || events[len(events)-2].Type != string(domain.EventStatusChange) {
		t.Fatalf("expected status_change then follow_up_created, got %s, %s", events[len(events)-2].Type, last.Type)
	}
}

func TestConvertToPatientIsIdempotent(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()
	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Name: "Paula", Source: "site"})

	_, err := env.Store.RunInTransaction(ctx, func(tx store.Tx) error {
		return tx.CreatePatient(models.Patient{ID: "p1", ClinicID: env.Clinic.ID, Name: "Paula"})
	})
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	first, err := dir.ConvertToPatient(ctx, env.Actor, l.ID, "p1")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	eventsAfterFirst := len(env.Events(t, l.ID))

	second, err := dir.ConvertToPatient(ctx, env.Actor, l.ID, "p1")
	if err != nil {
		t.Fatalf("convert again: %v", err)
	}

	if first.StageKey != domain.StageApproved || second.StageKey != domain.StageApproved {
		t.Fatalf("convert should force aprovado")
	}
	if *second.PatientID != "p1" {
		t.Fatalf("patient = %v", second.PatientID)
	}
	events := env.Events(t, l.ID)
	if len(events) != eventsAfterFirst {
		t.Fatalf("second convert appended %d events", len(events)-eventsAfterFirst)
	}
	if got := enginetest.CountType(events, string(domain.EventConvertedToPatient)); got != 1 {
		t.Fatalf("converted_to_patient events = %d", got)
	}
	assertStageConsistent(t, env, env.Lead(t, l.ID))

	if _, err := dir.ConvertToPatient(ctx, env.Actor, l.ID, "ghost"); !httperr.IsBusiness(err, "patient_not_found") {
		t.Fatalf("expected patient_not_found, got %v", err)
	}
}

func TestIngestDeduplicatesByPhone(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()

	existing, err := dir.Create(ctx, env.Actor, lead.CreateInput{Name: "Maria", Source: "manual", Phone: "11999998888"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := dir.IngestAdsLead(ctx, env.Clinic.ID, lead.AdsPayload{
		LeadgenID:    "lg-1",
		CampaignName: "Clareamento Março",
		FieldData: []lead.AdsField{
			{Name: "full_name", Values: []string{"Maria Souza"}},
			{Name: "phone_number", Values: []string{"+55 11 99999-8888"}},
			{Name: "Qual tratamento de interesse?", Values: []string{"Clareamento"}},
		},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Created || res.Lead.ID != existing.ID {
		t.Fatalf("expected update of existing lead, got %+v", res)
	}

	leads, _ := dir.List(ctx, env.Clinic.ID, lead.Filter{})
	if len(leads) != 1 {
		t.Fatalf("expected one lead, got %d", len(leads))
	}
	if leads[0].Name != "Maria Souza" {
		t.Fatalf("name not refreshed: %s", leads[0].Name)
	}
	if leads[0].Source != "manual" {
		t.Fatalf("source should be untouched, got %s", leads[0].Source)
	}

	events := env.Events(t, existing.ID)
	if got := enginetest.CountType(events, string(domain.EventMetaLeadUpdated)); got != 1 {
		t.Fatalf("meta_lead_updated = %d", got)
	}
	for _, ev := range events {
		if ev.Type == string(domain.EventMetaLeadUpdated) && ev.ActorID != nil {
			t.Fatalf("webhook events must not carry an actor")
		}
	}
}

func TestIngestCreatesNewLead(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()

	res, err := dir.IngestAdsLead(ctx, env.Clinic.ID, lead.AdsPayload{
		FieldData: []lead.AdsField{
			{Name: "Nome", Values: []string{"Pedro"}},
			{Name: "WhatsApp", Values: []string{"(21) 98888-7777"}},
			{Name: "E-mail", Values: []string{"Pedro@Mail.com"}},
		},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !res.Created || res.Lead.Source != "meta_ads" || res.Lead.StageKey != domain.StageNew {
		t.Fatalf("unexpected created lead %+v", res)
	}
	if res.Lead.Email != "pedro@mail.com" || res.Lead.Phone != "21988887777" {
		t.Fatalf("normalization failed: %+v", res.Lead)
	}

	events := env.Events(t, res.Lead.ID)
	if enginetest.CountType(events, string(domain.EventStatusChange)) != 1 ||
		enginetest.CountType(events, string(domain.EventMetaLeadReceived)) != 1 {
		t.Fatalf("unexpected events %+v", events)
	}

	if _, err := dir.IngestAdsLead(ctx, "other-clinic", lead.AdsPayload{
		FieldData: []lead.AdsField{{Name: "nome", Values: []string{"x"}}},
	}); !httperr.IsNotFound(err) {
		t.Fatalf("expected clinic not found, got %v", err)
	}
}

func TestNormalizeCombinesFirstAndLastName(t *testing.T) {
	ads := lead.Normalize(lead.AdsPayload{FieldData: []lead.AdsField{
		{Name: "first_name", Values: []string{"Ana"}},
		{Name: "last_name", Values: []string{"Lima"}},
		{Name: "telefone", Values: []string{"", "11 3333-4444"}},
	}})
	if ads.Name != "Ana Lima" || ads.Phone != "1133334444" {
		t.Fatalf("unexpected normalization %+v", ads)
	}
}

func TestAddTimelineEvent(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()
	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Source: "site"})

	ev, err := dir.AddTimelineEvent(ctx, env.Actor, l.ID, lead.TimelineInput{
		Type:    "contact",
		Payload: map[string]any{"channel": "call"},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if ev.Description != "Contato realizado via call" {
		t.Fatalf("description = %q", ev.Description)
	}
	if env.Lead(t, l.ID).LastContactAt == nil {
		t.Fatalf("contact should refresh lastContactAt")
	}

	if _, err := dir.AddTimelineEvent(ctx, env.Actor, l.ID, lead.TimelineInput{Type: "status_change"}); !httperr.IsBusiness(err, "status_change_not_allowed") {
		t.Fatalf("expected status_change_not_allowed, got %v", err)
	}
	if _, err := dir.AddTimelineEvent(ctx, env.Actor, l.ID, lead.TimelineInput{Type: "budget_approved"}); !httperr.IsBusiness(err, "event_type_not_allowed") {
		t.Fatalf("expected event_type_not_allowed, got %v", err)
	}

	events, err := dir.ListTimelineEvents(ctx, env.Clinic.ID, l.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if events[0].Type != "contact" {
		t.Fatalf("timeline should be newest first, got %s", events[0].Type)
	}
}

func TestLogMessage(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()
	l, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Source: "site"})

	if _, err := dir.LogMessage(ctx, env.Actor, l.ID, lead.MessageInput{Body: "Olá!"}); err != nil {
		t.Fatalf("log: %v", err)
	}
	env.Clock.Advance(time.Minute)
	if _, err := dir.LogMessage(ctx, env.Actor, l.ID, lead.MessageInput{Channel: "email", Body: "Segue orçamento"}); err != nil {
		t.Fatalf("log: %v", err)
	}

	logs, err := dir.ListMessageLogs(ctx, env.Clinic.ID, l.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 || logs[0].Channel != "email" {
		t.Fatalf("unexpected logs %+v", logs)
	}
	if got := enginetest.CountType(env.Events(t, l.ID), string(domain.EventMessageSent)); got != 2 {
		t.Fatalf("message_sent events = %d", got)
	}
	if env.Lead(t, l.ID).LastContactAt == nil {
		t.Fatalf("lastContactAt not refreshed")
	}

	if _, err := dir.LogMessage(ctx, env.Actor, l.ID, lead.MessageInput{Body: "  "}); !httperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListFiltersAndOrder(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()

	a, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Name: "João Silva", Source: "site", Phone: "11911112222", Interest: "Implante"})
	env.Clock.Advance(time.Minute)
	b, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Name: "Bia", Source: "instagram", OwnerID: strp("user-1")})

	all, _ := dir.List(ctx, env.Clinic.ID, lead.Filter{})
	if len(all) != 2 || all[0].ID != b.ID {
		t.Fatalf("expected most recently updated first")
	}

	byName, _ := dir.List(ctx, env.Clinic.ID, lead.Filter{Search: "joao"})
	if len(byName) != 1 || byName[0].ID != a.ID {
		t.Fatalf("accent-insensitive search failed: %+v", byName)
	}
	byPhone, _ := dir.List(ctx, env.Clinic.ID, lead.Filter{Search: "1111-2222"})
	if len(byPhone) != 1 || byPhone[0].ID != a.ID {
		t.Fatalf("phone search failed: %+v", byPhone)
	}
	byOwner, _ := dir.List(ctx, env.Clinic.ID, lead.Filter{OwnerID: "user-1"})
	if len(byOwner) != 1 || byOwner[0].ID != b.ID {
		t.Fatalf("owner filter failed")
	}
	bySource, _ := dir.List(ctx, env.Clinic.ID, lead.Filter{Source: "site"})
	if len(bySource) != 1 || bySource[0].ID != a.ID {
		t.Fatalf("source filter failed")
	}
}

func TestImportBatch(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()

	existing, _ := dir.Create(ctx, env.Actor, lead.CreateInput{Name: "Rui", Source: "manual", Phone: "11900001111"})
	price := 1500.0

	res, err := dir.Import(ctx, env.Actor, lead.ImportBatch{
		Creates: []lead.CreateInput{{Name: "Novo", Source: "site"}},
		Updates: []lead.ImportUpdate{{ID: existing.ID, Patch: lead.Patch{Interest: strp("Ortodontia")}, PriceOverride: &price}},
		Overrides: []lead.CreateInput{
			{Name: "Rui Costa", Source: "manual", Phone: "+55 11 90000-1111"},
			{Name: "Outro", Source: "manual", Phone: "11922223333"},
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 2 || res.Updated != 2 {
		t.Fatalf("counts = %+v", res)
	}

	l := env.Lead(t, existing.ID)
	if l.Name != "Rui Costa" || l.Interest != "Ortodontia" || l.EstimatedValue == nil || *l.EstimatedValue != 1500 {
		t.Fatalf("updates not applied: %+v", l)
	}
}

func TestImportIsAllOrNothing(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()

	_, err := dir.Import(ctx, env.Actor, lead.ImportBatch{
		Creates: []lead.CreateInput{
			{Name: "ok", Source: "site"},
			{Name: "bad"},
		},
	})
	if !httperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	leads, _ := dir.List(ctx, env.Clinic.ID, lead.Filter{})
	if len(leads) != 0 {
		t.Fatalf("partial import persisted %d leads", len(leads))
	}
}

func TestReplaceStages(t *testing.T) {
	env, dir := newDirectory(t)
	ctx := context.Background()

	stages, _ := dir.ListStages(ctx, env.Clinic.ID)
	if len(stages) != 10 {
		t.Fatalf("expected default stages, got %d", len(stages))
	}

	_, _ = dir.Create(ctx, env.Actor, lead.CreateInput{Source: "site"})
	_, err := dir.ReplaceStages(ctx, env.Actor, []models.PipelineStage{{Key: "triagem", Order: 1}})
	if !httperr.IsBusiness(err, "stage_in_use") {
		t.Fatalf("expected stage_in_use, got %v", err)
	}

	custom := []models.PipelineStage{
		{Key: domain.StageNew, Label: "Entrada", Order: 1},
		{Key: domain.StageApproved, Label: "Fechado", Order: 2},
	}
	if _, err := dir.ReplaceStages(ctx, env.Actor, custom); err != nil {
		t.Fatalf("replace: %v", err)
	}
	stages, _ = dir.ListStages(ctx, env.Clinic.ID)
	if len(stages) != 2 || stages[1].Label != "Fechado" {
		t.Fatalf("unexpected stages %+v", stages)
	}
}
