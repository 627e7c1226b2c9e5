package tag_test

import (
	"context"
	"testing"

	leaddomain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/enginetest"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/tag"
)

func TestCreateDeduplicatesIgnoringCaseAndAccents(t *testing.T) {
	env := enginetest.New(t)
	idx := tag.NewIndex(env.Store, env.Pub)
	ctx := context.Background()

	first, created, err := idx.Create(ctx, env.Actor, tag.CreateInput{Name: "Ortodontia", Category: "Interesse"})
	if err != nil || !created {
		t.Fatalf("create: created=%v err=%v", created, err)
	}
	again, created, err := idx.Create(ctx, env.Actor, tag.CreateInput{Name: "  ORTODÔNTIA ", Category: "interesse"})
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if created || again.ID != first.ID {
		t.Fatalf("expected existing tag %s, got %+v created=%v", first.ID, again, created)
	}

	other, created, _ := idx.Create(ctx, env.Actor, tag.CreateInput{Name: "Ortodontia", Category: "Origem"})
	if !created || other.ID == first.ID {
		t.Fatalf("different category should create a new tag")
	}

	if _, _, err := idx.Create(ctx, env.Actor, tag.CreateInput{Name: " "}); !httperr.IsBusiness(err, "name_required") {
		t.Fatalf("expected name_required, got %v", err)
	}

	cats, _ := idx.ListCategories(ctx, env.Clinic.ID)
	if len(cats) != 2 || cats[0] != "Interesse" || cats[1] != "Origem" {
		t.Fatalf("categories = %v", cats)
	}
}

func TestAttachAndDetach(t *testing.T) {
	env := enginetest.New(t)
	idx := tag.NewIndex(env.Store, env.Pub)
	ctx := context.Background()

	l, err := lead.NewDirectory(env.Store, env.Pub).Create(ctx, env.Actor, lead.CreateInput{Name: "Rita", Source: "site"})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	vip, _, _ := idx.Create(ctx, env.Actor, tag.CreateInput{Name: "VIP"})
	implant, _, _ := idx.Create(ctx, env.Actor, tag.CreateInput{Name: "Implante", Category: "Interesse"})

	for i := 0; i < 2; i++ {
		if _, err := idx.Attach(ctx, env.Actor, l.ID, vip.ID); err != nil {
			t.Fatalf("attach %d: %v", i, err)
		}
	}
	got, err := idx.Attach(ctx, env.Actor, l.ID, implant.ID)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "Implante" || got.Tags[1] != "VIP" {
		t.Fatalf("tags = %v", got.Tags)
	}
	if n := enginetest.CountType(env.Events(t, l.ID), string(leaddomain.EventTagAdded)); n != 2 {
		t.Fatalf("tag_added = %d", n)
	}

	forLead, _ := idx.ListForLead(ctx, env.Clinic.ID, l.ID)
	if len(forLead) != 2 {
		t.Fatalf("ListForLead = %d", len(forLead))
	}

	got, err = idx.Detach(ctx, env.Actor, l.ID, vip.ID)
	if err != nil {
		t.Fatalf("detach: %v", err)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "Implante" {
		t.Fatalf("tags after detach = %v", got.Tags)
	}
	if stored := env.Lead(t, l.ID); len(stored.Tags) != 1 {
		t.Fatalf("stored tags = %v", stored.Tags)
	}

	if _, err := idx.Attach(ctx, env.Actor, l.ID, "nope"); !httperr.IsBusiness(err, "tag_not_found") {
		t.Fatalf("expected tag_not_found, got %v", err)
	}
}
