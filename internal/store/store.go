// Package store defines the transactional persistence contract the engine
// runs on. Every mutation happens inside RunInTransaction; reads outside a
// transaction go through View.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

// Reader is a consistent view of the store.
type Reader interface {
	// -------- Clinic / User --------
	GetClinic(id string) (models.Clinic, error)
	FindClinicBySlug(slug string) (models.Clinic, error)
	GetUser(id string) (models.User, error)
	FindUserByEmail(email string) (models.User, error)
	ListUsers(clinicID string) ([]models.User, error)

	// -------- Lead --------
	GetLead(clinicID, id string) (models.Lead, error)
	FindLeadByPhone(clinicID, phoneKey string) (models.Lead, error)
	ListLeads(clinicID string) ([]models.Lead, error)
	ListStages(clinicID string) ([]models.PipelineStage, error)

	// -------- Timeline (ascending by creation) --------
	ListLeadEvents(clinicID, leadID string) ([]models.LeadEvent, error)
	ListClinicEvents(clinicID string) ([]models.LeadEvent, error)
	ListMessageLogs(clinicID, leadID string) ([]models.MessageLog, error)

	// -------- Budget / Task --------
	GetBudget(clinicID, id string) (models.Budget, error)
	ListBudgets(clinicID string) ([]models.Budget, error)
	GetTask(clinicID, id string) (models.Task, error)
	ListTasks(clinicID string) ([]models.Task, error)

	// -------- Tag --------
	GetTag(clinicID, id string) (models.Tag, error)
	ListTags(clinicID string) ([]models.Tag, error)
	ListLeadTags(leadID string) ([]models.LeadTag, error)
	ListTagLinks(tagID string) ([]models.LeadTag, error)

	// -------- Patient --------
	GetPatient(clinicID, id string) (models.Patient, error)
	ListPatients(clinicID string) ([]models.Patient, error)
}

// Tx is a read-modify-write transaction. Nothing written through it is
// visible to other readers until the transaction function returns nil.
type Tx interface {
	Reader

	// Now returns strictly increasing timestamps within and across transactions.
	Now() time.Time
	NewID() string

	CreateClinic(c models.Clinic) error
	SaveClinic(c models.Clinic) error
	CreateUser(u models.User) error

	CreateLead(l models.Lead) error
	SaveLead(l models.Lead) error
	ReplaceStages(clinicID string, stages []models.PipelineStage) error

	// AppendLeadEvent is the only timeline writer. Events are never updated or deleted.
	AppendLeadEvent(ev models.LeadEvent) error
	CreateMessageLog(m models.MessageLog) error

	CreateBudget(b models.Budget) error
	SaveBudget(b models.Budget) error

	CreateTask(t models.Task) error
	SaveTask(t models.Task) error
	DeleteTask(clinicID, id string) error

	CreateTag(t models.Tag) error
	LinkTag(link models.LeadTag) (bool, error)
	UnlinkTag(leadID, tagID string) (bool, error)

	CreatePatient(p models.Patient) error
}

// Result describes a committed transaction.
type Result struct {
	Events []models.LeadEvent
}

type Store interface {
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) (Result, error)
	View(ctx context.Context, fn func(r Reader) error) error
}
