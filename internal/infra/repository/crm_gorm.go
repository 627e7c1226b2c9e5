package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
)

// CRMGormStore runs the engine on postgres. Writers are serialized inside
// the process and rows read inside a transaction are locked FOR UPDATE, so
// concurrent instances still see one writer per lead.
type CRMGormStore struct {
	db    *gorm.DB
	mu    sync.Mutex
	clock *store.Clock
}

func NewCRMGormStore(db *gorm.DB) *CRMGormStore {
	return &CRMGormStore{db: db, clock: store.NewClock(time.Now)}
}

func (s *CRMGormStore) RunInTransaction(ctx context.Context, fn func(tx store.Tx) error) (store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var appended []models.LeadEvent
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		tx := &gormTx{gormReader: gormReader{db: db, lock: true}, clock: s.clock}
		if err := fn(tx); err != nil {
			return err
		}
		appended = tx.appended
		return nil
	})
	if err != nil {
		return store.Result{}, err
	}
	return store.Result{Events: appended}, nil
}

func (s *CRMGormStore) View(ctx context.Context, fn func(r store.Reader) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(gormReader{db: db})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

// --------------------------------------------------
// Reads
// --------------------------------------------------

type gormReader struct {
	db   *gorm.DB
	lock bool
}

func (r gormReader) forUpdate() *gorm.DB {
	if r.lock {
		return r.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.db
}

func (r gormReader) GetClinic(id string) (models.Clinic, error) {
	var c models.Clinic
	err := r.db.Where("id = ?", id).First(&c).Error
	return c, translate(err)
}

func (r gormReader) FindClinicBySlug(slug string) (models.Clinic, error) {
	var c models.Clinic
	err := r.db.Where("slug = ?", slug).First(&c).Error
	return c, translate(err)
}

func (r gormReader) GetUser(id string) (models.User, error) {
	var u models.User
	err := r.db.Where("id = ?", id).First(&u).Error
	return u, translate(err)
}

func (r gormReader) FindUserByEmail(email string) (models.User, error) {
	var u models.User
	err := r.db.Where("LOWER(email) = LOWER(?)", email).First(&u).Error
	return u, translate(err)
}

func (r gormReader) ListUsers(clinicID string) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("clinic_id = ?", clinicID).Order("created_at ASC").Find(&users).Error
	return users, err
}

func (r gormReader) GetLead(clinicID, id string) (models.Lead, error) {
	var l models.Lead
	err := r.forUpdate().Where("id = ? AND clinic_id = ?", id, clinicID).First(&l).Error
	return l, translate(err)
}

func (r gormReader) FindLeadByPhone(clinicID, phoneKey string) (models.Lead, error) {
	if phoneKey == "" {
		return models.Lead{}, store.ErrNotFound
	}
	var l models.Lead
	err := r.forUpdate().
		Where("clinic_id = ? AND phone_key = ?", clinicID, phoneKey).
		Order("created_at ASC").
		First(&l).Error
	return l, translate(err)
}

func (r gormReader) ListLeads(clinicID string) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.Where("clinic_id = ?", clinicID).Order("created_at ASC").Find(&leads).Error
	return leads, err
}

func (r gormReader) ListStages(clinicID string) ([]models.PipelineStage, error) {
	var stages []models.PipelineStage
	err := r.db.Where("clinic_id = ?", clinicID).Order("sort_order ASC").Find(&stages).Error
	return stages, err
}

func (r gormReader) ListLeadEvents(clinicID, leadID string) ([]models.LeadEvent, error) {
	var events []models.LeadEvent
	err := r.db.
		Where("clinic_id = ? AND lead_id = ?", clinicID, leadID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

func (r gormReader) ListClinicEvents(clinicID string) ([]models.LeadEvent, error) {
	var events []models.LeadEvent
	err := r.db.Where("clinic_id = ?", clinicID).Order("created_at ASC").Find(&events).Error
	return events, err
}

func (r gormReader) ListMessageLogs(clinicID, leadID string) ([]models.MessageLog, error) {
	var logs []models.MessageLog
	err := r.db.
		Where("clinic_id = ? AND lead_id = ?", clinicID, leadID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

func (r gormReader) GetBudget(clinicID, id string) (models.Budget, error) {
	var b models.Budget
	err := r.forUpdate().Where("id = ? AND clinic_id = ?", id, clinicID).First(&b).Error
	return b, translate(err)
}

func (r gormReader) ListBudgets(clinicID string) ([]models.Budget, error) {
	var budgets []models.Budget
	err := r.db.Where("clinic_id = ?", clinicID).Order("created_at ASC").Find(&budgets).Error
	return budgets, err
}

func (r gormReader) GetTask(clinicID, id string) (models.Task, error) {
	var t models.Task
	err := r.forUpdate().Where("id = ? AND clinic_id = ?", id, clinicID).First(&t).Error
	return t, translate(err)
}

func (r gormReader) ListTasks(clinicID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.Where("clinic_id = ?", clinicID).Order("created_at ASC").Find(&tasks).Error
	return tasks, err
}

func (r gormReader) GetTag(clinicID, id string) (models.Tag, error) {
	var t models.Tag
	err := r.db.Where("id = ? AND clinic_id = ?", id, clinicID).First(&t).Error
	return t, translate(err)
}

func (r gormReader) ListTags(clinicID string) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.Where("clinic_id = ?", clinicID).Order("created_at ASC").Find(&tags).Error
	return tags, err
}

func (r gormReader) ListLeadTags(leadID string) ([]models.LeadTag, error) {
	var links []models.LeadTag
	err := r.db.Where("lead_id = ?", leadID).Order("created_at ASC").Find(&links).Error
	return links, err
}

func (r gormReader) ListTagLinks(tagID string) ([]models.LeadTag, error) {
	var links []models.LeadTag
	err := r.db.Where("tag_id = ?", tagID).Order("lead_id ASC").Find(&links).Error
	return links, err
}

func (r gormReader) GetPatient(clinicID, id string) (models.Patient, error) {
	var p models.Patient
	err := r.db.Where("id = ? AND clinic_id = ?", id, clinicID).First(&p).Error
	return p, translate(err)
}

func (r gormReader) ListPatients(clinicID string) ([]models.Patient, error) {
	var patients []models.Patient
	err := r.db.Where("clinic_id = ?", clinicID).Order("created_at ASC").Find(&patients).Error
	return patients, err
}

// --------------------------------------------------
// Writes
// --------------------------------------------------

type gormTx struct {
	gormReader
	clock    *store.Clock
	appended []models.LeadEvent
}

func (tx *gormTx) Now() time.Time { return tx.clock.Next() }
func (tx *gormTx) NewID() string  { return uuid.NewString() }

func (tx *gormTx) CreateClinic(c models.Clinic) error {
	return translate(tx.db.Create(&c).Error)
}

func (tx *gormTx) SaveClinic(c models.Clinic) error {
	return update(tx.db.Model(&models.Clinic{}).Where("id = ?", c.ID), &c)
}

func (tx *gormTx) CreateUser(u models.User) error {
	return translate(tx.db.Create(&u).Error)
}

func (tx *gormTx) CreateLead(l models.Lead) error {
	return translate(tx.db.Create(&l).Error)
}

func (tx *gormTx) SaveLead(l models.Lead) error {
	return update(tx.db.Model(&models.Lead{}).Where("id = ? AND clinic_id = ?", l.ID, l.ClinicID), &l)
}

func (tx *gormTx) ReplaceStages(clinicID string, stages []models.PipelineStage) error {
	if err := tx.db.Where("clinic_id = ?", clinicID).Delete(&models.PipelineStage{}).Error; err != nil {
		return err
	}
	if len(stages) == 0 {
		return nil
	}
	rows := make([]models.PipelineStage, len(stages))
	for i, s := range stages {
		s.ClinicID = clinicID
		rows[i] = s
	}
	return translate(tx.db.Create(&rows).Error)
}

func (tx *gormTx) AppendLeadEvent(ev models.LeadEvent) error {
	if err := tx.db.Create(&ev).Error; err != nil {
		return translate(err)
	}
	tx.appended = append(tx.appended, ev)
	return nil
}

func (tx *gormTx) CreateMessageLog(m models.MessageLog) error {
	return translate(tx.db.Create(&m).Error)
}

func (tx *gormTx) CreateBudget(b models.Budget) error {
	return translate(tx.db.Create(&b).Error)
}

func (tx *gormTx) SaveBudget(b models.Budget) error {
	return update(tx.db.Model(&models.Budget{}).Where("id = ? AND clinic_id = ?", b.ID, b.ClinicID), &b)
}

func (tx *gormTx) CreateTask(t models.Task) error {
	return translate(tx.db.Create(&t).Error)
}

func (tx *gormTx) SaveTask(t models.Task) error {
	return update(tx.db.Model(&models.Task{}).Where("id = ? AND clinic_id = ?", t.ID, t.ClinicID), &t)
}

func (tx *gormTx) DeleteTask(clinicID, id string) error {
	res := tx.db.Where("id = ? AND clinic_id = ?", id, clinicID).Delete(&models.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (tx *gormTx) CreateTag(t models.Tag) error {
	return translate(tx.db.Create(&t).Error)
}

func (tx *gormTx) LinkTag(link models.LeadTag) (bool, error) {
	res := tx.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (tx *gormTx) UnlinkTag(leadID, tagID string) (bool, error) {
	res := tx.db.Where("lead_id = ? AND tag_id = ?", leadID, tagID).Delete(&models.LeadTag{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (tx *gormTx) CreatePatient(p models.Patient) error {
	return translate(tx.db.Create(&p).Error)
}

// --------------------------------------------------
// Helpers
// --------------------------------------------------

// update writes every column of row, zero values included.
func update(q *gorm.DB, row any) error {
	res := q.Select("*").Updates(row)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const uniqueViolation = "23505"

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrConflict
	}
	return err
}

// Compile-time check
var _ store.Store = (*CRMGormStore)(nil)
