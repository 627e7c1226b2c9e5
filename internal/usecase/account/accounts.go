// Package account handles clinic sign-up and login.
package account

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/timezone"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/validators"
)

const RoleOwner = "owner"

type Accounts struct {
	store       store.Store
	defaultTZ   string
	checkDomain func(email string) bool
}

func NewAccounts(s store.Store, defaultTZ string) *Accounts {
	if !timezone.IsValid(defaultTZ) {
		defaultTZ = timezone.DefaultTimezone
	}
	return &Accounts{
		store:       s,
		defaultTZ:   defaultTZ,
		checkDomain: validators.IsEmailDomainValid,
	}
}

// WithDomainCheck replaces the DNS lookup used to vet e-mail domains.
func (a *Accounts) WithDomainCheck(fn func(email string) bool) *Accounts {
	a.checkDomain = fn
	return a
}

// --------- Register ---------

type RegisterInput struct {
	ClinicName    string `json:"clinic_name"`
	ClinicSlug    string `json:"clinic_slug"`
	ClinicPhone   string `json:"clinic_phone"`
	ClinicAddress string `json:"clinic_address"`
	Timezone      string `json:"timezone"`

	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type Account struct {
	User   models.User   `json:"user"`
	Clinic models.Clinic `json:"clinic"`
}

func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	name := strings.TrimSpace(in.ClinicName)
	slug := strings.ToLower(strings.TrimSpace(in.ClinicSlug))
	if name == "" || slug == "" {
		return nil, httperr.ErrValidation("clinic_required", "informe nome e slug da clínica")
	}
	if strings.ContainsAny(slug, " /?#") {
		return nil, httperr.ErrValidation("invalid_slug", "slug inválido")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, httperr.ErrValidation("name_required", "informe o nome")
	}
	if len(in.Password) < 6 {
		return nil, httperr.ErrValidation("weak_password", "a senha deve ter ao menos 6 caracteres")
	}

	email := validators.NormalizeEmail(in.Email)
	if email == "" {
		return nil, httperr.ErrValidation("invalid_email", "e-mail inválido")
	}
	if !a.checkDomain(email) {
		return nil, httperr.ErrValidation("invalid_email_domain", "O domínio do e-mail informado não parece ser válido.")
	}

	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = a.defaultTZ
	}
	if !timezone.IsValid(tz) {
		return nil, httperr.ErrValidation("invalid_timezone", "fuso horário inválido")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var out Account
	_, err = a.store.RunInTransaction(ctx, func(tx store.Tx) error {
		if _, err := tx.FindClinicBySlug(slug); err == nil {
			return httperr.ErrBusiness("slug_already_exists")
		}
		if _, err := tx.FindUserByEmail(email); err == nil {
			return httperr.ErrBusiness("email_already_exists")
		}

		now := tx.Now()
		clinic := models.Clinic{
			ID:        tx.NewID(),
			Name:      name,
			Slug:      slug,
			Phone:     strings.TrimSpace(in.ClinicPhone),
			Address:   strings.TrimSpace(in.ClinicAddress),
			Timezone:  tz,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateClinic(clinic); err != nil {
			return conflict(err, "slug_already_exists")
		}

		user := models.User{
			ID:           tx.NewID(),
			ClinicID:     clinic.ID,
			Name:         strings.TrimSpace(in.Name),
			Email:        email,
			PasswordHash: string(hashed),
			Phone:        strings.TrimSpace(in.Phone),
			Role:         RoleOwner,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.CreateUser(user); err != nil {
			return conflict(err, "email_already_exists")
		}

		out = Account{User: user, Clinic: clinic}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func conflict(err error, code string) error {
	if errors.Is(err, store.ErrConflict) {
		return httperr.ErrBusiness(code)
	}
	return err
}

// --------- Login ---------

// ErrInvalidCredentials covers both unknown e-mail and wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	email = validators.NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	var out Account
	err := a.store.View(ctx, func(r store.Reader) error {
		u, err := r.FindUserByEmail(email)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
		c, err := lookup.Clinic(r, u.ClinicID)
		if err != nil {
			return err
		}
		out = Account{User: u, Clinic: c}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// --------- Me ---------

func (a *Accounts) Me(ctx context.Context, actor models.Actor) (*Account, error) {
	if actor.UserID == nil {
		return nil, httperr.ErrNotFound("user_not_found", "usuário não encontrado")
	}

	var out Account
	err := a.store.View(ctx, func(r store.Reader) error {
		u, err := r.GetUser(*actor.UserID)
		if err != nil || u.ClinicID != actor.ClinicID {
			return httperr.ErrNotFound("user_not_found", "usuário não encontrado")
		}
		c, err := lookup.Clinic(r, actor.ClinicID)
		if err != nil {
			return err
		}
		out = Account{User: u, Clinic: c}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Accounts) Clinic(ctx context.Context, clinicID string) (*models.Clinic, error) {
	var out models.Clinic
	err := a.store.View(ctx, func(r store.Reader) error {
		c, err := lookup.Clinic(r, clinicID)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type ClinicPatch struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Timezone *string `json:"timezone"`
}

func (a *Accounts) UpdateClinic(ctx context.Context, actor models.Actor, p ClinicPatch) (*models.Clinic, error) {
	var out models.Clinic
	_, err := a.store.RunInTransaction(ctx, func(tx store.Tx) error {
		c, err := lookup.Clinic(tx, actor.ClinicID)
		if err != nil {
			return err
		}

		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return httperr.ErrValidation("clinic_required", "informe o nome da clínica")
			}
			c.Name = name
		}
		if p.Phone != nil {
			c.Phone = strings.TrimSpace(*p.Phone)
		}
		if p.Address != nil {
			c.Address = strings.TrimSpace(*p.Address)
		}
		if p.Timezone != nil {
			if !timezone.IsValid(*p.Timezone) {
				return httperr.ErrValidation("invalid_timezone", "fuso horário inválido")
			}
			c.Timezone = *p.Timezone
		}

		c.UpdatedAt = tx.Now()
		if err := tx.SaveClinic(c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
