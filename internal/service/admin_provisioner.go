package service

import (
	"context"
	stderrors "errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"formini/internal/model"
	"formini/internal/repository"
)

// ProvisionReport describes what a reconciliation changed.
type ProvisionReport struct {
	Created                 bool  `json:"created"`
	Repaired                bool  `json:"repaired"`
	StrayAdminsDeleted      int64 `json:"strayAdminsDeleted"`
	InstructorFieldsCleared int64 `json:"instructorFieldsCleared"`
}

// Changed reports whether the run modified any record.
func (r ProvisionReport) Changed() bool {
	return r.Created || r.Repaired || r.StrayAdminsDeleted > 0 || r.InstructorFieldsCleared > 0
}

// AdminProvisioner keeps the store consistent with the pinned administrator.
type AdminProvisioner struct {
	deps     Dependencies
	password string
}

// NewAdminProvisioner creates a provisioner that enforces password on the
// pinned administrator account.
func NewAdminProvisioner(deps Dependencies, password string) *AdminProvisioner {
	p := &AdminProvisioner{deps: deps, password: password}
	p.deps.setDefaults()
	return p
}

// Reconcile creates or repairs the pinned administrator, removes every other
// administrator and strips instructor fields from non-instructor records.
// Running it twice in a row changes nothing the second time.
func (p *AdminProvisioner) Reconcile(ctx context.Context) (ProvisionReport, error) {
	var report ProvisionReport
	email := p.deps.Policy.Email()
	if email == "" {
		return report, fmt.Errorf("admin email not configured")
	}

	cleared, err := p.deps.Users.ClearInstructorFieldsForNonInstructors(ctx)
	if err != nil {
		return report, fmt.Errorf("clear instructor fields: %w", err)
	}
	report.InstructorFieldsCleared = cleared

	deleted, err := p.deps.Users.DeleteStrayAdmins(ctx, email)
	if err != nil {
		return report, fmt.Errorf("delete stray admins: %w", err)
	}
	report.StrayAdminsDeleted = deleted

	admin, err := p.deps.Users.FindByEmail(ctx, email)
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		if err := p.create(ctx, email); err != nil {
			return report, err
		}
		report.Created = true
	case err != nil:
		return report, fmt.Errorf("find admin: %w", err)
	default:
		repaired, err := p.repair(ctx, admin)
		if err != nil {
			return report, err
		}
		report.Repaired = repaired
	}

	count, err := p.deps.Users.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return report, fmt.Errorf("count admins: %w", err)
	}
	if count != 1 {
		more, err := p.deps.Users.DeleteStrayAdmins(ctx, email)
		if err != nil {
			return report, fmt.Errorf("delete stray admins: %w", err)
		}
		report.StrayAdminsDeleted += more
	}

	if report.Changed() {
		p.deps.Logger.InfoContext(ctx, "admin account reconciled",
			"created", report.Created,
			"repaired", report.Repaired,
			"stray_admins_deleted", report.StrayAdminsDeleted,
			"instructor_fields_cleared", report.InstructorFieldsCleared,
		)
	}
	return report, nil
}

func (p *AdminProvisioner) create(ctx context.Context, email string) error {
	if p.password == "" {
		return fmt.Errorf("admin password required to create %s", email)
	}
	hash, err := p.deps.hashPassword(p.password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := model.NewAdmin("Admin", "Formini", email, p.deps.now())
	admin.PasswordHash = hash
	if err := p.deps.Users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

// repair restores role, status, verification and, when configured, the password.
func (p *AdminProvisioner) repair(ctx context.Context, admin *model.User) (bool, error) {
	changed := false
	if admin.Role != model.RoleAdmin {
		admin.SetRole(model.RoleAdmin)
		changed = true
	}
	if admin.Status != model.StatusActive {
		admin.Status = model.StatusActive
		changed = true
	}
	if !admin.IsVerified {
		admin.IsVerified = true
		changed = true
	}
	if admin.VerificationCode != "" || admin.VerificationCodeExpires != nil {
		admin.ClearVerificationCode()
		changed = true
	}
	if p.password != "" && bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(p.password)) != nil {
		hash, err := p.deps.hashPassword(p.password)
		if err != nil {
			return false, fmt.Errorf("hash admin password: %w", err)
		}
		admin.PasswordHash = hash
		changed = true
	}
	if !changed {
		return false, nil
	}
	if err := p.deps.Users.Update(ctx, admin); err != nil {
		return false, fmt.Errorf("repair admin: %w", err)
	}
	return true, nil
}
