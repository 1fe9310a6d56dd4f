package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"formini/internal/model"
)

func TestReconcile_CreatesAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := NewAdminProvisioner(f.deps, "s3cret-pass")

	report, err := p.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, report.Created)

	admin, err := f.users.FindByEmail(ctx, testAdminEmail)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.Equal(t, model.StatusActive, admin.Status)
	assert.True(t, admin.IsVerified)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret-pass")))

	again, err := p.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, again.Changed())
}

func TestReconcile_RequiresPasswordToCreate(t *testing.T) {
	f := newFixture(t)
	_, err := NewAdminProvisioner(f.deps, "").Reconcile(context.Background())
	assert.Error(t, err)
}

func TestReconcile_RepairsAndCleansUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	broken := model.NewStudent("Admin", "Formini", testAdminEmail, f.clock.Now())
	broken.Status = model.StatusSuspended
	broken.PasswordHash = f.hash(t, "old-pass")
	f.users.Put(broken)

	stray := model.NewAdmin("Rogue", "Admin", "rogue@b.com", f.clock.Now())
	f.users.Put(stray)

	tainted := model.NewStudent("Sam", "Student", "sam@b.com", f.clock.Now())
	tainted.Instructor = &model.InstructorProfile{RegistrationStatus: model.RegistrationPending}
	f.users.Put(tainted)

	report, err := NewAdminProvisioner(f.deps, "new-pass").Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, report.Created)
	assert.True(t, report.Repaired)
	assert.Equal(t, int64(1), report.StrayAdminsDeleted)
	assert.Equal(t, int64(1), report.InstructorFieldsCleared)

	admin, err := f.users.FindByEmail(ctx, testAdminEmail)
	require.NoError(t, err)
	assert.Equal(t, broken.ID, admin.ID)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.Equal(t, model.StatusActive, admin.Status)
	assert.True(t, admin.IsVerified)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("new-pass")))

	_, err = f.users.FindByID(ctx, stray.ID)
	assert.Error(t, err)

	student, err := f.users.FindByID(ctx, tainted.ID)
	require.NoError(t, err)
	assert.Nil(t, student.Instructor)

	count, err := f.users.CountByRole(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	session, err := f.auth.LoginDirect(ctx, testAdminEmail, "new-pass")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, session.User.Role)
}

func TestReconcile_KeepsPasswordWhenNoneConfigured(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "kept-pass")

	report, err := NewAdminProvisioner(f.deps, "").Reconcile(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Changed())

	_, err = f.auth.LoginDirect(context.Background(), testAdminEmail, "kept-pass")
	assert.NoError(t, err)
}
