package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formini/internal/model"
)

func TestMemoryUserRepository_CreateRejectsDuplicateEmail(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, model.NewStudent("A", "B", "a@example.com", now)))
	err := repo.Create(ctx, model.NewStudent("C", "D", "A@Example.com", now))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	u := model.NewStudent("A", "B", "a@example.com", time.Now())
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	got.FirstName = "changed"

	again, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "A", again.FirstName)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserRepository_ConsumeVerificationCode(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	u := model.NewStudent("A", "B", "a@example.com", now)
	u.SetVerificationCode("123456", now.Add(10*time.Minute))
	require.NoError(t, repo.Create(ctx, u))

	_, err := repo.ConsumeVerificationCode(ctx, "a@example.com", "654321", now)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.ConsumeVerificationCode(ctx, "a@example.com", "123456", now.Add(10*time.Minute))
	assert.ErrorIs(t, err, ErrNotFound, "code is expired at its expiry instant")

	got, err := repo.ConsumeVerificationCode(ctx, "a@example.com", "123456", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.Empty(t, got.VerificationCode)
	assert.Nil(t, got.VerificationCodeExpires)

	_, err = repo.ConsumeVerificationCode(ctx, "a@example.com", "123456", now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserRepository_ConsumeVerificationCodeOnce(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	now := time.Now()

	u := model.NewStudent("A", "B", "a@example.com", now)
	u.SetVerificationCode("123456", now.Add(10*time.Minute))
	require.NoError(t, repo.Create(ctx, u))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ConsumeVerificationCode(ctx, "a@example.com", "123456", now); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestMemoryUserRepository_ListPendingInstructorsNewestFirst(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	base := time.Now()

	older := model.NewInstructor("Old", "One", "old@example.com", "Centre", "cvs/old.pdf", base)
	newer := model.NewInstructor("New", "One", "new@example.com", "Centre", "cvs/new.pdf", base.Add(time.Hour))
	approved := model.NewInstructor("Done", "One", "done@example.com", "Centre", "cvs/done.pdf", base.Add(2*time.Hour))
	approved.Instructor.RegistrationStatus = model.RegistrationApproved
	for _, u := range []*model.User{older, newer, approved, model.NewStudent("S", "T", "s@example.com", base)} {
		require.NoError(t, repo.Create(ctx, u))
	}

	pending, err := repo.ListPendingInstructors(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, newer.ID, pending[0].ID)
	assert.Equal(t, older.ID, pending[1].ID)
}

func TestMemoryUserRepository_AdminMaintenance(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, model.NewAdmin("Main", "Admin", "admin@formini.com", now)))
	require.NoError(t, repo.Create(ctx, model.NewAdmin("Stray", "Admin", "stray@formini.com", now)))

	student := model.NewStudent("S", "T", "s@example.com", now)
	student.Instructor = &model.InstructorProfile{CentreProfession: "leftover"}
	repo.Put(student)

	n, err := repo.DeleteStrayAdmins(ctx, "ADMIN@formini.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := repo.CountByRole(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	n, err = repo.ClearInstructorFieldsForNonInstructors(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.FindByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Instructor)
}
