package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"formini/internal/auth"
	"formini/internal/errors"
	"formini/internal/model"
)

func TestCheckAccess(t *testing.T) {
	policy := auth.NewAdminPolicy(testAdminEmail)
	now := time.Now()

	admin := model.NewAdmin("A", "B", testAdminEmail, now)
	admin.Status = model.StatusSuspended
	admin.IsVerified = false

	pending := model.NewInstructor("I", "T", "i@b.com", "Math", "cvs/i.pdf", now)
	pending.IsVerified = false

	rejected := model.NewInstructor("I", "T", "r@b.com", "Math", "", now)
	rejected.Instructor.RegistrationStatus = model.RegistrationRejected

	suspended := model.NewStudent("S", "S", "s@b.com", now)
	suspended.Status = model.StatusSuspended

	unverified := model.NewStudent("U", "U", "u@b.com", now)

	tests := []struct {
		name      string
		user      *model.User
		access    error
		loginWant error
	}{
		{"pinned admin always passes", admin, nil, nil},
		{"pending checked before suspension and verification", pending, errors.ErrPendingApproval, errors.ErrPendingApproval},
		{"rejected", rejected, errors.ErrApplicationRejected, errors.ErrApplicationRejected},
		{"suspended", suspended, errors.ErrAccountSuspended, errors.ErrAccountSuspended},
		{"unverified passes the gate but not login", unverified, nil, errors.ErrNotVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAccess(policy, tt.user)
			if tt.access == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.access)
			}

			err = checkLogin(policy, tt.user)
			if tt.loginWant == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.loginWant)
			}
		})
	}
}

func TestCheckAccess_StrayAdminIsNotProtected(t *testing.T) {
	policy := auth.NewAdminPolicy(testAdminEmail)
	stray := model.NewAdmin("A", "B", "other@b.com", time.Now())
	stray.Status = model.StatusSuspended

	assert.ErrorIs(t, CheckAccess(policy, stray), errors.ErrAccountSuspended)
}
