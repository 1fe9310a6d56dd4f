package service

import (
	"formini/internal/auth"
	"formini/internal/errors"
	"formini/internal/model"
)

// CheckAccess applies the lifecycle gate shared by every login path and by
// the request middleware. The pinned administrator always passes.
func CheckAccess(policy auth.AdminPolicy, u *model.User) error {
	if policy.IsProtectedPrincipal(u) {
		return nil
	}
	if status, ok := u.RegistrationStatus(); ok {
		switch status {
		case model.RegistrationPending:
			return errors.ErrPendingApproval
		case model.RegistrationRejected:
			return errors.ErrApplicationRejected
		}
	}
	if u.Status == model.StatusSuspended {
		return errors.ErrAccountSuspended
	}
	return nil
}

// checkLogin adds the verified-email requirement of password and code logins.
func checkLogin(policy auth.AdminPolicy, u *model.User) error {
	if err := CheckAccess(policy, u); err != nil {
		return err
	}
	if !u.IsVerified && !policy.IsProtectedPrincipal(u) {
		return errors.ErrNotVerified
	}
	return nil
}
