package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path"
	"strings"

	"formini/internal/errors"
	"formini/internal/model"
	"formini/internal/notify"
	"formini/internal/repository"
	"formini/internal/storage"
)

// AdminService exposes the administrator operations on accounts.
type AdminService interface {
	ApproveInstructor(ctx context.Context, id string) (*model.User, error)
	RejectInstructor(ctx context.Context, id string) (*model.User, error)
	ToggleUserStatus(ctx context.Context, id string, status model.Status) (*model.User, error)
	ListPendingInstructors(ctx context.Context) ([]model.PendingInstructor, error)
	OpenInstructorCV(ctx context.Context, id string) (io.ReadCloser, string, error)
}

type adminService struct {
	deps Dependencies
}

// NewAdminService creates a new admin service.
func NewAdminService(deps Dependencies) AdminService {
	s := &adminService{deps: deps}
	s.deps.setDefaults()
	return s
}

func (s *adminService) findInstructor(ctx context.Context, id string) (*model.User, model.RegistrationStatus, error) {
	user, err := s.deps.Users.FindByID(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, "", errors.ErrUserNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	status, ok := user.RegistrationStatus()
	if !ok {
		return nil, "", errors.ErrNotInstructor
	}
	return user, status, nil
}

// ApproveInstructor activates a pending instructor. Approving an approved
// instructor succeeds without side effects; a rejected one stays rejected.
func (s *adminService) ApproveInstructor(ctx context.Context, id string) (*model.User, error) {
	user, status, err := s.findInstructor(ctx, id)
	if err != nil {
		return nil, err
	}
	switch status {
	case model.RegistrationApproved:
		return user, nil
	case model.RegistrationRejected:
		return nil, errors.ErrAlreadyDecided
	}

	user.Instructor.RegistrationStatus = model.RegistrationApproved
	user.Status = model.StatusActive
	user.IsVerified = true
	if err := s.deps.Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("approve instructor: %w", err)
	}
	s.deps.Metrics.InstructorDecision(string(model.RegistrationApproved))
	s.deps.Logger.InfoContext(ctx, "instructor approved", "user_id", user.ID)
	s.notifyDecision(ctx, user, true)
	return user, nil
}

// RejectInstructor suspends a pending instructor and removes their CV.
// Rejecting a rejected instructor succeeds without side effects.
func (s *adminService) RejectInstructor(ctx context.Context, id string) (*model.User, error) {
	user, status, err := s.findInstructor(ctx, id)
	if err != nil {
		return nil, err
	}
	switch status {
	case model.RegistrationRejected:
		return user, nil
	case model.RegistrationApproved:
		return nil, errors.ErrAlreadyDecided
	}

	if key := user.Instructor.CVKey; key != "" {
		if err := s.deps.CVs.Delete(ctx, key); err != nil {
			s.deps.Logger.WarnContext(ctx, "cv not removed", "user_id", user.ID, "key", key, "error", err)
		}
	}
	user.Instructor.RegistrationStatus = model.RegistrationRejected
	user.Instructor.CVKey = ""
	user.Status = model.StatusSuspended
	if err := s.deps.Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("reject instructor: %w", err)
	}
	s.deps.Metrics.InstructorDecision(string(model.RegistrationRejected))
	s.deps.Logger.InfoContext(ctx, "instructor rejected", "user_id", user.ID)
	s.notifyDecision(ctx, user, false)
	return user, nil
}

func (s *adminService) notifyDecision(ctx context.Context, user *model.User, approved bool) {
	d := notify.ApprovalDecision{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Approved:  approved,
		LoginURL:  strings.TrimRight(s.deps.FrontendURL, "/") + "/login",
	}
	s.deps.Dispatcher.Go(ctx, notify.KindApprovalDecision, func(ctx context.Context) error {
		return s.deps.Notifier.SendApprovalDecision(ctx, d)
	})
}

// ToggleUserStatus sets the account status. The pinned administrator can
// never be modified and no administrator can be suspended.
func (s *adminService) ToggleUserStatus(ctx context.Context, id string, status model.Status) (*model.User, error) {
	user, err := s.deps.Users.FindByID(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	switch {
	case s.deps.Policy.IsProtectedPrincipal(user):
		return nil, errors.ErrProtectedAccount
	case !status.Valid():
		return nil, errors.ErrInvalidStatus
	case user.Role == model.RoleAdmin && status == model.StatusSuspended:
		return nil, errors.ErrAdminSuspension
	}

	if user.Status == status {
		return user, nil
	}
	user.Status = status
	if err := s.deps.Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.deps.Logger.InfoContext(ctx, "user status changed", "user_id", user.ID, "status", status)
	return user, nil
}

// ListPendingInstructors returns instructors awaiting a decision, newest request first.
func (s *adminService) ListPendingInstructors(ctx context.Context) ([]model.PendingInstructor, error) {
	users, err := s.deps.Users.ListPendingInstructors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending instructors: %w", err)
	}
	out := make([]model.PendingInstructor, 0, len(users))
	for _, u := range users {
		out = append(out, model.PendingInstructorOf(u))
	}
	return out, nil
}

// OpenInstructorCV returns the stored CV of an instructor and a download name.
// The caller closes the reader.
func (s *adminService) OpenInstructorCV(ctx context.Context, id string) (io.ReadCloser, string, error) {
	user, _, err := s.findInstructor(ctx, id)
	if err != nil {
		return nil, "", err
	}
	key := user.Instructor.CVKey
	if key == "" {
		return nil, "", errors.ErrCVNotFound
	}
	rc, err := s.deps.CVs.Open(ctx, key)
	if err != nil {
		if stderrors.Is(err, errors.ErrCVNotFound) || stderrors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", errors.ErrCVNotFound
		}
		return nil, "", fmt.Errorf("open cv: %w", err)
	}
	return rc, path.Base(key), nil
}
