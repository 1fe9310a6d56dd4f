package service

import (
	"context"
	stderrors "errors"
	"fmt"

	"formini/internal/errors"
	"formini/internal/model"
	"formini/internal/repository"
)

// UserService exposes the caller's own account.
type UserService interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
}

type userService struct {
	repo repository.UserRepository
}

// NewUserService builds a UserService on repo. Profiles are read from the
// store on every call so status changes are visible immediately.
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	user, err := s.repo.FindByID(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	profile := model.ProfileOf(user)
	return &profile, nil
}
