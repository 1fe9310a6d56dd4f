package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"formini/internal/model"
)

// MemoryUserRepository keeps users in process memory. It is used by the
// "memory" store driver and by tests.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*model.User
}

var _ UserRepository = (*MemoryUserRepository)(nil)

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*model.User)}
}

func (r *MemoryUserRepository) conflicts(u *model.User) bool {
	for id, other := range r.users {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email ||
			(u.GoogleID != "" && other.GoogleID == u.GoogleID) ||
			(u.FacebookID != "" && other.FacebookID == u.FacebookID) {
			return true
		}
	}
	return false
}

func (r *MemoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Normalize()
	if _, ok := r.users[user.ID]; ok || r.conflicts(user) {
		return ErrDuplicate
	}
	r.users[user.ID] = user.Clone()
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.Normalize()
	if r.conflicts(user) {
		return ErrDuplicate
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user.Clone()
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) FindByEmailOrFacebookID(_ context.Context, email, facebookID string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	return r.find(func(u *model.User) bool {
		return u.Email == email || (facebookID != "" && u.FacebookID == facebookID)
	})
}

func (r *MemoryUserRepository) ConsumeVerificationCode(_ context.Context, email, code string, now time.Time) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = model.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email != email || !u.CodeMatches(code, now) {
			continue
		}
		u.IsVerified = true
		u.ClearVerificationCode()
		u.UpdatedAt = now
		return u.Clone(), nil
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepository) ListPendingInstructors(_ context.Context) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := []*model.User{}
	for _, u := range r.users {
		if status, ok := u.RegistrationStatus(); ok && status == model.RegistrationPending {
			users = append(users, u.Clone())
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Instructor.RequestedAt.After(users[j].Instructor.RequestedAt)
	})
	return users, nil
}

func (r *MemoryUserRepository) CountByRole(_ context.Context, role model.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *MemoryUserRepository) DeleteStrayAdmins(_ context.Context, keepEmail string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keepEmail = model.NormalizeEmail(keepEmail)
	var n int64
	for id, u := range r.users {
		if u.Role == model.RoleAdmin && u.Email != keepEmail {
			delete(r.users, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryUserRepository) ClearInstructorFieldsForNonInstructors(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, u := range r.users {
		if u.Role != model.RoleInstructor && u.Instructor != nil {
			u.Instructor = nil
			n++
		}
	}
	return n, nil
}

// Put stores user as-is, bypassing normalization. Tests use it to seed
// inconsistent records.
func (r *MemoryUserRepository) Put(user *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user.Clone()
}
