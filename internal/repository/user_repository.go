package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"formini/internal/model"
)

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByEmailOrFacebookID(ctx context.Context, email, facebookID string) (*model.User, error)
	// ConsumeVerificationCode marks the account verified and clears its code in
	// one step, only if code is still the stored, unexpired code at now.
	ConsumeVerificationCode(ctx context.Context, email, code string, now time.Time) (*model.User, error)
	ListPendingInstructors(ctx context.Context) ([]*model.User, error)
	CountByRole(ctx context.Context, role model.Role) (int64, error)
	DeleteStrayAdmins(ctx context.Context, keepEmail string) (int64, error)
	ClearInstructorFieldsForNonInstructors(ctx context.Context) (int64, error)
}

// userRow is the flat MySQL layout of model.User.
type userRow struct {
	ID                      string  `gorm:"type:char(36);primaryKey"`
	FirstName               string  `gorm:"size:100"`
	LastName                string  `gorm:"size:100"`
	Email                   string  `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash            string  `gorm:"size:255"`
	GoogleID                *string `gorm:"size:64;uniqueIndex"`
	FacebookID              *string `gorm:"size:64;uniqueIndex"`
	Avatar                  string  `gorm:"size:512"`
	Role                    string  `gorm:"size:20;index;not null"`
	Status                  string  `gorm:"size:20;not null"`
	IsVerified              bool    `gorm:"not null;default:false"`
	VerificationCode        string  `gorm:"size:6"`
	VerificationCodeExpires *time.Time
	CentreProfession        *string `gorm:"size:255"`
	CVKey                   *string `gorm:"size:255"`
	RegistrationStatus      *string `gorm:"size:20;index"`
	RequestedAt             *time.Time
	RegisteredAt            time.Time
	LastLoginAt             *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (userRow) TableName() string {
	return "users"
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toRow(u *model.User) *userRow {
	row := &userRow{
		ID:                      u.ID,
		FirstName:               u.FirstName,
		LastName:                u.LastName,
		Email:                   model.NormalizeEmail(u.Email),
		PasswordHash:            u.PasswordHash,
		GoogleID:                strPtr(u.GoogleID),
		FacebookID:              strPtr(u.FacebookID),
		Avatar:                  u.Avatar,
		Role:                    string(u.Role),
		Status:                  string(u.Status),
		IsVerified:              u.IsVerified,
		VerificationCode:        u.VerificationCode,
		VerificationCodeExpires: u.VerificationCodeExpires,
		RegisteredAt:            u.RegisteredAt,
		LastLoginAt:             u.LastLoginAt,
		CreatedAt:               u.CreatedAt,
		UpdatedAt:               u.UpdatedAt,
	}
	if u.Role == model.RoleInstructor && u.Instructor != nil {
		status := string(u.Instructor.RegistrationStatus)
		requested := u.Instructor.RequestedAt
		row.CentreProfession = strPtr(u.Instructor.CentreProfession)
		row.CVKey = strPtr(u.Instructor.CVKey)
		row.RegistrationStatus = &status
		row.RequestedAt = &requested
	}
	return row
}

func (r *userRow) toModel() *model.User {
	u := &model.User{
		ID:                      r.ID,
		FirstName:               r.FirstName,
		LastName:                r.LastName,
		Email:                   r.Email,
		PasswordHash:            r.PasswordHash,
		GoogleID:                strVal(r.GoogleID),
		FacebookID:              strVal(r.FacebookID),
		Avatar:                  r.Avatar,
		Role:                    model.Role(r.Role),
		Status:                  model.Status(r.Status),
		IsVerified:              r.IsVerified,
		VerificationCode:        r.VerificationCode,
		VerificationCodeExpires: r.VerificationCodeExpires,
		RegisteredAt:            r.RegisteredAt,
		LastLoginAt:             r.LastLoginAt,
		CreatedAt:               r.CreatedAt,
		UpdatedAt:               r.UpdatedAt,
	}
	if u.Role == model.RoleInstructor && r.RegistrationStatus != nil {
		p := &model.InstructorProfile{
			CentreProfession:   strVal(r.CentreProfession),
			CVKey:              strVal(r.CVKey),
			RegistrationStatus: model.RegistrationStatus(*r.RegistrationStatus),
		}
		if r.RequestedAt != nil {
			p.RequestedAt = *r.RequestedAt
		}
		u.Instructor = p
	}
	return u
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRow{})
}

func wrapGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return wrapGormError(r.db.WithContext(ctx).Create(toRow(user)).Error)
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()
	return wrapGormError(r.db.WithContext(ctx).Save(toRow(user)).Error)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&userRow{})
	if res.Error != nil {
		return wrapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) first(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).Where(query, args...).First(&row).Error; err != nil {
		return nil, wrapGormError(err)
	}
	return row.toModel(), nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", model.NormalizeEmail(email))
}

func (r *userRepository) FindByEmailOrFacebookID(ctx context.Context, email, facebookID string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if facebookID == "" {
		return r.first(ctx, "email = ?", email)
	}
	return r.first(ctx, "email = ? OR facebook_id = ?", email, facebookID)
}

func (r *userRepository) ConsumeVerificationCode(ctx context.Context, email, code string, now time.Time) (*model.User, error) {
	email = model.NormalizeEmail(email)
	res := r.db.WithContext(ctx).Model(&userRow{}).
		Where("email = ? AND verification_code = ? AND verification_code_expires > ?", email, code, now).
		Updates(map[string]interface{}{
			"is_verified":               true,
			"verification_code":         "",
			"verification_code_expires": nil,
			"updated_at":                now,
		})
	if res.Error != nil {
		return nil, wrapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByEmail(ctx, email)
}

func (r *userRepository) ListPendingInstructors(ctx context.Context) ([]*model.User, error) {
	var rows []userRow
	if err := r.db.WithContext(ctx).
		Where("role = ? AND registration_status = ?", model.RoleInstructor, model.RegistrationPending).
		Order("requested_at DESC").
		Find(&rows).Error; err != nil {
		return nil, wrapGormError(err)
	}
	users := make([]*model.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toModel())
	}
	return users, nil
}

func (r *userRepository) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userRow{}).Where("role = ?", role).Count(&count).Error
	return count, wrapGormError(err)
}

func (r *userRepository) DeleteStrayAdmins(ctx context.Context, keepEmail string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("role = ? AND email <> ?", model.RoleAdmin, model.NormalizeEmail(keepEmail)).
		Delete(&userRow{})
	return res.RowsAffected, wrapGormError(res.Error)
}

func (r *userRepository) ClearInstructorFieldsForNonInstructors(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&userRow{}).
		Where("role <> ? AND (centre_profession IS NOT NULL OR cv_key IS NOT NULL OR registration_status IS NOT NULL OR requested_at IS NOT NULL)", model.RoleInstructor).
		Updates(map[string]interface{}{
			"centre_profession":   nil,
			"cv_key":              nil,
			"registration_status": nil,
			"requested_at":        nil,
		})
	return res.RowsAffected, wrapGormError(res.Error)
}
