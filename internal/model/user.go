package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the platform role of an account.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// Status is the account status, independent of instructor approval.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}

// RegistrationStatus is the instructor approval workflow state.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// Provider identifies an external identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// InstructorProfile holds the fields that exist only for instructor accounts.
type InstructorProfile struct {
	CentreProfession   string             `json:"centreProfession" bson:"centre_profession"`
	CVKey              string             `json:"cv,omitempty" bson:"cv_key,omitempty"`
	RegistrationStatus RegistrationStatus `json:"registrationStatus" bson:"registration_status"`
	RequestedAt        time.Time          `json:"requestedAt" bson:"requested_at"`
}

// User represents an account. Instructor is non-nil exactly when Role is RoleInstructor.
type User struct {
	ID                      string             `json:"id" bson:"_id"`
	FirstName               string             `json:"firstName" bson:"first_name"`
	LastName                string             `json:"lastName" bson:"last_name"`
	Email                   string             `json:"email" bson:"email"`
	PasswordHash            string             `json:"-" bson:"password_hash,omitempty"` // Never expose in JSON
	GoogleID                string             `json:"-" bson:"google_id,omitempty"`
	FacebookID              string             `json:"-" bson:"facebook_id,omitempty"`
	Avatar                  string             `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Role                    Role               `json:"role" bson:"role"`
	Status                  Status             `json:"status" bson:"status"`
	IsVerified              bool               `json:"isVerified" bson:"is_verified"`
	VerificationCode        string             `json:"-" bson:"verification_code,omitempty"`
	VerificationCodeExpires *time.Time         `json:"-" bson:"verification_code_expires,omitempty"`
	Instructor              *InstructorProfile `json:"instructor,omitempty" bson:"instructor,omitempty"`
	RegisteredAt            time.Time          `json:"registeredAt" bson:"registered_at"`
	LastLoginAt             *time.Time         `json:"lastLoginAt,omitempty" bson:"last_login_at,omitempty"`
	CreatedAt               time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt               time.Time          `json:"updatedAt" bson:"updated_at"`
}

// NewStudent builds a student account.
func NewStudent(firstName, lastName, email string, now time.Time) *User {
	return newUser(RoleStudent, firstName, lastName, email, now)
}

// NewInstructor builds an instructor account with a pending application.
// Instructors start suspended until an administrator approves them.
func NewInstructor(firstName, lastName, email, centre, cvKey string, now time.Time) *User {
	u := newUser(RoleInstructor, firstName, lastName, email, now)
	u.Status = StatusSuspended
	u.Instructor = &InstructorProfile{
		CentreProfession:   centre,
		CVKey:              cvKey,
		RegistrationStatus: RegistrationPending,
		RequestedAt:        now,
	}
	return u
}

// NewAdmin builds the administrator account.
func NewAdmin(firstName, lastName, email string, now time.Time) *User {
	u := newUser(RoleAdmin, firstName, lastName, email, now)
	u.IsVerified = true
	return u
}

func newUser(role Role, firstName, lastName, email string, now time.Time) *User {
	return &User{
		ID:           uuid.New().String(),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Email:        NormalizeEmail(email),
		Role:         role,
		Status:       StatusActive,
		RegisteredAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Kind returns the role variant of the account.
func (u *User) Kind() Role {
	return u.Role
}

// RegistrationStatus returns the instructor approval state and whether it exists.
func (u *User) RegistrationStatus() (RegistrationStatus, bool) {
	if u.Role != RoleInstructor || u.Instructor == nil {
		return "", false
	}
	return u.Instructor.RegistrationStatus, true
}

// SetRole changes the role and keeps the instructor profile consistent with it.
func (u *User) SetRole(role Role) {
	u.Role = role
	if role != RoleInstructor {
		u.Instructor = nil
	}
}

// SetVerificationCode stores a pending code, replacing any previous one.
func (u *User) SetVerificationCode(code string, expires time.Time) {
	u.VerificationCode = code
	u.VerificationCodeExpires = &expires
}

// ClearVerificationCode removes the pending code.
func (u *User) ClearVerificationCode() {
	u.VerificationCode = ""
	u.VerificationCodeExpires = nil
}

// CodeMatches reports whether code equals the stored code and is still valid at now.
// A code is expired at exactly its expiry instant.
func (u *User) CodeMatches(code string, now time.Time) bool {
	if u.VerificationCode == "" || u.VerificationCodeExpires == nil {
		return false
	}
	return u.VerificationCode == code && u.VerificationCodeExpires.After(now)
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// ProfileComplete reports whether both name fields are set.
func (u *User) ProfileComplete() bool {
	return u.FirstName != "" && u.LastName != ""
}

// Normalize clears fields that must not exist for the account's role.
func (u *User) Normalize() {
	if u.Role != RoleInstructor {
		u.Instructor = nil
	}
	u.Email = NormalizeEmail(u.Email)
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	c := *u
	if u.VerificationCodeExpires != nil {
		t := *u.VerificationCodeExpires
		c.VerificationCodeExpires = &t
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	if u.Instructor != nil {
		p := *u.Instructor
		c.Instructor = &p
	}
	return &c
}

// Profile is the normalized public view of a user returned with sessions.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Status    Status `json:"status"`
	Avatar    string `json:"avatar,omitempty"`
}

// ProfileOf builds the public view of u.
func ProfileOf(u *User) Profile {
	return Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
		Avatar:    u.Avatar,
	}
}

// PendingInstructor is the admin view of an instructor awaiting approval.
type PendingInstructor struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Email            string    `json:"email"`
	CentreProfession string    `json:"centreProfession"`
	HasCV            bool      `json:"hasCv"`
	RequestedAt      time.Time `json:"requestedAt"`
	RegisteredAt     time.Time `json:"registeredAt"`
}

// PendingInstructorOf builds the admin view of an instructor.
func PendingInstructorOf(u *User) PendingInstructor {
	p := PendingInstructor{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		RegisteredAt: u.RegisteredAt,
	}
	if u.Instructor != nil {
		p.CentreProfession = u.Instructor.CentreProfession
		p.HasCV = u.Instructor.CVKey != ""
		p.RequestedAt = u.Instructor.RequestedAt
	}
	return p
}
