package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"formini/internal/auth"
	"formini/internal/errors"
	"formini/internal/model"
	"formini/internal/notify"
	"formini/internal/repository"
	"formini/internal/storage"
)

const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^.+@.+\..+$`)

// RegisterInput is a self-service registration request.
type RegisterInput struct {
	FirstName        string
	LastName         string
	Email            string
	Password         string
	Role             model.Role
	CentreProfession string
	CV               *storage.CVUpload
}

// RegisterResult acknowledges a new account. EmailSent is false when the
// verification code could not be confirmed as delivered.
type RegisterResult struct {
	UserID           string `json:"userId"`
	Email            string `json:"email"`
	EmailSent        bool   `json:"emailSent"`
	RequiresApproval bool   `json:"requiresApproval"`
}

// Session is an issued bearer token with the caller's profile.
type Session struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      model.Profile `json:"user"`
}

// LoginChallenge is the result of a second-factor login. Session is set
// instead of a code when the account bypasses the second factor.
type LoginChallenge struct {
	Email     string   `json:"email"`
	EmailSent bool     `json:"emailSent"`
	Session   *Session `json:"session,omitempty"`
}

// AuthService handles registration, verification codes and logins.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	VerifyMFA(ctx context.Context, email, code string) (*Session, error)
	ResendVerificationCode(ctx context.Context, email string) (emailSent bool, err error)
	LoginDirect(ctx context.Context, email, password string) (*Session, error)
	LoginWithMFAChallenge(ctx context.Context, email, password string) (*LoginChallenge, error)
	ExternalLogin(ctx context.Context, profile ExternalProfile) (*ExternalLoginResult, error)
	CompleteProfile(ctx context.Context, completionToken, firstName, lastName string) (*Session, error)
}

type authService struct {
	deps Dependencies
}

// NewAuthService creates a new authentication service.
func NewAuthService(deps Dependencies) AuthService {
	s := &authService{deps: deps}
	s.deps.setDefaults()
	return s
}

// Register validates the request, stores the account and sends its first code.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := model.NormalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	centre := strings.TrimSpace(in.CentreProfession)
	role := in.Role
	if role == "" {
		role = model.RoleStudent
	}

	switch {
	case role == model.RoleAdmin:
		return nil, errors.ErrAdminRoleReserved
	case s.deps.Policy.IsReservedEmail(email):
		return nil, errors.ErrAdminEmailReserved
	case firstName == "" || lastName == "" || email == "" || in.Password == "":
		return nil, errors.ErrMissingFields
	case role != model.RoleStudent && role != model.RoleInstructor:
		return nil, errors.ErrInvalidRole
	case role == model.RoleInstructor && in.CV == nil:
		return nil, errors.ErrCVRequired
	case role == model.RoleInstructor && centre == "":
		return nil, errors.ErrCentreRequired
	case len(in.Password) < minPasswordLength:
		return nil, errors.ErrPasswordTooShort
	case !emailPattern.MatchString(email):
		return nil, errors.ErrInvalidEmail
	}

	if _, err := s.deps.Users.FindByEmail(ctx, email); err == nil {
		return nil, errors.ErrEmailTaken
	} else if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.deps.hashPassword(in.Password)
	if stderrors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, errors.ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	code, expires, err := s.deps.Codes.Generate()
	if err != nil {
		return nil, err
	}

	now := s.deps.now()
	var user *model.User
	if role == model.RoleInstructor {
		cvKey, err := s.deps.CVs.Save(ctx, email, *in.CV)
		if err != nil {
			return nil, err
		}
		user = model.NewInstructor(firstName, lastName, email, centre, cvKey, now)
	} else {
		user = model.NewStudent(firstName, lastName, email, now)
	}
	user.PasswordHash = hash
	user.SetVerificationCode(code, expires)

	if err := s.deps.Users.Create(ctx, user); err != nil {
		if user.Instructor != nil {
			if derr := s.deps.CVs.Delete(ctx, user.Instructor.CVKey); derr != nil {
				s.deps.Logger.WarnContext(ctx, "orphaned cv not removed", "key", user.Instructor.CVKey, "error", derr)
			}
		}
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.deps.Metrics.Registration(string(role))
	s.deps.Logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", role)

	sent := s.sendCode(ctx, user.Email, code)
	if user.Instructor != nil {
		req := notify.ApprovalRequest{
			AdminEmail:       s.deps.Policy.Email(),
			FirstName:        user.FirstName,
			LastName:         user.LastName,
			Email:            user.Email,
			CentreProfession: user.Instructor.CentreProfession,
			RequestedAt:      user.Instructor.RequestedAt,
			DashboardURL:     strings.TrimRight(s.deps.FrontendURL, "/") + "/dashboard",
		}
		s.deps.Dispatcher.Go(ctx, notify.KindApprovalRequest, func(ctx context.Context) error {
			return s.deps.Notifier.SendApprovalRequest(ctx, req)
		})
	}

	return &RegisterResult{
		UserID:           user.ID,
		Email:            user.Email,
		EmailSent:        sent,
		RequiresApproval: user.Instructor != nil,
	}, nil
}

// VerifyMFA consumes a verification code and issues a session.
func (s *authService) VerifyMFA(ctx context.Context, email, code string) (*Session, error) {
	session, err := s.verifyMFA(ctx, email, code)
	s.deps.Metrics.MFAVerification(err)
	return session, err
}

func (s *authService) verifyMFA(ctx context.Context, email, code string) (*Session, error) {
	email = model.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	now := s.deps.now()

	user, err := s.deps.Users.FindByEmail(ctx, email)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.ErrInvalidCode
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.CodeMatches(code, now) {
		return nil, errors.ErrInvalidCode
	}
	if err := CheckAccess(s.deps.Policy, user); err != nil {
		return nil, err
	}

	user, err = s.deps.Users.ConsumeVerificationCode(ctx, email, code, now)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.ErrInvalidCode
	}
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}
	return s.issueSession(ctx, user, auth.SessionTokenExpiry)
}

// ResendVerificationCode replaces the pending code of an unverified account.
func (s *authService) ResendVerificationCode(ctx context.Context, email string) (bool, error) {
	user, err := s.deps.Users.FindByEmail(ctx, email)
	if stderrors.Is(err, repository.ErrNotFound) {
		return false, errors.ErrNothingToVerify
	}
	if err != nil {
		return false, fmt.Errorf("find user: %w", err)
	}
	if user.IsVerified {
		return false, errors.ErrNothingToVerify
	}

	code, err := s.storeNewCode(ctx, user)
	if err != nil {
		return false, err
	}
	return s.sendCode(ctx, user.Email, code), nil
}

// LoginDirect checks the password and issues a session.
func (s *authService) LoginDirect(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.authenticate(ctx, email, password)
	if err == nil {
		err = checkLogin(s.deps.Policy, user)
	}
	s.deps.Metrics.Login("password", err)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user, auth.SessionTokenExpiry)
}

// LoginWithMFAChallenge checks the password and sends a fresh code. The
// pinned administrator receives a session directly.
func (s *authService) LoginWithMFAChallenge(ctx context.Context, email, password string) (*LoginChallenge, error) {
	user, err := s.authenticate(ctx, email, password)
	if err == nil {
		err = checkLogin(s.deps.Policy, user)
	}
	s.deps.Metrics.Login("password_mfa", err)
	if err != nil {
		return nil, err
	}

	if s.deps.Policy.IsProtectedPrincipal(user) {
		session, err := s.issueSession(ctx, user, auth.SessionTokenExpiry)
		if err != nil {
			return nil, err
		}
		return &LoginChallenge{Email: user.Email, Session: session}, nil
	}

	code, err := s.storeNewCode(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginChallenge{Email: user.Email, EmailSent: s.sendCode(ctx, user.Email, code)}, nil
}

// authenticate resolves email and password to a user, with one error for
// every credential failure.
func (s *authService) authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if s.deps.Attempts.IsLocked(ctx, email) {
		return nil, errors.ErrTooManyAttempts
	}

	user, err := s.deps.Users.FindByEmail(ctx, email)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.HasPassword() ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		if s.deps.Attempts.RecordFailure(ctx, email) {
			s.deps.Logger.WarnContext(ctx, "login locked after repeated failures", "email", email)
		}
		return nil, errors.ErrInvalidCredentials
	}

	s.deps.Attempts.Reset(ctx, email)
	return user, nil
}

func (s *authService) storeNewCode(ctx context.Context, user *model.User) (string, error) {
	code, expires, err := s.deps.Codes.Generate()
	if err != nil {
		return "", err
	}
	user.SetVerificationCode(code, expires)
	if err := s.deps.Users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("store verification code: %w", err)
	}
	return code, nil
}

func (s *authService) sendCode(ctx context.Context, email, code string) bool {
	return s.deps.Dispatcher.Send(ctx, notify.KindVerificationCode, func(ctx context.Context) error {
		return s.deps.Notifier.SendVerificationCode(ctx, email, code)
	})
}

// issueSession signs a token and records the login time.
func (s *authService) issueSession(ctx context.Context, user *model.User, ttl time.Duration) (*Session, error) {
	token, err := s.deps.Tokens.GenerateSessionToken(user, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	now := s.deps.now()
	user.LastLoginAt = &now
	if err := s.deps.Users.Update(ctx, user); err != nil {
		s.deps.Logger.WarnContext(ctx, "last login not recorded", "user_id", user.ID, "error", err)
	}

	return &Session{
		Token:     token,
		ExpiresAt: now.Add(ttl),
		User:      model.ProfileOf(user),
	}, nil
}
