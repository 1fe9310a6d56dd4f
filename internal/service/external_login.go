package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"formini/internal/auth"
	"formini/internal/errors"
	"formini/internal/model"
	"formini/internal/repository"
)

// ExternalProfile is an identity already verified by an external provider.
type ExternalProfile struct {
	Provider  model.Provider
	Subject   string
	Email     string
	FirstName string
	LastName  string
	Avatar    string
}

// ExternalLoginResult carries either a session or, for accounts without a
// full name, a short-lived token accepted only by CompleteProfile.
type ExternalLoginResult struct {
	Session           *Session      `json:"session,omitempty"`
	ProfileIncomplete bool          `json:"profileIncomplete"`
	CompletionToken   string        `json:"completionToken,omitempty"`
	User              model.Profile `json:"user"`
}

func sessionTTL(p model.Provider) time.Duration {
	if p == model.ProviderGoogle {
		return auth.ExternalSessionTokenExpiry
	}
	return auth.SessionTokenExpiry
}

// ExternalLogin finds or creates the account behind a provider identity.
func (s *authService) ExternalLogin(ctx context.Context, p ExternalProfile) (*ExternalLoginResult, error) {
	res, err := s.externalLogin(ctx, p)
	s.deps.Metrics.Login(string(p.Provider), err)
	return res, err
}

func (s *authService) externalLogin(ctx context.Context, p ExternalProfile) (*ExternalLoginResult, error) {
	email := model.NormalizeEmail(p.Email)
	if email == "" || p.Subject == "" {
		return nil, errors.ErrProviderRejected
	}
	if s.deps.Policy.IsReservedEmail(email) {
		return nil, errors.ErrAdminExternalLogin
	}

	user, err := s.findExternal(ctx, p.Provider, email, p.Subject)
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		user, err = s.createExternal(ctx, p, email)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	default:
		if s.deps.Policy.IsProtectedPrincipal(user) || user.Role == model.RoleAdmin {
			return nil, errors.ErrAdminExternalLogin
		}
		// Refused accounts are left untouched.
		if err := CheckAccess(s.deps.Policy, user); err != nil {
			return nil, err
		}
		if err := s.linkExternal(ctx, user, p); err != nil {
			return nil, err
		}
	}

	if !user.ProfileComplete() {
		token, err := s.deps.Tokens.GenerateProfileCompletionToken(user)
		if err != nil {
			return nil, fmt.Errorf("sign completion token: %w", err)
		}
		return &ExternalLoginResult{
			ProfileIncomplete: true,
			CompletionToken:   token,
			User:              model.ProfileOf(user),
		}, nil
	}

	session, err := s.issueSession(ctx, user, sessionTTL(p.Provider))
	if err != nil {
		return nil, err
	}
	return &ExternalLoginResult{Session: session, User: session.User}, nil
}

func (s *authService) findExternal(ctx context.Context, provider model.Provider, email, subject string) (*model.User, error) {
	if provider == model.ProviderFacebook {
		return s.deps.Users.FindByEmailOrFacebookID(ctx, email, subject)
	}
	return s.deps.Users.FindByEmail(ctx, email)
}

func (s *authService) createExternal(ctx context.Context, p ExternalProfile, email string) (*model.User, error) {
	user := model.NewStudent(p.FirstName, p.LastName, email, s.deps.now())
	user.IsVerified = true
	user.Avatar = p.Avatar
	setProviderID(user, p.Provider, p.Subject)

	if err := s.deps.Users.Create(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, s.duplicateCause(ctx, email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.deps.Metrics.Registration(string(model.RoleStudent))
	s.deps.Logger.InfoContext(ctx, "user created from external identity", "user_id", user.ID, "provider", p.Provider)
	return user, nil
}

// linkExternal attaches a missing provider id. The provider has proven
// ownership of the email, so the account also counts as verified.
func (s *authService) linkExternal(ctx context.Context, user *model.User, p ExternalProfile) error {
	changed := false
	switch p.Provider {
	case model.ProviderGoogle:
		if user.GoogleID == "" {
			user.GoogleID = p.Subject
			changed = true
		}
	case model.ProviderFacebook:
		if user.FacebookID == "" {
			user.FacebookID = p.Subject
			changed = true
		}
	}
	if !user.IsVerified {
		user.IsVerified = true
		changed = true
	}
	if user.Avatar == "" && p.Avatar != "" {
		user.Avatar = p.Avatar
		changed = true
	}
	if !changed {
		return nil
	}
	if err := s.deps.Users.Update(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return errors.ErrProviderLinked
		}
		return fmt.Errorf("link provider: %w", err)
	}
	return nil
}

// duplicateCause tells an email clash from a provider id already owned by
// another account.
func (s *authService) duplicateCause(ctx context.Context, email string) error {
	if _, err := s.deps.Users.FindByEmail(ctx, email); err == nil {
		return errors.ErrEmailTaken
	}
	return errors.ErrProviderLinked
}

func setProviderID(u *model.User, p model.Provider, subject string) {
	switch p {
	case model.ProviderGoogle:
		u.GoogleID = subject
	case model.ProviderFacebook:
		u.FacebookID = subject
	}
}

// CompleteProfile fills the missing name fields of the account bound to
// completionToken and issues a session. Fields already set are kept.
func (s *authService) CompleteProfile(ctx context.Context, completionToken, firstName, lastName string) (*Session, error) {
	claims, err := s.deps.Tokens.ValidatePurpose(completionToken, auth.PurposeProfileCompletion)
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		return nil, errors.ErrTokenExpired
	}
	if err != nil {
		return nil, errors.ErrInvalidToken
	}

	user, err := s.deps.Users.FindByID(ctx, claims.UserID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.ErrUnknownPrincipal
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	changed := false
	if user.FirstName == "" {
		if firstName == "" {
			return nil, errors.ErrMissingFields
		}
		user.FirstName = firstName
		changed = true
	}
	if user.LastName == "" {
		if lastName == "" {
			return nil, errors.ErrMissingFields
		}
		user.LastName = lastName
		changed = true
	}
	if changed {
		if err := s.deps.Users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	if err := CheckAccess(s.deps.Policy, user); err != nil {
		return nil, err
	}
	ttl := auth.SessionTokenExpiry
	if user.GoogleID != "" {
		ttl = auth.ExternalSessionTokenExpiry
	}
	return s.issueSession(ctx, user, ttl)
}
