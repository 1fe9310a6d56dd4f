// Package middleware holds the echo middleware that authenticates requests.
package middleware

import (
	stderrors "errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"formini/internal/auth"
	"formini/internal/errors"
	"formini/internal/model"
	"formini/internal/repository"
	"formini/internal/service"
)

// Context keys set by Authenticate.
const (
	ContextKeyClaims = "claims"
	ContextKeyUser   = "user"
)

// SessionCookie is the httpOnly cookie set by the OAuth callback redirect.
const SessionCookie = "token"

// AccessGate verifies bearer tokens and applies the account lifecycle rules
// to every protected request.
type AccessGate struct {
	tokens *auth.JWTService
	users  repository.UserRepository
	policy auth.AdminPolicy
}

// NewAccessGate creates an access gate.
func NewAccessGate(tokens *auth.JWTService, users repository.UserRepository, policy auth.AdminPolicy) *AccessGate {
	return &AccessGate{tokens: tokens, users: users, policy: policy}
}

// Authenticate requires a valid session token, read from the bearer header
// or else the session cookie. The account is re-read on every request, so
// suspension and rejection apply to tokens already issued.
func (g *AccessGate) Authenticate() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextKeyClaims,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:" + SessionCookie,
		ParseTokenFunc: func(_ echo.Context, raw string) (interface{}, error) {
			return g.tokens.ValidatePurpose(raw, auth.PurposeSession)
		},
		ErrorHandler: tokenError,
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(g.loadUser(next))
	}
}

func (g *AccessGate) loadUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get(ContextKeyClaims).(*auth.Claims)
		if !ok {
			return errors.ErrInvalidToken
		}

		user, err := g.users.FindByID(c.Request().Context(), claims.UserID)
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.ErrUnknownPrincipal
		}
		if err != nil {
			return fmt.Errorf("load principal: %w", err)
		}
		if err := service.CheckAccess(g.policy, user); err != nil {
			return err
		}

		c.Set(ContextKeyUser, user)
		return next(c)
	}
}

func tokenError(_ echo.Context, err error) error {
	switch {
	case stderrors.Is(err, echojwt.ErrJWTMissing):
		return errors.ErrMissingToken
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return errors.ErrTokenExpired
	default:
		return errors.ErrInvalidToken
	}
}

// RequireRoles allows only callers whose role is listed. It must run after Authenticate.
func RequireRoles(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return errors.ErrMissingToken
			}
			for _, r := range roles {
				if user.Role == r {
					return next(c)
				}
			}
			return errors.ErrForbidden
		}
	}
}

// CurrentUser returns the account loaded by Authenticate, or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ContextKeyUser).(*model.User)
	return u
}
