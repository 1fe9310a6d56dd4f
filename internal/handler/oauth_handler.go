package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"formini/internal/errors"
	"formini/internal/middleware"
	"formini/internal/oauth"
	"formini/internal/service"
)

const (
	oauthStateKeyPrefix = "oauth_state:"
	oauthStateTTL       = 10 * time.Minute
)

// GoogleProvider verifies Google credentials.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	VerifyIDToken(ctx context.Context, raw string) (*oauth.Profile, error)
	Exchange(ctx context.Context, code string) (*oauth.Profile, error)
}

// FacebookProvider resolves Facebook access tokens to profiles.
type FacebookProvider interface {
	Profile(ctx context.Context, accessToken string) (*oauth.Profile, error)
}

// StateStore keeps single-use OAuth state values.
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Take(ctx context.Context, key string) ([]byte, error)
}

// OAuthHandler handles sign-in through external identity providers.
// A nil provider disables its routes.
type OAuthHandler struct {
	authService service.AuthService
	google      GoogleProvider
	facebook    FacebookProvider
	states      StateStore
	frontendURL string
	secure      bool
}

// NewOAuthHandler creates a new OAuth handler. secure marks the session
// cookie set by the redirect flow as HTTPS-only.
func NewOAuthHandler(authService service.AuthService, google GoogleProvider, facebook FacebookProvider, states StateStore, frontendURL string, secure bool) *OAuthHandler {
	return &OAuthHandler{
		authService: authService,
		google:      google,
		facebook:    facebook,
		states:      states,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		secure:      secure,
	}
}

// GoogleLoginRequest carries a Google ID token obtained by the client.
type GoogleLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// FacebookLoginRequest carries a Facebook user access token.
type FacebookLoginRequest struct {
	AccessToken string `json:"accessToken" validate:"required"`
}

func toExternal(p *oauth.Profile) service.ExternalProfile {
	return service.ExternalProfile{
		Provider:  p.Provider,
		Subject:   p.Subject,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Avatar:    p.Avatar,
	}
}

// GoogleLogin godoc
// @Summary Sign in with a Google ID token
// @Tags oauth
// @Accept json
// @Produce json
// @Param request body GoogleLoginRequest true "Google ID token"
// @Success 200 {object} service.ExternalLoginResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /auth/google-login [post]
func (h *OAuthHandler) GoogleLogin(c echo.Context) error {
	if h.google == nil {
		return errors.ErrProviderDisabled
	}
	var req GoogleLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	profile, err := h.google.VerifyIDToken(ctx, req.Token)
	if err != nil {
		return err
	}
	res, err := h.authService.ExternalLogin(ctx, toExternal(profile))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// FacebookLogin godoc
// @Summary Sign in with a Facebook access token
// @Tags oauth
// @Accept json
// @Produce json
// @Param request body FacebookLoginRequest true "Facebook access token"
// @Success 200 {object} service.ExternalLoginResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /auth/facebook-login [post]
func (h *OAuthHandler) FacebookLogin(c echo.Context) error {
	if h.facebook == nil {
		return errors.ErrProviderDisabled
	}
	var req FacebookLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	profile, err := h.facebook.Profile(ctx, req.AccessToken)
	if err != nil {
		return err
	}
	res, err := h.authService.ExternalLogin(ctx, toExternal(profile))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// GoogleRedirect godoc
// @Summary Start the Google consent flow
// @Tags oauth
// @Success 302
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/google [get]
func (h *OAuthHandler) GoogleRedirect(c echo.Context) error {
	if h.google == nil {
		return errors.ErrProviderDisabled
	}
	state := uuid.NewString()
	if err := h.states.Set(c.Request().Context(), oauthStateKeyPrefix+state, []byte("1"), oauthStateTTL); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

// GoogleCallback godoc
// @Summary Finish the Google consent flow
// @Description Sets the session cookie and redirects to the frontend. Accounts
// @Description without a full name are sent to the profile completion page.
// @Tags oauth
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by /auth/google"
// @Success 302
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/google/callback [get]
func (h *OAuthHandler) GoogleCallback(c echo.Context) error {
	if h.google == nil {
		return errors.ErrProviderDisabled
	}
	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" {
		return errors.Validation("MISSING_CODE", "missing authorization code")
	}

	ctx := c.Request().Context()
	stored, _ := h.states.Take(ctx, oauthStateKeyPrefix+state)
	if state == "" || stored == nil {
		return errors.ErrInvalidOAuthState
	}

	profile, err := h.google.Exchange(ctx, code)
	if err != nil {
		return err
	}
	res, err := h.authService.ExternalLogin(ctx, toExternal(profile))
	if err != nil {
		return err
	}

	if res.ProfileIncomplete {
		return c.Redirect(http.StatusFound, h.frontendURL+"/complete-profile?token="+url.QueryEscape(res.CompletionToken))
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    res.Session.Token,
		Path:     "/",
		Expires:  res.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.frontendURL+"/dashboard")
}
