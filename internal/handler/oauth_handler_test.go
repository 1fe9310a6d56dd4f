package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"formini/internal/auth"
	"formini/internal/cache"
	"formini/internal/errors"
	"formini/internal/logging"
	"formini/internal/model"
	"formini/internal/notify"
	"formini/internal/oauth"
	"formini/internal/repository"
	"formini/internal/service"
)

const frontendURL = "http://localhost:3000"

type fakeGoogle struct {
	byToken map[string]*oauth.Profile
	byCode  map[string]*oauth.Profile
}

func (g *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (g *fakeGoogle) VerifyIDToken(_ context.Context, raw string) (*oauth.Profile, error) {
	if p, ok := g.byToken[raw]; ok {
		return p, nil
	}
	return nil, errors.ErrProviderRejected
}

func (g *fakeGoogle) Exchange(_ context.Context, code string) (*oauth.Profile, error) {
	if p, ok := g.byCode[code]; ok {
		return p, nil
	}
	return nil, errors.ErrProviderRejected
}

type fakeFacebook struct{ err error }

func (f *fakeFacebook) Profile(context.Context, string) (*oauth.Profile, error) {
	return nil, f.err
}

type structValidator struct{ v *validator.Validate }

func (s *structValidator) Validate(i interface{}) error { return s.v.Struct(i) }

type oauthFixture struct {
	e      *echo.Echo
	google *fakeGoogle
	users  *repository.MemoryUserRepository
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	states := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	users := repository.NewMemoryUserRepository()
	logger := logging.Discard()
	authService := service.NewAuthService(service.Dependencies{
		Users:       users,
		Tokens:      auth.NewJWTService("handler-test-secret"),
		Policy:      auth.NewAdminPolicy("admin@formini.com"),
		Notifier:    notify.NewConsole(logger),
		Dispatcher:  notify.NewDispatcher(logger, nil, time.Second),
		Logger:      logger,
		FrontendURL: frontendURL,
		BcryptCost:  bcrypt.MinCost,
	})

	google := &fakeGoogle{
		byToken: map[string]*oauth.Profile{
			"full":  {Provider: model.ProviderGoogle, Subject: "g-1", Email: "gina@example.com", FirstName: "Gina", LastName: "Google"},
			"short": {Provider: model.ProviderGoogle, Subject: "g-2", Email: "mono@example.com", FirstName: "Mono"},
			"admin": {Provider: model.ProviderGoogle, Subject: "g-3", Email: "admin@formini.com", FirstName: "Ad", LastName: "Min"},
		},
	}
	google.byCode = map[string]*oauth.Profile{
		"code-full":  google.byToken["full"],
		"code-short": google.byToken["short"],
	}

	h := NewOAuthHandler(authService, google, &fakeFacebook{err: errors.ErrProviderRejected}, states, frontendURL+"/", false)

	e := echo.New()
	e.Validator = &structValidator{v: validator.New()}
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger)
	e.POST("/google-login", h.GoogleLogin)
	e.POST("/facebook-login", h.FacebookLogin)
	e.GET("/google", h.GoogleRedirect)
	e.GET("/google/callback", h.GoogleCallback)

	return &oauthFixture{e: e, google: google, users: users}
}

func (f *oauthFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *oauthFixture) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return f.serve(req)
}

// startRedirect runs the consent redirect and returns the issued state.
func (f *oauthFixture) startRedirect(t *testing.T) string {
	t.Helper()
	rec := f.serve(httptest.NewRequest(http.MethodGet, "/google", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Code
}

func TestGoogleLogin(t *testing.T) {
	f := newOAuthFixture(t)

	rec := f.postJSON("/google-login", `{"token":"full"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res service.ExternalLoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Session)
	assert.NotEmpty(t, res.Session.Token)
	assert.False(t, res.ProfileIncomplete)
	assert.Equal(t, "gina@example.com", res.User.Email)

	u, err := f.users.FindByEmail(context.Background(), "gina@example.com")
	require.NoError(t, err)
	assert.Equal(t, "g-1", u.GoogleID)
	assert.True(t, u.IsVerified)
}

func TestGoogleLogin_IncompleteProfile(t *testing.T) {
	f := newOAuthFixture(t)

	rec := f.postJSON("/google-login", `{"token":"short"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res service.ExternalLoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.ProfileIncomplete)
	assert.NotEmpty(t, res.CompletionToken)
	assert.Nil(t, res.Session)
}

func TestGoogleLogin_Errors(t *testing.T) {
	f := newOAuthFixture(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing token", `{}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"rejected by provider", `{"token":"forged"}`, http.StatusUnauthorized, "PROVIDER_TOKEN_INVALID"},
		{"reserved admin email", `{"token":"admin"}`, http.StatusForbidden, "ADMIN_EXTERNAL_LOGIN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.postJSON("/google-login", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestFacebookLogin_ProviderError(t *testing.T) {
	f := newOAuthFixture(t)

	rec := f.postJSON("/facebook-login", `{"accessToken":"abc"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "PROVIDER_TOKEN_INVALID", errorCode(t, rec))
}

func TestGoogleCallback_SetsCookie(t *testing.T) {
	f := newOAuthFixture(t)
	state := f.startRedirect(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/google/callback?code=code-full&state="+state, nil))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, frontendURL+"/dashboard", rec.Header().Get(echo.HeaderLocation))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	// the state is single use
	rec = f.serve(httptest.NewRequest(http.MethodGet, "/google/callback?code=code-full&state="+state, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_OAUTH_STATE", errorCode(t, rec))
}

func TestGoogleCallback_IncompleteProfileRedirect(t *testing.T) {
	f := newOAuthFixture(t)
	state := f.startRedirect(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/google/callback?code=code-short&state="+state, nil))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "/complete-profile", loc.Path)
	assert.NotEmpty(t, loc.Query().Get("token"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestGoogleCallback_Rejections(t *testing.T) {
	f := newOAuthFixture(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/google/callback?state=whatever", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_CODE", errorCode(t, rec))

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/google/callback?code=code-full&state=forged", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_OAUTH_STATE", errorCode(t, rec))

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/google/callback?code=code-full", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_OAUTH_STATE", errorCode(t, rec))
}
