package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"formini/internal/config"
	"formini/internal/errors"
	"formini/internal/model"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Google verifies Google ID tokens and runs the server-side code flow.
type Google struct {
	oauth       *oauth2.Config
	userInfoURL string
	validate    func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogle creates a Google provider from client credentials.
func NewGoogle(cfg config.GoogleConfig) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
		validate:    idtoken.Validate,
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// VerifyIDToken validates a Google-signed ID token issued for this client.
func (g *Google) VerifyIDToken(ctx context.Context, raw string) (*Profile, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.ErrProviderRejected
	}
	payload, err := g.validate(ctx, raw, g.oauth.ClientID)
	if err != nil {
		return nil, errors.ErrProviderRejected.Wrap(err)
	}

	claim := func(name string) string {
		s, _ := payload.Claims[name].(string)
		return s
	}
	p := &Profile{
		Provider:  model.ProviderGoogle,
		Subject:   payload.Subject,
		Email:     model.NormalizeEmail(claim("email")),
		FirstName: claim("given_name"),
		LastName:  claim("family_name"),
		Avatar:    claim("picture"),
	}
	p.splitName(claim("name"))
	if p.Email == "" {
		return nil, errors.ErrProviderRejected
	}
	return p, nil
}

type googleUserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// Exchange trades an authorization code for the user's profile.
func (g *Google) Exchange(ctx context.Context, code string) (*Profile, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.ErrProviderRejected
	}
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.ErrProviderRejected.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, errors.ErrProviderUnavailable.Wrap(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.ErrProviderUnavailable.Wrap(fmt.Errorf("google userinfo: status %d", resp.StatusCode))
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.ErrProviderUnavailable.Wrap(err)
	}
	p := &Profile{
		Provider:  model.ProviderGoogle,
		Subject:   info.ID,
		Email:     model.NormalizeEmail(info.Email),
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		Avatar:    info.Picture,
	}
	p.splitName(info.Name)
	if p.Email == "" {
		return nil, errors.ErrProviderRejected
	}
	return p, nil
}
