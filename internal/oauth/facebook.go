package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"formini/internal/config"
	"formini/internal/errors"
	"formini/internal/model"
)

// Facebook resolves a user access token through the Graph API.
type Facebook struct {
	graphURL   string
	appSecret  string
	httpClient *http.Client
}

// NewFacebook creates a Facebook provider from app credentials.
func NewFacebook(cfg config.FacebookConfig) *Facebook {
	graphURL := strings.TrimRight(cfg.GraphURL, "/")
	if graphURL == "" {
		graphURL = "https://graph.facebook.com"
	}
	return &Facebook{
		graphURL:   graphURL,
		appSecret:  cfg.AppSecret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type facebookPicture struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

type facebookMe struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Email     string          `json:"email"`
	Picture   facebookPicture `json:"picture"`
}

// Profile fetches the profile of the access token's owner. The token owner
// must have granted the email permission.
func (f *Facebook) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.ErrProviderRejected
	}

	q := url.Values{}
	q.Set("fields", "id,name,first_name,last_name,email,picture")
	if f.appSecret != "" {
		q.Set("appsecret_proof", f.proof(accessToken))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.graphURL+"/me?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.ErrProviderUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.ErrProviderRejected.Wrap(fmt.Errorf("facebook graph: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, errors.ErrProviderUnavailable.Wrap(fmt.Errorf("facebook graph: status %d", resp.StatusCode))
	}

	var me facebookMe
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, errors.ErrProviderUnavailable.Wrap(err)
	}
	p := &Profile{
		Provider:  model.ProviderFacebook,
		Subject:   me.ID,
		Email:     model.NormalizeEmail(me.Email),
		FirstName: me.FirstName,
		LastName:  me.LastName,
		Avatar:    me.Picture.Data.URL,
	}
	p.splitName(me.Name)
	if p.Email == "" || p.Subject == "" {
		return nil, errors.ErrProviderRejected
	}
	return p, nil
}

func (f *Facebook) proof(accessToken string) string {
	mac := hmac.New(sha256.New, []byte(f.appSecret))
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil))
}
