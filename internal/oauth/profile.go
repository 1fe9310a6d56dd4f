// Package oauth verifies external identity provider credentials and returns
// the caller's profile.
package oauth

import (
	"strings"

	"formini/internal/model"
)

// Profile is an identity asserted by an external provider.
type Profile struct {
	Provider  model.Provider
	Subject   string
	Email     string
	FirstName string
	LastName  string
	Avatar    string
}

// splitName fills missing first/last names from a display name.
func (p *Profile) splitName(full string) {
	if p.FirstName != "" && p.LastName != "" {
		return
	}
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return
	}
	if p.FirstName == "" {
		p.FirstName = parts[0]
	}
	if p.LastName == "" && len(parts) > 1 {
		p.LastName = strings.Join(parts[1:], " ")
	}
}
