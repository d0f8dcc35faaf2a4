// Package policy holds the admin allow-list and the role derivation rules
// applied when a profile is first created or cannot be fetched. It is the
// single source of truth for who becomes an administrator.
package policy

import (
	"strings"

	"github.com/harentsoaR/medibook/internal/models"
)

// DefaultAdminEmails seeds the allow-list when no configuration is provided.
var DefaultAdminEmails = []string{"admin@test.com"}

type RolePolicy struct {
	adminEmails map[string]struct{}
}

func NewRolePolicy(adminEmails []string) *RolePolicy {
	if len(adminEmails) == 0 {
		adminEmails = DefaultAdminEmails
	}
	set := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &RolePolicy{adminEmails: set}
}

// RoleFor returns the role granted to an email at registration or
// profile-bootstrap time. Comparison is case-insensitive.
func (p *RolePolicy) RoleFor(email string) models.Role {
	if _, ok := p.adminEmails[strings.ToLower(strings.TrimSpace(email))]; ok {
		return models.RoleAdmin
	}
	return models.RoleUser
}

// FallbackProfile derives a profile heuristically when the stored profile
// cannot be fetched during auth reconciliation. The role comes from the
// allow-list and the name from the email local-part, so sign-in never blocks
// on a profile read.
func (p *RolePolicy) FallbackProfile(uid, email, displayName string) models.Profile {
	email = strings.ToLower(strings.TrimSpace(email))
	name := displayName
	if name == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		} else {
			name = "User"
		}
	}
	return models.Profile{
		UID:   uid,
		Email: email,
		Name:  name,
		Role:  p.RoleFor(email),
	}
}
