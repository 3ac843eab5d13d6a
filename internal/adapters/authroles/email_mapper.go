package authroles

import (
	"strings"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
)

// EmailRoleMapper maps identities by email address and email domain.
// Admins are listed explicitly; any identity from an allowed domain is a user.
// An empty AllowedDomains admits every verified identity as a user.
type EmailRoleMapper struct {
	AdminEmails    []string
	AllowedDomains []string
}

func (m EmailRoleMapper) Map(id domainauth.Identity) domainauth.Role {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return domainauth.RoleGuest
	}
	for _, admin := range m.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), email) {
			return domainauth.RoleAdmin
		}
	}
	if len(m.AllowedDomains) == 0 {
		if id.Verified {
			return domainauth.RoleUser
		}
		return domainauth.RoleGuest
	}
	domain := id.Domain()
	for _, d := range m.AllowedDomains {
		if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(d), "@"), domain) {
			return domainauth.RoleUser
		}
	}
	return domainauth.RoleGuest
}
