package repo

import (
	"meetspace-api/internal/domain"
)

func rolesToText(roles []domain.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func textToRoles(values []string) []domain.Role {
	out := make([]domain.Role, len(values))
	for i, v := range values {
		out[i] = domain.Role(v)
	}
	return out
}

func grantsToText(grants []domain.Permission) []string {
	out := make([]string, len(grants))
	for i, g := range grants {
		out[i] = string(g)
	}
	return out
}

func textToGrants(values []string) []domain.Permission {
	out := make([]domain.Permission, len(values))
	for i, v := range values {
		out[i] = domain.Permission(v)
	}
	return out
}
