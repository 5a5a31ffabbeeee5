package access

import (
	"fmt"
	"os"
	"slices"

	"meetspace-api/internal/domain"

	"gopkg.in/yaml.v3"
)

// RolesFile is the on-disk format of role definitions:
//
//	roles:
//	  admin: ["workspace.**", "meeting.**", "calendar.**"]
//	  viewer: ["meeting.join"]
type RolesFile struct {
	Roles map[domain.Role][]domain.Permission `yaml:"roles"`
}

// DefaultRoles returns the built-in role matrix.
func DefaultRoles() RolesFile {
	return RolesFile{Roles: map[domain.Role][]domain.Permission{
		domain.RoleAdmin: {
			"workspace.**",
			"meeting.**",
			"calendar.**",
		},
		domain.RoleEditor: {
			"workspace.member.read",
			"meeting.create",
			"meeting.join",
			"meeting.translate",
			"meeting.log.read",
			"meeting.log.write",
			"calendar.event.read",
			"calendar.event.write",
		},
		domain.RoleViewer: {
			"workspace.member.read",
			"meeting.join",
			"meeting.log.read",
			"calendar.event.read",
		},
	}}
}

// ParseRoles decodes YAML role definitions.
func ParseRoles(data []byte) (RolesFile, error) {
	var f RolesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return RolesFile{}, fmt.Errorf("parse roles: %w", err)
	}
	if len(f.Roles) == 0 {
		return RolesFile{}, fmt.Errorf("parse roles: no roles defined")
	}
	if _, ok := f.Roles[domain.RoleAdmin]; !ok {
		return RolesFile{}, fmt.Errorf("parse roles: %q must be defined", domain.RoleAdmin)
	}
	return f, nil
}

// Apply defines every role of f in the registry, in sorted role order.
func (f RolesFile) Apply(r *Registry) error {
	roles := make([]domain.Role, 0, len(f.Roles))
	for role := range f.Roles {
		roles = append(roles, role)
	}
	slices.Sort(roles)

	for _, role := range roles {
		if _, err := r.DefinePermissionsForRole(role, f.Roles[role]...); err != nil {
			return err
		}
	}
	return nil
}

// LoadRolesFile reads a YAML roles file and applies it to r.
func LoadRolesFile(r *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read roles file: %w", err)
	}
	f, err := ParseRoles(data)
	if err != nil {
		return err
	}
	return f.Apply(r)
}

// NewDefaultRegistry returns a registry seeded with DefaultRoles.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := DefaultRoles().Apply(r); err != nil {
		panic(fmt.Sprintf("default roles: %v", err))
	}
	return r
}
