// Package access resolves roles to permissions and answers access
// questions against committed membership snapshots.
package access

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"meetspace-api/internal/domain"
)

// PermissionSet is an immutable, sorted set of permission patterns.
type PermissionSet struct {
	patterns []string
}

// NewPermissionSet builds a set from perms, dropping duplicates.
func NewPermissionSet(perms ...domain.Permission) PermissionSet {
	patterns := make([]string, 0, len(perms))
	for _, p := range perms {
		patterns = append(patterns, string(p))
	}
	slices.Sort(patterns)
	return PermissionSet{patterns: slices.Compact(patterns)}
}

// Len returns the number of patterns.
func (s PermissionSet) Len() int { return len(s.patterns) }

// Patterns returns the sorted patterns.
func (s PermissionSet) Patterns() []domain.Permission {
	out := make([]domain.Permission, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = domain.Permission(p)
	}
	return out
}

// Contains reports whether pattern p is literally in the set.
func (s PermissionSet) Contains(p domain.Permission) bool {
	_, found := slices.BinarySearch(s.patterns, string(p))
	return found
}

// Allows returns the pattern in the set matching the concrete permission.
func (s PermissionSet) Allows(permission string) (string, bool) {
	return matchAny(s.patterns, permission)
}

// Union merges two sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	if other.Len() == 0 {
		return s
	}
	if s.Len() == 0 {
		return other
	}
	merged := append(slices.Clone(s.patterns), other.patterns...)
	slices.Sort(merged)
	return PermissionSet{patterns: slices.Compact(merged)}
}

// Equal reports whether both sets hold the same patterns.
func (s PermissionSet) Equal(other PermissionSet) bool {
	return slices.Equal(s.patterns, other.patterns)
}

type definitions map[domain.Role]PermissionSet

// Registry maps roles to permission sets. Definitions are process wide.
// Readers load an immutable map; writers copy it and swap the pointer.
type Registry struct {
	writeMu sync.Mutex
	defs    atomic.Pointer[definitions]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := definitions{}
	r.defs.Store(&empty)
	return r
}

// DefinePermissionsForRole sets the permission patterns of role, replacing
// any earlier definition. Defining the same set twice has no further effect.
func (r *Registry) DefinePermissionsForRole(role domain.Role, perms ...domain.Permission) (PermissionSet, error) {
	if !role.IsValid() {
		return PermissionSet{}, fmt.Errorf("define role %q: %w", role, domain.ErrUnknownRole)
	}
	for _, p := range perms {
		if !p.IsValid() {
			return PermissionSet{}, fmt.Errorf("define role %s: permission %q: %w", role, p, domain.ErrInvalidPermission)
		}
	}
	set := NewPermissionSet(perms...)

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	next := maps.Clone(*r.defs.Load())
	next[role] = set
	r.defs.Store(&next)
	return set, nil
}

// PermissionsForRole returns the definition of role.
func (r *Registry) PermissionsForRole(role domain.Role) (PermissionSet, error) {
	set, ok := (*r.defs.Load())[role]
	if !ok {
		return PermissionSet{}, fmt.Errorf("role %q: %w", role, domain.ErrUnknownRole)
	}
	return set, nil
}

// IsDefined reports whether role has a definition.
func (r *Registry) IsDefined(role domain.Role) bool {
	_, ok := (*r.defs.Load())[role]
	return ok
}

// Roles returns the defined roles in sorted order.
func (r *Registry) Roles() []domain.Role {
	return slices.Sorted(maps.Keys(*r.defs.Load()))
}

// EffectivePermissions is the union of the member's role definitions and
// its direct grants. Every role must be defined; an undefined role fails
// the whole resolution so callers deny rather than guess.
func (r *Registry) EffectivePermissions(m domain.Member) (PermissionSet, error) {
	defs := *r.defs.Load()

	effective := NewPermissionSet(m.Grants...)
	for _, role := range m.Roles {
		set, ok := defs[role]
		if !ok {
			return PermissionSet{}, fmt.Errorf("member %s role %q: %w", m.ID, role, domain.ErrUnknownRole)
		}
		effective = effective.Union(set)
	}
	return effective, nil
}
