package domain

import (
	"slices"
	"strings"
	"time"
)

// =====================================================
// Workspace Role Constants
// =====================================================

// Role is a named tag resolved to a permission set by the role registry.
type Role string

const (
	// RoleAdmin has full access including member management.
	// A workspace with members always keeps at least one admin.
	RoleAdmin Role = "admin"

	// RoleEditor can join meetings, translate and write meeting logs.
	RoleEditor Role = "editor"

	// RoleViewer has read-only access to workspace resources.
	RoleViewer Role = "viewer"
)

// String returns the string representation of the Role
func (r Role) String() string {
	return string(r)
}

// IsValid checks the role is a usable tag: non-empty, no whitespace.
// Whether the role is defined is decided by the registry, not here.
func (r Role) IsValid() bool {
	return r != "" && !strings.ContainsAny(string(r), " \t\r\n")
}

// Permission is a dotted capability string such as "meeting.record.start".
// Registry definitions may use "*" and "**" segments as patterns.
type Permission string

// String returns the string representation of the Permission
func (p Permission) String() string {
	return string(p)
}

// Segments splits the permission on "." separators.
func (p Permission) Segments() []string {
	return strings.Split(string(p), ".")
}

// IsValid reports whether every segment of the permission is non-empty.
func (p Permission) IsValid() bool {
	if p == "" || strings.ContainsAny(string(p), " \t\r\n") {
		return false
	}
	for _, seg := range p.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// =====================================================
// Workspace Aggregate State
// =====================================================

// WorkspaceStatus is the lifecycle state of a workspace.
type WorkspaceStatus string

const (
	WorkspaceActive  WorkspaceStatus = "active"
	WorkspaceDeleted WorkspaceStatus = "deleted"
)

// WorkspaceInfo is the descriptive record of a workspace.
type WorkspaceInfo struct {
	ID          string          `json:"id" db:"id"`
	Description string          `json:"description" db:"description"`
	OwnerUserID string          `json:"ownerUserId" db:"owner_user_id"`
	Status      WorkspaceStatus `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	DeletedAt   *time.Time      `json:"deletedAt,omitempty" db:"deleted_at"`
}

// =====================================================
// Workspace Member Entity
// =====================================================

// Member is a user's membership record within exactly one workspace.
// UserID is a weak reference resolved through the identity store.
// Roles and Grants are kept sorted and free of duplicates.
type Member struct {
	ID          string       `json:"id" db:"id"`
	WorkspaceID string       `json:"workspaceId" db:"workspace_id"`
	UserID      string       `json:"userId" db:"user_id"`
	Roles       []Role       `json:"roles" db:"roles"`
	Grants      []Permission `json:"grants" db:"grants"`
	JoinedAt    time.Time    `json:"joinedAt" db:"joined_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

// Clone returns a deep copy so snapshots never share slices with callers.
func (m Member) Clone() Member {
	m.Roles = slices.Clone(m.Roles)
	m.Grants = slices.Clone(m.Grants)
	return m
}

// HasRole reports whether the member holds role r.
func (m Member) HasRole(r Role) bool {
	_, found := slices.BinarySearch(m.Roles, r)
	return found
}

// IsAdmin reports whether the member holds the administrator role.
func (m Member) IsAdmin() bool {
	return m.HasRole(RoleAdmin)
}

// AddRole inserts r keeping Roles sorted. Returns false if already present.
func (m *Member) AddRole(r Role) bool {
	i, found := slices.BinarySearch(m.Roles, r)
	if found {
		return false
	}
	m.Roles = slices.Insert(m.Roles, i, r)
	return true
}

// RemoveRole deletes r. Returns false if the member did not hold it.
func (m *Member) RemoveRole(r Role) bool {
	i, found := slices.BinarySearch(m.Roles, r)
	if !found {
		return false
	}
	m.Roles = slices.Delete(m.Roles, i, i+1)
	return true
}

// HasGrant reports whether p was granted directly.
func (m Member) HasGrant(p Permission) bool {
	_, found := slices.BinarySearch(m.Grants, p)
	return found
}

// AddGrant inserts a direct permission grant keeping Grants sorted.
func (m *Member) AddGrant(p Permission) bool {
	i, found := slices.BinarySearch(m.Grants, p)
	if found {
		return false
	}
	m.Grants = slices.Insert(m.Grants, i, p)
	return true
}

// RemoveGrant deletes a direct permission grant.
func (m *Member) RemoveGrant(p Permission) bool {
	i, found := slices.BinarySearch(m.Grants, p)
	if !found {
		return false
	}
	m.Grants = slices.Delete(m.Grants, i, i+1)
	return true
}

// =====================================================
// Permission Matrix Documentation
// =====================================================
//
// | Permission               | admin | editor | viewer |
// |--------------------------|-------|--------|--------|
// | workspace.member.read    | ✅    | ✅     | ✅     |
// | workspace.member.manage  | ✅    | ❌     | ❌     |
// | workspace.delete         | ✅    | ❌     | ❌     |
// | meeting.create           | ✅    | ✅     | ❌     |
// | meeting.join             | ✅    | ✅     | ✅     |
// | meeting.translate        | ✅    | ✅     | ❌     |
// | meeting.record.start     | ✅    | ❌     | ❌     |
// | meeting.record.stop      | ✅    | ❌     | ❌     |
// | meeting.log.read         | ✅    | ✅     | ✅     |
// | meeting.log.write        | ✅    | ✅     | ❌     |
// | meeting.log.delete       | ✅    | ❌     | ❌     |
// | calendar.event.read      | ✅    | ✅     | ✅     |
// | calendar.event.write     | ✅    | ✅     | ❌     |
//
// The matrix is seeded by access.DefaultRoles and can be replaced with a
// roles file (ROLES_FILE).
