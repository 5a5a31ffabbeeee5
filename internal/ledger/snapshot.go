package ledger

import (
	"fmt"
	"slices"
	"strings"

	"meetspace-api/internal/domain"
)

// Snapshot is an immutable view of one workspace's membership at a
// committed version. Members are sorted by id and never shared with callers.
type Snapshot struct {
	workspaceID string
	version     uint64
	members     []domain.Member
	admins      int
	closed      bool
}

// NewSnapshot builds a snapshot from persisted state. It rejects duplicate
// ids or users and a member set without an administrator.
func NewSnapshot(workspaceID string, version uint64, members []domain.Member, closed bool) (*Snapshot, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("new snapshot: workspace id is required")
	}
	if closed && len(members) > 0 {
		return nil, fmt.Errorf("new snapshot %s: closed workspace has members: %w", workspaceID, domain.ErrInternalInconsistency)
	}

	cloned := make([]domain.Member, 0, len(members))
	users := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.ID == "" || len(m.Roles) == 0 {
			return nil, fmt.Errorf("new snapshot %s: member %q has no id or roles: %w", workspaceID, m.ID, domain.ErrInternalInconsistency)
		}
		if _, dup := users[m.UserID]; dup {
			return nil, fmt.Errorf("new snapshot %s: user %s: %w", workspaceID, m.UserID, domain.ErrDuplicateMember)
		}
		users[m.UserID] = struct{}{}

		c := m.Clone()
		c.WorkspaceID = workspaceID
		slices.Sort(c.Roles)
		c.Roles = slices.Compact(c.Roles)
		slices.Sort(c.Grants)
		c.Grants = slices.Compact(c.Grants)
		cloned = append(cloned, c)
	}
	sortMembers(cloned)
	for i := 1; i < len(cloned); i++ {
		if cloned[i].ID == cloned[i-1].ID {
			return nil, fmt.Errorf("new snapshot %s: member %s: %w", workspaceID, cloned[i].ID, domain.ErrDuplicateMember)
		}
	}

	s := &Snapshot{workspaceID: workspaceID, version: version, members: cloned, closed: closed}
	s.admins = countAdmins(cloned)
	if !s.consistent() {
		return nil, fmt.Errorf("new snapshot %s: no administrator among %d members: %w", workspaceID, len(cloned), domain.ErrInternalInconsistency)
	}
	return s, nil
}

func emptySnapshot(workspaceID string) *Snapshot {
	return &Snapshot{workspaceID: workspaceID}
}

// next derives the following version from an already-sorted member slice
// owned by the caller.
func (s *Snapshot) next(members []domain.Member) *Snapshot {
	return &Snapshot{
		workspaceID: s.workspaceID,
		version:     s.version + 1,
		members:     members,
		admins:      countAdmins(members),
	}
}

// WorkspaceID returns the workspace the snapshot belongs to.
func (s *Snapshot) WorkspaceID() string { return s.workspaceID }

// Version returns the committed version. An empty workspace starts at 0.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of members.
func (s *Snapshot) Len() int { return len(s.members) }

// AdminCount returns the number of members holding the admin role.
func (s *Snapshot) AdminCount() int { return s.admins }

// Closed reports whether the workspace was dissolved.
func (s *Snapshot) Closed() bool { return s.closed }

// Members returns a copy of the member list sorted by id.
func (s *Snapshot) Members() []domain.Member {
	out := make([]domain.Member, len(s.members))
	for i, m := range s.members {
		out[i] = m.Clone()
	}
	return out
}

// Member looks a member up by id.
func (s *Snapshot) Member(memberID string) (domain.Member, bool) {
	i, ok := s.index(memberID)
	if !ok {
		return domain.Member{}, false
	}
	return s.members[i].Clone(), true
}

// MemberByUser looks a member up by the user it refers to.
func (s *Snapshot) MemberByUser(userID string) (domain.Member, bool) {
	for _, m := range s.members {
		if m.UserID == userID {
			return m.Clone(), true
		}
	}
	return domain.Member{}, false
}

func (s *Snapshot) index(memberID string) (int, bool) {
	return slices.BinarySearchFunc(s.members, memberID, func(m domain.Member, id string) int {
		return strings.Compare(m.ID, id)
	})
}

func (s *Snapshot) consistent() bool {
	return s.admins >= 1 || len(s.members) == 0
}

func countAdmins(members []domain.Member) int {
	n := 0
	for _, m := range members {
		if m.IsAdmin() {
			n++
		}
	}
	return n
}

func sortMembers(members []domain.Member) {
	slices.SortFunc(members, func(a, b domain.Member) int {
		return strings.Compare(a.ID, b.ID)
	})
}
