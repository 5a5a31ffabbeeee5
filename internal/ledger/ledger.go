// Package ledger keeps the authoritative, versioned membership of every
// workspace.
//
// Each workspace is a partition with its own mutex. Mutations hold that
// mutex for the whole read-modify-write sequence and publish a new
// immutable Snapshot through an atomic pointer, so readers never wait on
// writers and never see a torn state. Partitions are independent: nothing
// here locks across workspaces.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"meetspace-api/internal/domain"
)

// ChangeKind names the mutation that produced a commit.
type ChangeKind string

const (
	ChangeAdd      ChangeKind = "add"
	ChangeRemove   ChangeKind = "remove"
	ChangeUpdate   ChangeKind = "update"
	ChangeDissolve ChangeKind = "dissolve"
)

// Change describes a single committed mutation. Member holds the state after
// the change for add and update, and the removed record for remove. At is the
// deletion time of a dissolve.
type Change struct {
	Kind     ChangeKind
	MemberID string
	Member   domain.Member
	At       time.Time
}

// Commit is handed to the commit hook before the new snapshot is published.
type Commit struct {
	Prev   *Snapshot
	Next   *Snapshot
	Change Change
}

// CommitHook persists or observes a commit. Returning an error aborts it:
// the previous snapshot stays current and the error reaches the caller.
type CommitHook func(ctx context.Context, c Commit) error

// Option configures a Ledger.
type Option func(*Ledger)

// WithCommitHook installs a hook that runs inside every partition commit.
func WithCommitHook(h CommitHook) Option {
	return func(l *Ledger) { l.hook = h }
}

type partition struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	hook       CommitHook
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{partitions: make(map[string]*partition)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open creates an empty partition at version 0.
func (l *Ledger) Open(workspaceID string) (*Snapshot, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("open partition: workspace id is required")
	}
	snap := emptySnapshot(workspaceID)
	if err := l.install(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore installs a previously persisted snapshot as a new partition.
func (l *Ledger) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("restore partition: nil snapshot")
	}
	return l.install(snap)
}

func (l *Ledger) install(snap *Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.partitions[snap.workspaceID]; exists {
		return fmt.Errorf("partition %s: %w", snap.workspaceID, domain.ErrWorkspaceExists)
	}
	p := &partition{}
	p.current.Store(snap)
	l.partitions[snap.workspaceID] = p
	return nil
}

// Snapshot returns the latest committed snapshot without taking the
// partition mutex.
func (l *Ledger) Snapshot(workspaceID string) (*Snapshot, error) {
	p, err := l.partition(workspaceID)
	if err != nil {
		return nil, err
	}
	return p.current.Load(), nil
}

// AddMember inserts member holding role. The member id and the user must
// both be new to the workspace, and the first member must be an admin.
func (l *Ledger) AddMember(ctx context.Context, workspaceID string, member domain.Member, role domain.Role) (uint64, error) {
	if member.ID == "" {
		return 0, fmt.Errorf("add member: member id is required")
	}
	if !role.IsValid() {
		return 0, fmt.Errorf("add member %s: role %q: %w", member.ID, role, domain.ErrUnknownRole)
	}

	return l.mutate(ctx, workspaceID, func(prev *Snapshot) (*Snapshot, Change, error) {
		if _, exists := prev.index(member.ID); exists {
			return nil, Change{}, fmt.Errorf("member %s: %w", member.ID, domain.ErrDuplicateMember)
		}
		if _, exists := prev.MemberByUser(member.UserID); exists {
			return nil, Change{}, fmt.Errorf("user %s: %w", member.UserID, domain.ErrDuplicateMember)
		}

		m := member.Clone()
		m.WorkspaceID = workspaceID
		slices.Sort(m.Roles)
		m.Roles = slices.Compact(m.Roles)
		slices.Sort(m.Grants)
		m.Grants = slices.Compact(m.Grants)
		m.AddRole(role)

		if prev.Len() == 0 && !m.IsAdmin() {
			return nil, Change{}, fmt.Errorf("first member must be %s: %w", domain.RoleAdmin, domain.ErrLastAdminViolation)
		}

		i, _ := prev.index(m.ID)
		members := slices.Insert(cloneMembers(prev.members), i, m)
		return prev.next(members), Change{Kind: ChangeAdd, MemberID: m.ID, Member: m.Clone()}, nil
	})
}

// RemoveMember deletes a member. The last administrator cannot be removed
// this way; only Dissolve empties a workspace completely.
func (l *Ledger) RemoveMember(ctx context.Context, workspaceID, memberID string) (uint64, error) {
	return l.mutate(ctx, workspaceID, func(prev *Snapshot) (*Snapshot, Change, error) {
		i, ok := prev.index(memberID)
		if !ok {
			return nil, Change{}, fmt.Errorf("member %s: %w", memberID, domain.ErrMemberNotFound)
		}
		target := prev.members[i]
		if target.IsAdmin() && prev.admins == 1 {
			return nil, Change{}, fmt.Errorf("remove member %s: %w", memberID, domain.ErrLastAdminViolation)
		}

		members := slices.Delete(cloneMembers(prev.members), i, i+1)
		return prev.next(members), Change{Kind: ChangeRemove, MemberID: memberID, Member: target.Clone()}, nil
	})
}

// UpdateMember applies fn to a copy of the member and commits the result.
// An update leaving the member with no roles removes it. An error from fn
// aborts the update.
func (l *Ledger) UpdateMember(ctx context.Context, workspaceID, memberID string, fn func(*domain.Member) error) (uint64, error) {
	return l.mutate(ctx, workspaceID, func(prev *Snapshot) (*Snapshot, Change, error) {
		i, ok := prev.index(memberID)
		if !ok {
			return nil, Change{}, fmt.Errorf("member %s: %w", memberID, domain.ErrMemberNotFound)
		}
		before := prev.members[i]
		after := before.Clone()
		if err := fn(&after); err != nil {
			return nil, Change{}, err
		}
		if after.ID != before.ID || after.UserID != before.UserID || after.WorkspaceID != before.WorkspaceID {
			return nil, Change{}, fmt.Errorf("update member %s: identity fields changed: %w", memberID, domain.ErrInternalInconsistency)
		}
		slices.Sort(after.Roles)
		after.Roles = slices.Compact(after.Roles)
		slices.Sort(after.Grants)
		after.Grants = slices.Compact(after.Grants)

		if before.IsAdmin() && !after.IsAdmin() && prev.admins == 1 {
			return nil, Change{}, fmt.Errorf("update member %s: %w", memberID, domain.ErrLastAdminViolation)
		}

		members := cloneMembers(prev.members)
		if len(after.Roles) == 0 {
			members = slices.Delete(members, i, i+1)
			return prev.next(members), Change{Kind: ChangeRemove, MemberID: memberID, Member: before.Clone()}, nil
		}
		members[i] = after
		return prev.next(members), Change{Kind: ChangeUpdate, MemberID: memberID, Member: after.Clone()}, nil
	})
}

// Dissolve removes the remaining members and seals the partition at the
// given time. It fails with ErrWorkspaceNotEmpty when more than maxMembers
// remain.
func (l *Ledger) Dissolve(ctx context.Context, workspaceID string, maxMembers int, at time.Time) (uint64, error) {
	return l.mutate(ctx, workspaceID, func(prev *Snapshot) (*Snapshot, Change, error) {
		if prev.Len() > maxMembers {
			return nil, Change{}, fmt.Errorf("dissolve %s: %d members remain: %w", workspaceID, prev.Len(), domain.ErrWorkspaceNotEmpty)
		}
		next := prev.next(nil)
		next.closed = true
		return next, Change{Kind: ChangeDissolve, At: at}, nil
	})
}

// Discard forgets a partition that never committed anything. It is the
// rollback for a workspace whose creation failed half way; any other
// partition fails with ErrWorkspaceNotEmpty.
func (l *Ledger) Discard(workspaceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.partitions[workspaceID]
	if !ok {
		return fmt.Errorf("partition %s: %w", workspaceID, domain.ErrWorkspaceNotFound)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if snap := p.current.Load(); snap.version != 0 || snap.Len() != 0 {
		return fmt.Errorf("discard %s at v%d: %w", workspaceID, snap.version, domain.ErrWorkspaceNotEmpty)
	}
	delete(l.partitions, workspaceID)
	return nil
}

func (l *Ledger) partition(workspaceID string) (*partition, error) {
	l.mu.RLock()
	p, ok := l.partitions[workspaceID]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("partition %s: %w", workspaceID, domain.ErrWorkspaceNotFound)
	}
	return p, nil
}

func (l *Ledger) mutate(ctx context.Context, workspaceID string, fn func(prev *Snapshot) (*Snapshot, Change, error)) (uint64, error) {
	p, err := l.partition(workspaceID)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.current.Load()
	if prev.closed {
		return 0, fmt.Errorf("partition %s: %w", workspaceID, domain.ErrWorkspaceDeleted)
	}

	next, change, err := fn(prev)
	if err != nil {
		return 0, err
	}
	if err := validateCommit(prev, next); err != nil {
		return 0, err
	}

	if l.hook != nil {
		if err := l.hook(ctx, Commit{Prev: prev, Next: next, Change: change}); err != nil {
			return 0, fmt.Errorf("commit %s v%d: %w", workspaceID, next.version, err)
		}
	}

	p.current.Store(next)
	return next.version, nil
}

func validateCommit(prev, next *Snapshot) error {
	if next.version != prev.version+1 {
		return fmt.Errorf("commit %s: version %d does not follow %d: %w",
			prev.workspaceID, next.version, prev.version, domain.ErrInternalInconsistency)
	}
	if next.admins != countAdmins(next.members) || !next.consistent() {
		return fmt.Errorf("commit %s v%d: %d members with %d admins: %w",
			prev.workspaceID, next.version, len(next.members), next.admins, domain.ErrInternalInconsistency)
	}
	return nil
}

func cloneMembers(members []domain.Member) []domain.Member {
	out := make([]domain.Member, len(members), len(members)+1)
	copy(out, members)
	return out
}
