package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"meetspace-api/internal/access"
	"meetspace-api/internal/domain"
	"meetspace-api/internal/identity"
	"meetspace-api/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir    *Directory
	ledger *ledger.Ledger
	users  *identity.Store
	engine *access.Engine
}

func newFixture(t *testing.T, opts ...DirectoryOption) *fixture {
	t.Helper()
	l := ledger.New()
	reg := access.NewDefaultRegistry()
	users := identity.NewStore(nil)
	return &fixture{
		dir:    NewDirectory(l, reg, users, opts...),
		ledger: l,
		users:  users,
		engine: access.NewEngine(reg, l, nil),
	}
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	u, err := f.users.Register(context.Background(), name, name+"@example.com", "")
	require.NoError(t, err)
	return u.ID
}

func TestScenario_DeleteOnlyAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")

	ws, err := f.dir.Create(ctx, owner, "team")
	require.NoError(t, err)

	memberA, err := ws.AddMember(ctx, f.user(t, "a"), domain.RoleAdmin)
	require.NoError(t, err)

	err = ws.DeleteMember(ctx, memberA)
	assert.ErrorIs(t, err, domain.ErrLastAdminViolation)

	snap, err := ws.Snapshot()
	require.NoError(t, err)
	_, ok := snap.Member(memberA)
	assert.True(t, ok)
}

func TestScenario_DuplicateMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ws, _, err := f.dir.CreateDefaultWorkspace(ctx, f.user(t, "owner"), "team")
	require.NoError(t, err)
	userB := f.user(t, "b")

	_, err = ws.AddMember(ctx, userB, domain.RoleEditor)
	require.NoError(t, err)

	_, err = ws.AddMember(ctx, userB, domain.RoleEditor)
	assert.ErrorIs(t, err, domain.ErrDuplicateMember)

	snap, _ := ws.Snapshot()
	assert.Equal(t, 2, snap.Len())
}

func TestWorkspace_AddMemberValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, _, err := f.dir.CreateDefaultWorkspace(ctx, f.user(t, "owner"), "")
	require.NoError(t, err)

	_, err = ws.AddMember(ctx, "no-such-user", domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = ws.AddMember(ctx, f.user(t, "x"), "owner")
	assert.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestWorkspace_FirstMemberMustBeAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, err := f.dir.Create(ctx, f.user(t, "owner"), "")
	require.NoError(t, err)

	_, err = ws.AddMember(ctx, f.user(t, "v"), domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrLastAdminViolation)
}

func TestWorkspace_AddDeleteRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, _, err := f.dir.CreateDefaultWorkspace(ctx, f.user(t, "owner"), "")
	require.NoError(t, err)

	id, err := ws.AddMember(ctx, f.user(t, "e"), domain.RoleEditor)
	require.NoError(t, err)

	snap, _ := ws.Snapshot()
	m, ok := snap.Member(id)
	require.True(t, ok)
	assert.Equal(t, ws.ID(), m.WorkspaceID)
	assert.False(t, m.JoinedAt.IsZero())

	require.NoError(t, ws.DeleteMember(ctx, id))
	snap, _ = ws.Snapshot()
	_, ok = snap.Member(id)
	assert.False(t, ok)

	_, err = ws.Member(id)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestWorkspace_AssignPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, _, err := f.dir.CreateDefaultWorkspace(ctx, f.user(t, "owner"), "")
	require.NoError(t, err)
	editor, err := ws.AddMember(ctx, f.user(t, "e"), domain.RoleEditor)
	require.NoError(t, err)

	ok, err := f.engine.CanAccess(ws.ID(), editor, "meeting:standup", "record.start")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ws.AssignPermission(ctx, editor, "meeting.record.start"))
	before, _ := ws.Snapshot()

	// idempotent: no new version
	require.NoError(t, ws.AssignPermission(ctx, editor, "meeting.record.start"))
	after, _ := ws.Snapshot()
	assert.Equal(t, before.Version(), after.Version())

	ok, err = f.engine.CanAccess(ws.ID(), editor, "meeting:standup", "record.start")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, ws.AssignPermission(ctx, editor, "bad..perm"), domain.ErrInvalidPermission)
	assert.ErrorIs(t, ws.AssignPermission(ctx, "ghost", "meeting.join"), domain.ErrMemberNotFound)

	require.NoError(t, ws.RevokePermission(ctx, editor, "meeting.record.start"))
	ok, _ = f.engine.CanAccess(ws.ID(), editor, "meeting:standup", "record.start")
	assert.False(t, ok)
}

func TestWorkspace_Roles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, owner, err := f.dir.CreateDefaultWorkspace(ctx, f.user(t, "owner"), "")
	require.NoError(t, err)
	viewer, err := ws.AddMember(ctx, f.user(t, "v"), domain.RoleViewer)
	require.NoError(t, err)

	assert.ErrorIs(t, ws.AssignRole(ctx, viewer, "owner"), domain.ErrUnknownRole)

	require.NoError(t, ws.AssignRole(ctx, viewer, domain.RoleAdmin))
	m, _ := ws.Member(viewer)
	assert.Equal(t, []domain.Role{domain.RoleAdmin, domain.RoleViewer}, m.Roles)

	// two admins now: the owner may step down
	require.NoError(t, ws.RevokeRole(ctx, owner, domain.RoleAdmin))
	_, err = ws.Member(owner)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound, "zero roles removes the member")

	assert.ErrorIs(t, ws.RevokeRole(ctx, viewer, domain.RoleAdmin), domain.ErrLastAdminViolation)

	require.NoError(t, ws.RevokeRole(ctx, viewer, domain.RoleEditor), "revoking an unheld role is a no-op")
}

func TestDirectory_CreateDefaultWorkspace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")

	ws1, m1, err := f.dir.CreateDefaultWorkspace(ctx, owner, "first")
	require.NoError(t, err)
	ws2, m2, err := f.dir.CreateDefaultWorkspace(ctx, owner, "second")
	require.NoError(t, err)

	assert.NotEqual(t, ws1.ID(), ws2.ID())
	assert.NotEqual(t, m1, m2)

	for _, ws := range []*Workspace{ws1, ws2} {
		snap, _ := ws.Snapshot()
		assert.Equal(t, 1, snap.Len())
		assert.Equal(t, 1, snap.AdminCount())
		m, err := ws.MemberByUser(owner)
		require.NoError(t, err)
		assert.Equal(t, []domain.Role{domain.RoleAdmin}, m.Roles)
	}

	_, _, err = f.dir.CreateDefaultWorkspace(ctx, "ghost", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Equal(t, 2, f.dir.Len())
}

func TestDirectory_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, owner, err := f.dir.CreateDefaultWorkspace(ctx, f.user(t, "owner"), "")
	require.NoError(t, err)
	editor, err := ws.AddMember(ctx, f.user(t, "e"), domain.RoleEditor)
	require.NoError(t, err)

	assert.ErrorIs(t, f.dir.Delete(ctx, ws.ID()), domain.ErrWorkspaceNotEmpty)

	require.NoError(t, ws.DeleteMember(ctx, editor))
	require.NoError(t, f.dir.Delete(ctx, ws.ID()))

	assert.Equal(t, domain.WorkspaceDeleted, ws.Status())
	assert.NotNil(t, ws.Info().DeletedAt)

	t.Run("TerminalState", func(t *testing.T) {
		_, err := ws.AddMember(ctx, f.user(t, "late"), domain.RoleAdmin)
		assert.ErrorIs(t, err, domain.ErrWorkspaceDeleted)
		assert.ErrorIs(t, ws.DeleteMember(ctx, owner), domain.ErrWorkspaceDeleted)
		assert.ErrorIs(t, ws.AssignPermission(ctx, owner, "meeting.join"), domain.ErrWorkspaceDeleted)
		assert.ErrorIs(t, ws.AssignRole(ctx, owner, domain.RoleViewer), domain.ErrWorkspaceDeleted)
		assert.ErrorIs(t, ws.AssignPermission(ctx, owner, "bad..perm"), domain.ErrWorkspaceDeleted)
		assert.ErrorIs(t, ws.AssignRole(ctx, owner, "owner"), domain.ErrWorkspaceDeleted)
		assert.ErrorIs(t, f.dir.Delete(ctx, ws.ID()), domain.ErrWorkspaceDeleted)
	})

	t.Run("AccessDenied", func(t *testing.T) {
		_, err := f.engine.CanAccess(ws.ID(), owner, "meeting:standup", "join")
		assert.ErrorIs(t, err, domain.ErrMemberNotFound)
	})

	assert.ErrorIs(t, f.dir.Delete(ctx, "missing"), domain.ErrWorkspaceNotFound)
}

func TestDirectory_List(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	f := newFixture(t, WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}))
	ctx := context.Background()
	owner := f.user(t, "owner")

	var ids []string
	for i := 0; i < 3; i++ {
		ws, err := f.dir.Create(ctx, owner, fmt.Sprintf("ws-%d", i))
		require.NoError(t, err)
		ids = append(ids, ws.ID())
	}

	list := f.dir.List()
	require.Len(t, list, 3)
	for i, info := range list {
		assert.Equal(t, ids[i], info.ID)
	}
}

type failingStore struct{}

func (failingStore) CreateWorkspace(context.Context, domain.WorkspaceInfo) error {
	return errors.New("insert failed")
}

func (failingStore) DiscardWorkspace(context.Context, string) error { return nil }

type recordingStore struct {
	mu        sync.Mutex
	created   []string
	discarded []string
}

func (s *recordingStore) CreateWorkspace(_ context.Context, info domain.WorkspaceInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, info.ID)
	return nil
}

func (s *recordingStore) DiscardWorkspace(_ context.Context, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = append(s.discarded, workspaceID)
	return nil
}

func TestDirectory_CreateDefaultWorkspace_RollsBackOnCommitFailure(t *testing.T) {
	l := ledger.New(ledger.WithCommitHook(func(context.Context, ledger.Commit) error {
		return errors.New("connection reset")
	}))
	users := identity.NewStore(nil)
	store := &recordingStore{}
	dir := NewDirectory(l, access.NewDefaultRegistry(), users, WithStore(store))
	ctx := context.Background()

	owner, err := users.Register(ctx, "owner", "owner@example.com", "")
	require.NoError(t, err)

	_, _, err = dir.CreateDefaultWorkspace(ctx, owner.ID, "team")
	require.Error(t, err)

	assert.Equal(t, 0, dir.Len())
	assert.Empty(t, dir.List())
	require.Len(t, store.created, 1)
	assert.Equal(t, store.created, store.discarded)

	_, err = l.Snapshot(store.created[0])
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
}

func TestDirectory_DeleteStampsCommittedTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var committed time.Time
	l := ledger.New(ledger.WithCommitHook(func(_ context.Context, c ledger.Commit) error {
		if c.Change.Kind == ledger.ChangeDissolve {
			committed = c.Change.At
		}
		return nil
	}))
	users := identity.NewStore(nil)
	dir := NewDirectory(l, access.NewDefaultRegistry(), users, WithClock(func() time.Time { return at }))
	ctx := context.Background()

	owner, err := users.Register(ctx, "owner", "owner@example.com", "")
	require.NoError(t, err)
	ws, _, err := dir.CreateDefaultWorkspace(ctx, owner.ID, "")
	require.NoError(t, err)
	require.NoError(t, dir.Delete(ctx, ws.ID()))

	require.NotNil(t, ws.Info().DeletedAt)
	assert.Equal(t, committed, *ws.Info().DeletedAt)
	assert.Equal(t, at, committed)
}

func TestDirectory_CreateStoreFailure(t *testing.T) {
	f := newFixture(t, WithStore(failingStore{}))

	_, err := f.dir.Create(context.Background(), f.user(t, "owner"), "")
	assert.Error(t, err)
	assert.Equal(t, 0, f.dir.Len())
}

func TestDirectory_Restore(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner")

	info := domain.WorkspaceInfo{ID: "ws-restored", OwnerUserID: owner, Status: domain.WorkspaceActive}
	snap, err := ledger.NewSnapshot(info.ID, 4, []domain.Member{
		{ID: "m1", UserID: owner, Roles: []domain.Role{domain.RoleAdmin}},
	}, false)
	require.NoError(t, err)
	require.NoError(t, f.dir.Restore(info, snap))

	ws, err := f.dir.Get(info.ID)
	require.NoError(t, err)
	m, err := ws.Member("m1")
	require.NoError(t, err)
	assert.True(t, m.IsAdmin())

	deleted := domain.WorkspaceInfo{ID: "ws-gone", Status: domain.WorkspaceDeleted}
	open, _ := ledger.NewSnapshot(deleted.ID, 0, nil, false)
	assert.ErrorIs(t, f.dir.Restore(deleted, open), domain.ErrInternalInconsistency)

	assert.ErrorIs(t, f.dir.Restore(info, snap), domain.ErrWorkspaceExists)
}

// Concurrent demotions through the aggregate never leave a workspace
// without an administrator.
func TestWorkspace_ConcurrentDeleteMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, owner, err := f.dir.CreateDefaultWorkspace(ctx, f.user(t, "owner"), "")
	require.NoError(t, err)

	const n = 20
	admins := []string{owner}
	for i := 0; i < n-1; i++ {
		id, err := ws.AddMember(ctx, f.user(t, fmt.Sprintf("admin%d", i)), domain.RoleAdmin)
		require.NoError(t, err)
		admins = append(admins, id)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, id := range admins {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = ws.DeleteMember(ctx, id)
		}()
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrLastAdminViolation)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	snap, _ := ws.Snapshot()
	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, 1, snap.AdminCount())
}
