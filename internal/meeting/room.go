package meeting

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"meetspace-api/internal/access"
	"meetspace-api/internal/domain"
)

// ParticipantRole is the role of a participant inside one meeting. It is
// unrelated to workspace roles.
type ParticipantRole string

const (
	RoleHost     ParticipantRole = "host"
	RoleAttendee ParticipantRole = "attendee"
)

// Participant is a member currently in the room.
type Participant struct {
	MemberID string          `json:"memberId"`
	Role     ParticipantRole `json:"role"`
	JoinedAt time.Time       `json:"joinedAt"`
}

// RecordingState describes the room's recording.
type RecordingState struct {
	Active    bool       `json:"active"`
	StartedBy string     `json:"startedBy,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Room is a meeting room inside a workspace.
type Room struct {
	workspaceID string
	id          string
	name        string
	createdAt   time.Time

	authz    Authorizer
	recorder RecordingStore
	now      func() time.Time

	mu           sync.RWMutex
	participants map[string]Participant
	recording    RecordingState
}

// NewRoom creates an empty room.
func NewRoom(workspaceID, id, name string, authz Authorizer, recorder RecordingStore, now func() time.Time) *Room {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Room{
		workspaceID:  workspaceID,
		id:           id,
		name:         name,
		createdAt:    now(),
		authz:        authz,
		recorder:     recorder,
		now:          now,
		participants: make(map[string]Participant),
	}
}

// ID returns the meeting id.
func (r *Room) ID() string { return r.id }

// Name returns the display name.
func (r *Room) Name() string { return r.name }

// WorkspaceID returns the owning workspace.
func (r *Room) WorkspaceID() string { return r.workspaceID }

// ResourceID returns the "meeting:<id>" resource checked for access.
func (r *Room) ResourceID() string { return access.ResourceID(access.KindMeeting, r.id) }

// AddParticipant lets a member join. Joining again updates the role. Hosting
// also needs meeting.create.
func (r *Room) AddParticipant(ctx context.Context, memberID string, role ParticipantRole) error {
	if err := authorize(r.authz, r.workspaceID, memberID, r.ResourceID(), PermJoin); err != nil {
		return err
	}
	switch role {
	case "":
		role = RoleAttendee
	case RoleAttendee:
	case RoleHost:
		if err := authorize(r.authz, r.workspaceID, memberID, r.ResourceID(), PermCreate); err != nil {
			return err
		}
	default:
		return fmt.Errorf("participant role %q: %w", role, domain.ErrUnknownRole)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[memberID]
	if !ok {
		p = Participant{MemberID: memberID, JoinedAt: r.now()}
	}
	p.Role = role
	r.participants[memberID] = p
	return nil
}

// RemoveParticipant takes a member out of the room.
func (r *Room) RemoveParticipant(_ context.Context, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[memberID]; !ok {
		return fmt.Errorf("participant %s: %w", memberID, domain.ErrMemberNotFound)
	}
	delete(r.participants, memberID)
	return nil
}

// forget drops memberID without an error when absent.
func (r *Room) forget(memberID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[memberID]; !ok {
		return false
	}
	delete(r.participants, memberID)
	return true
}

// Participants returns the participants ordered by join time.
func (r *Room) Participants() []Participant {
	r.mu.RLock()
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.MemberID, b.MemberID)
	})
	return out
}

// StartRecording starts recording the meeting.
func (r *Room) StartRecording(ctx context.Context, memberID string) error {
	if err := authorize(r.authz, r.workspaceID, memberID, r.ResourceID(), PermRecordStart); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	started, err := r.recorder.Start(ctx, r.recordingKey())
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	if !started {
		return fmt.Errorf("meeting %s: %w", r.id, domain.ErrAlreadyRecording)
	}
	at := r.now()
	r.recording = RecordingState{Active: true, StartedBy: memberID, StartedAt: &at}
	return nil
}

// StopRecording stops the running recording.
func (r *Room) StopRecording(ctx context.Context, memberID string) error {
	if err := authorize(r.authz, r.workspaceID, memberID, r.ResourceID(), PermRecordStop); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stopped, err := r.recorder.Stop(ctx, r.recordingKey())
	if err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	if !stopped {
		return fmt.Errorf("meeting %s: %w", r.id, domain.ErrNotRecording)
	}
	r.recording = RecordingState{}
	return nil
}

// Recording returns the current recording state.
func (r *Room) Recording() RecordingState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recording
}

// recordingKey is unique across workspaces.
func (r *Room) recordingKey() string {
	return r.workspaceID + "/" + r.ResourceID()
}
