package meeting

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"meetspace-api/internal/access"
	"meetspace-api/internal/domain"
)

// Meeting groups the room of a meeting with its assistant and log.
type Meeting struct {
	Room      *Room
	Assistant *Assistant
	Log       *Log
}

// Info is the listing view of a meeting.
type Info struct {
	ID           string         `json:"id"`
	WorkspaceID  string         `json:"workspaceId"`
	Name         string         `json:"name"`
	CreatedAt    time.Time      `json:"createdAt"`
	Participants int            `json:"participants"`
	Recording    RecordingState `json:"recording"`
}

// Info returns the listing view.
func (m *Meeting) Info() Info {
	return Info{
		ID:           m.Room.id,
		WorkspaceID:  m.Room.workspaceID,
		Name:         m.Room.name,
		CreatedAt:    m.Room.createdAt,
		Participants: len(m.Room.Participants()),
		Recording:    m.Room.Recording(),
	}
}

type roomKey struct {
	workspaceID string
	meetingID   string
}

// Registry keeps the meetings of every workspace in memory.
type Registry struct {
	authz      Authorizer
	recorder   RecordingStore
	translator TranslationService
	now        func() time.Time

	mu       sync.RWMutex
	meetings map[roomKey]*Meeting
}

// NewRegistry creates an empty registry. translator may be nil.
func NewRegistry(authz Authorizer, recorder RecordingStore, translator TranslationService) *Registry {
	return &Registry{
		authz:      authz,
		recorder:   recorder,
		translator: translator,
		now:        func() time.Time { return time.Now().UTC() },
		meetings:   make(map[roomKey]*Meeting),
	}
}

// Create opens a meeting. memberID needs meeting.create on the new meeting.
func (r *Registry) Create(ctx context.Context, workspaceID, memberID, meetingID, name string) (*Meeting, error) {
	if meetingID == "" || strings.ContainsAny(meetingID, ": /") {
		return nil, fmt.Errorf("meeting id %q: %w", meetingID, domain.ErrInvalidMeetingID)
	}
	resource := access.ResourceID(access.KindMeeting, meetingID)
	if err := authorize(r.authz, workspaceID, memberID, resource, PermCreate); err != nil {
		return nil, err
	}

	key := roomKey{workspaceID: workspaceID, meetingID: meetingID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.meetings[key]; exists {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, domain.ErrMeetingExists)
	}
	room := NewRoom(workspaceID, meetingID, strings.TrimSpace(name), r.authz, r.recorder, r.now)
	m := &Meeting{
		Room:      room,
		Assistant: NewAssistant(room, r.translator),
		Log:       NewLog(room),
	}
	r.meetings[key] = m
	return m, nil
}

// Get returns a meeting of a workspace.
func (r *Registry) Get(workspaceID, meetingID string) (*Meeting, error) {
	r.mu.RLock()
	m, ok := r.meetings[roomKey{workspaceID: workspaceID, meetingID: meetingID}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, domain.ErrMeetingNotFound)
	}
	return m, nil
}

// List returns the meetings of a workspace ordered by creation time.
func (r *Registry) List(workspaceID string) []Info {
	r.mu.RLock()
	var found []*Meeting
	for key, m := range r.meetings {
		if key.workspaceID == workspaceID {
			found = append(found, m)
		}
	}
	r.mu.RUnlock()

	out := make([]Info, 0, len(found))
	for _, m := range found {
		out = append(out, m.Info())
	}
	slices.SortFunc(out, func(a, b Info) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// ForgetMember takes a removed workspace member out of every room of that
// workspace and returns the number of rooms it was in.
func (r *Registry) ForgetMember(workspaceID, memberID string) int {
	r.mu.RLock()
	var rooms []*Room
	for key, m := range r.meetings {
		if key.workspaceID == workspaceID {
			rooms = append(rooms, m.Room)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, room := range rooms {
		if room.forget(memberID) {
			n++
		}
	}
	return n
}

// DropWorkspace forgets every meeting of a workspace and returns how many
// were dropped.
func (r *Registry) DropWorkspace(workspaceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key := range r.meetings {
		if key.workspaceID == workspaceID {
			delete(r.meetings, key)
			n++
		}
	}
	return n
}
