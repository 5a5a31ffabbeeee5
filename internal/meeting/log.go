package meeting

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/idgen"
)

// LogEntry is one note in a meeting log.
type LogEntry struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meetingId"`
	MemberID  string    `json:"memberId"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Log is the append-mostly log of one meeting. Entries are ordered by id,
// which is a ULID and therefore by creation time.
type Log struct {
	room *Room

	mu      sync.RWMutex
	entries []LogEntry
}

// NewLog creates an empty log for room.
func NewLog(room *Room) *Log {
	return &Log{room: room}
}

// Create appends an entry written by memberID.
func (l *Log) Create(ctx context.Context, memberID, userID, message string) (LogEntry, error) {
	if err := authorize(l.room.authz, l.room.workspaceID, memberID, l.room.ResourceID(), PermLogWrite); err != nil {
		return LogEntry{}, err
	}

	now := l.room.now()
	entry := LogEntry{
		ID:        idgen.NewAt(now),
		MeetingID: l.room.id,
		MemberID:  memberID,
		UserID:    userID,
		Message:   strings.TrimSpace(message),
		CreatedAt: now,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	i, _ := l.search(entry.ID)
	l.entries = slices.Insert(l.entries, i, entry)
	return entry, nil
}

// List returns all entries, oldest first.
func (l *Log) List(_ context.Context, memberID string) ([]LogEntry, error) {
	if err := authorize(l.room.authz, l.room.workspaceID, memberID, l.room.ResourceID(), PermLogRead); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries), nil
}

// Delete removes an entry.
func (l *Log) Delete(_ context.Context, memberID, entryID string) error {
	if err := authorize(l.room.authz, l.room.workspaceID, memberID, l.room.ResourceID(), PermLogDelete); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.search(entryID)
	if !ok {
		return fmt.Errorf("log entry %s: %w", entryID, domain.ErrLogEntryNotFound)
	}
	l.entries = slices.Delete(l.entries, i, i+1)
	return nil
}

func (l *Log) search(id string) (int, bool) {
	return slices.BinarySearchFunc(l.entries, id, func(e LogEntry, id string) int {
		return strings.Compare(e.ID, id)
	})
}
