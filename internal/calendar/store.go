// Package calendar stores the events of per-user calendars.
package calendar

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/idgen"
)

// Store is the calendar storage capability.
type Store interface {
	AddEvent(ctx context.Context, calendarID string, event domain.Event) (domain.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]domain.Event, error)
}

// MemoryStore keeps events in memory, indexed by calendar.
type MemoryStore struct {
	mu        sync.RWMutex
	calendars map[string][]domain.Event
	now       func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		calendars: make(map[string][]domain.Event),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AddEvent stores a new event and returns it with its id set.
func (s *MemoryStore) AddEvent(_ context.Context, calendarID string, event domain.Event) (domain.Event, error) {
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return domain.Event{}, fmt.Errorf("title is required: %w", domain.ErrInvalidEvent)
	}
	if !event.EndsAt.After(event.StartsAt) {
		return domain.Event{}, fmt.Errorf("event must end after it starts: %w", domain.ErrInvalidEvent)
	}

	event.CreatedAt = s.now()
	event.ID = idgen.NewAt(event.CreatedAt)
	event.CalendarID = calendarID
	event.StartsAt = event.StartsAt.UTC()
	event.EndsAt = event.EndsAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.calendars[calendarID]
	i, _ := slices.BinarySearchFunc(events, event, compareEvents)
	s.calendars[calendarID] = slices.Insert(events, i, event)
	return event, nil
}

// DeleteEvent removes an event from a calendar.
func (s *MemoryStore) DeleteEvent(_ context.Context, calendarID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.calendars[calendarID]
	i := slices.IndexFunc(events, func(e domain.Event) bool { return e.ID == eventID })
	if i < 0 {
		return fmt.Errorf("event %s: %w", eventID, domain.ErrEventNotFound)
	}
	s.calendars[calendarID] = slices.Delete(events, i, i+1)
	return nil
}

// ListEvents returns events overlapping [from, to), ordered by start time.
// A zero bound is open.
func (s *MemoryStore) ListEvents(_ context.Context, calendarID string, from, to time.Time) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Event{}
	for _, e := range s.calendars[calendarID] {
		if !to.IsZero() && !e.StartsAt.Before(to) {
			break
		}
		if !from.IsZero() && !e.EndsAt.After(from) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func compareEvents(a, b domain.Event) int {
	if c := a.StartsAt.Compare(b.StartsAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
