package calendar

import (
	"context"
	"testing"
	"time"

	"meetspace-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func event(title string, startHour, endHour int) domain.Event {
	return domain.Event{
		Title:    title,
		StartsAt: day.Add(time.Duration(startHour) * time.Hour),
		EndsAt:   day.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestMemoryStore_Ordering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, e := range []domain.Event{event("late", 15, 16), event("early", 9, 10), event("noon", 12, 13)} {
		_, err := s.AddEvent(ctx, "cal1", e)
		require.NoError(t, err)
	}

	events, err := s.ListEvents(ctx, "cal1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "early", events[0].Title)
	assert.Equal(t, "noon", events[1].Title)
	assert.Equal(t, "late", events[2].Title)
	assert.Equal(t, "cal1", events[0].CalendarID)
	assert.NotEmpty(t, events[0].ID)
}

func TestMemoryStore_ListRange(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, e := range []domain.Event{event("a", 8, 9), event("b", 10, 12), event("c", 13, 14)} {
		_, err := s.AddEvent(ctx, "cal1", e)
		require.NoError(t, err)
	}

	events, err := s.ListEvents(ctx, "cal1", day.Add(11*time.Hour), day.Add(13*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].Title)

	events, _ = s.ListEvents(ctx, "other", time.Time{}, time.Time{})
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestMemoryStore_Validation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.AddEvent(ctx, "cal1", event("  ", 9, 10))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, err = s.AddEvent(ctx, "cal1", event("backwards", 10, 9))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	e, err := s.AddEvent(ctx, "cal1", event("a", 8, 9))
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteEvent(ctx, "cal2", e.ID), domain.ErrEventNotFound)
	require.NoError(t, s.DeleteEvent(ctx, "cal1", e.ID))
	assert.ErrorIs(t, s.DeleteEvent(ctx, "cal1", e.ID), domain.ErrEventNotFound)
}
