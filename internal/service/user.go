package service

import (
	"context"
	"fmt"
	"time"

	"meetspace-api/internal/calendar"
	"meetspace-api/internal/domain"
	"meetspace-api/internal/identity"
	"meetspace-api/internal/observability/logger"

	"go.uber.org/zap"
)

// UserService registers users and manages their personal calendar. A user's
// calendar belongs to that user alone, so no workspace permission applies.
type UserService struct {
	users    *identity.Store
	calendar calendar.Store
	log      *logger.Logger
}

// NewUserService creates a UserService.
func NewUserService(users *identity.Store, cal calendar.Store, opts ...Option) *UserService {
	o := buildOptions(opts)
	return &UserService{users: users, calendar: cal, log: o.log}
}

// Register creates a user.
func (s *UserService) Register(ctx context.Context, req *domain.RegisterUserRequest) (domain.User, error) {
	u, err := s.users.Register(ctx, req.Name, req.Email, req.Phone)
	if err != nil {
		return domain.User{}, fmt.Errorf("register user: %w", err)
	}
	s.log.Info(ctx, "user registered",
		logger.Module("identity"),
		logger.Action("register"),
		zap.String("user_id", u.ID),
	)
	return u, nil
}

// Get returns a user.
func (s *UserService) Get(_ context.Context, userID string) (domain.User, error) {
	return s.users.Get(userID)
}

// UpdateProfile changes the user's name and contact fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd *domain.ProfileUpdate) (domain.User, error) {
	u, err := s.users.UpdateProfile(ctx, userID, *upd)
	if err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// AddEvent adds an event to the user's calendar.
func (s *UserService) AddEvent(ctx context.Context, userID string, req *domain.CreateEventRequest) (domain.Event, error) {
	u, err := s.users.Get(userID)
	if err != nil {
		return domain.Event{}, err
	}
	return s.calendar.AddEvent(ctx, u.CalendarID, domain.Event{
		Title:     req.Title,
		MeetingID: req.MeetingID,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	})
}

// ListEvents returns the user's events overlapping [from, to).
func (s *UserService) ListEvents(ctx context.Context, userID string, from, to time.Time) ([]domain.Event, error) {
	u, err := s.users.Get(userID)
	if err != nil {
		return nil, err
	}
	return s.calendar.ListEvents(ctx, u.CalendarID, from, to)
}

// DeleteEvent removes an event from the user's calendar.
func (s *UserService) DeleteEvent(ctx context.Context, userID, eventID string) error {
	u, err := s.users.Get(userID)
	if err != nil {
		return err
	}
	return s.calendar.DeleteEvent(ctx, u.CalendarID, eventID)
}
