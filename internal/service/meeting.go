package service

import (
	"context"
	"fmt"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/meeting"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/repo"
	"meetspace-api/internal/workspace"

	"go.uber.org/zap"
)

// MeetingService resolves meetings inside active workspaces. Permission
// checks happen in the meeting entities themselves.
type MeetingService struct {
	dir      *workspace.Directory
	meetings *meeting.Registry
	audit    AuditLogger
	log      *logger.Logger
}

// NewMeetingService creates a MeetingService.
func NewMeetingService(dir *workspace.Directory, meetings *meeting.Registry, opts ...Option) *MeetingService {
	o := buildOptions(opts)
	return &MeetingService{dir: dir, meetings: meetings, audit: o.audit, log: o.log}
}

// CreateMeeting opens a meeting room. Permission: meeting.create.
func (s *MeetingService) CreateMeeting(ctx context.Context, workspaceID, actorMemberID string, req *domain.CreateMeetingRequest) (meeting.Info, error) {
	if err := s.activeWorkspace(workspaceID); err != nil {
		return meeting.Info{}, err
	}
	m, err := s.meetings.Create(ctx, workspaceID, actorMemberID, req.ID, req.Name)
	if err != nil {
		return meeting.Info{}, fmt.Errorf("create meeting: %w", err)
	}
	s.log.Info(ctx, "meeting created",
		logger.Module("meeting"),
		logger.Action("create"),
		zap.String("meeting_id", req.ID),
	)
	s.writeAudit(ctx, workspaceID, actorMemberID, "meeting.create", req.ID)
	return m.Info(), nil
}

// ListMeetings returns the meetings of a workspace.
func (s *MeetingService) ListMeetings(ctx context.Context, workspaceID string) ([]meeting.Info, error) {
	if _, err := s.dir.Get(workspaceID); err != nil {
		return nil, err
	}
	return s.meetings.List(workspaceID), nil
}

// Join adds the actor to a meeting. Permission: meeting.join.
func (s *MeetingService) Join(ctx context.Context, workspaceID, actorMemberID, meetingID string, req *domain.JoinMeetingRequest) ([]meeting.Participant, error) {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return nil, err
	}
	if err := m.Room.AddParticipant(ctx, actorMemberID, meeting.ParticipantRole(req.Role)); err != nil {
		return nil, fmt.Errorf("join meeting: %w", err)
	}
	return m.Room.Participants(), nil
}

// Leave removes the actor from a meeting.
func (s *MeetingService) Leave(ctx context.Context, workspaceID, actorMemberID, meetingID string) error {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return err
	}
	return m.Room.RemoveParticipant(ctx, actorMemberID)
}

// StartRecording starts the meeting recording. Permission: meeting.record.start.
func (s *MeetingService) StartRecording(ctx context.Context, workspaceID, actorMemberID, meetingID string) (meeting.RecordingState, error) {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return meeting.RecordingState{}, err
	}
	if err := m.Room.StartRecording(ctx, actorMemberID); err != nil {
		return meeting.RecordingState{}, fmt.Errorf("start recording: %w", err)
	}
	s.writeAudit(ctx, workspaceID, actorMemberID, "meeting.record.start", meetingID)
	return m.Room.Recording(), nil
}

// StopRecording stops the meeting recording. Permission: meeting.record.stop.
func (s *MeetingService) StopRecording(ctx context.Context, workspaceID, actorMemberID, meetingID string) (meeting.RecordingState, error) {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return meeting.RecordingState{}, err
	}
	if err := m.Room.StopRecording(ctx, actorMemberID); err != nil {
		return meeting.RecordingState{}, fmt.Errorf("stop recording: %w", err)
	}
	s.writeAudit(ctx, workspaceID, actorMemberID, "meeting.record.stop", meetingID)
	return m.Room.Recording(), nil
}

// SaveRecording stores the location of the meeting's recording file.
// Permission: meeting.record.save.
func (s *MeetingService) SaveRecording(ctx context.Context, workspaceID, actorMemberID, meetingID string, req *domain.SaveRecordingRequest) (domain.SavedRecording, error) {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return domain.SavedRecording{}, err
	}
	rec, err := m.Assistant.SaveRecording(ctx, actorMemberID, req.Location)
	if err != nil {
		return domain.SavedRecording{}, fmt.Errorf("save recording: %w", err)
	}
	s.writeAudit(ctx, workspaceID, actorMemberID, "meeting.record.save", meetingID)
	return rec, nil
}

// ListRecordings returns the saved recording files. Permission: meeting.join.
func (s *MeetingService) ListRecordings(ctx context.Context, workspaceID, actorMemberID, meetingID string) ([]domain.SavedRecording, error) {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return nil, err
	}
	return m.Assistant.SavedRecordings(ctx, actorMemberID)
}

// Translate runs text through the meeting assistant. Permission: meeting.translate.
func (s *MeetingService) Translate(ctx context.Context, workspaceID, actorMemberID, meetingID string, req *domain.TranslateRequest) (string, error) {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return "", err
	}
	text, err := m.Assistant.Translate(ctx, actorMemberID, req.SourceLanguage, req.TargetLanguage, req.Text)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return text, nil
}

// VoiceCommand dispatches a voice command through the meeting assistant.
func (s *MeetingService) VoiceCommand(ctx context.Context, workspaceID, actorMemberID, meetingID string, req *domain.VoiceCommandRequest) (meeting.VoiceResult, error) {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return meeting.VoiceResult{}, err
	}
	res, err := m.Assistant.HandleVoiceCommand(ctx, actorMemberID, req.Command)
	if err != nil {
		return meeting.VoiceResult{}, fmt.Errorf("voice command: %w", err)
	}
	s.log.Info(ctx, "voice command handled",
		logger.Module("meeting"),
		logger.Action("voice"),
		zap.String("meeting_id", meetingID),
		zap.String("command", string(res.Command)),
	)
	return res, nil
}

// CreateLog appends a log entry. Permission: meeting.log.write.
func (s *MeetingService) CreateLog(ctx context.Context, workspaceID, actorMemberID, actorUserID, meetingID string, req *domain.CreateLogRequest) (meeting.LogEntry, error) {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return meeting.LogEntry{}, err
	}
	entry, err := m.Log.Create(ctx, actorMemberID, actorUserID, req.Message)
	if err != nil {
		return meeting.LogEntry{}, fmt.Errorf("create log entry: %w", err)
	}
	return entry, nil
}

// ListLogs returns the meeting log. Permission: meeting.log.read.
func (s *MeetingService) ListLogs(ctx context.Context, workspaceID, actorMemberID, meetingID string) ([]meeting.LogEntry, error) {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return nil, err
	}
	return m.Log.List(ctx, actorMemberID)
}

// DeleteLog removes one log entry. Permission: meeting.log.delete.
func (s *MeetingService) DeleteLog(ctx context.Context, workspaceID, actorMemberID, meetingID, entryID string) error {
	m, err := s.get(workspaceID, meetingID)
	if err != nil {
		return err
	}
	if err := m.Log.Delete(ctx, actorMemberID, entryID); err != nil {
		return fmt.Errorf("delete log entry: %w", err)
	}
	s.writeAudit(ctx, workspaceID, actorMemberID, "meeting.log.delete", entryID)
	return nil
}

func (s *MeetingService) activeWorkspace(workspaceID string) error {
	ws, err := s.dir.Get(workspaceID)
	if err != nil {
		return err
	}
	if ws.Status() != domain.WorkspaceActive {
		return fmt.Errorf("workspace %s: %w", workspaceID, domain.ErrWorkspaceDeleted)
	}
	return nil
}

func (s *MeetingService) get(workspaceID, meetingID string) (*meeting.Meeting, error) {
	if err := s.activeWorkspace(workspaceID); err != nil {
		return nil, err
	}
	return s.meetings.Get(workspaceID, meetingID)
}

func (s *MeetingService) writeAudit(ctx context.Context, workspaceID, actorID, action, resourceID string) {
	rid := resourceID
	if err := s.audit.LogAction(ctx, repo.AuditEntry{
		WorkspaceID:  workspaceID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: "meeting",
		ResourceID:   &rid,
	}); err != nil {
		s.log.Warn(ctx, "audit write failed",
			logger.Module("meeting"),
			logger.Action(action),
			zap.Error(err),
		)
	}
}
