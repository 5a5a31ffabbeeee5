package meeting

import (
	"context"
	"fmt"
	"strings"

	"meetspace-api/internal/domain"
)

const maxLocationLen = 1000

// Assistant executes voice commands and translations for one room.
type Assistant struct {
	room       *Room
	translator TranslationService
}

// NewAssistant binds an assistant to room. translator may be nil, in which
// case translation fails with ErrTranslationUnavailable.
func NewAssistant(room *Room, translator TranslationService) *Assistant {
	return &Assistant{room: room, translator: translator}
}

// Translate translates text on behalf of a member.
func (a *Assistant) Translate(ctx context.Context, memberID, sourceLang, targetLang, text string) (string, error) {
	if err := authorize(a.room.authz, a.room.workspaceID, memberID, a.room.ResourceID(), PermTranslate); err != nil {
		return "", err
	}
	if a.translator == nil {
		return "", domain.ErrTranslationUnavailable
	}
	out, err := a.translator.Translate(ctx, sourceLang, targetLang, text)
	if err != nil {
		return "", fmt.Errorf("translate %s->%s: %w", sourceLang, targetLang, err)
	}
	return out, nil
}

// SaveRecording stores the location of the meeting's recording file. The
// recording must be stopped first.
func (a *Assistant) SaveRecording(ctx context.Context, memberID, location string) (domain.SavedRecording, error) {
	room := a.room
	if err := authorize(room.authz, room.workspaceID, memberID, room.ResourceID(), PermRecordSave); err != nil {
		return domain.SavedRecording{}, err
	}
	location = strings.TrimSpace(location)
	if location == "" || len(location) > maxLocationLen || strings.ContainsAny(location, " \t\r\n") {
		return domain.SavedRecording{}, fmt.Errorf("location %q: %w", location, domain.ErrInvalidLocation)
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.recording.Active {
		return domain.SavedRecording{}, fmt.Errorf("save meeting %s: %w", room.id, domain.ErrAlreadyRecording)
	}
	rec := domain.SavedRecording{Location: location, SavedBy: memberID, SavedAt: room.now()}
	if err := room.recorder.Save(ctx, room.recordingKey(), rec); err != nil {
		return domain.SavedRecording{}, fmt.Errorf("save recording: %w", err)
	}
	return rec, nil
}

// SavedRecordings lists the saved recording files. Any member who may join
// the meeting may list them.
func (a *Assistant) SavedRecordings(ctx context.Context, memberID string) ([]domain.SavedRecording, error) {
	room := a.room
	if err := authorize(room.authz, room.workspaceID, memberID, room.ResourceID(), PermJoin); err != nil {
		return nil, err
	}
	recs, err := room.recorder.Saved(ctx, room.recordingKey())
	if err != nil {
		return nil, fmt.Errorf("list saved recordings: %w", err)
	}
	return recs, nil
}

// CommandKind identifies a parsed voice command.
type CommandKind string

const (
	CommandStartRecording CommandKind = "start_recording"
	CommandStopRecording  CommandKind = "stop_recording"
	CommandSaveRecording  CommandKind = "save_recording"
	CommandTranslate      CommandKind = "translate"
)

// Command is a parsed voice command.
type Command struct {
	Kind       CommandKind
	SourceLang string
	TargetLang string
	Text       string
	Location   string
}

// VoiceResult is the outcome of a voice command.
type VoiceResult struct {
	Command CommandKind `json:"command"`
	Text    string      `json:"text,omitempty"`
}

// ParseCommand recognizes "start recording", "stop recording",
// "save recording <location>" and "translate <src> <dst> <text>". Keywords are case-insensitive; the text
// to translate is kept verbatim.
func ParseCommand(command string) (Command, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command: %w", domain.ErrUnknownCommand)
	}

	switch strings.ToLower(fields[0]) {
	case "start", "stop":
		if len(fields) != 2 || strings.ToLower(fields[1]) != "recording" {
			break
		}
		if strings.EqualFold(fields[0], "start") {
			return Command{Kind: CommandStartRecording}, nil
		}
		return Command{Kind: CommandStopRecording}, nil
	case "save":
		if len(fields) != 3 || strings.ToLower(fields[1]) != "recording" {
			break
		}
		return Command{Kind: CommandSaveRecording, Location: fields[2]}, nil
	case "translate":
		if len(fields) < 4 {
			break
		}
		rest := strings.TrimSpace(command)
		for i := 0; i < 3; i++ {
			rest = strings.TrimSpace(rest[len(strings.Fields(rest)[0]):])
		}
		return Command{
			Kind:       CommandTranslate,
			SourceLang: strings.ToLower(fields[1]),
			TargetLang: strings.ToLower(fields[2]),
			Text:       rest,
		}, nil
	}
	return Command{}, fmt.Errorf("%q: %w", fields[0], domain.ErrUnknownCommand)
}

// HandleVoiceCommand parses and executes a command for memberID. Each
// command is subject to the same permission as its direct counterpart.
func (a *Assistant) HandleVoiceCommand(ctx context.Context, memberID, command string) (VoiceResult, error) {
	cmd, err := ParseCommand(command)
	if err != nil {
		return VoiceResult{}, err
	}

	switch cmd.Kind {
	case CommandStartRecording:
		err = a.room.StartRecording(ctx, memberID)
		return VoiceResult{Command: cmd.Kind}, err
	case CommandStopRecording:
		err = a.room.StopRecording(ctx, memberID)
		return VoiceResult{Command: cmd.Kind}, err
	case CommandSaveRecording:
		rec, err := a.SaveRecording(ctx, memberID, cmd.Location)
		return VoiceResult{Command: cmd.Kind, Text: rec.Location}, err
	default:
		text, err := a.Translate(ctx, memberID, cmd.SourceLang, cmd.TargetLang, cmd.Text)
		return VoiceResult{Command: cmd.Kind, Text: text}, err
	}
}
