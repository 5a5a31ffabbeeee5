package meeting

import (
	"context"
	"errors"
	"testing"

	"meetspace-api/internal/access"
	"meetspace-api/internal/domain"
	"meetspace-api/internal/ledger"
	"meetspace-api/internal/recording"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTranslator struct {
	err error
}

func (e echoTranslator) Translate(_ context.Context, src, dst, text string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return "[" + src + "->" + dst + "] " + text, nil
}

// setup builds workspace ws1 with members admin, editor and viewer.
func setup(t *testing.T, translator TranslationService) *Registry {
	t.Helper()
	l := ledger.New()
	_, err := l.Open("ws1")
	require.NoError(t, err)
	ctx := context.Background()
	for _, m := range []struct {
		id   string
		role domain.Role
	}{
		{"admin", domain.RoleAdmin},
		{"editor", domain.RoleEditor},
		{"viewer", domain.RoleViewer},
	} {
		_, err := l.AddMember(ctx, "ws1", domain.Member{ID: m.id, UserID: "user-" + m.id}, m.role)
		require.NoError(t, err)
	}
	engine := access.NewEngine(access.NewDefaultRegistry(), l, nil)
	return NewRegistry(engine, recording.NewMemoryStore(), translator)
}

func TestRegistry_Create(t *testing.T) {
	r := setup(t, nil)
	ctx := context.Background()

	_, err := r.Create(ctx, "ws1", "viewer", "standup", "Daily")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	m, err := r.Create(ctx, "ws1", "editor", "standup", " Daily ")
	require.NoError(t, err)
	assert.Equal(t, "Daily", m.Room.Name())
	assert.Equal(t, "meeting:standup", m.Room.ResourceID())

	_, err = r.Create(ctx, "ws1", "admin", "standup", "Again")
	assert.ErrorIs(t, err, domain.ErrMeetingExists)

	_, err = r.Create(ctx, "ws1", "admin", "bad:id", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidMeetingID)

	_, err = r.Create(ctx, "ws1", "ghost", "retro", "x")
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	got, err := r.Get("ws1", "standup")
	require.NoError(t, err)
	assert.Same(t, m, got)

	_, err = r.Get("ws2", "standup")
	assert.ErrorIs(t, err, domain.ErrMeetingNotFound)

	assert.Len(t, r.List("ws1"), 1)
	assert.Equal(t, 1, r.DropWorkspace("ws1"))
	assert.Empty(t, r.List("ws1"))
}

func TestRoom_Participants(t *testing.T) {
	r := setup(t, nil)
	ctx := context.Background()
	m, err := r.Create(ctx, "ws1", "admin", "standup", "Daily")
	require.NoError(t, err)
	room := m.Room

	require.NoError(t, room.AddParticipant(ctx, "admin", RoleHost))
	require.NoError(t, room.AddParticipant(ctx, "viewer", ""))
	assert.ErrorIs(t, room.AddParticipant(ctx, "editor", "moderator"), domain.ErrUnknownRole)

	ps := room.Participants()
	require.Len(t, ps, 2)
	assert.Equal(t, RoleHost, ps[0].Role)
	assert.Equal(t, RoleAttendee, ps[1].Role)

	require.NoError(t, room.RemoveParticipant(ctx, "viewer"))
	assert.ErrorIs(t, room.RemoveParticipant(ctx, "viewer"), domain.ErrMemberNotFound)
	assert.Len(t, room.Participants(), 1)
}

func TestRoom_HostNeedsCreatePermission(t *testing.T) {
	r := setup(t, nil)
	ctx := context.Background()
	m, err := r.Create(ctx, "ws1", "admin", "standup", "Daily")
	require.NoError(t, err)
	room := m.Room

	assert.ErrorIs(t, room.AddParticipant(ctx, "viewer", RoleHost), domain.ErrAccessDenied)
	assert.Empty(t, room.Participants())

	require.NoError(t, room.AddParticipant(ctx, "viewer", RoleAttendee))
	assert.ErrorIs(t, room.AddParticipant(ctx, "viewer", RoleHost), domain.ErrAccessDenied, "no promotion by rejoining")
	assert.Equal(t, RoleAttendee, room.Participants()[0].Role)

	require.NoError(t, room.AddParticipant(ctx, "editor", RoleHost))
}

func TestRegistry_ForgetMember(t *testing.T) {
	r := setup(t, nil)
	ctx := context.Background()
	standup, err := r.Create(ctx, "ws1", "admin", "standup", "")
	require.NoError(t, err)
	retro, err := r.Create(ctx, "ws1", "admin", "retro", "")
	require.NoError(t, err)

	for _, room := range []*Room{standup.Room, retro.Room} {
		require.NoError(t, room.AddParticipant(ctx, "viewer", ""))
		require.NoError(t, room.AddParticipant(ctx, "admin", ""))
	}
	other := NewRoom("ws2", "standup", "", authorizerFunc(func(string, string, string, string) (bool, error) { return true, nil }), recording.NewMemoryStore(), nil)
	require.NoError(t, other.AddParticipant(ctx, "viewer", ""))

	assert.Equal(t, 2, r.ForgetMember("ws1", "viewer"))
	assert.Zero(t, r.ForgetMember("ws1", "viewer"))
	for _, room := range []*Room{standup.Room, retro.Room} {
		ps := room.Participants()
		require.Len(t, ps, 1)
		assert.Equal(t, "admin", ps[0].MemberID)
	}
	assert.Len(t, other.Participants(), 1, "other workspaces are untouched")
}

func TestRoom_RecordingRequiresPermission(t *testing.T) {
	r := setup(t, nil)
	ctx := context.Background()
	m, err := r.Create(ctx, "ws1", "admin", "standup", "Daily")
	require.NoError(t, err)
	room := m.Room

	assert.ErrorIs(t, room.StartRecording(ctx, "editor"), domain.ErrAccessDenied)
	assert.False(t, room.Recording().Active)

	require.NoError(t, room.StartRecording(ctx, "admin"))
	state := room.Recording()
	assert.True(t, state.Active)
	assert.Equal(t, "admin", state.StartedBy)
	assert.NotNil(t, state.StartedAt)

	assert.ErrorIs(t, room.StartRecording(ctx, "admin"), domain.ErrAlreadyRecording)
	assert.ErrorIs(t, room.StopRecording(ctx, "viewer"), domain.ErrAccessDenied)

	require.NoError(t, room.StopRecording(ctx, "admin"))
	assert.False(t, room.Recording().Active)
	assert.ErrorIs(t, room.StopRecording(ctx, "admin"), domain.ErrNotRecording)
}

func TestRoom_RecordingIsolatedPerWorkspace(t *testing.T) {
	store := recording.NewMemoryStore()
	allowAll := authorizerFunc(func(string, string, string, string) (bool, error) { return true, nil })

	a := NewRoom("ws1", "standup", "", allowAll, store, nil)
	b := NewRoom("ws2", "standup", "", allowAll, store, nil)

	require.NoError(t, a.StartRecording(context.Background(), "m1"))
	require.NoError(t, b.StartRecording(context.Background(), "m2"))
}

type authorizerFunc func(workspaceID, memberID, resourceID, action string) (bool, error)

func (f authorizerFunc) CanAccess(workspaceID, memberID, resourceID, action string) (bool, error) {
	return f(workspaceID, memberID, resourceID, action)
}

func TestAssistant_Translate(t *testing.T) {
	ctx := context.Background()

	t.Run("Allowed", func(t *testing.T) {
		r := setup(t, echoTranslator{})
		m, _ := r.Create(ctx, "ws1", "admin", "standup", "")
		out, err := m.Assistant.Translate(ctx, "editor", "en", "pt", "hello")
		require.NoError(t, err)
		assert.Equal(t, "[en->pt] hello", out)
	})

	t.Run("Denied", func(t *testing.T) {
		r := setup(t, echoTranslator{})
		m, _ := r.Create(ctx, "ws1", "admin", "standup", "")
		_, err := m.Assistant.Translate(ctx, "viewer", "en", "pt", "hello")
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("Unavailable", func(t *testing.T) {
		r := setup(t, nil)
		m, _ := r.Create(ctx, "ws1", "admin", "standup", "")
		_, err := m.Assistant.Translate(ctx, "admin", "en", "pt", "hello")
		assert.ErrorIs(t, err, domain.ErrTranslationUnavailable)
	})

	t.Run("EngineError", func(t *testing.T) {
		boom := errors.New("engine down")
		r := setup(t, echoTranslator{err: boom})
		m, _ := r.Create(ctx, "ws1", "admin", "standup", "")
		_, err := m.Assistant.Translate(ctx, "admin", "en", "pt", "hello")
		assert.ErrorIs(t, err, boom)
	})
}

func TestAssistant_SaveRecording(t *testing.T) {
	r := setup(t, nil)
	ctx := context.Background()
	m, err := r.Create(ctx, "ws1", "admin", "standup", "")
	require.NoError(t, err)

	_, err = m.Assistant.SaveRecording(ctx, "editor", "s3://rec/standup.webm")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	for _, loc := range []string{"", "   ", "two words"} {
		_, err = m.Assistant.SaveRecording(ctx, "admin", loc)
		assert.ErrorIs(t, err, domain.ErrInvalidLocation, loc)
	}

	require.NoError(t, m.Room.StartRecording(ctx, "admin"))
	_, err = m.Assistant.SaveRecording(ctx, "admin", "s3://rec/standup.webm")
	assert.ErrorIs(t, err, domain.ErrAlreadyRecording)
	require.NoError(t, m.Room.StopRecording(ctx, "admin"))

	rec, err := m.Assistant.SaveRecording(ctx, "admin", " s3://rec/standup.webm ")
	require.NoError(t, err)
	assert.Equal(t, "s3://rec/standup.webm", rec.Location)
	assert.Equal(t, "admin", rec.SavedBy)
	assert.False(t, rec.SavedAt.IsZero())

	saved, err := m.Assistant.SavedRecordings(ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, []domain.SavedRecording{rec}, saved)

	_, err = m.Assistant.SavedRecordings(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    Command
		wantErr bool
	}{
		{input: "start recording", want: Command{Kind: CommandStartRecording}},
		{input: "  Stop   Recording ", want: Command{Kind: CommandStopRecording}},
		{input: "translate EN pt Good  morning, team", want: Command{
			Kind: CommandTranslate, SourceLang: "en", TargetLang: "pt", Text: "Good  morning, team",
		}},
		{input: "save recording s3://rec/a.webm", want: Command{Kind: CommandSaveRecording, Location: "s3://rec/a.webm"}},
		{input: "save recording", wantErr: true},
		{input: "translate en pt", wantErr: true},
		{input: "start the recording", wantErr: true},
		{input: "dance", wantErr: true},
		{input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCommand(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnknownCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssistant_HandleVoiceCommand(t *testing.T) {
	r := setup(t, echoTranslator{})
	ctx := context.Background()
	m, err := r.Create(ctx, "ws1", "admin", "standup", "")
	require.NoError(t, err)

	_, err = m.Assistant.HandleVoiceCommand(ctx, "editor", "start recording")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	res, err := m.Assistant.HandleVoiceCommand(ctx, "admin", "start recording")
	require.NoError(t, err)
	assert.Equal(t, CommandStartRecording, res.Command)
	assert.True(t, m.Room.Recording().Active)

	res, err = m.Assistant.HandleVoiceCommand(ctx, "editor", "translate en es see you")
	require.NoError(t, err)
	assert.Equal(t, "[en->es] see you", res.Text)

	_, err = m.Assistant.HandleVoiceCommand(ctx, "admin", "stop recording")
	require.NoError(t, err)
	assert.False(t, m.Room.Recording().Active)

	res, err = m.Assistant.HandleVoiceCommand(ctx, "admin", "save recording file:///tmp/standup.webm")
	require.NoError(t, err)
	assert.Equal(t, CommandSaveRecording, res.Command)
	assert.Equal(t, "file:///tmp/standup.webm", res.Text)

	_, err = m.Assistant.HandleVoiceCommand(ctx, "admin", "sing")
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)
}

func TestLog(t *testing.T) {
	r := setup(t, nil)
	ctx := context.Background()
	m, err := r.Create(ctx, "ws1", "admin", "standup", "")
	require.NoError(t, err)
	log := m.Log

	_, err = log.Create(ctx, "viewer", "user-viewer", "hi")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	first, err := log.Create(ctx, "editor", "user-editor", " first note ")
	require.NoError(t, err)
	assert.Equal(t, "first note", first.Message)
	second, err := log.Create(ctx, "admin", "user-admin", "second note")
	require.NoError(t, err)

	entries, err := log.List(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, second.ID, entries[1].ID)

	assert.ErrorIs(t, log.Delete(ctx, "editor", first.ID), domain.ErrAccessDenied)
	require.NoError(t, log.Delete(ctx, "admin", first.ID))
	assert.ErrorIs(t, log.Delete(ctx, "admin", first.ID), domain.ErrLogEntryNotFound)

	entries, _ = log.List(ctx, "admin")
	assert.Len(t, entries, 1)
}
