// Package meeting holds the meeting room, assistant and log entities. They
// sit outside the membership core and only ask it for access decisions
// before acting.
package meeting

import (
	"context"
	"fmt"

	"meetspace-api/internal/domain"
)

// Authorizer answers access questions. access.Engine implements it.
type Authorizer interface {
	CanAccess(workspaceID, memberID, resourceID, action string) (bool, error)
}

// TranslationService translates text between two languages.
type TranslationService interface {
	Translate(ctx context.Context, sourceLang, targetLang, text string) (string, error)
}

// RecordingStore tracks which resources are being recorded and where their
// files were saved. Start reports false when a recording is already running;
// Stop reports false when none is. Saved lists in save order.
type RecordingStore interface {
	Start(ctx context.Context, resourceID string) (bool, error)
	Stop(ctx context.Context, resourceID string) (bool, error)
	Save(ctx context.Context, resourceID string, rec domain.SavedRecording) error
	Saved(ctx context.Context, resourceID string) ([]domain.SavedRecording, error)
}

// Permissions checked by meeting entities.
const (
	PermCreate      = "meeting.create"
	PermJoin        = "meeting.join"
	PermRecordStart = "meeting.record.start"
	PermRecordStop  = "meeting.record.stop"
	PermRecordSave  = "meeting.record.save"
	PermTranslate   = "meeting.translate"
	PermLogRead     = "meeting.log.read"
	PermLogWrite    = "meeting.log.write"
	PermLogDelete   = "meeting.log.delete"
)

func authorize(authz Authorizer, workspaceID, memberID, resourceID, action string) error {
	ok, err := authz.CanAccess(workspaceID, memberID, resourceID, action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s on %s: %w", action, resourceID, domain.ErrAccessDenied)
	}
	return nil
}
