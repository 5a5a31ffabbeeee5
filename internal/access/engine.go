package access

import (
	"fmt"
	"strings"

	"meetspace-api/internal/domain"
	"meetspace-api/internal/ledger"
)

// Resource kinds an access check can target.
const (
	KindWorkspace = "workspace"
	KindMeeting   = "meeting"
	KindCalendar  = "calendar"
)

var knownKinds = map[string]bool{
	KindWorkspace: true,
	KindMeeting:   true,
	KindCalendar:  true,
}

// Reason explains a Decision.
type Reason string

const (
	ReasonAllowed     Reason = "matched permission"
	ReasonNoMatch     Reason = "no matching permission"
	ReasonUnknownKind Reason = "unknown resource kind"
	ReasonBadAction   Reason = "invalid action"
)

// Decision is the outcome of a single access check.
type Decision struct {
	Allowed bool
	Reason  Reason
	// Permission is the fully qualified permission that was checked.
	Permission string
	// MatchedPattern is the registry or grant pattern that allowed it.
	MatchedPattern string
	// Version is the snapshot version the decision was taken against.
	Version uint64
}

// SnapshotSource returns the latest committed membership of a workspace.
type SnapshotSource interface {
	Snapshot(workspaceID string) (*ledger.Snapshot, error)
}

// Observer is notified of every completed decision.
type Observer interface {
	ObserveDecision(workspaceID string, d Decision)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(workspaceID string, d Decision)

// ObserveDecision calls f.
func (f ObserverFunc) ObserveDecision(workspaceID string, d Decision) { f(workspaceID, d) }

// Engine answers "may member M perform action A on resource R". It only
// reads committed snapshots and never takes a mutation lock.
type Engine struct {
	registry  *Registry
	snapshots SnapshotSource
	observer  Observer
}

// NewEngine creates an engine. observer may be nil.
func NewEngine(registry *Registry, snapshots SnapshotSource, observer Observer) *Engine {
	return &Engine{registry: registry, snapshots: snapshots, observer: observer}
}

// Registry returns the role registry the engine resolves against.
func (e *Engine) Registry() *Registry { return e.registry }

// CanAccess reports whether the member may perform action on resourceID.
func (e *Engine) CanAccess(workspaceID, memberID, resourceID, action string) (bool, error) {
	d, err := e.Evaluate(workspaceID, memberID, resourceID, action)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// Evaluate resolves the member against the latest snapshot and returns the
// full decision. A member missing from the workspace is an error; an
// unknown resource kind is a plain denial.
func (e *Engine) Evaluate(workspaceID, memberID, resourceID, action string) (Decision, error) {
	snap, err := e.snapshots.Snapshot(workspaceID)
	if err != nil {
		return Decision{}, err
	}
	m, ok := snap.Member(memberID)
	if !ok {
		return Decision{}, fmt.Errorf("member %s in workspace %s: %w", memberID, workspaceID, domain.ErrMemberNotFound)
	}
	return e.decide(workspaceID, snap.Version(), m, resourceID, action)
}

func (e *Engine) decide(workspaceID string, version uint64, m domain.Member, resourceID, action string) (Decision, error) {
	d := Decision{Version: version}

	kind, ok := ResourceKind(resourceID)
	if !ok {
		d.Reason = ReasonUnknownKind
		e.observe(workspaceID, d)
		return d, nil
	}
	perm, ok := QualifyAction(kind, action)
	if !ok {
		d.Reason = ReasonBadAction
		e.observe(workspaceID, d)
		return d, nil
	}
	d.Permission = perm

	effective, err := e.registry.EffectivePermissions(m)
	if err != nil {
		return Decision{}, err
	}

	if pattern, ok := effective.Allows(perm); ok {
		d.Allowed = true
		d.Reason = ReasonAllowed
		d.MatchedPattern = pattern
	} else {
		d.Reason = ReasonNoMatch
	}
	e.observe(workspaceID, d)
	return d, nil
}

func (e *Engine) observe(workspaceID string, d Decision) {
	if e.observer != nil {
		e.observer.ObserveDecision(workspaceID, d)
	}
}

// ResourceKind extracts the kind of a "kind:id" resource id. Unknown kinds
// and malformed ids report false.
func ResourceKind(resourceID string) (string, bool) {
	kind, id, found := strings.Cut(resourceID, ":")
	if !found || id == "" {
		return "", false
	}
	if !knownKinds[kind] {
		return "", false
	}
	return kind, true
}

// QualifyAction prefixes a relative action with its resource kind.
// "record.start" on a meeting becomes "meeting.record.start"; an action
// already qualified with the kind is returned unchanged.
func QualifyAction(kind, action string) (string, bool) {
	if action == "" {
		return "", false
	}
	qualified := action
	if action != kind && !strings.HasPrefix(action, kind+".") {
		qualified = kind + "." + action
	}
	if !domain.Permission(qualified).IsValid() || strings.Contains(qualified, "*") {
		return "", false
	}
	return qualified, true
}

// ResourceID formats a "kind:id" resource id.
func ResourceID(kind, id string) string {
	return kind + ":" + id
}
