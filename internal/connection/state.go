// Package connection implements the connection-request lifecycle between two users.
//
// A pair of users is always in exactly one of three states: unrelated (no edge),
// pending (one user asked the other), or connected. Transition computes the next
// state for an action without touching storage; Service persists it.
package connection

import (
	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/models"
)

// State is the relation between two users as a whole.
type State string

const (
	StateNone      State = "none"
	StatePending   State = "pending"
	StateConnected State = "connected"
)

// Action is a requested change to a relation.
type Action string

const (
	// ActionSend: actor asks other to connect.
	ActionSend Action = "send"
	// ActionAccept: actor accepts the request other sent.
	ActionAccept Action = "accept"
	// ActionReject: actor rejects the request other sent.
	ActionReject Action = "reject"
	// ActionCancel: actor withdraws the request it sent to other.
	ActionCancel Action = "cancel"
	// ActionRemove: actor drops an established connection with other.
	ActionRemove Action = "remove"
)

// Snapshot is the state of one pair. RequestedBy is only meaningful while pending.
type Snapshot struct {
	State       State
	RequestedBy uint
}

// None is the snapshot of an unrelated pair.
var None = Snapshot{State: StateNone}

// Outcome is the result of a legal transition.
type Outcome struct {
	From    Snapshot
	To      Snapshot
	Changed bool
}

// Accepted reports whether the transition established a connection.
func (o Outcome) Accepted() bool {
	return o.Changed && o.To.State == StateConnected
}

// SnapshotOf converts a stored edge into a snapshot. A nil edge means no relation.
func SnapshotOf(edge *models.Connection) Snapshot {
	if edge == nil {
		return None
	}
	switch edge.State {
	case models.StatePending:
		return Snapshot{State: StatePending, RequestedBy: edge.RequestedBy}
	case models.StateConnected:
		return Snapshot{State: StateConnected}
	default:
		return None
	}
}

// Transition returns the outcome of actor performing action towards other when
// the pair is currently in cur. It never mutates anything.
func Transition(cur Snapshot, action Action, actor, other uint) (Outcome, error) {
	if actor == other {
		return Outcome{}, apperror.NewInvalidOperation("You cannot target yourself")
	}

	unchanged := Outcome{From: cur, To: cur}
	moveTo := func(next Snapshot) (Outcome, error) {
		return Outcome{From: cur, To: next, Changed: true}, nil
	}

	switch action {
	case ActionSend:
		switch {
		case cur.State == StateNone:
			return moveTo(Snapshot{State: StatePending, RequestedBy: actor})
		case cur.State == StatePending && cur.RequestedBy == other:
			// Both sides asked: the second request accepts the first.
			return moveTo(Snapshot{State: StateConnected})
		case cur.State == StatePending:
			return Outcome{}, apperror.NewConflict("Request already sent")
		default:
			return Outcome{}, apperror.NewConflict("You are already connected")
		}

	case ActionAccept:
		switch {
		case cur.State == StatePending && cur.RequestedBy == other:
			return moveTo(Snapshot{State: StateConnected})
		case cur.State == StateConnected:
			return unchanged, nil
		default:
			return Outcome{}, apperror.NewNotFound("No pending request from this user")
		}

	case ActionReject:
		if cur.State == StatePending && cur.RequestedBy == other {
			return moveTo(None)
		}
		return Outcome{}, apperror.NewNotFound("No pending request from this user")

	case ActionCancel:
		if cur.State == StatePending && cur.RequestedBy == actor {
			return moveTo(None)
		}
		return Outcome{}, apperror.NewNotFound("No sent request to this user")

	case ActionRemove:
		if cur.State == StateConnected {
			return moveTo(None)
		}
		return unchanged, nil
	}

	return Outcome{}, apperror.NewInvalidOperation("Unknown connection action")
}

// Status is a relation as seen by one of the two users.
type Status string

const (
	StatusNone            Status = "none"
	StatusConnected       Status = "connected"
	StatusPendingOutgoing Status = "pending_outgoing"
	StatusPendingIncoming Status = "pending_incoming"
)

// StatusFor describes s from the point of view of viewer.
func (s Snapshot) StatusFor(viewer uint) Status {
	switch s.State {
	case StateConnected:
		return StatusConnected
	case StatePending:
		if s.RequestedBy == viewer {
			return StatusPendingOutgoing
		}
		return StatusPendingIncoming
	default:
		return StatusNone
	}
}
