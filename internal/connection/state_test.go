package connection

import (
	"testing"

	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

const (
	alice uint = 1
	bob   uint = 2
)

func TestTransition(t *testing.T) {
	pendingFromAlice := Snapshot{State: StatePending, RequestedBy: alice}
	pendingFromBob := Snapshot{State: StatePending, RequestedBy: bob}
	connected := Snapshot{State: StateConnected}

	tests := []struct {
		name    string
		cur     Snapshot
		action  Action
		actor   uint
		other   uint
		want    Snapshot
		changed bool
		errKind apperror.Kind
	}{
		{"send from none", None, ActionSend, alice, bob, pendingFromAlice, true, apperror.Unknown},
		{"send twice", pendingFromAlice, ActionSend, alice, bob, Snapshot{}, false, apperror.Conflict},
		{"send while connected", connected, ActionSend, alice, bob, Snapshot{}, false, apperror.Conflict},
		{"mutual send connects", pendingFromBob, ActionSend, alice, bob, connected, true, apperror.Unknown},
		{"send to self", None, ActionSend, alice, alice, Snapshot{}, false, apperror.InvalidOperation},
		{"send to self while connected", connected, ActionSend, alice, alice, Snapshot{}, false, apperror.InvalidOperation},

		{"accept pending", pendingFromAlice, ActionAccept, bob, alice, connected, true, apperror.Unknown},
		{"accept as requester", pendingFromAlice, ActionAccept, alice, bob, Snapshot{}, false, apperror.NotFound},
		{"accept nothing", None, ActionAccept, bob, alice, Snapshot{}, false, apperror.NotFound},
		{"accept again", connected, ActionAccept, bob, alice, connected, false, apperror.Unknown},

		{"reject pending", pendingFromAlice, ActionReject, bob, alice, None, true, apperror.Unknown},
		{"reject as requester", pendingFromAlice, ActionReject, alice, bob, Snapshot{}, false, apperror.NotFound},
		{"reject connected", connected, ActionReject, bob, alice, Snapshot{}, false, apperror.NotFound},

		{"cancel own request", pendingFromAlice, ActionCancel, alice, bob, None, true, apperror.Unknown},
		{"cancel someone else's request", pendingFromAlice, ActionCancel, bob, alice, Snapshot{}, false, apperror.NotFound},

		{"remove connected", connected, ActionRemove, alice, bob, None, true, apperror.Unknown},
		{"remove none", None, ActionRemove, alice, bob, None, false, apperror.Unknown},
		{"remove leaves pending alone", pendingFromBob, ActionRemove, alice, bob, pendingFromBob, false, apperror.Unknown},

		{"unknown action", None, Action("poke"), alice, bob, Snapshot{}, false, apperror.InvalidOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transition(tt.cur, tt.action, tt.actor, tt.other)
			if tt.errKind != apperror.Unknown {
				assert.True(t, apperror.Is(err, tt.errKind), "got %v", err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, out.To)
			assert.Equal(t, tt.changed, out.Changed)
			assert.Equal(t, tt.cur, out.From)
		})
	}
}

func TestStatusFor(t *testing.T) {
	pending := Snapshot{State: StatePending, RequestedBy: alice}
	assert.Equal(t, StatusPendingOutgoing, pending.StatusFor(alice))
	assert.Equal(t, StatusPendingIncoming, pending.StatusFor(bob))
	assert.Equal(t, StatusConnected, Snapshot{State: StateConnected}.StatusFor(bob))
	assert.Equal(t, StatusNone, None.StatusFor(alice))
}

func TestSnapshotOf(t *testing.T) {
	assert.Equal(t, None, SnapshotOf(nil))

	edge := models.NewConnection(alice, bob, models.StatePending, bob)
	assert.Equal(t, Snapshot{State: StatePending, RequestedBy: bob}, SnapshotOf(&edge))

	edge.State = models.StateConnected
	assert.Equal(t, Snapshot{State: StateConnected}, SnapshotOf(&edge))
}
