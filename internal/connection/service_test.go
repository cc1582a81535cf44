package connection_test

import (
	"context"
	"testing"

	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/connection"
	"campusconnect/backend/internal/models"
	"campusconnect/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	svc  *connection.Service
	a, b models.User
}

func newFixture(t *testing.T) fixture {
	db := testutil.NewDB(t)
	return fixture{
		db:  db,
		svc: connection.NewService(db),
		a:   testutil.CreateUser(t, db, "alice"),
		b:   testutil.CreateUser(t, db, "bob"),
	}
}

func (f fixture) view(t *testing.T, userID uint) *connection.View {
	t.Helper()
	v, err := f.svc.View(context.Background(), userID)
	require.NoError(t, err)
	return v
}

func TestSendThenAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.a.ID}, f.view(t, f.b.ID).PendingRequests)
	assert.Equal(t, []uint{f.b.ID}, f.view(t, f.a.ID).SentRequests)

	out, err := f.svc.Accept(ctx, f.b.ID, f.a.ID)
	require.NoError(t, err)
	assert.True(t, out.Accepted())

	for _, pair := range [][2]uint{{f.a.ID, f.b.ID}, {f.b.ID, f.a.ID}} {
		v := f.view(t, pair[0])
		assert.Equal(t, []uint{pair[1]}, v.Connections)
		assert.Empty(t, v.PendingRequests)
		assert.Empty(t, v.SentRequests)
	}

	var edges int64
	f.db.Model(&models.Connection{}).Count(&edges)
	assert.Equal(t, int64(1), edges)
}

func TestSendToSelf(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), f.a.ID, f.a.ID)
	assert.True(t, apperror.Is(err, apperror.InvalidOperation))
}

func TestSendToMissingUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), f.a.ID, 9999)
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestDuplicateSendKeepsOneEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.svc.Send(ctx, f.a.ID, f.b.ID)
		assert.True(t, apperror.Is(err, apperror.Conflict))
	}
	assert.Equal(t, []uint{f.a.ID}, f.view(t, f.b.ID).PendingRequests)
}

func TestRejectThenSendAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.b.ID, f.a.ID)
	require.NoError(t, err)

	assert.Empty(t, f.view(t, f.b.ID).PendingRequests)
	assert.Empty(t, f.view(t, f.a.ID).SentRequests)
	status, err := f.svc.Status(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.Equal(t, connection.StatusNone, status)

	_, err = f.svc.Send(ctx, f.a.ID, f.b.ID)
	assert.NoError(t, err)
}

func TestAcceptByNonTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carol := testutil.CreateUser(t, f.db, "carol")

	_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)

	// The requester cannot accept its own request.
	_, err = f.svc.Accept(ctx, f.a.ID, f.b.ID)
	assert.True(t, apperror.Is(err, apperror.NotFound))

	// A bystander has no pending request from alice.
	_, err = f.svc.Accept(ctx, carol.ID, f.a.ID)
	assert.True(t, apperror.Is(err, apperror.NotFound))
	_, err = f.svc.Reject(ctx, carol.ID, f.a.ID)
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestUnconnectIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.b.ID, f.a.ID)
	require.NoError(t, err)

	out, err := f.svc.Remove(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.True(t, out.Changed)

	out, err = f.svc.Remove(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.False(t, out.Changed)

	assert.Empty(t, f.view(t, f.a.ID).Connections)
	assert.Empty(t, f.view(t, f.b.ID).Connections)

	_, err = f.svc.Accept(ctx, f.b.ID, f.a.ID)
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestMutualRequestsConnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	out, err := f.svc.Send(ctx, f.b.ID, f.a.ID)
	require.NoError(t, err)
	assert.True(t, out.Accepted())

	assert.Equal(t, []uint{f.b.ID}, f.view(t, f.a.ID).Connections)
	assert.Equal(t, []uint{f.a.ID}, f.view(t, f.b.ID).Connections)
	assert.Empty(t, f.view(t, f.a.ID).SentRequests)
}

func TestAcceptRetryOnConnected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.b.ID, f.a.ID)
	require.NoError(t, err)

	out, err := f.svc.Accept(ctx, f.b.ID, f.a.ID)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, []uint{f.a.ID}, f.view(t, f.b.ID).Connections)
}

func TestCancelSentRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.b.ID, f.a.ID)
	assert.True(t, apperror.Is(err, apperror.NotFound))

	_, err = f.svc.Cancel(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.Empty(t, f.view(t, f.b.ID).PendingRequests)
}

func TestCountConnections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carol := testutil.CreateUser(t, f.db, "carol")

	_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.b.ID, f.a.ID)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, carol.ID, f.a.ID)
	require.NoError(t, err)

	count, err := f.svc.CountConnections(ctx, f.a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	status, err := f.svc.Status(ctx, f.a.ID, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, connection.StatusPendingIncoming, status)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carol := testutil.CreateUser(t, f.db, "carol")

	_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, carol.ID, f.a.ID)
	require.NoError(t, err)

	sent, err := f.svc.List(ctx, f.a.ID, connection.FilterSent)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.b.ID}, sent)

	pending, err := f.svc.List(ctx, f.a.ID, connection.FilterPending)
	require.NoError(t, err)
	assert.Equal(t, []uint{carol.ID}, pending)

	connected, err := f.svc.List(ctx, f.a.ID, connection.FilterConnections)
	require.NoError(t, err)
	assert.Empty(t, connected)

	filter, err := connection.ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, connection.FilterConnections, filter)
	_, err = connection.ParseFilter("followers")
	assert.True(t, apperror.Is(err, apperror.InvalidOperation))
}
