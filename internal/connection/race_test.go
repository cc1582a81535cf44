package connection_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func (f fixture) edges(t *testing.T) []models.Connection {
	t.Helper()
	var edges []models.Connection
	require.NoError(t, f.db.Find(&edges).Error)
	return edges
}

func TestConcurrentMutualRequestsConnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pair := range [][2]uint{{f.a.ID, f.b.ID}, {f.b.ID, f.a.ID}} {
		wg.Add(1)
		go func(i int, from, to uint) {
			defer wg.Done()
			_, errs[i] = f.svc.Send(ctx, from, to)
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	edges := f.edges(t)
	require.Len(t, edges, 1)
	assert.Equal(t, models.StateConnected, edges[0].State)
	assert.Equal(t, []uint{f.b.ID}, f.view(t, f.a.ID).Connections)
	assert.Equal(t, []uint{f.a.ID}, f.view(t, f.b.ID).Connections)
}

func TestConcurrentDuplicateRequestsKeepOneEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const senders = 8

	var wg sync.WaitGroup
	errs := make(chan error, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Send(ctx, f.a.ID, f.b.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.Is(err, apperror.Conflict), "%v", err)
	}
	assert.Equal(t, 1, succeeded)

	edges := f.edges(t)
	require.Len(t, edges, 1)
	assert.Equal(t, models.StatePending, edges[0].State)
	assert.Equal(t, []uint{f.a.ID}, f.view(t, f.b.ID).PendingRequests)
}

// stealEdgeOnCreate makes another writer insert the pair's edge right before
// each of the next n connection inserts, so the guarded insert affects no row.
func stealEdgeOnCreate(t *testing.T, db *gorm.DB, n int, requestedBy uint, low, high uint) *int {
	t.Helper()
	calls := 0
	err := db.Callback().Create().Before("gorm:create").Register("test:steal_edge", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Table != "connections" {
			return
		}
		calls++
		if calls > n {
			return
		}
		now := time.Now()
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO connections (user_low_id, user_high_id, state, requested_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			low, high, models.StatePending, requestedBy, now, now)
	})
	require.NoError(t, err)
	return &calls
}

func TestSendRetriesAfterLosingInsert(t *testing.T) {
	f := newFixture(t)
	low, high := models.CanonicalPair(f.a.ID, f.b.ID)
	calls := stealEdgeOnCreate(t, f.db, 1, f.b.ID, low, high)

	out, err := f.svc.Send(context.Background(), f.a.ID, f.b.ID)
	require.NoError(t, err)

	// The first insert lost and its transaction rolled back; the second attempt
	// re-read the pair and inserted the request.
	assert.Equal(t, 2, *calls)
	assert.Equal(t, f.a.ID, out.To.RequestedBy)
	edges := f.edges(t)
	require.Len(t, edges, 1)
	assert.Equal(t, models.StatePending, edges[0].State)
	assert.Equal(t, f.a.ID, edges[0].RequestedBy)
}

func TestSendGivesUpAfterRepeatedLostInserts(t *testing.T) {
	f := newFixture(t)
	low, high := models.CanonicalPair(f.a.ID, f.b.ID)
	calls := stealEdgeOnCreate(t, f.db, 100, f.b.ID, low, high)

	_, err := f.svc.Send(context.Background(), f.a.ID, f.b.ID)
	assert.True(t, apperror.Is(err, apperror.Conflict), "%v", err)
	assert.Equal(t, 3, *calls)
	assert.Empty(t, f.edges(t))
}
