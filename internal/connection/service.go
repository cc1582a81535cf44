package connection

import (
	"context"
	"errors"

	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxAttempts bounds how often an operation is re-evaluated after losing a race
// on the edge row.
const maxAttempts = 3

// errStale means the conditional write matched no row: another request changed
// the edge between our read and our write.
var errStale = errors.New("connection edge changed concurrently")

// Service persists connection transitions. Every operation reads and writes the
// single edge of the pair inside one transaction, and the write is conditional
// on the state that was read.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Send asks target to connect with requester. If target already asked
// requester, the pair becomes connected.
func (s *Service) Send(ctx context.Context, requesterID, targetID uint) (Outcome, error) {
	return s.apply(ctx, ActionSend, requesterID, targetID)
}

// Accept accepts the pending request requester sent to target.
// Accepting an already established connection succeeds without change.
func (s *Service) Accept(ctx context.Context, targetID, requesterID uint) (Outcome, error) {
	return s.apply(ctx, ActionAccept, targetID, requesterID)
}

// Reject drops the pending request requester sent to target.
func (s *Service) Reject(ctx context.Context, targetID, requesterID uint) (Outcome, error) {
	return s.apply(ctx, ActionReject, targetID, requesterID)
}

// Cancel withdraws the request requester sent to target.
func (s *Service) Cancel(ctx context.Context, requesterID, targetID uint) (Outcome, error) {
	return s.apply(ctx, ActionCancel, requesterID, targetID)
}

// Remove ends the connection between userID and otherID. It is idempotent.
func (s *Service) Remove(ctx context.Context, userID, otherID uint) (Outcome, error) {
	return s.apply(ctx, ActionRemove, userID, otherID)
}

func (s *Service) apply(ctx context.Context, action Action, actor, other uint) (Outcome, error) {
	if actor == other {
		return Transition(None, action, actor, other)
	}

	for attempt := 1; ; attempt++ {
		var out Outcome
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			out, err = applyOnce(tx, action, actor, other)
			return err
		})

		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, errStale) && attempt < maxAttempts:
			zap.L().Debug("Retrying connection transition",
				zap.String("action", string(action)), zap.Uint("actor", actor), zap.Uint("other", other), zap.Int("attempt", attempt))
			continue
		case errors.Is(err, errStale):
			return Outcome{}, apperror.New(apperror.Conflict, "Connection is being modified, please retry", err)
		case apperror.KindOf(err) == apperror.Unknown:
			return Outcome{}, apperror.NewUpstreamFailure("Failed to update connection", err)
		default:
			return Outcome{}, err
		}
	}
}

func applyOnce(tx *gorm.DB, action Action, actor, other uint) (Outcome, error) {
	if action == ActionSend {
		if err := requireUser(tx, other); err != nil {
			return Outcome{}, err
		}
	}

	edge, err := findEdge(tx.Clauses(clause.Locking{Strength: "UPDATE"}), actor, other)
	if err != nil {
		return Outcome{}, err
	}

	out, err := Transition(SnapshotOf(edge), action, actor, other)
	if err != nil || !out.Changed {
		return out, err
	}

	low, high := models.CanonicalPair(actor, other)
	var res *gorm.DB
	switch {
	case edge == nil:
		next := models.NewConnection(actor, other, models.StatePending, out.To.RequestedBy)
		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&next)
	case out.To.State == StateNone:
		res = tx.Scopes(pair(low, high), guard(out.From)).Delete(&models.Connection{})
	default:
		res = tx.Model(&models.Connection{}).Scopes(pair(low, high), guard(out.From)).Update("state", models.StateConnected)
	}

	if res.Error != nil {
		return Outcome{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Outcome{}, errStale
	}
	return out, nil
}

func pair(low, high uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_low_id = ? AND user_high_id = ?", low, high)
	}
}

// guard restricts a write to the state it was computed from.
func guard(from Snapshot) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if from.State == StatePending {
			return db.Where("state = ? AND requested_by = ?", models.StatePending, from.RequestedBy)
		}
		return db.Where("state = ?", models.StateConnected)
	}
}

func requireUser(tx *gorm.DB, userID uint) error {
	var user models.User
	err := tx.Select("id").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NewNotFound("User not found")
	}
	return err
}

func findEdge(tx *gorm.DB, a, b uint) (*models.Connection, error) {
	low, high := models.CanonicalPair(a, b)

	var edge models.Connection
	err := tx.Scopes(pair(low, high)).Take(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// View holds the relations of one user, split the way clients display them.
type View struct {
	Connections     []uint `json:"connections"`
	PendingRequests []uint `json:"pending_requests"`
	SentRequests    []uint `json:"sent_requests"`
}

// View returns the caller-side view of every relation of userID, most recently
// changed first.
func (s *Service) View(ctx context.Context, userID uint) (*View, error) {
	var edges []models.Connection
	err := s.db.WithContext(ctx).
		Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("updated_at DESC").Order("user_low_id").Order("user_high_id").
		Find(&edges).Error
	if err != nil {
		return nil, apperror.NewUpstreamFailure("Failed to fetch connections", err)
	}

	view := &View{Connections: []uint{}, PendingRequests: []uint{}, SentRequests: []uint{}}
	for i := range edges {
		other := edges[i].Other(userID)
		switch SnapshotOf(&edges[i]).StatusFor(userID) {
		case StatusConnected:
			view.Connections = append(view.Connections, other)
		case StatusPendingIncoming:
			view.PendingRequests = append(view.PendingRequests, other)
		case StatusPendingOutgoing:
			view.SentRequests = append(view.SentRequests, other)
		}
	}
	return view, nil
}

// Status returns the relation between viewer and other as seen by viewer.
func (s *Service) Status(ctx context.Context, viewer, other uint) (Status, error) {
	if viewer == other {
		return StatusNone, nil
	}
	edge, err := findEdge(s.db.WithContext(ctx), viewer, other)
	if err != nil {
		return StatusNone, apperror.NewUpstreamFailure("Failed to fetch connection", err)
	}
	return SnapshotOf(edge).StatusFor(viewer), nil
}

// CountConnections returns how many established connections userID has.
func (s *Service) CountConnections(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Connection{}).
		Where("(user_low_id = ? OR user_high_id = ?) AND state = ?", userID, userID, models.StateConnected).
		Count(&count).Error
	if err != nil {
		return 0, apperror.NewUpstreamFailure("Failed to count connections", err)
	}
	return count, nil
}

// Filter selects one of the derived views.
type Filter string

const (
	FilterConnections Filter = "connections"
	FilterPending     Filter = "pending"
	FilterSent        Filter = "sent"
)

// ParseFilter validates a view name. An empty name selects connections.
func ParseFilter(name string) (Filter, error) {
	switch f := Filter(name); f {
	case "":
		return FilterConnections, nil
	case FilterConnections, FilterPending, FilterSent:
		return f, nil
	default:
		return "", apperror.NewInvalidOperation("view must be one of connections, pending, sent")
	}
}

// List returns the user ids of a single view of userID.
func (s *Service) List(ctx context.Context, userID uint, filter Filter) ([]uint, error) {
	view, err := s.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch filter {
	case FilterPending:
		return view.PendingRequests, nil
	case FilterSent:
		return view.SentRequests, nil
	default:
		return view.Connections, nil
	}
}
