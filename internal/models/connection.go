package models

import "time"

// ConnectionState is the state of a stored edge. An absent edge means the
// two users are unrelated.
type ConnectionState string

const (
	// StatePending means RequestedBy asked the other user to connect.
	StatePending ConnectionState = "pending"

	// StateConnected means the request was accepted; the relation is symmetric.
	StateConnected ConnectionState = "connected"
)

// Connection is the single relationship edge between two users.
// The primary key is (UserLowID, UserHighID) with UserLowID < UserHighID, so a
// pair can never have more than one edge regardless of who initiated it.
type Connection struct {
	UserLowID   uint            `gorm:"primaryKey;autoIncrement:false"`
	UserHighID  uint            `gorm:"primaryKey;autoIncrement:false"`
	State       ConnectionState `gorm:"type:varchar(20);not null;index"`
	RequestedBy uint            `gorm:"not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	UserLow  User `gorm:"foreignKey:UserLowID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UserHigh User `gorm:"foreignKey:UserHighID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// CanonicalPair orders two user IDs the way Connection stores them.
func CanonicalPair(a, b uint) (low, high uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// NewConnection builds an edge between a and b in canonical order.
func NewConnection(a, b uint, state ConnectionState, requestedBy uint) Connection {
	low, high := CanonicalPair(a, b)
	return Connection{UserLowID: low, UserHighID: high, State: state, RequestedBy: requestedBy}
}

// Other returns the user of the edge that is not userID.
func (c Connection) Other(userID uint) uint {
	if c.UserLowID == userID {
		return c.UserHighID
	}
	return c.UserLowID
}
