package model

import (
	"fmt"
	"time"
)

// Relationship status values.
const (
	RelationPending  = "pending"
	RelationAccepted = "accepted"
	RelationRejected = "rejected"
	RelationBlocked  = "blocked"
)

// Relationship is the friend-request lifecycle between two users: one row
// per unordered pair, oriented by requester/addressee. PairKey is the
// normalized "lo:hi" of the two user IDs; its unique index is what
// serializes concurrent requests for the same pair.
type Relationship struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequesterID int64     `gorm:"index;not null" json:"requester_id"`
	AddresseeID int64     `gorm:"index;not null" json:"addressee_id"`
	PairKey     string    `gorm:"uniqueIndex;size:48;not null" json:"-"`
	Status      string    `gorm:"size:16;not null;default:'pending'" json:"status"`
	BlockerID   *int64    `json:"blocker_id,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PairKeyFor returns the normalized pair key for two user IDs,
// independent of order.
func PairKeyFor(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// CounterpartOf returns the other participant of the relationship.
func (r *Relationship) CounterpartOf(userID int64) int64 {
	if r.RequesterID == userID {
		return r.AddresseeID
	}
	return r.RequesterID
}

// Involves reports whether userID is one of the two participants.
func (r *Relationship) Involves(userID int64) bool {
	return r.RequesterID == userID || r.AddresseeID == userID
}
