package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SwipeAction string

const (
	SwipeLike      SwipeAction = "like"
	SwipePass      SwipeAction = "pass"
	SwipeSuperLike SwipeAction = "super_like"
)

func (a SwipeAction) Valid() bool {
	switch a {
	case SwipeLike, SwipePass, SwipeSuperLike:
		return true
	}
	return false
}

// Positive reports whether the action counts towards a mutual match.
func (a SwipeAction) Positive() bool {
	return a == SwipeLike || a == SwipeSuperLike
}

type MatchStatus string

const (
	MatchActive    MatchStatus = "active"
	MatchUnmatched MatchStatus = "unmatched"
)

// Swipe holds the current action of one user towards another. One row per
// ordered pair; re-swiping overwrites it.
type Swipe struct {
	ID        string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SwiperID  string      `json:"swiper_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_swipe_pair,priority:1"`
	TargetID  string      `json:"target_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_swipe_pair,priority:2;check:chk_swipe_not_self,swiper_id <> target_id"`
	Action    SwipeAction `json:"action" gorm:"type:varchar(16);not null"`
	CreatedAt time.Time   `json:"created_at" gorm:"not null"`
}

func (s *Swipe) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Match is an undirected pairing. User1ID is always the lexicographically
// smaller id so that both directions share one row.
type Match struct {
	ID              string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	User1ID         string      `json:"user1_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_match_pair,priority:1"`
	User2ID         string      `json:"user2_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_match_pair,priority:2;index;check:chk_match_canonical,user1_id < user2_id"`
	Status          MatchStatus `json:"status" gorm:"type:varchar(16);not null"`
	UnmatchedBy     *string     `json:"unmatched_by" gorm:"type:varchar(64)"`
	MatchedAt       time.Time   `json:"matched_at" gorm:"not null"`
	LastInteraction time.Time   `json:"last_interaction" gorm:"not null"`
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Involves reports whether userID is one of the two participants.
func (m *Match) Involves(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// Counterpart returns the participant that is not userID.
func (m *Match) Counterpart(userID string) string {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// CanonicalPair orders two user ids so an unordered pair has one key.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
