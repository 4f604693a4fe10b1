package services

import (
	"context"
	"errors"
	"fmt"

	"findr-server/internal/metrics"
	"findr-server/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type MatchWithUser struct {
	models.Match
	MatchedUser    models.UserSummary `json:"matched_user"`
	MatchedProfile *models.Profile    `json:"matched_profile"`
}

// MatchDirectory serves a user's active matches and the unmatch transition.
type MatchDirectory struct {
	db *gorm.DB
}

func NewMatchDirectory(db *gorm.DB) *MatchDirectory {
	return &MatchDirectory{db: db}
}

// ListMatches returns the user's active matches, newest first, each with the
// counterpart's user summary and profile (nil when the counterpart has none).
func (d *MatchDirectory) ListMatches(ctx context.Context, userID string) ([]MatchWithUser, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}

	db := d.db.WithContext(ctx)

	var matches []models.Match
	if err := db.
		Where("status = ? AND (user1_id = ? OR user2_id = ?)", models.MatchActive, userID, userID).
		Order("matched_at DESC").
		Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch matches: %w", err)
	}
	if len(matches) == 0 {
		return []MatchWithUser{}, nil
	}

	counterpartIDs := make([]string, 0, len(matches))
	for i := range matches {
		counterpartIDs = append(counterpartIDs, matches[i].Counterpart(userID))
	}

	var users []models.User
	if err := db.Where("id IN ?", counterpartIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch matched users: %w", err)
	}
	usersByID := make(map[string]models.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	var profiles []models.Profile
	if err := db.Where("user_id IN ?", counterpartIDs).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch matched profiles: %w", err)
	}
	profilesByUser := make(map[string]*models.Profile, len(profiles))
	for i := range profiles {
		profilesByUser[profiles[i].UserID] = &profiles[i]
	}

	out := make([]MatchWithUser, 0, len(matches))
	for _, m := range matches {
		otherID := m.Counterpart(userID)
		summary := models.UserSummary{ID: otherID}
		if u, ok := usersByID[otherID]; ok {
			summary = u.Summary()
		}
		out = append(out, MatchWithUser{
			Match:          m,
			MatchedUser:    summary,
			MatchedProfile: profilesByUser[otherID],
		})
	}
	return out, nil
}

// Unmatch ends a match on behalf of one of its participants. Unmatching an
// already unmatched match succeeds without changing who ended it.
func (d *MatchDirectory) Unmatch(ctx context.Context, matchID, userID string) error {
	if userID == "" {
		return ErrAuthenticationRequired
	}

	var match models.Match
	if err := d.db.WithContext(ctx).Where("id = ?", matchID).Take(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return fmt.Errorf("failed to fetch match: %w", err)
	}

	if !match.Involves(userID) {
		return fmt.Errorf("%w: not a participant of this match", ErrInvalidOperation)
	}

	if match.Status == models.MatchUnmatched {
		return nil
	}

	res := d.db.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND status = ?", matchID, models.MatchActive).
		Updates(map[string]interface{}{
			"status":       models.MatchUnmatched,
			"unmatched_by": userID,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to unmatch: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		metrics.UnmatchesTotal.Inc()
		logrus.WithFields(logrus.Fields{
			"match_id": matchID,
			"user_id":  userID,
		}).Info("Match ended")
	}
	return nil
}
