package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"findr-server/internal/metrics"
	"findr-server/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SwipeResult struct {
	Success bool   `json:"success"`
	IsMatch bool   `json:"is_match"`
	MatchID string `json:"match_id,omitempty"`
}

// MatchNotifier is told about newly created matches once they are committed.
type MatchNotifier interface {
	NotifyMatch(ctx context.Context, match *models.Match)
}

// SwipeLedger keeps exactly one current action per (swiper, target) pair.
type SwipeLedger struct {
	now func() time.Time
}

func NewSwipeLedger() *SwipeLedger {
	return &SwipeLedger{now: time.Now}
}

// RecordSwipe upserts the actor's action on target using db, which may be a
// transaction. A repeated swipe replaces the action and refreshes the timestamp.
func (l *SwipeLedger) RecordSwipe(ctx context.Context, db *gorm.DB, actorID, targetID string, action models.SwipeAction) (*models.Swipe, error) {
	if err := validateSwipe(actorID, targetID, action); err != nil {
		return nil, err
	}

	swipe := models.Swipe{
		SwiperID:  actorID,
		TargetID:  targetID,
		Action:    action,
		CreatedAt: l.now(),
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "swiper_id"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"action", "created_at"}),
	}).Create(&swipe).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record swipe: %w", err)
	}

	var stored models.Swipe
	if err := db.WithContext(ctx).
		Where("swiper_id = ? AND target_id = ?", actorID, targetID).
		Take(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to load swipe: %w", err)
	}

	return &stored, nil
}

// MatchResolver records swipes and turns mutual likes into matches.
type MatchResolver struct {
	db       *gorm.DB
	ledger   *SwipeLedger
	notifier MatchNotifier
	now      func() time.Time
}

func NewMatchResolver(db *gorm.DB, ledger *SwipeLedger, notifier MatchNotifier) *MatchResolver {
	return &MatchResolver{
		db:       db,
		ledger:   ledger,
		notifier: notifier,
		now:      time.Now,
	}
}

// EvaluateSwipe persists the swipe and reports whether it completed a match.
// The swipe write and the match check share one transaction, serialized per
// pair by locking both user rows first.
func (r *MatchResolver) EvaluateSwipe(ctx context.Context, actorID, targetID string, action models.SwipeAction) (*SwipeResult, error) {
	if err := validateSwipe(actorID, targetID, action); err != nil {
		return nil, err
	}
	if err := r.requireUser(ctx, targetID); err != nil {
		return nil, err
	}

	result := &SwipeResult{}
	var created *models.Match

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, actorID, targetID); err != nil {
			return err
		}

		if _, err := r.ledger.RecordSwipe(ctx, tx, actorID, targetID, action); err != nil {
			return err
		}

		if !action.Positive() {
			return nil
		}

		reciprocal, err := hasPositiveSwipe(tx, targetID, actorID)
		if err != nil || !reciprocal {
			return err
		}

		match, isNew, err := r.resolveMatch(tx, actorID, targetID)
		if err != nil {
			return err
		}

		// Unmatched pairs stay unmatched; re-liking does not revive them.
		if match.Status != models.MatchActive {
			return nil
		}

		result.IsMatch = true
		result.MatchID = match.ID
		if isNew {
			created = match
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Success = true
	metrics.SwipesTotal.WithLabelValues(string(action)).Inc()

	if created != nil {
		metrics.MatchesTotal.Inc()
		logrus.WithFields(logrus.Fields{
			"match_id": created.ID,
			"user1_id": created.User1ID,
			"user2_id": created.User2ID,
		}).Info("Match created")

		if r.notifier != nil {
			go r.notifier.NotifyMatch(context.WithoutCancel(ctx), created)
		}
	}

	return result, nil
}

// lockPair takes row locks on both users in canonical order so reciprocal
// swipes on the same pair run one after the other and the later one sees the
// earlier swipe once it commits.
func lockPair(tx *gorm.DB, a, b string) error {
	// SQLite has no row locks and already serializes writers.
	if tx.Dialector.Name() == "sqlite" {
		return nil
	}
	if err := lockPairQuery(tx, a, b).Error; err != nil {
		return fmt.Errorf("failed to lock swipe pair: %w", err)
	}
	return nil
}

func lockPairQuery(tx *gorm.DB, a, b string) *gorm.DB {
	user1ID, user2ID := models.CanonicalPair(a, b)
	var users []models.User
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id IN ?", []string{user1ID, user2ID}).
		Order("id").
		Find(&users)
}

func (r *MatchResolver) requireUser(ctx context.Context, userID string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return nil
}

// resolveMatch returns the match for the pair, creating it when absent. The
// bool is true only when this call inserted the row.
func (r *MatchResolver) resolveMatch(tx *gorm.DB, a, b string) (*models.Match, bool, error) {
	user1ID, user2ID := models.CanonicalPair(a, b)

	existing, err := findMatchByPair(tx, user1ID, user2ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up match: %w", err)
	}

	return r.insertMatch(tx, user1ID, user2ID)
}

// insertMatch creates an active match for a canonical pair. When a concurrent
// request inserted the same pair first, the winner's row is returned instead.
func (r *MatchResolver) insertMatch(tx *gorm.DB, user1ID, user2ID string) (*models.Match, bool, error) {
	now := r.now()
	match := models.Match{
		User1ID:         user1ID,
		User2ID:         user2ID,
		Status:          models.MatchActive,
		MatchedAt:       now,
		LastInteraction: now,
	}

	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
		DoNothing: true,
	}).Create(&match)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create match: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		winner, err := findMatchByPair(tx, user1ID, user2ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to reload concurrent match: %w", err)
		}
		logrus.WithField("match_id", winner.ID).Debug("Match insert lost race, using existing row")
		return winner, false, nil
	}

	return &match, true, nil
}

func findMatchByPair(db *gorm.DB, user1ID, user2ID string) (*models.Match, error) {
	var match models.Match
	if err := db.Where("user1_id = ? AND user2_id = ?", user1ID, user2ID).Take(&match).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

func hasPositiveSwipe(db *gorm.DB, swiperID, targetID string) (bool, error) {
	var count int64
	err := db.Model(&models.Swipe{}).
		Where("swiper_id = ? AND target_id = ? AND action IN ?", swiperID, targetID,
			[]string{string(models.SwipeLike), string(models.SwipeSuperLike)}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check reciprocal swipe: %w", err)
	}
	return count > 0, nil
}

func validateSwipe(actorID, targetID string, action models.SwipeAction) error {
	if actorID == "" {
		return ErrAuthenticationRequired
	}
	if targetID == "" {
		return fmt.Errorf("%w: target user is required", ErrValidation)
	}
	if actorID == targetID {
		return fmt.Errorf("%w: cannot swipe on yourself", ErrInvalidOperation)
	}
	if !action.Valid() {
		return fmt.Errorf("%w: unknown swipe action %q", ErrValidation, action)
	}
	return nil
}
