package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"findr-server/internal/config"
	"findr-server/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventsChannel is the redis channel carrying realtime events to every
// websocket hub instance.
const EventsChannel = "findr:events"

type MatchEvent struct {
	Type      string    `json:"type"`
	MatchID   string    `json:"match_id"`
	UserIDs   []string  `json:"user_ids"`
	MatchedAt time.Time `json:"matched_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

type PushSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Notifier announces new matches over redis pub/sub and FCM push. Either
// transport may be nil. Failures are logged and never reach the swipe caller.
type Notifier struct {
	db        *gorm.DB
	publisher EventPublisher
	push      PushSender
}

func NewNotifier(db *gorm.DB, publisher EventPublisher, push PushSender) *Notifier {
	return &Notifier{db: db, publisher: publisher, push: push}
}

func NewFirebaseMessaging(ctx context.Context, cfg *config.Config) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID},
		option.WithCredentialsFile(cfg.FirebasePrivateKeyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return client, nil
}

func (n *Notifier) NotifyMatch(ctx context.Context, match *models.Match) {
	log := logrus.WithField("match_id", match.ID)

	if n.publisher != nil {
		payload, err := json.Marshal(MatchEvent{
			Type:      "match",
			MatchID:   match.ID,
			UserIDs:   []string{match.User1ID, match.User2ID},
			MatchedAt: match.MatchedAt,
		})
		if err == nil {
			err = n.publisher.Publish(ctx, EventsChannel, payload)
		}
		if err != nil {
			log.WithError(err).Warn("Failed to publish match event")
		}
	}

	if n.push != nil {
		for _, userID := range []string{match.User1ID, match.User2ID} {
			if err := n.pushMatch(ctx, match, userID); err != nil {
				log.WithError(err).WithField("user_id", userID).Warn("Failed to send match push")
			}
		}
	}
}

func (n *Notifier) pushMatch(ctx context.Context, match *models.Match, userID string) error {
	var devices []models.DeviceToken
	if err := n.db.WithContext(ctx).Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.Token)
	}

	resp, err := n.push.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: "New Match!",
			Body:  "You have a new co-founder match. Say hi!",
		},
		Data: map[string]string{
			"type":            "match",
			"match_id":        match.ID,
			"matched_user_id": match.Counterpart(userID),
		},
	})
	if err != nil {
		return err
	}

	var stale []string
	for i, r := range resp.Responses {
		if !r.Success && messaging.IsUnregistered(r.Error) {
			stale = append(stale, tokens[i])
		}
	}
	if len(stale) > 0 {
		return n.db.WithContext(ctx).Where("token IN ?", stale).Delete(&models.DeviceToken{}).Error
	}
	return nil
}

// RegisterDevice stores a push token for the user. A token moves to the
// latest user that registers it.
func (n *Notifier) RegisterDevice(ctx context.Context, userID, token, platform string) (*models.DeviceToken, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}
	if token == "" {
		return nil, fmt.Errorf("%w: device token is required", ErrValidation)
	}
	switch platform {
	case "ios", "android", "web":
	default:
		return nil, fmt.Errorf("%w: unknown platform %q", ErrValidation, platform)
	}

	device := models.DeviceToken{UserID: userID, Token: token, Platform: platform}
	err := n.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}).Create(&device).Error
	if err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}

	var stored models.DeviceToken
	if err := n.db.WithContext(ctx).Where("token = ?", token).Take(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}
	return &stored, nil
}
