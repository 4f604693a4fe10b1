package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"findr-server/internal/models"
	"findr-server/internal/testutil"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{channel: channel, payload: message.([]byte)})
	return nil
}

type fakePush struct {
	mu       sync.Mutex
	messages []*messaging.MulticastMessage
}

func (f *fakePush) SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)

	resp := &messaging.BatchResponse{}
	for range message.Tokens {
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true})
		resp.SuccessCount++
	}
	return resp, nil
}

func TestNotifyMatchPublishesEvent(t *testing.T) {
	db := testutil.NewDB(t)
	pub := &fakePublisher{}
	n := NewNotifier(db, pub, nil)

	matchedAt := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	n.NotifyMatch(context.Background(), &models.Match{ID: "m1", User1ID: "alice", User2ID: "bob", MatchedAt: matchedAt})

	require.Len(t, pub.sent, 1)
	assert.Equal(t, EventsChannel, pub.sent[0].channel)

	var event MatchEvent
	require.NoError(t, json.Unmarshal(pub.sent[0].payload, &event))
	assert.Equal(t, "match", event.Type)
	assert.Equal(t, "m1", event.MatchID)
	assert.Equal(t, []string{"alice", "bob"}, event.UserIDs)
	assert.True(t, event.MatchedAt.Equal(matchedAt))
}

func TestNotifyMatchSendsPushToBothUsers(t *testing.T) {
	db := testutil.NewDB(t)
	push := &fakePush{}
	n := NewNotifier(db, &fakePublisher{err: errors.New("redis down")}, push)
	ctx := context.Background()

	_, err := n.RegisterDevice(ctx, "alice", "tok-a1", "ios")
	require.NoError(t, err)
	_, err = n.RegisterDevice(ctx, "alice", "tok-a2", "web")
	require.NoError(t, err)
	_, err = n.RegisterDevice(ctx, "bob", "tok-b", "android")
	require.NoError(t, err)

	// publish failure must not stop the pushes
	n.NotifyMatch(ctx, &models.Match{ID: "m1", User1ID: "alice", User2ID: "bob"})

	require.Len(t, push.messages, 2)
	byUser := map[string]*messaging.MulticastMessage{}
	for _, m := range push.messages {
		byUser[m.Data["matched_user_id"]] = m
	}

	toAlice := byUser["bob"]
	require.NotNil(t, toAlice)
	assert.ElementsMatch(t, []string{"tok-a1", "tok-a2"}, toAlice.Tokens)
	assert.Equal(t, "m1", toAlice.Data["match_id"])
	assert.Equal(t, "match", toAlice.Data["type"])

	toBob := byUser["alice"]
	require.NotNil(t, toBob)
	assert.Equal(t, []string{"tok-b"}, toBob.Tokens)
}

func TestNotifyMatchSkipsUsersWithoutDevices(t *testing.T) {
	db := testutil.NewDB(t)
	push := &fakePush{}
	n := NewNotifier(db, nil, push)

	n.NotifyMatch(context.Background(), &models.Match{ID: "m1", User1ID: "alice", User2ID: "bob"})
	assert.Empty(t, push.messages)
}

func TestRegisterDevice(t *testing.T) {
	db := testutil.NewDB(t)
	n := NewNotifier(db, nil, nil)
	ctx := context.Background()

	device, err := n.RegisterDevice(ctx, "alice", "tok", "ios")
	require.NoError(t, err)
	assert.Equal(t, "alice", device.UserID)
	assert.NotEmpty(t, device.ID)

	// re-registering the same token moves it to the new user
	moved, err := n.RegisterDevice(ctx, "bob", "tok", "android")
	require.NoError(t, err)
	assert.Equal(t, device.ID, moved.ID)
	assert.Equal(t, "bob", moved.UserID)
	assert.Equal(t, "android", moved.Platform)

	var count int64
	require.NoError(t, db.Model(&models.DeviceToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = n.RegisterDevice(ctx, "alice", "tok2", "blackberry")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = n.RegisterDevice(ctx, "alice", "", "ios")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = n.RegisterDevice(ctx, "", "tok3", "ios")
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
}
