package services

import (
	"context"
	"testing"
	"time"

	"findr-server/internal/models"
	"findr-server/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createMatch(t *testing.T, db *gorm.DB, a, b string, matchedAt time.Time, status models.MatchStatus) *models.Match {
	t.Helper()
	user1, user2 := models.CanonicalPair(a, b)
	m := &models.Match{
		User1ID:         user1,
		User2ID:         user2,
		Status:          status,
		MatchedAt:       matchedAt,
		LastInteraction: matchedAt,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func TestListMatchesActiveNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateProfile(t, db, "alice")
	testutil.CreateProfile(t, db, "bob")
	testutil.CreateProfile(t, db, "carol")
	testutil.CreateUser(t, db, "dave") // no profile
	testutil.CreateProfile(t, db, "erin")

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	older := createMatch(t, db, "alice", "bob", base, models.MatchActive)
	newer := createMatch(t, db, "carol", "alice", base.Add(time.Hour), models.MatchActive)
	noProfile := createMatch(t, db, "alice", "dave", base.Add(-time.Hour), models.MatchActive)
	createMatch(t, db, "alice", "erin", base.Add(2*time.Hour), models.MatchUnmatched)
	createMatch(t, db, "bob", "carol", base.Add(3*time.Hour), models.MatchActive)

	got, err := NewMatchDirectory(db).ListMatches(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, "carol", got[0].MatchedUser.ID)
	require.NotNil(t, got[0].MatchedProfile)
	assert.Equal(t, "carol", got[0].MatchedProfile.UserID)

	assert.Equal(t, older.ID, got[1].ID)
	assert.Equal(t, "bob", got[1].MatchedUser.ID)

	assert.Equal(t, noProfile.ID, got[2].ID)
	assert.Equal(t, "dave", got[2].MatchedUser.ID)
	assert.Nil(t, got[2].MatchedProfile)
}

func TestListMatchesEmpty(t *testing.T) {
	db := testutil.NewDB(t)

	got, err := NewMatchDirectory(db).ListMatches(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = NewMatchDirectory(db).ListMatches(context.Background(), "")
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
}

func TestUnmatch(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateProfile(t, db, "alice")
	testutil.CreateProfile(t, db, "bob")
	match := createMatch(t, db, "alice", "bob", time.Now(), models.MatchActive)
	dir := NewMatchDirectory(db)
	ctx := context.Background()

	err := dir.Unmatch(ctx, match.ID, "mallory")
	assert.ErrorIs(t, err, ErrInvalidOperation)

	err = dir.Unmatch(ctx, "missing", "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, dir.Unmatch(ctx, match.ID, "bob"))

	var stored models.Match
	require.NoError(t, db.Take(&stored, "id = ?", match.ID).Error)
	assert.Equal(t, models.MatchUnmatched, stored.Status)
	require.NotNil(t, stored.UnmatchedBy)
	assert.Equal(t, "bob", *stored.UnmatchedBy)

	listed, err := dir.ListMatches(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, listed)

	// second unmatch is a no-op that keeps the original actor
	require.NoError(t, dir.Unmatch(ctx, match.ID, "alice"))
	require.NoError(t, db.Take(&stored, "id = ?", match.ID).Error)
	assert.Equal(t, "bob", *stored.UnmatchedBy)
}

func TestAliceAndBobScenario(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateProfile(t, db, "alice")
	testutil.CreateProfile(t, db, "bob")
	resolver := NewMatchResolver(db, NewSwipeLedger(), nil)
	dir := NewMatchDirectory(db)
	ctx := context.Background()

	_, err := resolver.EvaluateSwipe(ctx, "alice", "bob", models.SwipeLike)
	require.NoError(t, err)
	res, err := resolver.EvaluateSwipe(ctx, "bob", "alice", models.SwipeLike)
	require.NoError(t, err)
	require.True(t, res.IsMatch)

	for _, user := range []string{"alice", "bob"} {
		matches, err := dir.ListMatches(ctx, user)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, res.MatchID, matches[0].ID)
	}
}
