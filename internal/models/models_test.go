package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("bob", "alice")
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	a, b = CanonicalPair("alice", "bob")
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)
}

func TestMatchCounterpart(t *testing.T) {
	m := &Match{User1ID: "alice", User2ID: "bob"}

	assert.Equal(t, "bob", m.Counterpart("alice"))
	assert.Equal(t, "alice", m.Counterpart("bob"))
	assert.True(t, m.Involves("bob"))
	assert.False(t, m.Involves("carol"))
}

func TestSwipeAction(t *testing.T) {
	assert.True(t, SwipeLike.Positive())
	assert.True(t, SwipeSuperLike.Positive())
	assert.False(t, SwipePass.Positive())
	assert.False(t, SwipeAction("maybe").Valid())
}

func TestStringListScan(t *testing.T) {
	var l StringList

	require.NoError(t, l.Scan([]byte(`["go","rust"]`)))
	assert.Equal(t, StringList{"go", "rust"}, l)

	require.NoError(t, l.Scan(`null`))
	assert.Equal(t, StringList{}, l)

	require.NoError(t, l.Scan(nil))
	assert.Equal(t, StringList{}, l)

	assert.Error(t, l.Scan(42))
}

func TestStringListValueNil(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}
