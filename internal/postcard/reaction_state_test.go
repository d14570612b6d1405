package postcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thecueroom/backend/internal/models"
)

func TestApplyFirstReaction(t *testing.T) {
	state := NewReactionState("", nil)

	_, toggledOff := state.Apply(models.ReactionLaugh)

	assert.False(t, toggledOff)
	assert.Equal(t, models.ReactionLaugh, state.Current())
	assert.Equal(t, 1, state.Counts()[models.ReactionLaugh])
	for _, other := range models.AllReactionTypes {
		if other != models.ReactionLaugh {
			assert.Equal(t, 0, state.Counts()[other])
		}
	}
}

func TestApplyToggleOff(t *testing.T) {
	state := NewReactionState(models.ReactionLaugh, map[models.ReactionType]int{
		models.ReactionLaugh: 1,
	})

	_, toggledOff := state.Apply(models.ReactionLaugh)

	assert.True(t, toggledOff)
	assert.Equal(t, models.ReactionType(""), state.Current())
	assert.Equal(t, 0, state.Counts()[models.ReactionLaugh])
}

func TestApplySwapMovesCount(t *testing.T) {
	state := NewReactionState(models.ReactionHeart, map[models.ReactionType]int{
		models.ReactionHeart: 1,
	})

	_, toggledOff := state.Apply(models.ReactionLike)

	assert.False(t, toggledOff)
	assert.Equal(t, models.ReactionLike, state.Current())
	assert.Equal(t, 0, state.Counts()[models.ReactionHeart])
	assert.Equal(t, 1, state.Counts()[models.ReactionLike])
}

func TestApplyCountsNeverGoNegative(t *testing.T) {
	// Inconsistent server data: user has a reaction but its count is zero
	state := NewReactionState(models.ReactionHeart, map[models.ReactionType]int{
		models.ReactionHeart: 0,
	})

	state.Apply(models.ReactionLike)

	assert.Equal(t, 0, state.Counts()[models.ReactionHeart])
	assert.Equal(t, 1, state.Counts()[models.ReactionLike])
}

func TestRollbackRestoresExactState(t *testing.T) {
	state := NewReactionState(models.ReactionHeart, map[models.ReactionType]int{
		models.ReactionHeart: 1,
		models.ReactionLike:  4,
	})

	snap, _ := state.Apply(models.ReactionLike)
	assert.Equal(t, models.ReactionLike, state.Current())
	assert.Equal(t, 0, state.Counts()[models.ReactionHeart])
	assert.Equal(t, 5, state.Counts()[models.ReactionLike])

	state.Rollback(snap)

	assert.Equal(t, models.ReactionHeart, state.Current())
	assert.Equal(t, 1, state.Counts()[models.ReactionHeart])
	assert.Equal(t, 4, state.Counts()[models.ReactionLike])
}

func TestRollbackAfterToggleOff(t *testing.T) {
	state := NewReactionState(models.ReactionExplode, map[models.ReactionType]int{
		models.ReactionExplode: 7,
	})

	snap, toggledOff := state.Apply(models.ReactionExplode)
	assert.True(t, toggledOff)
	assert.Equal(t, 6, state.Counts()[models.ReactionExplode])

	state.Rollback(snap)

	assert.Equal(t, models.ReactionExplode, state.Current())
	assert.Equal(t, 7, state.Counts()[models.ReactionExplode])
}

func TestConfirmReplacesLocalGuess(t *testing.T) {
	state := NewReactionState("", nil)
	state.Apply(models.ReactionSmile)

	// Server says someone else reacted meanwhile
	state.Confirm(models.ReactionSmile, map[models.ReactionType]int{
		models.ReactionSmile: 2,
		models.ReactionHeart: 1,
	})

	assert.Equal(t, models.ReactionSmile, state.Current())
	assert.Equal(t, 2, state.Counts()[models.ReactionSmile])
	assert.Equal(t, 1, state.Counts()[models.ReactionHeart])
	// Unmentioned types stay present at zero
	assert.Equal(t, 0, state.Counts()[models.ReactionDislike])
}

func TestSnapshotIsIsolatedFromLaterMutations(t *testing.T) {
	state := NewReactionState("", map[models.ReactionType]int{
		models.ReactionHeart: 3,
	})

	snap, _ := state.Apply(models.ReactionHeart)
	state.Apply(models.ReactionLike)
	state.Apply(models.ReactionSurprise)

	// The first snapshot still holds the original values
	assert.Equal(t, models.ReactionType(""), snap.CurrentReaction)
	assert.Equal(t, 3, snap.Counts[models.ReactionHeart])
}

func TestEndToEndToggleSequence(t *testing.T) {
	// No prior reaction, all counts zero
	state := NewReactionState("", nil)

	// Click "laugh"
	snap, toggledOff := state.Apply(models.ReactionLaugh)
	assert.False(t, toggledOff)
	assert.Equal(t, models.ReactionLaugh, state.Current())
	assert.Equal(t, 1, state.Counts()[models.ReactionLaugh])
	_ = snap

	// Server confirms the guess
	state.Confirm(models.ReactionLaugh, map[models.ReactionType]int{
		models.ReactionLaugh: 1,
	})
	assert.Equal(t, models.ReactionLaugh, state.Current())
	assert.Equal(t, 1, state.Counts()[models.ReactionLaugh])

	// Click "laugh" again: toggle off
	_, toggledOff = state.Apply(models.ReactionLaugh)
	assert.True(t, toggledOff)
	assert.Equal(t, models.ReactionType(""), state.Current())
	assert.Equal(t, 0, state.Counts()[models.ReactionLaugh])
}
