// Package postcard implements the client-side state for a single post card:
// optimistic reaction transitions, pending comment reconciliation, and the
// auto-reply mention bot. Server responses are authoritative; everything
// here is a local guess that gets confirmed or rolled back.
package postcard

import (
	"sync"

	"github.com/thecueroom/backend/internal/models"
)

// ReactionState holds the local reaction view of one post.
// All methods are safe for concurrent use.
type ReactionState struct {
	mu              sync.Mutex
	currentReaction models.ReactionType // "" means no reaction
	counts          map[models.ReactionType]int
}

// Snapshot is a rollback point captured before an optimistic transition
type Snapshot struct {
	CurrentReaction models.ReactionType
	Counts          map[models.ReactionType]int
}

// NewReactionState builds state from server-provided counts and the
// caller's current reaction. Missing types are filled in at zero.
func NewReactionState(current models.ReactionType, counts map[models.ReactionType]int) *ReactionState {
	s := &ReactionState{
		currentReaction: current,
		counts:          models.EmptyReactionCounts(),
	}
	for t, n := range counts {
		s.counts[t] = n
	}
	return s
}

// Current returns the user's current reaction, or "" for none
func (s *ReactionState) Current() models.ReactionType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentReaction
}

// Counts returns a copy of the local count map
func (s *ReactionState) Counts() map[models.ReactionType]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCounts(s.counts)
}

// Apply performs the optimistic transition for selecting reaction r and
// returns the rollback snapshot plus whether the selection toggled the
// reaction off (meaning the caller should issue a DELETE, not a POST).
//
// Selecting the current reaction clears it and decrements its count.
// Selecting a different reaction moves the count from the old type to
// the new one. Counts never go below zero.
func (s *ReactionState) Apply(r models.ReactionType) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		CurrentReaction: s.currentReaction,
		Counts:          copyCounts(s.counts),
	}

	if s.currentReaction == r {
		// Toggle off
		s.decrement(r)
		s.currentReaction = ""
		return snap, true
	}

	if s.currentReaction != "" {
		s.decrement(s.currentReaction)
	}
	s.counts[r]++
	s.currentReaction = r
	return snap, false
}

// Confirm replaces local state with the server's authoritative counts and
// reaction. The optimistic guess is discarded entirely, even if it agreed.
func (s *ReactionState) Confirm(serverReaction models.ReactionType, serverCounts map[models.ReactionType]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentReaction = serverReaction
	s.counts = models.EmptyReactionCounts()
	for t, n := range serverCounts {
		s.counts[t] = n
	}
}

// Rollback restores the state captured before a failed transition.
// The restore is exact: whatever happened in between is overwritten.
func (s *ReactionState) Rollback(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentReaction = snap.CurrentReaction
	s.counts = copyCounts(snap.Counts)
}

// decrement lowers a count with a floor of zero. Caller holds s.mu.
func (s *ReactionState) decrement(r models.ReactionType) {
	if s.counts[r] > 0 {
		s.counts[r]--
	}
}

func copyCounts(src map[models.ReactionType]int) map[models.ReactionType]int {
	dst := make(map[models.ReactionType]int, len(src))
	for t, n := range src {
		dst[t] = n
	}
	return dst
}
