package postcard

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// CommentEntry is one visible row in a post card's comment list. Pending
// entries carry a client-fabricated temporary ID until the server responds.
type CommentEntry struct {
	ID           string `json:"id"`
	PostID       string `json:"post_id"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	ArtistName   string `json:"artist_name,omitempty"`
	Content      string `json:"content"`
	ParentID     string `json:"parent_id,omitempty"`
	MemeImageURL string `json:"meme_image_url,omitempty"`
	Pending      bool   `json:"pending"`
	CreatedAt    time.Time
}

var tempSeq atomic.Int64

// tempID fabricates a locally-unique comment ID for a pending entry
func tempID() string {
	return fmt.Sprintf("temp-%d-%d", time.Now().UnixMilli(), tempSeq.Add(1))
}

// CommentThread holds the visible comment list for one post card.
// Entries appear immediately when submitted and are reconciled against
// the server response by temporary ID. All methods are safe for
// concurrent use.
type CommentThread struct {
	mu      sync.Mutex
	entries []CommentEntry
}

// NewCommentThread builds a thread seeded with server-loaded comments
func NewCommentThread(loaded []CommentEntry) *CommentThread {
	t := &CommentThread{}
	t.entries = append(t.entries, loaded...)
	return t
}

// Entries returns a copy of the visible list in display order
func (t *CommentThread) Entries() []CommentEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]CommentEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of visible entries
func (t *CommentThread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// AppendPending adds a locally-fabricated comment to the visible list
// before the network call resolves, and returns its temporary ID.
func (t *CommentThread) AppendPending(entry CommentEntry) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry.ID = tempID()
	entry.Pending = true
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	t.entries = append(t.entries, entry)
	return entry.ID
}

// Resolve replaces the pending entry matching tempID with the
// server-returned comment. Returns false if no pending entry matches,
// which happens when the entry was already removed or resolved.
func (t *CommentThread) Resolve(tempID string, confirmed CommentEntry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].ID == tempID && t.entries[i].Pending {
			confirmed.Pending = false
			t.entries[i] = confirmed
			return true
		}
	}
	return false
}

// Fail removes the pending entry matching tempID from the visible list,
// restoring the thread to its pre-submission contents. Returns false if
// no pending entry matches.
func (t *CommentThread) Fail(tempID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].ID == tempID && t.entries[i].Pending {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Append adds a server-confirmed comment directly, used for comments
// arriving over the WebSocket from other users.
func (t *CommentThread) Append(entry CommentEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry.Pending = false
	t.entries = append(t.entries, entry)
}
