package models

import (
	"time"

	"gorm.io/gorm"
)

// ReactionType is the fixed set of reactions a user can put on a post
type ReactionType string

const (
	ReactionHeart    ReactionType = "heart"
	ReactionLike     ReactionType = "like"
	ReactionDislike  ReactionType = "dislike"
	ReactionLaugh    ReactionType = "laugh"
	ReactionSmile    ReactionType = "smile"
	ReactionSurprise ReactionType = "surprise"
	ReactionExplode  ReactionType = "explode"
)

// AllReactionTypes lists every valid reaction type, in response-map order
var AllReactionTypes = []ReactionType{
	ReactionHeart,
	ReactionLike,
	ReactionDislike,
	ReactionLaugh,
	ReactionSmile,
	ReactionSurprise,
	ReactionExplode,
}

// IsValid reports whether t is one of the known reaction types
func (t ReactionType) IsValid() bool {
	for _, known := range AllReactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Reaction represents a single user's reaction to a post.
// The composite unique index enforces at most one row per (post, user) pair;
// changing the reaction replaces Type rather than adding a row.
type Reaction struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PostID string `gorm:"not null;uniqueIndex:idx_reactions_post_user" json:"post_id"`
	Post   Post   `gorm:"foreignKey:PostID" json:"-"`
	UserID string `gorm:"not null;uniqueIndex:idx_reactions_post_user" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Type ReactionType `gorm:"type:varchar(16);not null" json:"type"`

	// GORM fields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

// EmptyReactionCounts returns a count map with every reaction type present at zero.
// Handlers fill it in from grouped queries so responses always carry all 7 keys.
func EmptyReactionCounts() map[ReactionType]int {
	counts := make(map[ReactionType]int, len(AllReactionTypes))
	for _, t := range AllReactionTypes {
		counts[t] = 0
	}
	return counts
}
