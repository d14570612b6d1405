package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringArray maps a Postgres text[] column. The wire format is
// "{a,b,c}"; values containing commas or quotes are not handled, which is
// fine for genre slugs.
type StringArray []string

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	var str string
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		*a = nil
		return nil
	}

	str = strings.TrimSuffix(strings.TrimPrefix(str, "{"), "}")
	if str == "" {
		*a = []string{}
		return nil
	}
	*a = strings.Split(str, ",")
	return nil
}

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// User represents a TheCueRoom artist account
type User struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Email      string `gorm:"uniqueIndex;not null" json:"email"`
	Username   string `gorm:"uniqueIndex;not null" json:"username"`
	ArtistName string `gorm:"not null" json:"artist_name"`
	Bio        string `gorm:"type:text" json:"bio"`
	City       string `gorm:"type:text" json:"city"`

	// Native auth fields
	PasswordHash *string `gorm:"type:text" json:"-"`

	// Profile data
	AvatarURL string      `json:"avatar_url"`
	Genres    StringArray `gorm:"type:text[]" json:"genres"`

	// Verification and moderation flags - consumed by handlers, mutated by admins only
	IsVerified  bool `gorm:"default:false" json:"is_verified"`
	IsSuspended bool `gorm:"default:false" json:"is_suspended"`
	IsAdmin     bool `gorm:"default:false" json:"is_admin"`

	// Cached activity stats
	PostCount    int        `gorm:"default:0" json:"post_count"`
	LastActiveAt *time.Time `json:"last_active_at"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuthorInfo is the minimal author projection merged into comment/post responses
type AuthorInfo struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	ArtistName string `json:"artist_name"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

// Author returns the display projection of a user
func (u *User) Author() AuthorInfo {
	return AuthorInfo{
		ID:         u.ID,
		Username:   u.Username,
		ArtistName: u.ArtistName,
		AvatarURL:  u.AvatarURL,
		IsVerified: u.IsVerified,
	}
}

// BeforeCreate hooks for GORM
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}
