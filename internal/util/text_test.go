package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "single mention",
			content:  "Hey @producer nice loop!",
			expected: []string{"producer"},
		},
		{
			name:     "multiple mentions",
			content:  "@user1 and @user2 should check this out",
			expected: []string{"user1", "user2"},
		},
		{
			name:     "mention with punctuation",
			content:  "Thanks @beatmaker! You're awesome @musician.",
			expected: []string{"beatmaker", "musician"},
		},
		{
			name:     "duplicate mentions deduplicated",
			content:  "Hey @user1 what do you think @user1?",
			expected: []string{"user1"},
		},
		{
			name:     "no mentions",
			content:  "This is a regular comment",
			expected: []string(nil),
		},
		{
			name:     "at symbol alone",
			content:  "Email me @ my email",
			expected: []string(nil),
		},
		{
			name:     "mention at start",
			content:  "@firstuser hello!",
			expected: []string{"firstuser"},
		},
		{
			name:     "case insensitive",
			content:  "@UPPERCASE and @lowercase",
			expected: []string{"uppercase", "lowercase"},
		},
		{
			name:     "username too short",
			content:  "@ab is too short, @abc is ok",
			expected: []string{"abc"},
		},
		{
			name:     "mention with underscores and hyphens",
			content:  "Check out @beat_maker-2024 style",
			expected: []string{"beat_maker-2024"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ExtractMentions(tc.content)
			assert.Equal(t, tc.expected, result)
		})
	}
}
