package util

import "strings"

const (
	mentionMinLen = 3
	mentionMaxLen = 30
)

// ExtractMentions pulls @username tokens out of comment text. Usernames
// come back lowercased, deduplicated, without the @, and with trailing
// punctuation stripped ("@someone!" mentions someone).
func ExtractMentions(content string) []string {
	var mentions []string
	seen := make(map[string]bool)

	for _, word := range strings.Fields(content) {
		if !strings.HasPrefix(word, "@") || len(word) < 2 {
			continue
		}
		name := strings.ToLower(strings.TrimRight(word[1:], ".,!?;:"))
		if len(name) < mentionMinLen || len(name) > mentionMaxLen || seen[name] {
			continue
		}
		seen[name] = true
		mentions = append(mentions, name)
	}
	return mentions
}
