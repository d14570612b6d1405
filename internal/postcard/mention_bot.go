package postcard

import (
	"context"
	"strings"
	"time"

	"github.com/thecueroom/backend/internal/logger"
	"go.uber.org/zap"
)

const (
	// BotMention is the token that summons the auto-reply bot in a comment
	BotMention = "@cueroom_bot"

	// botUserID identifies the bot's comments in the local list
	botUserID   = "cueroom-bot"
	botUsername = "cueroom_bot"

	// replyDelay is the fixed pause before the generated reply appears.
	// The delay is cosmetic, the reply is already fetched when it elapses.
	replyDelay = 2 * time.Second

	// fallbackReply is used when the generator call fails
	fallbackReply = "The bass is loading... try me again in a bit 🎛️"
)

// ReplyGenerator produces a bot reply for a comment's content.
// Implementations typically call an external endpoint.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, content string) (string, error)
}

// MentionBot watches submitted comments for the bot mention and appends a
// generated reply to the thread after a fixed delay. Replies are
// fire-and-forget: failures fall back to a canned message and nothing is
// retried or surfaced to the user.
type MentionBot struct {
	generator ReplyGenerator
}

// NewMentionBot creates a bot backed by the given generator
func NewMentionBot(generator ReplyGenerator) *MentionBot {
	return &MentionBot{generator: generator}
}

// HandleComment inspects a submitted comment and, when it mentions the
// bot, schedules an asynchronous reply into the thread. Returns whether
// a reply was scheduled. There is no ordering guarantee relative to
// other comments arriving concurrently.
func (b *MentionBot) HandleComment(ctx context.Context, thread *CommentThread, postID, content string) bool {
	if !strings.Contains(strings.ToLower(content), BotMention) {
		return false
	}

	go func() {
		reply := fallbackReply
		if b.generator != nil {
			generated, err := b.generator.GenerateReply(ctx, content)
			if err != nil {
				logger.Log.Warn("Mention bot reply generation failed, using fallback",
					zap.String("post_id", postID),
					zap.Error(err))
			} else if generated != "" {
				reply = generated
			}
		}

		select {
		case <-time.After(replyDelay):
		case <-ctx.Done():
			return
		}

		thread.Append(CommentEntry{
			PostID:    postID,
			UserID:    botUserID,
			Username:  botUsername,
			Content:   reply,
			CreatedAt: time.Now(),
		})
	}()

	return true
}
