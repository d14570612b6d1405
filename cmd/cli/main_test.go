package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thecueroom/backend/internal/postcard"
)

func TestBotReplyArrivesWithCannedFallback(t *testing.T) {
	thread := postcard.NewCommentThread(nil)
	bot := postcard.NewMentionBot(botGenerator())
	prior := thread.Len()

	scheduled := bot.HandleComment(context.Background(), thread, "post-1",
		"yo "+postcard.BotMention+" what genre is this?")
	require.True(t, scheduled)

	reply, ok := awaitBotReply(thread, prior, 10*time.Second)
	require.True(t, ok, "bot reply should land on the thread")
	assert.NotEmpty(t, reply.Content)
	assert.NotEqual(t, "", reply.UserID)
}

func TestBotNotSummonedWithoutMention(t *testing.T) {
	thread := postcard.NewCommentThread(nil)
	bot := postcard.NewMentionBot(botGenerator())

	scheduled := bot.HandleComment(context.Background(), thread, "post-1", "great set last night")

	assert.False(t, scheduled)
	assert.Equal(t, 0, thread.Len())
}

func TestAwaitBotReplyTimesOut(t *testing.T) {
	thread := postcard.NewCommentThread(nil)

	_, ok := awaitBotReply(thread, thread.Len(), 300*time.Millisecond)

	assert.False(t, ok)
}

func TestBotGeneratorReadsEnv(t *testing.T) {
	t.Setenv("CUEROOM_BOT_URL", "http://localhost:9999/generate")
	assert.NotNil(t, botGenerator())

	t.Setenv("CUEROOM_BOT_URL", "")
	assert.Nil(t, botGenerator())
}
