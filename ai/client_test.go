package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/robertmeta/feed-server/model"
	"github.com/stretchr/testify/assert"
)

func TestClient_DisabledWithoutKey(t *testing.T) {
	c := New("", "gpt-4o-mini", "gpt-4o-mini")
	assert.False(t, c.Enabled())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())

	c = New("sk-test", "gpt-4o-mini", "gpt-4o-mini")
	assert.True(t, c.Enabled())
}

func TestClient_DisabledCallsError(t *testing.T) {
	c := New("", "gpt-4o-mini", "gpt-4o-mini")

	_, _, err := c.Reply(context.Background(), &model.Article{Title: "x"}, nil)
	assert.Error(t, err)

	_, _, err = c.Summarize(context.Background(), "x", "y")
	assert.Error(t, err)
}

func TestChatSystemPrompt(t *testing.T) {
	article := &model.Article{
		Title:   "Go 1.26 released",
		URL:     "https://example.com/go",
		Content: "The release notes say...",
	}

	prompt := chatSystemPrompt(article)
	assert.Contains(t, prompt, "Go 1.26 released")
	assert.Contains(t, prompt, "https://example.com/go")
	assert.Contains(t, prompt, "The release notes say...")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))

	long := strings.Repeat("a", 200)
	assert.Len(t, truncate(long, 100), 100)
}
