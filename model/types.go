// Package model defines the core data structures for feed-server.
package model

import (
	"errors"
	"strings"
	"time"
)

// Feed represents an RSS/Atom or newsletter feed source.
type Feed struct {
	ID          int64      `json:"id"`
	URL         string     `json:"url"`
	Name        string     `json:"name"`
	Category    string     `json:"category,omitempty"`
	LastFetched *time.Time `json:"last_fetched,omitempty"`
	FetchError  string     `json:"fetch_error,omitempty"`
}

// Validate checks if the feed has required fields.
func (f *Feed) Validate() error {
	if strings.TrimSpace(f.URL) == "" {
		return errors.New("feed URL is required")
	}
	return nil
}

// Article represents a single entry fetched from a feed.
type Article struct {
	ID           int64     `json:"id"`
	FeedID       int64     `json:"feed_id"`
	GUID         string    `json:"guid"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Content      string    `json:"content,omitempty"`
	Published    time.Time `json:"published"`
	IsRead       bool      `json:"is_read"`
	Summary      string    `json:"summary,omitempty"`
	SummaryModel string    `json:"summary_model,omitempty"`
}

// IsUnread returns true if the article hasn't been read.
func (a *Article) IsUnread() bool {
	return !a.IsRead
}

// Age returns how long ago the article was published.
func (a *Article) Age() time.Duration {
	return time.Since(a.Published)
}

// Message roles. Every stored message is one side of a user/assistant exchange.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidRole reports whether role is one of the allowed message roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// Chat is a persisted conversation thread scoped to one (article, user) pair.
// Chats are created lazily on the first message and deleted explicitly.
type Chat struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"article_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single exchange within a chat, ordered by insertion.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ModelUsed string    `json:"model_used,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
