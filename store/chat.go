package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/robertmeta/feed-server/model"
)

// GetOrCreateChat returns the chat for the (article, user) pair, creating it
// if none exists yet. Repeated calls with the same pair return the same chat.
// Fails if the article does not exist.
func (s *Store) GetOrCreateChat(articleID int64, userID string) (*model.Chat, error) {
	chat, err := s.GetChat(articleID, userID)
	if err != nil {
		return nil, err
	}
	if chat != nil {
		return chat, nil
	}

	now := time.Now()
	result, err := s.db.Exec(
		"INSERT INTO chats (article_id, user_id, created_at) VALUES (?, ?, ?)",
		articleID, userID, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return &model.Chat{
		ID:        id,
		ArticleID: articleID,
		UserID:    userID,
		CreatedAt: now,
	}, nil
}

// GetChat retrieves the chat for the (article, user) pair.
// Returns nil, nil if none exists.
func (s *Store) GetChat(articleID int64, userID string) (*model.Chat, error) {
	chat := &model.Chat{}
	var createdUnix int64

	err := s.db.QueryRow(
		"SELECT id, article_id, user_id, created_at FROM chats WHERE article_id = ? AND user_id = ?",
		articleID, userID,
	).Scan(&chat.ID, &chat.ArticleID, &chat.UserID, &createdUnix)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	chat.CreatedAt = unixToTime(createdUnix)
	return chat, nil
}

// AddMessage appends a message to a chat. Messages keep insertion order via
// their autoincrement IDs. modelUsed may be empty for user messages.
func (s *Store) AddMessage(chatID int64, role, content, modelUsed string) (*model.Message, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("invalid message role: %s", role)
	}

	now := time.Now()
	result, err := s.db.Exec(
		"INSERT INTO messages (chat_id, role, content, model_used, created_at) VALUES (?, ?, ?, ?, ?)",
		chatID, role, content, modelUsed, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return &model.Message{
		ID:        id,
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		ModelUsed: modelUsed,
		CreatedAt: now,
	}, nil
}

// GetMessages returns a chat's messages oldest-first. A positive limit
// truncates to the first N messages by insertion order, not the most recent N.
func (s *Store) GetMessages(chatID int64, limit int) ([]*model.Message, error) {
	query := "SELECT id, chat_id, role, content, model_used, created_at FROM messages WHERE chat_id = ? ORDER BY id"
	args := []interface{}{chatID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		msg := &model.Message{}
		var modelUsed sql.NullString
		var createdUnix int64

		err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &modelUsed, &createdUnix)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.ModelUsed = modelUsed.String
		msg.CreatedAt = unixToTime(createdUnix)
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// DeleteChat deletes the chat for the (article, user) pair, cascading to its
// messages. Returns whether a chat existed; a missing chat is not an error.
func (s *Store) DeleteChat(articleID int64, userID string) (bool, error) {
	result, err := s.db.Exec(
		"DELETE FROM chats WHERE article_id = ? AND user_id = ?",
		articleID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete chat: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
