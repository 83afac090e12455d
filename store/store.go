// Package store provides SQLite database operations for feed-server.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/robertmeta/feed-server/model"
	_ "modernc.org/sqlite"
)

// Store manages the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path.
// Use ":memory:" for an in-memory database (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The foreign_keys pragma is per-connection, so keep the pool at one
	// connection. This also keeps ":memory:" databases from splitting across
	// connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &Store{db: db}

	// Initialize schema
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createSchema creates the database tables and indexes.
func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feeds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT UNIQUE NOT NULL,
		name TEXT,
		category TEXT,
		last_fetched INTEGER,
		fetch_error TEXT
	);

	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feed_id INTEGER NOT NULL,
		guid TEXT NOT NULL,
		url TEXT,
		title TEXT,
		content TEXT,
		published INTEGER NOT NULL,
		is_read INTEGER DEFAULT 0,
		summary TEXT,
		summary_model TEXT,
		FOREIGN KEY (feed_id) REFERENCES feeds(id) ON DELETE CASCADE,
		UNIQUE(feed_id, guid)
	);

	CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE,
		UNIQUE(article_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		model_used TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published DESC);
	CREATE INDEX IF NOT EXISTS idx_articles_is_read ON articles(is_read);
	CREATE INDEX IF NOT EXISTS idx_articles_feed_id ON articles(feed_id);
	CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveFeed saves a feed to the database.
// If the feed has an ID of 0, it will be inserted. Otherwise, it will be updated.
func (s *Store) SaveFeed(f *model.Feed) error {
	if f.ID == 0 {
		// Insert
		result, err := s.db.Exec(
			"INSERT INTO feeds (url, name, category, last_fetched, fetch_error) VALUES (?, ?, ?, ?, ?)",
			f.URL, f.Name, f.Category, timePtrToUnix(f.LastFetched), f.FetchError,
		)
		if err != nil {
			return fmt.Errorf("failed to insert feed: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		f.ID = id
		return nil
	}

	// Update
	_, err := s.db.Exec(
		"UPDATE feeds SET url = ?, name = ?, category = ?, last_fetched = ?, fetch_error = ? WHERE id = ?",
		f.URL, f.Name, f.Category, timePtrToUnix(f.LastFetched), f.FetchError, f.ID,
	)
	return err
}

// GetFeed retrieves a feed by ID. Returns nil, nil if it does not exist.
func (s *Store) GetFeed(id int64) (*model.Feed, error) {
	row := s.db.QueryRow(
		"SELECT id, url, name, category, last_fetched, fetch_error FROM feeds WHERE id = ?",
		id,
	)

	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return feed, nil
}

// GetFeedByURL retrieves a feed by its URL. Returns nil, nil if it does not exist.
func (s *Store) GetFeedByURL(url string) (*model.Feed, error) {
	row := s.db.QueryRow(
		"SELECT id, url, name, category, last_fetched, fetch_error FROM feeds WHERE url = ?",
		url,
	)

	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by url: %w", err)
	}

	return feed, nil
}

// GetAllFeeds retrieves all feeds.
func (s *Store) GetAllFeeds() ([]*model.Feed, error) {
	rows, err := s.db.Query("SELECT id, url, name, category, last_fetched, fetch_error FROM feeds ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []*model.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, feed)
	}

	return feeds, rows.Err()
}

// DeleteFeed deletes a feed by ID, cascading to its articles and their chats.
// Returns whether a row was deleted.
func (s *Store) DeleteFeed(id int64) (bool, error) {
	result, err := s.db.Exec("DELETE FROM feeds WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete feed: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordFetch records the outcome of a feed fetch: the fetch time on success,
// the error message on failure.
func (s *Store) RecordFetch(feedID int64, fetchErr error) error {
	if fetchErr != nil {
		_, err := s.db.Exec("UPDATE feeds SET fetch_error = ? WHERE id = ?", fetchErr.Error(), feedID)
		return err
	}

	_, err := s.db.Exec(
		"UPDATE feeds SET last_fetched = ?, fetch_error = '' WHERE id = ?",
		time.Now().Unix(), feedID,
	)
	return err
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFeed(row scanner) (*model.Feed, error) {
	feed := &model.Feed{}
	var name, category, fetchError sql.NullString
	var lastFetched sql.NullInt64

	err := row.Scan(&feed.ID, &feed.URL, &name, &category, &lastFetched, &fetchError)
	if err != nil {
		return nil, err
	}

	feed.Name = name.String
	feed.Category = category.String
	feed.FetchError = fetchError.String
	if lastFetched.Valid {
		t := unixToTime(lastFetched.Int64)
		feed.LastFetched = &t
	}

	return feed, nil
}

// Helper functions for boolean<->int conversion (SQLite doesn't have BOOLEAN type)
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

// Helper to convert Unix timestamp to time.Time
func unixToTime(unix int64) time.Time {
	return time.Unix(unix, 0)
}

func timePtrToUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
