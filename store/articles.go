package store

import (
	"database/sql"
	"fmt"

	"github.com/robertmeta/feed-server/model"
)

// SaveArticle saves an article to the database.
// If the article has an ID of 0, it will be inserted. Otherwise, it will be updated.
func (s *Store) SaveArticle(a *model.Article) error {
	if a.ID == 0 {
		// Insert
		result, err := s.db.Exec(
			"INSERT INTO articles (feed_id, guid, url, title, content, published, is_read, summary, summary_model) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			a.FeedID, a.GUID, a.URL, a.Title, a.Content, a.Published.Unix(), boolToInt(a.IsRead), a.Summary, a.SummaryModel,
		)
		if err != nil {
			return fmt.Errorf("failed to insert article: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		a.ID = id
		return nil
	}

	// Update
	_, err := s.db.Exec(
		"UPDATE articles SET feed_id = ?, guid = ?, url = ?, title = ?, content = ?, published = ?, is_read = ?, summary = ?, summary_model = ? WHERE id = ?",
		a.FeedID, a.GUID, a.URL, a.Title, a.Content, a.Published.Unix(), boolToInt(a.IsRead), a.Summary, a.SummaryModel, a.ID,
	)
	return err
}

// UpsertArticle inserts an article unless one with the same (feed_id, guid)
// already exists. Returns whether a new row was inserted.
func (s *Store) UpsertArticle(a *model.Article) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO articles (feed_id, guid, url, title, content, published, is_read)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(feed_id, guid) DO NOTHING`,
		a.FeedID, a.GUID, a.URL, a.Title, a.Content, a.Published.Unix(), boolToInt(a.IsRead),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert article: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("failed to get last insert ID: %w", err)
		}
		a.ID = id
	}
	return n > 0, nil
}

// GetArticle retrieves an article by ID. Returns nil, nil if it does not exist.
func (s *Store) GetArticle(id int64) (*model.Article, error) {
	row := s.db.QueryRow(
		"SELECT id, feed_id, guid, url, title, content, published, is_read, summary, summary_model FROM articles WHERE id = ?",
		id,
	)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return article, nil
}

// GetArticles retrieves articles with optional filtering, pagination.
func (s *Store) GetArticles(opts QueryOptions) ([]*model.Article, error) {
	query := "SELECT id, feed_id, guid, url, title, content, published, is_read, summary, summary_model FROM articles WHERE 1=1"
	args := []interface{}{}

	// Apply filters
	if opts.UnreadOnly {
		query += " AND is_read = 0"
	}

	if opts.FeedID > 0 {
		query += " AND feed_id = ?"
		args = append(args, opts.FeedID)
	}

	if opts.SinceTime != nil {
		query += " AND published >= ?"
		args = append(args, *opts.SinceTime)
	}

	// Order by published date (newest first)
	query += " ORDER BY published DESC"

	// Apply pagination
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}

	return articles, rows.Err()
}

// MarkArticleRead marks an article as read or unread.
// Returns whether the article existed.
func (s *Store) MarkArticleRead(id int64, isRead bool) (bool, error) {
	result, err := s.db.Exec("UPDATE articles SET is_read = ? WHERE id = ?", boolToInt(isRead), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark article read: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveArticleSummary stores a generated summary and the model that produced it.
func (s *Store) SaveArticleSummary(id int64, summary, modelUsed string) error {
	_, err := s.db.Exec(
		"UPDATE articles SET summary = ?, summary_model = ? WHERE id = ?",
		summary, modelUsed, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save article summary: %w", err)
	}
	return nil
}

func scanArticle(row scanner) (*model.Article, error) {
	article := &model.Article{}
	var url, title, content, summary, summaryModel sql.NullString
	var publishedUnix int64
	var isReadInt int

	err := row.Scan(&article.ID, &article.FeedID, &article.GUID, &url, &title, &content, &publishedUnix, &isReadInt, &summary, &summaryModel)
	if err != nil {
		return nil, err
	}

	article.URL = url.String
	article.Title = title.String
	article.Content = content.String
	article.Summary = summary.String
	article.SummaryModel = summaryModel.String
	article.Published = unixToTime(publishedUnix)
	article.IsRead = intToBool(isReadInt)

	return article, nil
}
