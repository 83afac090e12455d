package feed

import (
	"fmt"
	"log/slog"

	"github.com/robertmeta/feed-server/model"
	"github.com/robertmeta/feed-server/store"
)

// Refresher fetches feeds and upserts their articles into the store.
type Refresher struct {
	store   *store.Store
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(s *store.Store, logger *slog.Logger) *Refresher {
	return &Refresher{
		store:   s,
		fetcher: NewFetcher(),
		logger:  logger,
	}
}

// Refresh fetches a single feed and upserts its articles.
// The fetch outcome (timestamp or error) is recorded on the feed row.
// Returns the number of new articles.
func (r *Refresher) Refresh(f *model.Feed) (int, error) {
	fetched, articles, err := r.fetcher.Fetch(f.URL)
	if err != nil {
		if recErr := r.store.RecordFetch(f.ID, err); recErr != nil {
			r.logger.Error("failed to record fetch error", "feed_id", f.ID, "error", recErr)
		}
		return 0, err
	}

	// Fill in the name on first successful fetch if the feed was added bare.
	if f.Name == "" && fetched.Name != "" {
		f.Name = fetched.Name
		if err := r.store.SaveFeed(f); err != nil {
			return 0, fmt.Errorf("failed to update feed name: %w", err)
		}
	}

	inserted := 0
	for _, article := range articles {
		article.FeedID = f.ID
		isNew, err := r.store.UpsertArticle(article)
		if err != nil {
			return inserted, fmt.Errorf("failed to store article: %w", err)
		}
		if isNew {
			inserted++
		}
	}

	if err := r.store.RecordFetch(f.ID, nil); err != nil {
		return inserted, fmt.Errorf("failed to record fetch: %w", err)
	}

	r.logger.Info("feed refreshed", "feed_id", f.ID, "url", f.URL, "new_articles", inserted)
	return inserted, nil
}

// RefreshAll refreshes every feed in the store. Individual fetch failures are
// logged and recorded on the feed row; they do not stop the loop.
func (r *Refresher) RefreshAll() {
	feeds, err := r.store.GetAllFeeds()
	if err != nil {
		r.logger.Error("failed to list feeds for refresh", "error", err)
		return
	}

	for _, f := range feeds {
		if _, err := r.Refresh(f); err != nil {
			r.logger.Warn("feed refresh failed", "feed_id", f.ID, "url", f.URL, "error", err)
		}
	}
}
