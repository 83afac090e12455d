// Package feed provides RSS/Atom feed fetching and refresh for feed-server.
package feed

import (
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/robertmeta/feed-server/model"
)

// Fetcher handles fetching and parsing RSS/Atom feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher creates a new Fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{
		parser: gofeed.NewParser(),
	}
}

// Fetch retrieves and parses a feed from a URL.
func (f *Fetcher) Fetch(url string) (*model.Feed, []*model.Article, error) {
	parsedFeed, err := f.parser.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch feed from %s: %w", url, err)
	}

	feed, articles := f.convert(parsedFeed, url)
	return feed, articles, nil
}

// Parse parses feed content from a string.
func (f *Fetcher) Parse(content string) (*model.Feed, []*model.Article, error) {
	if content == "" {
		return nil, nil, fmt.Errorf("feed content is empty")
	}

	parsedFeed, err := f.parser.ParseString(content)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	feed, articles := f.convert(parsedFeed, "")
	return feed, articles, nil
}

// convert converts a gofeed.Feed to our model types.
func (f *Fetcher) convert(gf *gofeed.Feed, url string) (*model.Feed, []*model.Article) {
	// Convert feed metadata
	feed := &model.Feed{
		Name: gf.Title,
		URL:  url,
	}

	// Use feed link if URL not provided
	if feed.URL == "" && gf.Link != "" {
		feed.URL = gf.Link
	}

	// Convert articles
	var articles []*model.Article
	for _, item := range gf.Items {
		article := f.convertItem(item)
		articles = append(articles, article)
	}

	return feed, articles
}

// convertItem converts a gofeed.Item to a model.Article.
func (f *Fetcher) convertItem(item *gofeed.Item) *model.Article {
	article := &model.Article{
		GUID:   item.GUID,
		Title:  item.Title,
		URL:    item.Link,
		IsRead: false, // New articles default to unread
	}

	// Use link as GUID if GUID is missing
	if article.GUID == "" {
		article.GUID = item.Link
	}

	// Get content (prefer full content over description)
	if item.Content != "" {
		article.Content = item.Content
	} else if item.Description != "" {
		article.Content = item.Description
	}

	// Parse published date
	if item.PublishedParsed != nil {
		article.Published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		article.Published = *item.UpdatedParsed
	} else {
		// Fallback to current time if no date found
		article.Published = time.Now()
	}

	return article
}
