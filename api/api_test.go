package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/robertmeta/feed-server/ai"
	"github.com/robertmeta/feed-server/config"
	"github.com/robertmeta/feed-server/model"
	"github.com/robertmeta/feed-server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a server over an in-memory store with a disabled AI
// client, which is the configuration most handlers are tested against.
func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := &config.Config{ChatHistory: 20}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(s, ai.New("", "", ""), cfg, logger)
	return srv, s
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func seedArticle(t *testing.T, s *store.Store) *model.Article {
	t.Helper()

	feed := &model.Feed{URL: "https://example.com/rss", Name: "Example Feed"}
	require.NoError(t, s.SaveFeed(feed))

	article := &model.Article{
		FeedID:    feed.ID,
		GUID:      "article-1",
		URL:       "https://example.com/article-1",
		Title:     "Seeded Article",
		Content:   "Some content to talk about",
		Published: time.Now(),
	}
	require.NoError(t, s.SaveArticle(article))
	return article
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

// ---------- Feeds ----------

func TestCreateFeed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/feeds", map[string]string{
		"url":      "https://example.com/rss",
		"name":     "Example",
		"category": "tech",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var feed model.Feed
	decodeBody(t, rec, &feed)
	assert.NotZero(t, feed.ID)
	assert.Equal(t, "Example", feed.Name)
}

func TestCreateFeed_MissingURL(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/feeds", map[string]string{"name": "No URL"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/feeds", map[string]string{"url": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateFeed_DuplicateURL(t *testing.T) {
	srv, _ := newTestServer(t)

	body := map[string]string{"url": "https://example.com/rss"}
	rec := doJSON(t, srv, http.MethodPost, "/feeds", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/feeds", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetFeed_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/feeds/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/feeds/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFeeds_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/feeds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestUpdateFeed(t *testing.T) {
	srv, s := newTestServer(t)

	feed := &model.Feed{URL: "https://example.com/rss", Name: "Old Name"}
	require.NoError(t, s.SaveFeed(feed))

	rec := doJSON(t, srv, http.MethodPut, "/feeds/1", map[string]string{"name": "New Name"})
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := s.GetFeed(feed.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, "https://example.com/rss", got.URL, "URL should be untouched")
}

func TestDeleteFeed(t *testing.T) {
	srv, s := newTestServer(t)

	feed := &model.Feed{URL: "https://example.com/rss"}
	require.NoError(t, s.SaveFeed(feed))

	rec := doJSON(t, srv, http.MethodDelete, "/feeds/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/feeds/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkDeleteFeeds(t *testing.T) {
	srv, s := newTestServer(t)

	for _, url := range []string{"https://a.example/rss", "https://b.example/rss"} {
		require.NoError(t, s.SaveFeed(&model.Feed{URL: url}))
	}

	rec := doJSON(t, srv, http.MethodPost, "/feeds/bulk-delete", map[string][]int64{
		"ids": {1, 2, 999},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp["deleted"])

	rec = doJSON(t, srv, http.MethodPost, "/feeds/bulk-delete", map[string][]int64{"ids": {}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------- OPML ----------

const testOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline type="rss" text="Feed A" title="Feed A" xmlUrl="https://a.example/rss" category="tech"/>
    <outline type="rss" text="Feed B" title="Feed B" xmlUrl="https://b.example/rss"/>
  </body>
</opml>`

func postOPML(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/feeds/import/opml", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/xml")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestImportOPML(t *testing.T) {
	srv, s := newTestServer(t)

	rec := postOPML(t, srv, testOPML)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp["imported"])
	assert.Equal(t, 0, resp["skipped"])

	feeds, err := s.GetAllFeeds()
	require.NoError(t, err)
	assert.Len(t, feeds, 2)

	// Importing again skips both
	rec = postOPML(t, srv, testOPML)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.Equal(t, 0, resp["imported"])
	assert.Equal(t, 2, resp["skipped"])
}

func TestImportOPML_NoFeeds(t *testing.T) {
	srv, _ := newTestServer(t)

	empty := `<?xml version="1.0"?><opml version="2.0"><head/><body></body></opml>`
	rec := postOPML(t, srv, empty)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No feeds found")
}

func TestImportOPML_MalformedXML(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postOPML(t, srv, `<opml><body>`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportOPML(t *testing.T) {
	srv, s := newTestServer(t)

	require.NoError(t, s.SaveFeed(&model.Feed{URL: "https://a.example/rss", Name: "Feed A", Category: "tech"}))

	rec := doJSON(t, srv, http.MethodGet, "/feeds/export/opml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `xmlUrl="https://a.example/rss"`)
	assert.Contains(t, rec.Body.String(), `<opml version="2.0">`)
}

// ---------- Articles ----------

func TestGetArticle(t *testing.T) {
	srv, s := newTestServer(t)
	article := seedArticle(t, s)

	rec := doJSON(t, srv, http.MethodGet, "/articles/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Article
	decodeBody(t, rec, &got)
	assert.Equal(t, article.Title, got.Title)

	rec = doJSON(t, srv, http.MethodGet, "/articles/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListArticles_BadSince(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/articles?since=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkArticleRead(t *testing.T) {
	srv, s := newTestServer(t)
	article := seedArticle(t, s)

	// No body defaults to read=true
	rec := doJSON(t, srv, http.MethodPost, "/articles/1/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := s.GetArticle(article.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	rec = doJSON(t, srv, http.MethodPost, "/articles/1/read", map[string]bool{"read": false})
	require.Equal(t, http.StatusOK, rec.Code)

	got, err = s.GetArticle(article.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRead)

	rec = doJSON(t, srv, http.MethodPost, "/articles/999/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------- Chat ----------

func TestGetChat_NoPriorChat(t *testing.T) {
	srv, s := newTestServer(t)
	seedArticle(t, s)

	rec := doJSON(t, srv, http.MethodGet, "/articles/1/chat", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.HasChat)
	assert.Empty(t, resp.Messages)
	assert.Equal(t, int64(1), resp.ArticleID)

	// The GET must not have created the chat
	chat, err := s.GetChat(1, "default")
	require.NoError(t, err)
	assert.Nil(t, chat)
}

func TestGetChat_ArticleNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/articles/999/chat", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetChat_WithMessages(t *testing.T) {
	srv, s := newTestServer(t)
	article := seedArticle(t, s)

	chat, err := s.GetOrCreateChat(article.ID, "default")
	require.NoError(t, err)
	for _, content := range []string{"one", "two", "three"} {
		_, err := s.AddMessage(chat.ID, model.RoleUser, content, "")
		require.NoError(t, err)
	}

	rec := doJSON(t, srv, http.MethodGet, "/articles/1/chat", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.HasChat)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, "one", resp.Messages[0].Content)

	// limit returns the first N messages, not the last N
	rec = doJSON(t, srv, http.MethodGet, "/articles/1/chat?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "one", resp.Messages[0].Content)
	assert.Equal(t, "two", resp.Messages[1].Content)
}

func TestGetChat_PerUserIsolation(t *testing.T) {
	srv, s := newTestServer(t)
	article := seedArticle(t, s)

	chat, err := s.GetOrCreateChat(article.ID, "alice")
	require.NoError(t, err)
	_, err = s.AddMessage(chat.ID, model.RoleUser, "alice only", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/articles/1/chat", nil)
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.HasChat)
	assert.Len(t, resp.Messages, 1)

	// A different user sees no chat on the same article
	rec = doJSON(t, srv, http.MethodGet, "/articles/1/chat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.False(t, resp.HasChat)
	assert.Empty(t, resp.Messages)
}

func TestSendChatMessage_BlankAlways400(t *testing.T) {
	// The AI client is disabled here; blank input must still be a 400, not a
	// 503, regardless of configuration state.
	srv, s := newTestServer(t)
	seedArticle(t, s)

	for _, message := range []string{"", "   ", "\n\t"} {
		rec := doJSON(t, srv, http.MethodPost, "/articles/1/chat", map[string]string{"message": message})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "blank message %q", message)
	}
}

func TestSendChatMessage_ArticleNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/articles/999/chat", map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendChatMessage_Unconfigured503(t *testing.T) {
	srv, s := newTestServer(t)
	seedArticle(t, s)

	rec := doJSON(t, srv, http.MethodPost, "/articles/1/chat", map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// The 503 path must not create a chat as a side effect
	chat, err := s.GetChat(1, "default")
	require.NoError(t, err)
	assert.Nil(t, chat)
}

func TestDeleteChat(t *testing.T) {
	srv, s := newTestServer(t)
	article := seedArticle(t, s)

	_, err := s.GetOrCreateChat(article.ID, "default")
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodDelete, "/articles/1/chat", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Deleted bool `json:"deleted"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.True(t, resp.Deleted)

	// Second delete still succeeds but reports nothing deleted
	rec = doJSON(t, srv, http.MethodDelete, "/articles/1/chat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.False(t, resp.Deleted)
}

func TestDeleteChat_ArticleNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodDelete, "/articles/999/chat", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------- Summarization ----------

func TestSummarize_Unconfigured503BeforeValidation(t *testing.T) {
	srv, s := newTestServer(t)
	seedArticle(t, s)

	// Even invalid or empty payloads get the 503 while unconfigured
	rec := doJSON(t, srv, http.MethodPost, "/summarize", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/summarize", map[string]string{"content": ""})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/summarize/batch", map[string][]int64{"article_ids": {}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Including for a missing article on the single-article path
	rec = doJSON(t, srv, http.MethodPost, "/articles/999/summarize", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/articles/1/summarize", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
