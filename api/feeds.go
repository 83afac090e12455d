package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/robertmeta/feed-server/model"
	"github.com/robertmeta/feed-server/opml"
)

type feedRequest struct {
	URL      *string `json:"url"`
	Name     *string `json:"name"`
	Category *string `json:"category"`
}

func (s *Server) handleListFeeds(c echo.Context) error {
	feeds, err := s.store.GetAllFeeds()
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to list feeds")
	}
	if feeds == nil {
		feeds = []*model.Feed{}
	}
	return c.JSON(http.StatusOK, feeds)
}

func (s *Server) handleCreateFeed(c echo.Context) error {
	var req feedRequest
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid JSON body")
	}

	feed := &model.Feed{}
	if req.URL != nil {
		feed.URL = strings.TrimSpace(*req.URL)
	}
	if req.Name != nil {
		feed.Name = *req.Name
	}
	if req.Category != nil {
		feed.Category = *req.Category
	}

	if err := feed.Validate(); err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}

	existing, err := s.store.GetFeedByURL(feed.URL)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to check feed")
	}
	if existing != nil {
		return errJSON(c, http.StatusConflict, "feed with this URL already exists")
	}

	if err := s.store.SaveFeed(feed); err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to save feed")
	}

	s.logger.Info("feed added", "id", feed.ID, "url", feed.URL)
	return c.JSON(http.StatusCreated, feed)
}

func (s *Server) handleGetFeed(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid feed id")
	}

	feed, err := s.store.GetFeed(id)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to get feed")
	}
	if feed == nil {
		return errJSON(c, http.StatusNotFound, "feed not found")
	}
	return c.JSON(http.StatusOK, feed)
}

func (s *Server) handleUpdateFeed(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid feed id")
	}

	feed, err := s.store.GetFeed(id)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to get feed")
	}
	if feed == nil {
		return errJSON(c, http.StatusNotFound, "feed not found")
	}

	var req feedRequest
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid JSON body")
	}

	if req.URL != nil {
		url := strings.TrimSpace(*req.URL)
		if url == "" {
			return errJSON(c, http.StatusBadRequest, "feed URL is required")
		}
		feed.URL = url
	}
	if req.Name != nil {
		feed.Name = *req.Name
	}
	if req.Category != nil {
		feed.Category = *req.Category
	}

	if err := s.store.SaveFeed(feed); err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to save feed")
	}
	return c.JSON(http.StatusOK, feed)
}

func (s *Server) handleDeleteFeed(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid feed id")
	}

	deleted, err := s.store.DeleteFeed(id)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to delete feed")
	}
	if !deleted {
		return errJSON(c, http.StatusNotFound, "feed not found")
	}

	s.logger.Info("feed removed", "id", id)
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleBulkDeleteFeeds(c echo.Context) error {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid JSON body")
	}
	if len(req.IDs) == 0 {
		return errJSON(c, http.StatusBadRequest, "no feed ids provided")
	}

	deleted := 0
	for _, id := range req.IDs {
		ok, err := s.store.DeleteFeed(id)
		if err != nil {
			return errJSON(c, http.StatusInternalServerError, "failed to delete feeds")
		}
		if ok {
			deleted++
		}
	}

	s.logger.Info("feeds bulk deleted", "requested", len(req.IDs), "deleted", deleted)
	return c.JSON(http.StatusOK, map[string]int{"deleted": deleted})
}

func (s *Server) handleRefreshFeed(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid feed id")
	}

	feed, err := s.store.GetFeed(id)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to get feed")
	}
	if feed == nil {
		return errJSON(c, http.StatusNotFound, "feed not found")
	}

	inserted, err := s.refresher.Refresh(feed)
	if err != nil {
		return errJSON(c, http.StatusBadGateway, "failed to refresh feed: "+err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"feed_id":      feed.ID,
		"new_articles": inserted,
	})
}

func (s *Server) handleRefreshAllFeeds(c echo.Context) error {
	// Fire-and-forget: callers poll feed rows for last_fetched/fetch_error.
	go s.refresher.RefreshAll()
	return c.JSON(http.StatusAccepted, map[string]string{"status": "refresh started"})
}

func (s *Server) handleImportOPML(c echo.Context) error {
	feeds, err := opml.Parse(c.Request().Body)
	if err != nil {
		if errors.Is(err, opml.ErrNoFeeds) {
			return errJSON(c, http.StatusBadRequest, "No feeds found")
		}
		return errJSON(c, http.StatusBadRequest, "invalid OPML document")
	}

	imported, skipped := 0, 0
	for _, feed := range feeds {
		existing, err := s.store.GetFeedByURL(feed.URL)
		if err != nil {
			return errJSON(c, http.StatusInternalServerError, "failed to import feeds")
		}
		if existing != nil {
			skipped++
			continue
		}
		if err := s.store.SaveFeed(feed); err != nil {
			return errJSON(c, http.StatusInternalServerError, "failed to import feeds")
		}
		imported++
	}

	s.logger.Info("opml imported", "imported", imported, "skipped", skipped)
	return c.JSON(http.StatusOK, map[string]int{"imported": imported, "skipped": skipped})
}

func (s *Server) handleExportOPML(c echo.Context) error {
	feeds, err := s.store.GetAllFeeds()
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to list feeds")
	}

	var buf bytes.Buffer
	if err := opml.Generate(&buf, feeds); err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to generate OPML")
	}

	return c.Blob(http.StatusOK, "application/xml", buf.Bytes())
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
