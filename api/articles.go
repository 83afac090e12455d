package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/robertmeta/feed-server/model"
	"github.com/robertmeta/feed-server/store"
)

func (s *Server) handleListArticles(c echo.Context) error {
	limit := intQueryParam(c, "limit", 50)
	offset := intQueryParam(c, "offset", 0)
	unread := c.QueryParam("unread") == "true"
	feedID := int64(intQueryParam(c, "feed_id", 0))

	opts, err := store.BuildQueryOptions(limit, offset, unread, c.QueryParam("since"), feedID)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}

	articles, err := s.store.GetArticles(opts)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to list articles")
	}
	if articles == nil {
		articles = []*model.Article{}
	}
	return c.JSON(http.StatusOK, articles)
}

func (s *Server) handleGetArticle(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid article id")
	}

	article, err := s.store.GetArticle(id)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to get article")
	}
	if article == nil {
		return errJSON(c, http.StatusNotFound, "article not found")
	}
	return c.JSON(http.StatusOK, article)
}

func (s *Server) handleMarkArticleRead(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid article id")
	}

	// Absent body or field defaults to marking read.
	req := struct {
		Read *bool `json:"read"`
	}{}
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid JSON body")
	}
	read := true
	if req.Read != nil {
		read = *req.Read
	}

	ok, err := s.store.MarkArticleRead(id, read)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to update article")
	}
	if !ok {
		return errJSON(c, http.StatusNotFound, "article not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "read": read})
}

func intQueryParam(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
