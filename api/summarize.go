package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// The summarize endpoints check provider configuration before reading any
// input, so an unconfigured server answers 503 even to malformed requests.

func (s *Server) handleSummarize(c echo.Context) error {
	if !s.ai.Enabled() {
		return errJSON(c, http.StatusServiceUnavailable, "summarization service is not configured")
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return errJSON(c, http.StatusBadRequest, "content must not be empty")
	}

	summary, modelUsed, err := s.ai.Summarize(c.Request().Context(), req.Title, req.Content)
	if err != nil {
		s.logger.Error("summarization failed", "error", err)
		return errJSON(c, http.StatusBadGateway, "summarization service error: "+err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"summary":    summary,
		"model_used": modelUsed,
	})
}

type batchSummaryResult struct {
	ArticleID int64  `json:"article_id"`
	Summary   string `json:"summary,omitempty"`
	ModelUsed string `json:"model_used,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleSummarizeBatch(c echo.Context) error {
	if !s.ai.Enabled() {
		return errJSON(c, http.StatusServiceUnavailable, "summarization service is not configured")
	}

	var req struct {
		ArticleIDs []int64 `json:"article_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid JSON body")
	}
	if len(req.ArticleIDs) == 0 {
		return errJSON(c, http.StatusBadRequest, "no article ids provided")
	}

	results := make([]batchSummaryResult, 0, len(req.ArticleIDs))
	for _, id := range req.ArticleIDs {
		results = append(results, s.summarizeStored(c, id, false))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleSummarizeArticle(c echo.Context) error {
	if !s.ai.Enabled() {
		return errJSON(c, http.StatusServiceUnavailable, "summarization service is not configured")
	}

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

	force := c.QueryParam("force") == "true"
	result := s.summarizeStored(c, id, force)
	if result.Error != "" {
		return errJSON(c, http.StatusBadGateway, result.Error)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"article_id": result.ArticleID,
		"summary":    result.Summary,
		"model_used": result.ModelUsed,
	})
}

// summarizeStored summarizes an article from the store, persisting the result.
// An existing summary is reused unless force is set.
func (s *Server) summarizeStored(c echo.Context, id int64, force bool) batchSummaryResult {
	result := batchSummaryResult{ArticleID: id}

	article, err := s.store.GetArticle(id)
	if err != nil {
		result.Error = "failed to get article"
		return result
	}
	if article == nil {
		result.Error = "article not found"
		return result
	}

	if article.Summary != "" && !force {
		result.Summary = article.Summary
		result.ModelUsed = article.SummaryModel
		return result
	}

	content := article.Content
	if strings.TrimSpace(content) == "" {
		content = article.Title
	}
	if strings.TrimSpace(content) == "" {
		result.Error = "article has no content to summarize"
		return result
	}

	summary, modelUsed, err := s.ai.Summarize(c.Request().Context(), article.Title, content)
	if err != nil {
		s.logger.Error("summarization failed", "article_id", id, "error", err)
		result.Error = "summarization service error: " + err.Error()
		return result
	}

	if err := s.store.SaveArticleSummary(id, summary, modelUsed); err != nil {
		result.Error = "failed to save summary"
		return result
	}

	result.Summary = summary
	result.ModelUsed = modelUsed
	return result
}
