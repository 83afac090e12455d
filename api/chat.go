package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/robertmeta/feed-server/model"
)

// userID resolves the chat user for a request. Until an auth layer exists,
// clients identify themselves with the X-User-ID header.
func userID(c echo.Context) string {
	if id := strings.TrimSpace(c.Request().Header.Get("X-User-ID")); id != "" {
		return id
	}
	return "default"
}

type chatResponse struct {
	ArticleID int64            `json:"article_id"`
	Messages  []*model.Message `json:"messages"`
	HasChat   bool             `json:"has_chat"`
}

func (s *Server) handleGetChat(c echo.Context) error {
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

	resp := chatResponse{ArticleID: id, Messages: []*model.Message{}}

	// A bare GET never creates the chat; that happens on the first POST.
	chat, err := s.store.GetChat(id, userID(c))
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to get chat")
	}
	if chat != nil {
		resp.HasChat = true
		messages, err := s.store.GetMessages(chat.ID, intQueryParam(c, "limit", 0))
		if err != nil {
			return errJSON(c, http.StatusInternalServerError, "failed to get messages")
		}
		if messages != nil {
			resp.Messages = messages
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSendChatMessage(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid article id")
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid JSON body")
	}

	// Blank messages are a client error no matter how the AI side is
	// configured, so this check runs before the 503 gate.
	content := strings.TrimSpace(req.Message)
	if content == "" {
		return errJSON(c, http.StatusBadRequest, "message must not be empty")
	}

	article, err := s.store.GetArticle(id)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to get article")
	}
	if article == nil {
		return errJSON(c, http.StatusNotFound, "article not found")
	}

	if !s.ai.Enabled() {
		return errJSON(c, http.StatusServiceUnavailable, "chat service is not configured")
	}

	user := userID(c)
	chat, err := s.store.GetOrCreateChat(id, user)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to open chat")
	}

	if _, err := s.store.AddMessage(chat.ID, model.RoleUser, content, ""); err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to store message")
	}

	history, err := s.store.GetMessages(chat.ID, 0)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to get messages")
	}
	if max := s.cfg.ChatHistory; max > 0 && len(history) > max {
		history = history[len(history)-max:]
	}

	replyContent, modelUsed, err := s.ai.Reply(c.Request().Context(), article, history)
	if err != nil {
		s.logger.Error("chat reply failed", "article_id", id, "chat_id", chat.ID, "error", err)
		return errJSON(c, http.StatusBadGateway, "chat service error: "+err.Error())
	}

	reply, err := s.store.AddMessage(chat.ID, model.RoleAssistant, replyContent, modelUsed)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to store reply")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"article_id": id,
		"chat_id":    chat.ID,
		"reply":      reply,
	})
}

func (s *Server) handleDeleteChat(c echo.Context) error {
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

	deleted, err := s.store.DeleteChat(id, userID(c))
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "failed to delete chat")
	}

	// 200 whether or not a chat existed; deleted carries the distinction.
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": deleted,
	})
}
