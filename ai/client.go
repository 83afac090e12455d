// Package ai wraps the OpenAI API for per-article chat and summarization.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/robertmeta/feed-server/model"
)

// Client calls the OpenAI chat completions API. A Client built without an API
// key is disabled; callers must check Enabled before using it.
type Client struct {
	client       openai.Client
	enabled      bool
	chatModel    string
	summaryModel string
}

// New creates a Client. An empty apiKey yields a disabled client.
func New(apiKey, chatModel, summaryModel string) *Client {
	if apiKey == "" {
		return &Client{}
	}

	return &Client{
		client:       openai.NewClient(option.WithAPIKey(apiKey)),
		enabled:      true,
		chatModel:    chatModel,
		summaryModel: summaryModel,
	}
}

// Enabled reports whether the client is configured with an API key.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Reply produces an assistant reply for a chat about an article. The article
// provides the system context; history is the prior conversation,
// oldest-first, ending with the user's latest message.
// Returns the reply content and the model that produced it.
func (c *Client) Reply(ctx context.Context, article *model.Article, history []*model.Message) (string, string, error) {
	if !c.Enabled() {
		return "", "", fmt.Errorf("ai client is not configured")
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(chatSystemPrompt(article)),
	}
	for _, msg := range history {
		switch msg.Role {
		case model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	content, err := c.complete(ctx, c.chatModel, messages)
	if err != nil {
		return "", "", err
	}
	return content, c.chatModel, nil
}

// Summarize produces a short summary of an article.
// Returns the summary and the model that produced it.
func (c *Client) Summarize(ctx context.Context, title, content string) (string, string, error) {
	if !c.Enabled() {
		return "", "", fmt.Errorf("ai client is not configured")
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You summarize articles. Respond with 2-4 sentences capturing the key points. Do not add commentary."),
		openai.UserMessage(summaryPrompt(title, content)),
	}

	summary, err := c.complete(ctx, c.summaryModel, messages)
	if err != nil {
		return "", "", err
	}
	return summary, c.summaryModel, nil
}

func (c *Client) complete(ctx context.Context, modelName string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	response, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(modelName),
		Messages:  messages,
		MaxTokens: openai.Int(1024),
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return response.Choices[0].Message.Content, nil
}

func chatSystemPrompt(article *model.Article) string {
	var sb strings.Builder
	sb.WriteString("You are discussing a single article with the reader. Answer questions about it concisely and accurately.\n\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", article.Title))
	if article.URL != "" {
		sb.WriteString(fmt.Sprintf("URL: %s\n", article.URL))
	}
	sb.WriteString("\nArticle content:\n")
	sb.WriteString(truncate(article.Content, 12000))
	return sb.String()
}

func summaryPrompt(title, content string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(fmt.Sprintf("Title: %s\n\n", title))
	}
	sb.WriteString(truncate(content, 12000))
	return sb.String()
}

// truncate cuts s to at most n bytes. Prompts carry article bodies, which can
// be arbitrarily large.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
