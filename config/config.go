// Package config loads feed-server configuration from the environment.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	DatabasePath string
	ListenAddr   string
	OpenAIAPIKey string
	ChatModel    string
	SummaryModel string
	ChatHistory  int // max prior messages sent with a chat request
}

func Load() *Config {
	return &Config{
		DatabasePath: getEnv("FEED_SERVER_DB", "feed-server.db"),
		ListenAddr:   getEnv("FEED_SERVER_ADDR", ":8080"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		ChatModel:    getEnv("FEED_SERVER_CHAT_MODEL", "gpt-4o-mini"),
		SummaryModel: getEnv("FEED_SERVER_SUMMARY_MODEL", "gpt-4o-mini"),
		ChatHistory:  getEnvAsInt("FEED_SERVER_CHAT_HISTORY", 20),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
