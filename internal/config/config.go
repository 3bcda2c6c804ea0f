package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend selectors
const (
	BackendPostgres = "postgres"
	BackendDocstore = "docstore"
	BackendMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	TelegramToken string
	AdminChatID   int64
	AdminIDs      []int64

	// Storage backend selection
	Backend     string
	DatabaseURL string

	// Document store configuration (Backend == docstore)
	DocstoreURL    string
	DocstoreBinID  string
	DocstoreAPIKey string

	PollInterval time.Duration
	NotifyDelay  time.Duration

	// Menu links (optional)
	AppURL     string
	ChannelURL string

	Port string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Admin channel (required)
	chatIDStr := os.Getenv("ADMIN_CHAT_ID")
	if chatIDStr == "" {
		return nil, fmt.Errorf("ADMIN_CHAT_ID is required (ID of the admin group/channel)")
	}
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %s", chatIDStr)
	}
	config.AdminChatID = chatID

	// Admin user IDs (required)
	adminIDsStr := os.Getenv("ADMIN_IDS")
	if adminIDsStr == "" {
		return nil, fmt.Errorf("ADMIN_IDS is required (comma-separated list of Telegram user IDs)")
	}
	for _, idStr := range strings.Split(adminIDsStr, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in ADMIN_IDS: %s", idStr)
		}
		config.AdminIDs = append(config.AdminIDs, id)
	}

	// Storage backend
	config.Backend = os.Getenv("STORAGE_BACKEND")
	if config.Backend == "" {
		config.Backend = BackendPostgres
	}

	switch config.Backend {
	case BackendPostgres:
		config.DatabaseURL = os.Getenv("DATABASE_URL")
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is postgres")
		}
	case BackendDocstore:
		config.DocstoreURL = os.Getenv("DOCSTORE_URL")
		config.DocstoreBinID = os.Getenv("DOCSTORE_BIN_ID")
		config.DocstoreAPIKey = os.Getenv("DOCSTORE_API_KEY")
		if config.DocstoreURL == "" || config.DocstoreBinID == "" || config.DocstoreAPIKey == "" {
			return nil, fmt.Errorf("DOCSTORE_URL, DOCSTORE_BIN_ID and DOCSTORE_API_KEY are required when STORAGE_BACKEND is docstore")
		}
	case BackendMemory:
		// nothing to configure
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND: %s (expected postgres, docstore or memory)", config.Backend)
	}

	// Poll interval for outbound admin messages
	config.PollInterval = 5 * time.Second
	if intervalStr := os.Getenv("POLL_INTERVAL_SECONDS"); intervalStr != "" {
		seconds, err := strconv.Atoi(intervalStr)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL_SECONDS: %s", intervalStr)
		}
		config.PollInterval = time.Duration(seconds) * time.Second
	}

	// Delay between notification sends
	config.NotifyDelay = 500 * time.Millisecond
	if delayStr := os.Getenv("NOTIFY_DELAY_MS"); delayStr != "" {
		ms, err := strconv.Atoi(delayStr)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("invalid NOTIFY_DELAY_MS: %s", delayStr)
		}
		config.NotifyDelay = time.Duration(ms) * time.Millisecond
	}

	config.AppURL = os.Getenv("APP_URL")
	config.ChannelURL = os.Getenv("CHANNEL_URL")

	config.Port = os.Getenv("PORT")
	if config.Port == "" {
		config.Port = "8080"
	}

	return config, nil
}
