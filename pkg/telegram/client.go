package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const fetchTimeout = 30 * time.Second

// Client wraps the Bot API connection and the file download path. Fetch
// failures are transient from the caller's point of view, so FetchBytes does
// one retry before giving up.
type Client struct {
	api  *tgbotapi.BotAPI
	http *http.Client
}

func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	return &Client{
		api:  api,
		http: &http.Client{Timeout: fetchTimeout},
	}, nil
}

// API exposes the underlying Bot API for the update loop and replies.
func (c *Client) API() *tgbotapi.BotAPI {
	return c.api
}

// FetchBytes downloads the raw bytes of a Telegram file. One retry on
// failure; a cancelled context stops the retry.
func (c *Client) FetchBytes(ctx context.Context, fileID string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		data, err := c.fetchOnce(ctx, fileID)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, fileID string) ([]byte, error) {
	file, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.api.Token), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	return data, nil
}
