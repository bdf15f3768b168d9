package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTelegramAPI is the production Bot API root.
const DefaultTelegramAPI = "https://api.telegram.org"

// Messenger sends replies back to the chat. The transport behind it is a
// collaborator, not part of the core; handlers only see this interface.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error
}

// TelegramClient is a minimal Bot API client implementing Messenger.
type TelegramClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewTelegramClient creates a Bot API client (DefaultTelegramAPI when baseURL is empty).
func NewTelegramClient(token, baseURL string) *TelegramClient {
	if baseURL == "" {
		baseURL = DefaultTelegramAPI
	}
	return &TelegramClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

// SendMessage delivers a text reply to the chat.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
}

// SendPhoto delivers a photo by URL with a caption.
func (c *TelegramClient) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	return c.call(ctx, "sendPhoto", map[string]interface{}{
		"chat_id": chatID,
		"photo":   photoURL,
		"caption": caption,
	})
}

func (c *TelegramClient) call(ctx context.Context, method string, payload map[string]interface{}) error {
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram %s returned %d: %s", method, resp.StatusCode, detail)
	}
	return nil
}
