package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier posts the formatted message to a chat through the Bot API.
type TelegramNotifier struct {
	baseURL string
	token   string
	chatID  string
	http    *http.Client
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		baseURL: telegramAPI,
		token:   strings.TrimSpace(token),
		chatID:  strings.TrimSpace(chatID),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, ev Event) error {
	if n.token == "" || n.chatID == "" {
		return errors.New("telegram token or chat id not configured")
	}
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    FormatMessage(ev),
	}
	url := n.baseURL + "/bot" + n.token + "/sendMessage"
	if err := postJSON(ctx, n.http, url, "", payload); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// WebhookNotifier posts the event plus its rendered text as JSON.
type WebhookNotifier struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhookNotifier(url, token string) *WebhookNotifier {
	return &WebhookNotifier{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, ev Event) error {
	if n.url == "" {
		return errors.New("webhook url not configured")
	}
	payload := struct {
		Event
		Text string `json:"text"`
	}{Event: ev, Text: FormatMessage(ev)}
	if err := postJSON(ctx, n.http, n.url, n.token, payload); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url, bearer string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx status %d", resp.StatusCode)
	}
	return nil
}
