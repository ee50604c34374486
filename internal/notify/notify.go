// Package notify pushes text messages to customers over LINE.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/table-order/internal/config"
)

const DefaultPushEndpoint = "https://api.line.me/v2/bot/message/push"

type Notifier interface {
	Push(ctx context.Context, userID, text string) error
}

// New returns a LINE notifier, or Noop when credentials are missing.
func New(cfg config.LineConfig) Notifier {
	if cfg.ChannelAccessToken == "" || cfg.ChannelSecret == "" {
		log.Warn().Msg("LINE configuration not set, push notifications are disabled")
		return Noop{}
	}
	return NewLINE(cfg.ChannelAccessToken, DefaultPushEndpoint, &http.Client{Timeout: 10 * time.Second})
}

// OrderConfirmation is the bilingual message sent once an order is stored.
func OrderConfirmation(tableNumber, orderCode string) string {
	en := fmt.Sprintf("🍱 Thank you. Your order from Table %s has been received. Order ID: %s. We will notify you when it is ready.", tableNumber, orderCode)
	jp := fmt.Sprintf("🍱 ご注文ありがとうございます。テーブル %s のご注文を受け付けました。注文番号: %s。準備ができ次第お知らせします。", tableNumber, orderCode)
	return en + "\n\n" + jp
}

type Noop struct{}

func (Noop) Push(_ context.Context, userID, _ string) error {
	log.Debug().Str("user_id", userID).Msg("LINE client not configured, skipping push message")
	return nil
}

type LINE struct {
	token    string
	endpoint string
	client   *http.Client
}

func NewLINE(token, endpoint string, client *http.Client) *LINE {
	if client == nil {
		client = http.DefaultClient
	}
	return &LINE{token: token, endpoint: endpoint, client: client}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

func (l *LINE) Push(ctx context.Context, userID, text string) error {
	body, err := json.Marshal(pushRequest{
		To:       userID,
		Messages: []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("notify: failed to encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.token)

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: push rejected with status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	log.Info().Str("user_id", userID).Msg("Push message sent")
	return nil
}
