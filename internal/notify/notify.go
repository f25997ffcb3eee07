// Package notify delivers operator alerts about Flex token lifetime.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/guttosm/flexsync/internal/logger"
	"github.com/guttosm/flexsync/internal/token"
)

// Notifier sends a short text alert somewhere a human will see it.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// LogNotifier writes alerts to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, text string) error {
	logger.L().Warn().Str("channel", "log").Msg(text)
	return nil
}

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier posts alerts to a chat through the Bot API sendMessage method.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	// APIURL overrides the Bot API host; tests point it at an httptest server.
	APIURL string
	Client *http.Client
}

func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIURL:   telegramAPI,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if n.BotToken == "" || n.ChatID == "" {
		return fmt.Errorf("telegram: bot token and chat id are required")
	}
	body, err := json.Marshal(map[string]string{
		"chat_id":    n.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}

	base := n.APIURL
	if base == "" {
		base = telegramAPI
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", base, n.BotToken), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		// the request URL embeds the bot token
		return fmt.Errorf("telegram: send failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %s", resp.Status)
	}
	return nil
}

// Multi fans one alert out to several notifiers and returns the first error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, text string) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, text); err != nil && first == nil {
			first = err
		}
	}
	return first
}

const deliveryTimeout = 10 * time.Second

// pending tracks alerts still being delivered.
var pending sync.WaitGroup

// ExpiryCallbacks adapts n into the tracker's expiring-soon and expired
// callbacks. Alerts are delivered in the background; the tracker's callers
// never wait on the network. Delivery failures are logged and never reach
// the tracker.
func ExpiryCallbacks(n Notifier) (onExpiringSoon, onExpired token.Callback) {
	send := func(accountID, text string) {
		pending.Add(1)
		go func() {
			defer pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			defer cancel()
			if err := n.Notify(ctx, text); err != nil {
				log := logger.ForAccount(accountID)
				log.Error().Err(err).Msg("token alert not delivered")
			}
		}()
	}

	onExpiringSoon = func(accountID string, info token.Info) {
		left := time.Until(info.ExpiresAt).Round(time.Minute)
		send(accountID, fmt.Sprintf("*Flex token expiring*\nAccount `%s` token %s expires in %s (at %s).",
			accountID, info.Masked(), left, info.ExpiresAt.UTC().Format(time.RFC3339)))
	}
	onExpired = func(accountID string, info token.Info) {
		send(accountID, fmt.Sprintf("*Flex token expired*\nAccount `%s` token %s expired at %s. Register a new token.",
			accountID, info.Masked(), info.ExpiresAt.UTC().Format(time.RFC3339)))
	}
	return onExpiringSoon, onExpired
}

// Flush waits for alerts still in flight, or until ctx is done.
func Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
