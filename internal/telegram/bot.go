package telegram

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const retryDelay = 3 * time.Second

type BotOptions struct {
	// WebhookBaseURL switches the bot to webhook mode when set.
	WebhookBaseURL string
	// WebhookSecret is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token.
	WebhookSecret string
	PollTimeout   int
}

// Bot receives updates either through a webhook or by long polling and feeds
// them to the handler.
type Bot struct {
	client  *Client
	handler *UpdateHandler
	opts    BotOptions
	path    string

	stopCh   chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewBot(client *Client, handler *UpdateHandler, opts BotOptions) *Bot {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30
	}
	return &Bot{
		client:  client,
		handler: handler,
		opts:    opts,
		path:    tokenSecret(client.token),
		stopCh:  make(chan struct{}),
	}
}

func tokenSecret(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h[:16])
}

func (b *Bot) webhookMode() bool {
	return b.opts.WebhookBaseURL != ""
}

// WebhookURL is where Telegram delivers updates in webhook mode.
func (b *Bot) WebhookURL() string {
	return fmt.Sprintf("%s/webhook/bot/%s", strings.TrimRight(b.opts.WebhookBaseURL, "/"), b.path)
}

func (b *Bot) Start() error {
	if b.webhookMode() {
		if err := b.client.SetWebhook(b.WebhookURL(), b.opts.WebhookSecret); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		log.Printf("[SupportBot] started (webhook: %s)", b.WebhookURL())
		return nil
	}

	// getUpdates is refused while a webhook is registered
	if err := b.client.DeleteWebhook(); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go b.pollLoop(ctx)
	log.Println("[SupportBot] started (long polling)")
	return nil
}

func (b *Bot) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		if b.cancel != nil {
			b.cancel()
		}
		b.wg.Wait()
		if b.webhookMode() {
			if err := b.client.DeleteWebhook(); err != nil {
				log.Printf("[SupportBot] delete webhook: %v", err)
			}
		}
		log.Println("[SupportBot] stopped")
	})
}

func (b *Bot) pollLoop(ctx context.Context) {
	defer b.wg.Done()
	var offset int64
	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		updates, err := b.client.GetUpdates(ctx, offset, b.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[SupportBot] getUpdates: %v", err)
			select {
			case <-b.stopCh:
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			b.handler.Handle(upd)
		}
	}
}

func (b *Bot) HandleWebhook(c *gin.Context) {
	if c.Param("secret") != b.path {
		c.Status(http.StatusNotFound)
		return
	}

	if b.opts.WebhookSecret != "" {
		headerSecret := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
		if headerSecret != b.opts.WebhookSecret {
			c.Status(http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	var upd Update
	if err := json.Unmarshal(body, &upd); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	go b.handler.Handle(upd)

	c.Status(http.StatusOK)
}
