package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiBaseURL = "https://api.telegram.org"

type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

func NewClient(token string) *Client {
	return NewClientWithBaseURL(apiBaseURL, token)
}

// NewClientWithBaseURL points the client at a Bot API compatible server.
func NewClientWithBaseURL(base, token string) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{},
		baseURL:    fmt.Sprintf("%s/bot%s", base, token),
		timeout:    30 * time.Second,
	}
}

func (c *Client) call(method string, payload interface{}) (json.RawMessage, error) {
	return c.callContext(context.Background(), c.timeout, method, payload)
}

func (c *Client) callContext(ctx context.Context, timeout time.Duration, method string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	if !apiResp.OK {
		return nil, fmt.Errorf("telegram %s: %s", method, apiResp.Description)
	}

	return apiResp.Result, nil
}

func (c *Client) SendMessage(chatID int64, text string, replyMarkup interface{}) (int64, error) {
	req := SendMessageRequest{
		ChatID: chatID,
		Text:   text,
	}

	if replyMarkup != nil {
		rm, err := json.Marshal(replyMarkup)
		if err != nil {
			return 0, err
		}
		req.ReplyMarkup = rm
	}

	result, err := c.call("sendMessage", req)
	if err != nil {
		return 0, err
	}

	var msg MessageResult
	if err := json.Unmarshal(result, &msg); err != nil {
		return 0, fmt.Errorf("unmarshal message: %w", err)
	}
	return msg.MessageID, nil
}

func (c *Client) AnswerCallbackQuery(callbackID, text string) error {
	req := AnswerCallbackQueryRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	}
	_, err := c.call("answerCallbackQuery", req)
	return err
}

// GetUpdates long-polls for up to timeout seconds. ctx cancels the wait.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	req := GetUpdatesRequest{
		Offset:         offset,
		Timeout:        timeout,
		AllowedUpdates: []string{"message", "callback_query"},
	}
	result, err := c.callContext(ctx, time.Duration(timeout)*time.Second+c.timeout, "getUpdates", req)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("unmarshal updates: %w", err)
	}
	return updates, nil
}

func (c *Client) SetWebhook(url, secretToken string) error {
	req := SetWebhookRequest{URL: url, SecretToken: secretToken}
	_, err := c.call("setWebhook", req)
	return err
}

func (c *Client) DeleteWebhook() error {
	_, err := c.call("deleteWebhook", struct{}{})
	return err
}
