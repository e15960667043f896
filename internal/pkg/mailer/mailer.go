package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

var ErrDisabled = errors.New("mailer disabled")

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Client posts messages to a transactional mail HTTP API.
type Client struct {
	endpoint string
	apiKey   string
	from     string
	http     *http.Client
}

func New(endpoint, apiKey, from string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled is false when no endpoint is configured; Send then returns ErrDisabled.
func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if msg.To == "" {
		return errors.New("mailer: empty recipient")
	}

	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mailer: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	log.Printf("mail_sent to=%s subject=%q", msg.To, msg.Subject)
	return nil
}
