package whatsapp

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

	"github.com/smallbiznis/mensalidade/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 2048
)

var (
	ErrNotConfigured = errors.New("whatsapp_not_configured")
	ErrInvalidPhone  = errors.New("invalid_phone")
)

// APIError is a non-2xx answer from the Cloud API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d body=%s", e.StatusCode, e.Body)
}

// connectionLost reports whether the answer says the channel itself is unusable,
// as opposed to a problem with one recipient.
func (e *APIError) connectionLost() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		e.StatusCode == http.StatusForbidden ||
		e.StatusCode >= http.StatusInternalServerError
}

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Tracker *StatusTracker
}

// Client sends text messages through the WhatsApp Cloud API.
type Client struct {
	cfg     config.WhatsAppConfig
	http    *http.Client
	log     *zap.Logger
	tracker *StatusTracker
}

func NewClient(p Params) *Client {
	return &Client{
		cfg:     p.Cfg.WhatsApp,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     p.Log.Named("whatsapp.client"),
		tracker: p.Tracker,
	}
}

type textMessage struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textPayload `json:"text"`
}

type textPayload struct {
	Body string `json:"body"`
}

func (c *Client) Send(ctx context.Context, phone, message string) error {
	if !c.cfg.Enabled() {
		c.tracker.Update(StateDisconnected, ErrNotConfigured.Error())
		return ErrNotConfigured
	}

	to, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	body, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textPayload{Body: message},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.cfg.APIBase, c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// Ping checks that the configured phone number is reachable with the token.
func (c *Client) Ping(ctx context.Context) error {
	if !c.cfg.Enabled() {
		c.tracker.Update(StateDisconnected, ErrNotConfigured.Error())
		return ErrNotConfigured
	}

	url := fmt.Sprintf("%s/%s?fields=id", c.cfg.APIBase, c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		c.tracker.Update(StateDisconnected, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if apiErr.connectionLost() {
			c.tracker.Update(StateDisconnected, fmt.Sprintf("status %d", resp.StatusCode))
		}
		c.log.Warn("whatsapp request rejected",
			zap.String("method", req.Method),
			zap.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	c.tracker.Update(StateConnected, "")
	return nil
}
