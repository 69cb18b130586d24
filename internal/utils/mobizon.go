package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to the Mobizon SMS HTTP API.
type Client struct {
	ApiKey  string
	Sender  string
	BaseURL string
	DryRun  bool

	HTTP *http.Client
	Log  *zap.Logger
}

type SendSMSResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"message"`
	Data struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

func NewClientWithOptions(apiKey, sender, baseURL string, dryRun bool, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.mobizon.kz"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		ApiKey:  apiKey,
		Sender:  sender,
		BaseURL: strings.TrimRight(baseURL, "/"),
		DryRun:  dryRun,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Log:     log,
	}
}

// SendSMS posts text to the recipient. In dry-run mode nothing leaves the
// process and the text is not logged.
func (c *Client) SendSMS(ctx context.Context, to, text string) (*SendSMSResponse, error) {
	if c.DryRun || c.ApiKey == "" || c.ApiKey == "dry-run" {
		c.Log.Info("[mobizon][dry-run] sms suppressed", zap.String("to", to), zap.String("sender", c.Sender))
		return &SendSMSResponse{Code: 0}, nil
	}

	form := url.Values{
		"apiKey":    {c.ApiKey},
		"recipient": {strings.TrimPrefix(to, "+")},
		"text":      {text},
	}
	if c.Sender != "" {
		form.Set("from", c.Sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/service/message/sendsmsmessage", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send sms request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read sms response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mobizon http status %d", resp.StatusCode)
	}

	var result SendSMSResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse sms response: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("mobizon returned error code %d: %s", result.Code, result.Msg)
	}
	c.Log.Info("[mobizon] sms sent", zap.String("to", to), zap.String("message_id", result.Data.MessageID))
	return &result, nil
}
