// Package sms is the provider-shaped SMS transport. Without a base URL it
// stays in simulated mode and never touches the network; with one it posts
// the Twilio-style form to the configured endpoint (see cmd/mock-provider).
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"billdesk/internal/util"
)

type Client struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	HTTP       *http.Client
}

type SendRequest struct {
	To   string
	Body string
	From string
}

type SendResponse struct {
	Sid       string `json:"sid"`
	Status    string `json:"status"`
	ErrorCode *int   `json:"error_code"`
	Message   string `json:"message"`
}

func (c *Client) Send(ctx context.Context, req SendRequest) (SendResponse, error) {
	from := req.From
	if from == "" {
		from = c.FromNumber
	}

	if c.BaseURL == "" {
		slog.Info("simulating sms send", "to", req.To, "from", from)
		return SendResponse{Sid: util.NewMessageSID(), Status: "sent"}, nil
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("Body", req.Body)
	form.Set("From", from)

	endpoint := strings.TrimRight(c.BaseURL, "/") +
		"/2010-04-01/Accounts/" + c.AccountSID + "/Messages.json"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(c.AccountSID, c.AuthToken)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return SendResponse{}, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	var out SendResponse
	_ = json.Unmarshal(b, &out)

	// provider returns 201 for created; treat 2xx as success
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Message != "" {
			return out, errors.New(out.Message)
		}
		return out, errors.New("sms send failed")
	}
	return out, nil
}
