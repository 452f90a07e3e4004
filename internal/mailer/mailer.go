package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Message is a single outbound email.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewVerificationMessage builds the account verification email.
func NewVerificationMessage(frontendURL, to, name, token string) Message {
	if name == "" {
		name = "User"
	}
	link := strings.TrimRight(frontendURL, "/") + "/verify-email?token=" + url.QueryEscape(token)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	b.WriteString("Thank you for registering! Please verify your email by clicking the link below:\n\n")
	b.WriteString(link + "\n\n")
	b.WriteString("This link will expire in 24 hours.\n\n")
	b.WriteString("If you didn't create this account, please ignore this email.\n")

	return Message{
		To:      to,
		Subject: "Verify Your Email - SOS Application",
		Text:    b.String(),
	}
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender creates a sender for development setups without a mail API.
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email (not sent, no mail API configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}

// HTTPSender posts messages to a transactional mail API as JSON.
type HTTPSender struct {
	client *resty.Client
	from   string
	log    *zap.Logger
}

// NewHTTPSender creates a sender for the mail API at baseURL.
func NewHTTPSender(baseURL, apiKey, from string, log *zap.Logger) *HTTPSender {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPSender{client: client, from: from, log: log}
}

// Send delivers the message. Any non-2xx response is an error.
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = s.from
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post("")
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		s.log.Warn("mail API rejected message",
			zap.String("to", msg.To),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("send email: mail API returned %d", resp.StatusCode())
	}
	return nil
}

// New picks the HTTP sender when a mail API is configured, otherwise the log sender.
func New(apiURL, apiKey, from string, log *zap.Logger) Sender {
	if apiURL == "" {
		return NewLogSender(log)
	}
	return NewHTTPSender(apiURL, apiKey, from, log)
}
