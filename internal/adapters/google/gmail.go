package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"autofy/backend/internal/engine"
	"autofy/backend/pkg/models"
)

type sendEmailConfig struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendEmail sends a plain-text email through the Gmail API. Missing config
// fields fall back to the connected account and boilerplate content.
func (s *Service) SendEmail(ctx context.Context, cred models.ConnectedApp, config, runContext map[string]interface{}) engine.Outcome {
	var cfg sendEmailConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to send email: %v", err)}
	}
	if cfg.To == "" {
		cfg.To = cred.AccountEmail
	}
	if cfg.Subject == "" {
		cfg.Subject = "Automated Email from Autofy"
	}
	if cfg.Body == "" {
		cfg.Body = "This email was sent by your Autofy workflow."
	}

	message := strings.Join([]string{
		"To: " + cfg.To,
		"Subject: " + cfg.Subject,
		"",
		cfg.Body,
	}, "\n")
	raw := base64.RawURLEncoding.EncodeToString([]byte(message))

	var resp struct {
		ID string `json:"id"`
	}
	endpoint := s.gmailBaseURL + "/gmail/v1/users/me/messages/send"
	err := doJSON(ctx, s.httpClient(ctx, cred), http.MethodPost, endpoint, map[string]string{"raw": raw}, &resp)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to send email: %v", err)}
	}

	return engine.Outcome{
		Success: true,
		Message: "Email sent successfully",
		Data:    map[string]interface{}{"messageId": resp.ID},
	}
}

// CheckNewEmails lists up to five unread messages. It is the Gmail trigger.
func (s *Service) CheckNewEmails(ctx context.Context, cred models.ConnectedApp, config, runContext map[string]interface{}) engine.Outcome {
	query := url.Values{}
	query.Set("maxResults", "5")
	query.Set("q", "is:unread")

	var resp struct {
		Messages []map[string]interface{} `json:"messages"`
	}
	endpoint := s.gmailBaseURL + "/gmail/v1/users/me/messages?" + query.Encode()
	err := doJSON(ctx, s.httpClient(ctx, cred), http.MethodGet, endpoint, nil, &resp)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to check emails: %v", err)}
	}

	emails := resp.Messages
	if emails == nil {
		emails = []map[string]interface{}{}
	}
	return engine.Outcome{
		Success: true,
		Message: fmt.Sprintf("Found %d unread emails", len(emails)),
		Data:    map[string]interface{}{"emails": emails},
	}
}
