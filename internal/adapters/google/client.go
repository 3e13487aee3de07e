// Package google implements the provider adapters for Google Workspace apps
// (Gmail, Sheets, Calendar, Drive). Each adapter is an engine capability: it
// decodes its own typed config, calls the Google REST API with the step's
// connected-account credential, and converts every failure into a failed
// outcome.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"autofy/backend/pkg/models"
)

const (
	AppGmail    = "Gmail"
	AppSheets   = "Google Sheets"
	AppCalendar = "Google Calendar"
	AppDrive    = "Google Drive"
)

// Service holds the OAuth client configuration shared by all Google adapters.
// Base URLs are fields so tests can point the adapters at a local server.
type Service struct {
	conf *oauth2.Config

	gmailBaseURL    string
	sheetsBaseURL   string
	calendarBaseURL string
	driveBaseURL    string
	uploadBaseURL   string
}

// NewService creates a Service using the application's Google OAuth client.
func NewService(clientID, clientSecret string) *Service {
	return &Service{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     googleoauth.Endpoint,
		},
		gmailBaseURL:    "https://gmail.googleapis.com",
		sheetsBaseURL:   "https://sheets.googleapis.com",
		calendarBaseURL: "https://www.googleapis.com",
		driveBaseURL:    "https://www.googleapis.com",
		uploadBaseURL:   "https://www.googleapis.com",
	}
}

// httpClient returns an HTTP client that authenticates with the connected
// account's tokens, refreshing the access token when it has expired.
func (s *Service) httpClient(ctx context.Context, cred models.ConnectedApp) *http.Client {
	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
	}
	return s.conf.Client(ctx, token)
}

// apiError is returned for non-2xx responses from a Google API.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("google api returned status %d: %s", e.Status, e.Body)
}

// doJSON issues a request with an optional JSON body and decodes a JSON
// response into out when out is non-nil.
func doJSON(ctx context.Context, client *http.Client, method, url string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apiError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}
	return nil
}

// decodeConfig maps a step's raw config into the adapter's typed config.
func decodeConfig(raw map[string]interface{}, out interface{}) error {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("invalid step config: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("invalid step config: %w", err)
	}
	return nil
}
