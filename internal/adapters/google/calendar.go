package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"autofy/backend/internal/engine"
	"autofy/backend/pkg/models"
)

type createEventConfig struct {
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Attendees   []string `json:"attendees"`
}

// CreateEvent inserts an event on the account's primary calendar. Start and
// end default to now and one hour from now, in UTC.
func (s *Service) CreateEvent(ctx context.Context, cred models.ConnectedApp, config, runContext map[string]interface{}) engine.Outcome {
	var cfg createEventConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to create event: %v", err)}
	}
	if cfg.Summary == "" {
		cfg.Summary = "Autofy Event"
	}
	if cfg.Description == "" {
		cfg.Description = "Created by Autofy workflow"
	}
	now := time.Now().UTC()
	if cfg.StartTime == "" {
		cfg.StartTime = now.Format(time.RFC3339)
	}
	if cfg.EndTime == "" {
		cfg.EndTime = now.Add(time.Hour).Format(time.RFC3339)
	}

	attendees := make([]map[string]string, 0, len(cfg.Attendees))
	for _, email := range cfg.Attendees {
		attendees = append(attendees, map[string]string{"email": email})
	}

	event := map[string]interface{}{
		"summary":     cfg.Summary,
		"description": cfg.Description,
		"start":       map[string]string{"dateTime": cfg.StartTime, "timeZone": "UTC"},
		"end":         map[string]string{"dateTime": cfg.EndTime, "timeZone": "UTC"},
		"attendees":   attendees,
	}

	var resp struct {
		ID       string `json:"id"`
		HTMLLink string `json:"htmlLink"`
	}
	endpoint := s.calendarBaseURL + "/calendar/v3/calendars/primary/events"
	err := doJSON(ctx, s.httpClient(ctx, cred), http.MethodPost, endpoint, event, &resp)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to create event: %v", err)}
	}

	return engine.Outcome{
		Success: true,
		Message: "Calendar event created",
		Data:    map[string]interface{}{"eventId": resp.ID, "link": resp.HTMLLink},
	}
}

// CheckNewEvents lists the next ten upcoming events. It is the Calendar trigger.
func (s *Service) CheckNewEvents(ctx context.Context, cred models.ConnectedApp, config, runContext map[string]interface{}) engine.Outcome {
	query := url.Values{}
	query.Set("timeMin", time.Now().UTC().Format(time.RFC3339))
	query.Set("maxResults", "10")
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")

	var resp struct {
		Items []map[string]interface{} `json:"items"`
	}
	endpoint := s.calendarBaseURL + "/calendar/v3/calendars/primary/events?" + query.Encode()
	err := doJSON(ctx, s.httpClient(ctx, cred), http.MethodGet, endpoint, nil, &resp)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to check events: %v", err)}
	}

	events := resp.Items
	if events == nil {
		events = []map[string]interface{}{}
	}
	return engine.Outcome{
		Success: true,
		Message: fmt.Sprintf("Found %d upcoming events", len(events)),
		Data:    map[string]interface{}{"events": events},
	}
}
