package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"autofy/backend/internal/engine"
	"autofy/backend/pkg/models"
)

type sheetsConfig struct {
	SpreadsheetID string          `json:"spreadsheetId"`
	Range         string          `json:"range"`
	Values        [][]interface{} `json:"values"`
}

func (s *Service) sheetsValuesURL(spreadsheetID, rangeSpec, suffix string, query url.Values) string {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s%s",
		s.sheetsBaseURL, url.PathEscape(spreadsheetID), url.PathEscape(rangeSpec), suffix)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

// AddRow appends a row to a spreadsheet. spreadsheetId and range are required;
// when no values are configured the row defaults to a timestamp plus the
// JSON-encoded run context, so a bare Add Row step still records something
// useful about the run that reached it.
func (s *Service) AddRow(ctx context.Context, cred models.ConnectedApp, config, runContext map[string]interface{}) engine.Outcome {
	var cfg sheetsConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to add row: %v", err)}
	}
	if cfg.SpreadsheetID == "" || cfg.Range == "" {
		return engine.Outcome{Success: false, Message: "Configuration missing: spreadsheetId and range required"}
	}

	values := cfg.Values
	if len(values) == 0 {
		contextJSON, _ := json.Marshal(runContext)
		values = [][]interface{}{{time.Now().UTC().Format(time.RFC3339), string(contextJSON)}}
	}

	query := url.Values{}
	query.Set("valueInputOption", "USER_ENTERED")

	var resp struct {
		Updates map[string]interface{} `json:"updates"`
	}
	endpoint := s.sheetsValuesURL(cfg.SpreadsheetID, cfg.Range, ":append", query)
	err := doJSON(ctx, s.httpClient(ctx, cred), http.MethodPost, endpoint, map[string]interface{}{"values": values}, &resp)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to add row: %v", err)}
	}

	return engine.Outcome{
		Success: true,
		Message: "Row added to spreadsheet",
		Data:    map[string]interface{}{"updates": resp.Updates},
	}
}

// UpdateRow overwrites the values of a spreadsheet range.
func (s *Service) UpdateRow(ctx context.Context, cred models.ConnectedApp, config, runContext map[string]interface{}) engine.Outcome {
	var cfg sheetsConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to update row: %v", err)}
	}
	if cfg.SpreadsheetID == "" || cfg.Range == "" {
		return engine.Outcome{Success: false, Message: "Configuration missing: spreadsheetId and range required"}
	}

	query := url.Values{}
	query.Set("valueInputOption", "USER_ENTERED")

	var resp map[string]interface{}
	endpoint := s.sheetsValuesURL(cfg.SpreadsheetID, cfg.Range, "", query)
	err := doJSON(ctx, s.httpClient(ctx, cred), http.MethodPut, endpoint, map[string]interface{}{"values": cfg.Values}, &resp)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to update row: %v", err)}
	}

	return engine.Outcome{
		Success: true,
		Message: "Row updated in spreadsheet",
		Data:    map[string]interface{}{"updates": resp},
	}
}

// CheckNewRows reads a spreadsheet range. It is the Sheets trigger.
func (s *Service) CheckNewRows(ctx context.Context, cred models.ConnectedApp, config, runContext map[string]interface{}) engine.Outcome {
	var cfg sheetsConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to check rows: %v", err)}
	}
	if cfg.SpreadsheetID == "" || cfg.Range == "" {
		return engine.Outcome{Success: false, Message: "Configuration missing: spreadsheetId and range required"}
	}

	var resp struct {
		Values [][]interface{} `json:"values"`
	}
	endpoint := s.sheetsValuesURL(cfg.SpreadsheetID, cfg.Range, "", nil)
	err := doJSON(ctx, s.httpClient(ctx, cred), http.MethodGet, endpoint, nil, &resp)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to check rows: %v", err)}
	}

	rows := resp.Values
	if rows == nil {
		rows = [][]interface{}{}
	}
	return engine.Outcome{
		Success: true,
		Message: fmt.Sprintf("Retrieved %d rows", len(rows)),
		Data:    map[string]interface{}{"rows": rows},
	}
}
