package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"autofy/backend/internal/engine"
	"autofy/backend/pkg/models"
)

type createFolderConfig struct {
	FolderName string `json:"folderName"`
}

type uploadFileConfig struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}

const folderMimeType = "application/vnd.google-apps.folder"

// defaultFolderName generates a timestamped name for folders created without
// an explicit one.
func defaultFolderName(now time.Time) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(now.UTC().Format(time.RFC3339))
	if len(ts) > 19 {
		ts = ts[:19]
	}
	return "Autofy_Folder_" + ts
}

// CreateFolder creates a Drive folder, auto-generating a timestamped name
// when none is configured.
func (s *Service) CreateFolder(ctx context.Context, cred models.ConnectedApp, config, runContext map[string]interface{}) engine.Outcome {
	var cfg createFolderConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to create folder: %v", err)}
	}
	if cfg.FolderName == "" {
		cfg.FolderName = defaultFolderName(time.Now())
	}

	var resp struct {
		ID          string `json:"id"`
		WebViewLink string `json:"webViewLink"`
	}
	endpoint := s.driveBaseURL + "/drive/v3/files?fields=id,name,webViewLink"
	body := map[string]string{"name": cfg.FolderName, "mimeType": folderMimeType}
	err := doJSON(ctx, s.httpClient(ctx, cred), http.MethodPost, endpoint, body, &resp)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to create folder: %v", err)}
	}

	return engine.Outcome{
		Success: true,
		Message: "Folder created in Drive",
		Data:    map[string]interface{}{"folderId": resp.ID, "link": resp.WebViewLink},
	}
}

// UploadFile uploads text content as a Drive file via a multipart/related
// request. fileName and content are required.
func (s *Service) UploadFile(ctx context.Context, cred models.ConnectedApp, config, runContext map[string]interface{}) engine.Outcome {
	var cfg uploadFileConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to upload file: %v", err)}
	}
	if cfg.FileName == "" || cfg.Content == "" {
		return engine.Outcome{Success: false, Message: "Configuration missing: fileName and content required"}
	}
	if cfg.MimeType == "" {
		cfg.MimeType = "text/plain"
	}

	body, contentType, err := multipartUpload(cfg)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to upload file: %v", err)}
	}

	endpoint := s.uploadBaseURL + "/upload/drive/v3/files?uploadType=multipart&fields=id,name,webViewLink"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to upload file: %v", err)}
	}
	req.Header.Set("Content-Type", contentType)

	httpResp, err := s.httpClient(ctx, cred).Do(req)
	if err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to upload file: %v", err)}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return engine.Outcome{
			Success: false,
			Message: fmt.Sprintf("Failed to upload file: google api returned status %d: %s", httpResp.StatusCode, bytes.TrimSpace(raw)),
		}
	}

	var resp struct {
		ID          string `json:"id"`
		WebViewLink string `json:"webViewLink"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return engine.Outcome{Success: false, Message: fmt.Sprintf("Failed to upload file: %v", err)}
	}

	return engine.Outcome{
		Success: true,
		Message: "File uploaded to Drive",
		Data:    map[string]interface{}{"fileId": resp.ID, "link": resp.WebViewLink},
	}
}

// multipartUpload builds the metadata + media body the Drive multipart upload
// endpoint expects.
func multipartUpload(cfg uploadFileConfig) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := writer.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	metadata := map[string]string{"name": cfg.FileName, "mimeType": cfg.MimeType}
	if err := json.NewEncoder(metaPart).Encode(metadata); err != nil {
		return nil, "", err
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", cfg.MimeType)
	mediaPart, err := writer.CreatePart(mediaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(mediaPart, cfg.Content); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	contentType := "multipart/related; boundary=" + writer.Boundary()
	return &buf, contentType, nil
}
