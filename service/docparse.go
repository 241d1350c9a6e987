package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marketingkamdi24/Rowbooster-UI-sub001/config"
)

// TextExtractor turns one source document into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, fileURL, filename string) (*DocparseResult, error)
}

// DocparseResult is the extracted text of one document.
type DocparseResult struct {
	Text      string
	PageCount int
}

// DocparseService calls the external document-parsing service.
type DocparseService struct {
	config     *config.DocparseConfig
	httpClient *http.Client
}

type docparseRequest struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type docparseResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		Text      string `json:"text"`
		PageCount int    `json:"page_count"`
	} `json:"data"`
}

func NewDocparseService(cfg *config.DocparseConfig) *DocparseService {
	return &DocparseService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// ExtractText submits the document URL for parsing and returns the plain
// text. Any transport error, non-2xx status, or non-zero service code is
// an extraction error for this one document.
func (s *DocparseService) ExtractText(ctx context.Context, fileURL, filename string) (*DocparseResult, error) {
	reqBody := docparseRequest{
		URL:      fileURL,
		Filename: filename,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/parse", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("docparse service returned status %d", resp.StatusCode)
	}

	var result docparseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("docparse service error: %s", result.Message)
	}

	if result.Data.Text == "" {
		return nil, fmt.Errorf("no text could be extracted from %s", filename)
	}

	return &DocparseResult{
		Text:      result.Data.Text,
		PageCount: result.Data.PageCount,
	}, nil
}
