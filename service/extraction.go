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
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/model"
)

// Enricher submits combined text to the extraction service and returns
// structured property values.
type Enricher interface {
	Extract(ctx context.Context, req *ExtractionRequest) (*model.ExtractionResult, error)
}

// ExtractionRequest is one submission to the extraction service.
type ExtractionRequest struct {
	SearchMethod  string                `json:"search_method"`
	ArticleNumber string                `json:"article_number,omitempty"`
	ProductName   string                `json:"product_name"`
	CombinedText  string                `json:"combined_text"`
	Properties    []model.PropertyField `json:"properties"`
	AIConfig      AIConfig              `json:"ai_config"`
}

// AIConfig carries model settings for the extraction call.
type AIConfig struct {
	Model string `json:"model,omitempty"`
}

type extractionResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"msg"`
	Data    model.ExtractionResult `json:"data"`
}

// ExtractionService calls the external property-extraction service. The
// request timeout is what guarantees a batch can always finish even when
// the service hangs.
type ExtractionService struct {
	config     *config.ExtractionConfig
	httpClient *http.Client
}

func NewExtractionService(cfg *config.ExtractionConfig) *ExtractionService {
	return &ExtractionService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Extract submits the combined text with the property schema and returns
// per-property values with sources and confidence.
func (s *ExtractionService) Extract(ctx context.Context, extractReq *ExtractionRequest) (*model.ExtractionResult, error) {
	if extractReq.AIConfig.Model == "" {
		extractReq.AIConfig.Model = s.config.Model
	}

	jsonData, err := json.Marshal(extractReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/extract", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

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
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result extractionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("extraction service error: %s", result.Message)
	}

	if result.Data.SearchMethod == "" {
		result.Data.SearchMethod = extractReq.SearchMethod
	}

	return &result.Data, nil
}
