package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/config"
)

// ArticleContext carries item identity to the scraping endpoint so it can
// pick the right portion of a multi-product page.
type ArticleContext struct {
	ArticleNumber string
	ProductName   string
}

// ScrapeResult is the outcome of one web-content fetch. Success=false is a
// soft failure: the pipeline logs it and continues with document text only.
type ScrapeResult struct {
	Success bool
	Content string
	Method  string
	Error   string
}

// ContentFetcher fetches web content for a product page.
type ContentFetcher interface {
	FetchContent(ctx context.Context, pageURL string, article ArticleContext) (*ScrapeResult, error)
}

// ScrapeService fetches product-page content, preferring the configured
// scraping API and falling back to a direct fetch.
type ScrapeService struct {
	config     *config.ScrapeConfig
	httpClient *http.Client
}

type scrapeRequest struct {
	URL           string `json:"url"`
	ArticleNumber string `json:"article_number,omitempty"`
	ProductName   string `json:"product_name,omitempty"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Method  string `json:"method"`
	Error   string `json:"error,omitempty"`
}

func NewScrapeService(cfg *config.ScrapeConfig) *ScrapeService {
	return &ScrapeService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// FetchContent returns the page text for pageURL. A non-nil error is only
// returned for programming errors; everything that can go wrong with the
// network or the page itself comes back as Success=false.
func (s *ScrapeService) FetchContent(ctx context.Context, pageURL string, article ArticleContext) (*ScrapeResult, error) {
	if s.config.APIURL != "" {
		return s.fetchViaAPI(ctx, pageURL, article)
	}
	return s.fetchDirect(ctx, pageURL)
}

func (s *ScrapeService) fetchViaAPI(ctx context.Context, pageURL string, article ArticleContext) (*ScrapeResult, error) {
	reqBody := scrapeRequest{
		URL:           pageURL,
		ArticleNumber: article.ArticleNumber,
		ProductName:   article.ProductName,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/scrape", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &ScrapeResult{Success: false, Method: "api", Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ScrapeResult{Success: false, Method: "api", Error: err.Error()}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ScrapeResult{
			Success: false,
			Method:  "api",
			Error:   fmt.Sprintf("scrape service returned status %d", resp.StatusCode),
		}, nil
	}

	var result scrapeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return &ScrapeResult{Success: false, Method: "api", Error: "invalid scrape response: " + err.Error()}, nil
	}

	return &ScrapeResult{
		Success: result.Success && result.Content != "",
		Content: result.Content,
		Method:  result.Method,
		Error:   result.Error,
	}, nil
}

// fetchDirect downloads the page and reduces it to readable text. The
// readability pass handles article-like pages; product pages that defeat
// it fall back to a coarse meta/table harvest.
func (s *ScrapeService) fetchDirect(ctx context.Context, pageURL string) (*ScrapeResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Rowbooster/1.0 (product data enrichment)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &ScrapeResult{Success: false, Method: "direct", Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &ScrapeResult{
			Success: false,
			Method:  "direct",
			Error:   fmt.Sprintf("page returned status %d", resp.StatusCode),
		}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ScrapeResult{Success: false, Method: "direct", Error: err.Error()}, nil
	}

	parsedURL, _ := url.Parse(pageURL)
	if article, err := readability.FromReader(bytes.NewReader(body), parsedURL); err == nil {
		text := strings.TrimSpace(article.TextContent)
		if len(text) > 100 {
			return &ScrapeResult{Success: true, Content: text, Method: "readability"}, nil
		}
	}

	if text := harvestPageText(bytes.NewReader(body)); text != "" {
		return &ScrapeResult{Success: true, Content: text, Method: "selector"}, nil
	}

	return &ScrapeResult{Success: false, Method: "direct", Error: "no extractable content"}, nil
}

// harvestPageText pulls the title, meta description, and spec-table rows
// out of a product page that readability could not handle.
func harvestPageText(r io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ""
	}

	var parts []string

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, title)
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			parts = append(parts, desc)
		}
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			if text := strings.TrimSpace(cell.Text()); text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) >= 2 {
			parts = append(parts, strings.Join(cells, ": "))
		}
	})

	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		if text := strings.TrimSpace(li.Text()); text != "" && len(text) < 200 {
			parts = append(parts, text)
		}
	})

	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts, "\n")
}
