package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marketingkamdi24/Rowbooster-UI-sub001/config"
)

func TestScrapeViaAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scrape" {
			t.Errorf("Expected /scrape path, got %s", r.URL.Path)
		}

		var req scrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.ArticleNumber != "A1" || req.ProductName != "Widget" {
			t.Errorf("Expected article context forwarded, got %+v", req)
		}

		w.Write([]byte(`{"success":true,"content":"Widget specs: 60 cm","method":"playwright"}`))
	}))
	defer server.Close()

	svc := NewScrapeService(&config.ScrapeConfig{APIURL: server.URL, TimeoutSeconds: 5})

	result, err := svc.FetchContent(context.Background(), "https://shop.test/widget", ArticleContext{
		ArticleNumber: "A1",
		ProductName:   "Widget",
	})
	if err != nil {
		t.Fatalf("FetchContent: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected success, got error %q", result.Error)
	}
	if result.Content != "Widget specs: 60 cm" || result.Method != "playwright" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestScrapeAPIFailureIsSoft(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"unsuccessful response", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false,"error":"blocked by robots.txt"}`))
		}},
		{"empty content", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true,"content":""}`))
		}},
		{"malformed response", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			svc := NewScrapeService(&config.ScrapeConfig{APIURL: server.URL, TimeoutSeconds: 5})

			result, err := svc.FetchContent(context.Background(), "https://shop.test/widget", ArticleContext{})
			if err != nil {
				t.Fatalf("Expected soft failure, got error %v", err)
			}
			if result.Success {
				t.Error("Expected Success=false")
			}
		})
	}
}

func TestScrapeDirectReadability(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head><title>Widget 3000</title></head>
<body><article>
<h1>Widget 3000</h1>
<p>` + strings.Repeat("The Widget 3000 is a premium product with excellent build quality. ", 5) + `</p>
<p>It measures sixty centimeters in width and weighs two kilograms.</p>
</article></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	// No API URL configured: direct fetch path
	svc := NewScrapeService(&config.ScrapeConfig{TimeoutSeconds: 5})

	result, err := svc.FetchContent(context.Background(), server.URL, ArticleContext{})
	if err != nil {
		t.Fatalf("FetchContent: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected success, got error %q", result.Error)
	}
	if !strings.Contains(result.Content, "sixty centimeters") {
		t.Errorf("Expected page text extracted, got %q", result.Content)
	}
}

func TestScrapeDirectSelectorFallback(t *testing.T) {
	// Sparse product page: too little prose for readability, but a spec
	// table the selector harvest can use.
	page := `<!DOCTYPE html>
<html><head>
<title>Widget 3000 - Acme Shop</title>
<meta name="description" content="Widget 3000 product page">
</head><body>
<table>
<tr><th>Width</th><td>60 cm</td></tr>
<tr><th>Weight</th><td>2 kg</td></tr>
</table>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	svc := NewScrapeService(&config.ScrapeConfig{TimeoutSeconds: 5})

	result, err := svc.FetchContent(context.Background(), server.URL, ArticleContext{})
	if err != nil {
		t.Fatalf("FetchContent: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected success via selector fallback, got error %q", result.Error)
	}
	if result.Method != "selector" {
		t.Errorf("Expected selector method, got %s", result.Method)
	}
	if !strings.Contains(result.Content, "Width: 60 cm") {
		t.Errorf("Expected table rows harvested, got %q", result.Content)
	}
	if !strings.Contains(result.Content, "Widget 3000 - Acme Shop") {
		t.Errorf("Expected page title harvested, got %q", result.Content)
	}
}

func TestScrapeDirectPageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewScrapeService(&config.ScrapeConfig{TimeoutSeconds: 5})

	result, err := svc.FetchContent(context.Background(), server.URL, ArticleContext{})
	if err != nil {
		t.Fatalf("Expected soft failure, got error %v", err)
	}
	if result.Success {
		t.Error("Expected Success=false for 404 page")
	}
	if !strings.Contains(result.Error, "404") {
		t.Errorf("Expected status in error, got %q", result.Error)
	}
}

func TestHarvestPageTextRequiresSubstance(t *testing.T) {
	// A title alone is not enough to call the harvest successful.
	html := `<html><head><title>Only a title</title></head><body></body></html>`

	if got := harvestPageText(strings.NewReader(html)); got != "" {
		t.Errorf("Expected empty harvest for bare page, got %q", got)
	}
}
