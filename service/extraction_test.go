package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marketingkamdi24/Rowbooster-UI-sub001/config"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/model"
)

func newExtractionServer(t *testing.T, handler http.HandlerFunc) *ExtractionService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewExtractionService(&config.ExtractionConfig{
		APIURL:         server.URL,
		APIToken:       "test-token",
		TimeoutSeconds: 5,
		Model:          "gpt-4o-mini",
	})
}

func TestExtractionExtract(t *testing.T) {
	svc := newExtractionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("Expected /extract path, got %s", r.URL.Path)
		}

		var req ExtractionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.ProductName != "Widget" || req.CombinedText == "" {
			t.Errorf("Unexpected request payload: %+v", req)
		}
		if req.AIConfig.Model != "gpt-4o-mini" {
			t.Errorf("Expected configured model filled in, got %q", req.AIConfig.Model)
		}
		if len(req.Properties) != 1 || req.Properties[0].Name != "width" {
			t.Errorf("Expected property schema forwarded, got %+v", req.Properties)
		}

		w.Write([]byte(`{"code":0,"msg":"ok","data":{
			"properties":{"width":{"value":"60 cm","sources":["doc"],"confidence":"high"}},
			"search_method":"documents"
		}}`))
	})

	result, err := svc.Extract(context.Background(), &ExtractionRequest{
		SearchMethod: "documents",
		ProductName:  "Widget",
		CombinedText: "Width: 60 cm",
		Properties:   []model.PropertyField{{Name: "width", Type: "string"}},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	width, ok := result.Properties["width"]
	if !ok {
		t.Fatal("Expected width property in result")
	}
	if width.Value != "60 cm" || width.Confidence != "high" {
		t.Errorf("Unexpected property value: %+v", width)
	}
}

func TestExtractionKeepsExplicitModel(t *testing.T) {
	svc := newExtractionServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req ExtractionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.AIConfig.Model != "custom-model" {
			t.Errorf("Expected explicit model preserved, got %q", req.AIConfig.Model)
		}
		w.Write([]byte(`{"code":0,"msg":"ok","data":{"properties":{}}}`))
	})

	_, err := svc.Extract(context.Background(), &ExtractionRequest{
		ProductName:  "Widget",
		CombinedText: "text",
		AIConfig:     AIConfig{Model: "custom-model"},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
}

func TestExtractionBackfillsSearchMethod(t *testing.T) {
	svc := newExtractionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"msg":"ok","data":{"properties":{}}}`))
	})

	result, err := svc.Extract(context.Background(), &ExtractionRequest{
		SearchMethod: "combined",
		ProductName:  "Widget",
		CombinedText: "text",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.SearchMethod != "combined" {
		t.Errorf("Expected search method backfilled, got %q", result.SearchMethod)
	}
}

func TestExtractionServiceErrorCode(t *testing.T) {
	svc := newExtractionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":2,"msg":"model overloaded","data":{}}`))
	})

	_, err := svc.Extract(context.Background(), &ExtractionRequest{ProductName: "Widget", CombinedText: "text"})
	if err == nil {
		t.Fatal("Expected error for non-zero code")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("Expected service message in error, got %v", err)
	}
}

func TestExtractionHTTPError(t *testing.T) {
	svc := newExtractionServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	_, err := svc.Extract(context.Background(), &ExtractionRequest{ProductName: "Widget", CombinedText: "text"})
	if err == nil {
		t.Fatal("Expected error for non-2xx status")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status in error, got %v", err)
	}
}
