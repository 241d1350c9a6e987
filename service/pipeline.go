package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/marketingkamdi24/Rowbooster-UI-sub001/model"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/pkg/logger"
)

// Progress checkpoints of the item state machine.
const (
	progressDispatched = 25
	progressAggregated = 50
	progressFetched    = 75
	progressDone       = 100
)

// ItemPipeline drives one item through aggregation, optional web fetch,
// and extraction. Every failure is converted into the item's status
// record; nothing escapes to the orchestrator.
type ItemPipeline struct {
	extractor TextExtractor
	fetcher   ContentFetcher
	enricher  Enricher
	store     *RunStore
	maxFiles  int
}

func NewItemPipeline(extractor TextExtractor, fetcher ContentFetcher, enricher Enricher, store *RunStore, maxFiles int) *ItemPipeline {
	return &ItemPipeline{
		extractor: extractor,
		fetcher:   fetcher,
		enricher:  enricher,
		store:     store,
		maxFiles:  maxFiles,
	}
}

// MatchLibraryFiles selects library files whose name starts with the
// article number, case-insensitively, capped at limit. The matching rule
// is deliberately a plain prefix: anything fuzzier has proven impossible
// to explain to users.
func MatchLibraryFiles(library []*model.LibraryFile, articleNumber string, limit int) []*model.LibraryFile {
	prefix := strings.ToLower(strings.TrimSpace(articleNumber))
	if prefix == "" {
		return nil
	}

	var matched []*model.LibraryFile
	for _, f := range library {
		if strings.HasPrefix(strings.ToLower(f.Filename), prefix) {
			matched = append(matched, f)
			if limit > 0 && len(matched) >= limit {
				break
			}
		}
	}
	return matched
}

// Process runs the full pipeline for one item. Safe to re-invoke: every
// step is re-executed from scratch.
func (p *ItemPipeline) Process(ctx context.Context, run *model.BatchRun, item *model.ExtractionItem, library []*model.LibraryFile) {
	ctx = context.WithValue(ctx, logger.BatchIDKey, run.ID)
	ctx = context.WithValue(ctx, logger.ItemIDKey, item.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "pipeline panic", "panic", r)
			p.fail(run.ID, item.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	p.store.UpdateItemStatus(run.ID, item.ID, model.StatusProcessing, progressDispatched, "")

	// Step 1: gather source files
	files, err := p.gatherFiles(run, item, library)
	if err != nil {
		p.fail(run.ID, item.ID, err.Error())
		return
	}

	// Step 2: extract and aggregate document text
	documentText, err := p.aggregate(ctx, run, item, files)
	if err != nil {
		p.fail(run.ID, item.ID, err.Error())
		return
	}
	p.store.UpdateItemStatus(run.ID, item.ID, model.StatusProcessing, progressAggregated, "")
	p.store.SetItemArtifacts(run.ID, item.ID, documentText, "")

	// Step 3: optional web fetch; failure here never sinks the item
	webText := p.fetchWebContent(ctx, item)
	p.store.UpdateItemStatus(run.ID, item.ID, model.StatusExtracting, progressFetched, "")
	p.store.SetItemArtifacts(run.ID, item.ID, "", webText)

	// Step 4: combine, sanitize, submit
	combined := Sanitize(Combine(documentText, webText, item.URL))
	if strings.TrimSpace(combined) == "" {
		p.fail(run.ID, item.ID, "no text could be assembled from documents or web content")
		return
	}

	result, err := p.enricher.Extract(ctx, &ExtractionRequest{
		SearchMethod:  searchMethod(documentText, webText),
		ArticleNumber: item.ArticleNumber,
		ProductName:   item.ProductName,
		CombinedText:  combined,
		Properties:    run.Properties,
	})
	if err != nil {
		p.fail(run.ID, item.ID, "extraction failed: "+err.Error())
		return
	}

	p.store.SetItemResult(run.ID, item.ID, result)
	logger.Info(ctx, "item completed", "properties", len(result.Properties))
}

// gatherFiles resolves the item's source files. In folder mode an item
// with an article number but no matching document fails explicitly rather
// than being submitted empty.
func (p *ItemPipeline) gatherFiles(run *model.BatchRun, item *model.ExtractionItem, library []*model.LibraryFile) ([]*model.LibraryFile, error) {
	switch run.Mode {
	case model.ModeFolder:
		matched := MatchLibraryFiles(library, item.ArticleNumber, p.maxFiles)
		if len(matched) == 0 {
			return nil, fmt.Errorf("no matching document found for article %q", item.ArticleNumber)
		}
		return matched, nil
	default:
		var files []*model.LibraryFile
		for _, id := range item.FileIDs {
			for _, f := range library {
				if f.ID == id {
					files = append(files, f)
					break
				}
			}
		}
		// No attached documents is fine in direct mode; the item may
		// still have a product page.
		return files, nil
	}
}

// aggregate extracts all files and returns the combined document text.
// Partial extraction failures degrade; only losing every document is
// fatal for the item.
func (p *ItemPipeline) aggregate(ctx context.Context, run *model.BatchRun, item *model.ExtractionItem, files []*model.LibraryFile) (string, error) {
	if len(files) == 0 {
		return "", nil
	}

	agg := NewDocumentAggregator(p.extractor, p.maxFiles)
	for _, f := range files {
		source := &model.SourceFile{
			ID:       f.ID,
			Filename: f.Filename,
			FileURL:  f.FileURL,
		}
		if err := agg.AddFile(ctx, source); err != nil {
			logger.Warn(ctx, "skipping document beyond bound", "filename", f.Filename)
			break
		}
	}
	agg.Wait()

	p.store.SetItemFiles(run.ID, item.ID, agg.Files())

	extracted, errored := agg.ExtractedCount()
	if extracted == 0 && errored > 0 {
		return "", fmt.Errorf("all documents failed to extract: %s", agg.FirstError())
	}
	if errored > 0 {
		logger.Warn(ctx, "continuing with partial document text",
			"extracted", extracted, "errored", errored)
	}

	return agg.CombinedText(), nil
}

func (p *ItemPipeline) fetchWebContent(ctx context.Context, item *model.ExtractionItem) string {
	if item.URL == "" || p.fetcher == nil {
		return ""
	}

	result, err := p.fetcher.FetchContent(ctx, item.URL, ArticleContext{
		ArticleNumber: item.ArticleNumber,
		ProductName:   item.ProductName,
	})
	if err != nil {
		logger.Warn(ctx, "web fetch failed", "url", item.URL, "error", err)
		return ""
	}
	if !result.Success {
		logger.Warn(ctx, "web fetch unsuccessful", "url", item.URL, "reason", result.Error)
		return ""
	}

	return result.Content
}

func (p *ItemPipeline) fail(runID, itemID, message string) {
	// Progress stays where it was; only the state and error change.
	p.store.UpdateItemStatus(runID, itemID, model.StatusFailed, -1, message)
}

func searchMethod(documentText, webText string) string {
	hasDocs := strings.TrimSpace(documentText) != ""
	hasWeb := strings.TrimSpace(webText) != ""
	switch {
	case hasDocs && hasWeb:
		return "combined"
	case hasWeb:
		return "web"
	default:
		return "documents"
	}
}
