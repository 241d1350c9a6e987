package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/marketingkamdi24/Rowbooster-UI-sub001/model"
)

// ErrTooManyFiles is returned when the aggregator's file bound is reached.
var ErrTooManyFiles = errors.New("maximum number of documents reached")

// DocumentAggregator owns the source files of one item and derives their
// combined text. Files extract concurrently; each failure stays on its own
// file. Insertion order is section order in the combined text.
type DocumentAggregator struct {
	mu         sync.Mutex
	wg         sync.WaitGroup
	extractor  TextExtractor
	maxFiles   int
	files      []*model.SourceFile
	combined   string
	overridden bool
}

func NewDocumentAggregator(extractor TextExtractor, maxFiles int) *DocumentAggregator {
	if maxFiles <= 0 {
		maxFiles = 10
	}
	return &DocumentAggregator{
		extractor: extractor,
		maxFiles:  maxFiles,
	}
}

// AddFile registers the file and starts extracting its text in the
// background. Registration never blocks on extraction, so several files
// may be extracting at once.
func (a *DocumentAggregator) AddFile(ctx context.Context, file *model.SourceFile) error {
	a.mu.Lock()
	if len(a.files) >= a.maxFiles {
		a.mu.Unlock()
		return ErrTooManyFiles
	}
	file.State = model.FileStatePending
	file.Error = ""
	a.files = append(a.files, file)
	a.overridden = false
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.extract(ctx, file)
	}()

	return nil
}

// RemoveFile drops the file and recomputes the combined text. Returns
// false when no file with that ID exists.
func (a *DocumentAggregator) RemoveFile(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, f := range a.files {
		if f.ID == id {
			a.files = append(a.files[:i], a.files[i+1:]...)
			a.overridden = false
			a.recompute()
			return true
		}
	}
	return false
}

// RetryFile re-runs extraction for a single errored file. Files in any
// other state are left alone and false is returned.
func (a *DocumentAggregator) RetryFile(ctx context.Context, id string) bool {
	a.mu.Lock()
	var target *model.SourceFile
	for _, f := range a.files {
		if f.ID == id {
			target = f
			break
		}
	}
	if target == nil || target.State != model.FileStateErrored {
		a.mu.Unlock()
		return false
	}
	// Flip to pending under the lock so the file can never be extracted
	// twice concurrently.
	target.State = model.FileStatePending
	target.Error = ""
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.extract(ctx, target)
	}()

	return true
}

func (a *DocumentAggregator) extract(ctx context.Context, file *model.SourceFile) {
	result, err := a.extractor.ExtractText(ctx, file.FileURL, file.Filename)

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		file.State = model.FileStateErrored
		file.Error = err.Error()
	} else {
		file.State = model.FileStateExtracted
		file.Text = result.Text
		file.PageCount = result.PageCount
		file.CharCount = len(result.Text)
		file.WordCount = len(strings.Fields(result.Text))
		file.Error = ""
	}

	a.recompute()
}

// recompute rebuilds the combined text from all extracted files. Must be
// called with the lock held. A manual override survives until the file
// set changes again.
func (a *DocumentAggregator) recompute() {
	if a.overridden {
		return
	}

	var sections []string
	for i, f := range a.files {
		if f.State != model.FileStateExtracted {
			continue
		}
		marker := fmt.Sprintf("=== Document %d: %s ===", i+1, f.Filename)
		sections = append(sections, marker+"\n\n"+f.Text)
	}

	a.combined = strings.Join(sections, documentSeparator)
}

// Wait blocks until all in-flight extractions have finished.
func (a *DocumentAggregator) Wait() {
	a.wg.Wait()
}

// CombinedText returns the current combined text.
func (a *DocumentAggregator) CombinedText() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.combined
}

// OverrideCombinedText replaces the derived text with a manual edit.
func (a *DocumentAggregator) OverrideCombinedText(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.combined = text
	a.overridden = true
}

// Files returns a snapshot of the current files.
func (a *DocumentAggregator) Files() []model.SourceFile {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := make([]model.SourceFile, len(a.files))
	for i, f := range a.files {
		snapshot[i] = *f
	}
	return snapshot
}

// ExtractedCount returns how many files extracted successfully and how
// many errored.
func (a *DocumentAggregator) ExtractedCount() (extracted, errored int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, f := range a.files {
		switch f.State {
		case model.FileStateExtracted:
			extracted++
		case model.FileStateErrored:
			errored++
		}
	}
	return extracted, errored
}

// FirstError returns the first errored file's message, if any.
func (a *DocumentAggregator) FirstError() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, f := range a.files {
		if f.State == model.FileStateErrored {
			return f.Error
		}
	}
	return ""
}
