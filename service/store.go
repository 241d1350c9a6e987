package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/marketingkamdi24/Rowbooster-UI-sub001/config"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/model"
)

// RunStore is an in-memory store for batch runs. Pipelines write their own
// item's status through it; handlers read snapshots, so observers never
// see a run mid-update.
type RunStore struct {
	runs    map[string]*model.BatchRun
	mu      sync.RWMutex
	maxRuns int // Maximum runs to keep, 0 = unlimited
}

var (
	globalRunStore *RunStore
	runStoreOnce   sync.Once
)

// InitRunStore initializes the global run store with configuration
func InitRunStore(cfg *config.BatchConfig) {
	runStoreOnce.Do(func() {
		maxRuns := cfg.MaxRuns
		if maxRuns < 0 {
			maxRuns = 0
		}
		globalRunStore = &RunStore{
			runs:    make(map[string]*model.BatchRun),
			maxRuns: maxRuns,
		}
		slog.Info("run store initialized", "max_runs", maxRuns)
	})
}

// GetRunStore returns the global run store
func GetRunStore() *RunStore {
	if globalRunStore == nil {
		// Fallback initialization with default settings
		globalRunStore = &RunStore{
			runs:    make(map[string]*model.BatchRun),
			maxRuns: 50,
		}
	}
	return globalRunStore
}

func (s *RunStore) Save(run *model.BatchRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.UpdatedAt = time.Now()
	s.runs[run.ID] = run

	// Cleanup if exceeds max
	s.cleanupIfNeeded()
}

// Get returns a deep copy of the run so callers can serialize it while
// pipelines keep writing to the original.
func (s *RunStore) Get(id string) *model.BatchRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil
	}
	return copyRun(run)
}

// GetByTenant returns copies of all runs owned by the tenant.
func (s *RunStore) GetByTenant(tenant string) []*model.BatchRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.BatchRun
	for _, r := range s.runs {
		if r.Tenant == tenant {
			result = append(result, copyRun(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *RunStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
}

// UpdateItemStatus moves one item forward in its state machine. Progress
// values <0 leave the current progress untouched.
func (s *RunStore) UpdateItemStatus(runID, itemID, status string, progress int, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findItem(runID, itemID)
	if item == nil {
		return
	}
	item.Status.Status = status
	if progress >= 0 {
		item.Status.Progress = progress
	}
	item.Status.Error = errMsg
	item.Status.UpdatedAt = time.Now()
	if run, ok := s.runs[runID]; ok {
		run.UpdatedAt = time.Now()
	}
}

// SetItemArtifacts records intermediate text for diagnostics.
func (s *RunStore) SetItemArtifacts(runID, itemID, documentText, webText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findItem(runID, itemID)
	if item == nil {
		return
	}
	if documentText != "" {
		item.Status.DocumentText = documentText
	}
	if webText != "" {
		item.Status.WebText = webText
	}
}

// SetItemFiles stores the per-file extraction outcome on the item.
func (s *RunStore) SetItemFiles(runID, itemID string, files []model.SourceFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findItem(runID, itemID)
	if item == nil {
		return
	}
	item.Files = files
}

// SetItemResult stores the extraction result and completes the item.
func (s *RunStore) SetItemResult(runID, itemID string, result *model.ExtractionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findItem(runID, itemID)
	if item == nil {
		return
	}
	item.Status.Result = result
	item.Status.Status = model.StatusCompleted
	item.Status.Progress = 100
	item.Status.Error = ""
	item.Status.UpdatedAt = time.Now()
}

// FinishRun records the final tally and marks the run terminal.
func (s *RunStore) FinishRun(runID string, completed, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return
	}
	run.Completed = completed
	run.Failed = failed
	run.Status = model.StatusCompleted
	run.UpdatedAt = time.Now()
}

// MarkRunning marks the run as started.
func (s *RunStore) MarkRunning(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run, ok := s.runs[runID]; ok {
		run.Status = model.StatusProcessing
		run.UpdatedAt = time.Now()
	}
}

// Count returns the number of runs in the store
func (s *RunStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// findItem must be called with the lock held.
func (s *RunStore) findItem(runID, itemID string) *model.ExtractionItem {
	run, ok := s.runs[runID]
	if !ok {
		return nil
	}
	for _, item := range run.Items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

// cleanupIfNeeded removes oldest runs if the store exceeds maxRuns.
// Must be called with lock held
func (s *RunStore) cleanupIfNeeded() {
	if s.maxRuns <= 0 {
		return // Unlimited
	}

	if len(s.runs) <= s.maxRuns {
		return
	}

	runs := make([]*model.BatchRun, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})

	removeCount := len(runs) - s.maxRuns
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old batch run",
			"run_id", runs[i].ID,
			"created_at", runs[i].CreatedAt,
		)
		delete(s.runs, runs[i].ID)
	}
}

func copyRun(run *model.BatchRun) *model.BatchRun {
	dup := *run
	dup.Items = make([]*model.ExtractionItem, len(run.Items))
	for i, item := range run.Items {
		itemCopy := *item
		if item.Status.Result != nil {
			resultCopy := *item.Status.Result
			itemCopy.Status.Result = &resultCopy
		}
		itemCopy.Files = append([]model.SourceFile(nil), item.Files...)
		dup.Items[i] = &itemCopy
	}
	dup.Properties = append([]model.PropertyField(nil), run.Properties...)
	return &dup
}

// LibraryStore is an in-memory index of the uploaded document library.
type LibraryStore struct {
	files    map[string]*model.LibraryFile
	mu       sync.RWMutex
	maxFiles int
}

var (
	globalLibraryStore *LibraryStore
	libraryStoreOnce   sync.Once
)

// InitLibraryStore initializes the global library store with configuration
func InitLibraryStore(cfg *config.BatchConfig) {
	libraryStoreOnce.Do(func() {
		globalLibraryStore = &LibraryStore{
			files:    make(map[string]*model.LibraryFile),
			maxFiles: cfg.MaxLibraryFiles,
		}
		slog.Info("library store initialized", "max_files", cfg.MaxLibraryFiles)
	})
}

// GetLibraryStore returns the global library store
func GetLibraryStore() *LibraryStore {
	if globalLibraryStore == nil {
		globalLibraryStore = &LibraryStore{
			files:    make(map[string]*model.LibraryFile),
			maxFiles: 200,
		}
	}
	return globalLibraryStore
}

// Save stores a file, rejecting uploads past the tenant bound.
func (s *LibraryStore) Save(file *model.LibraryFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxFiles > 0 {
		count := 0
		for _, f := range s.files {
			if f.Tenant == file.Tenant {
				count++
			}
		}
		if count >= s.maxFiles {
			return ErrTooManyFiles
		}
	}

	s.files[file.ID] = file
	return nil
}

func (s *LibraryStore) Get(id string) *model.LibraryFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files[id]
}

// ListByTenant returns the tenant's files ordered by upload time.
func (s *LibraryStore) ListByTenant(tenant string) []*model.LibraryFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.LibraryFile
	for _, f := range s.files {
		if f.Tenant == tenant {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UploadedAt.Equal(result[j].UploadedAt) {
			return result[i].Filename < result[j].Filename
		}
		return result[i].UploadedAt.Before(result[j].UploadedAt)
	})
	return result
}

func (s *LibraryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
}

func (s *LibraryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
