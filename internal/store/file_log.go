package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tgexam/backend/internal/model"
)

// FileResultLog keeps the result log in a single JSON file
// ({"results": [...]}), rewritten atomically via tmp+rename on every append.
// Suited to the single-instance deployment the app ships with.
type FileResultLog struct {
	mu   sync.Mutex
	path string
}

type resultsFile struct {
	Results []model.ResultRecord `json:"results"`
}

// NewFileResultLog ensures the data directory and file exist.
func NewFileResultLog(dataDir string) (*FileResultLog, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	l := &FileResultLog{path: filepath.Join(dataDir, "results.json")}

	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.write(&resultsFile{Results: []model.ResultRecord{}}); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *FileResultLog) Append(_ context.Context, rec *model.ResultRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f := l.read()
	f.Results = append(f.Results, *rec)
	return l.write(f)
}

func (l *FileResultLog) List(_ context.Context, filter ResultFilter) ([]model.ResultRecord, error) {
	l.mu.Lock()
	f := l.read()
	l.mu.Unlock()

	out := make([]model.ResultRecord, 0, len(f.Results))
	for i := range f.Results {
		if filter.Matches(&f.Results[i]) {
			out = append(out, f.Results[i])
		}
	}
	return out, nil
}

func (l *FileResultLog) Delete(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f := l.read()
	kept := f.Results[:0]
	found := false
	for _, r := range f.Results {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return false, nil
	}
	f.Results = kept
	return true, l.write(f)
}

// read tolerates a missing or corrupt file by falling back to an empty log;
// a bad file must not take the reporting surface down.
func (l *FileResultLog) read() *resultsFile {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return &resultsFile{}
	}
	var f resultsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return &resultsFile{}
	}
	if f.Results == nil {
		f.Results = []model.ResultRecord{}
	}
	return &f
}

func (l *FileResultLog) write(f *resultsFile) error {
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write results tmp: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("rename results file: %w", err)
	}
	return nil
}
