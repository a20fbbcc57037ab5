package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kris-hansen/dialogen/utils/fileutil"
)

// Store loads and persists a whole Dataset. Save replaces everything the
// store held with ds.
type Store interface {
	Load(ctx context.Context) (Dataset, error)
	Save(ctx context.Context, ds Dataset) error
	Close() error
}

// JSONStore keeps the dataset as a single indented JSON array on disk.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the dataset. A missing or empty file is an empty dataset.
func (s *JSONStore) Load(ctx context.Context) (Dataset, error) {
	var ds Dataset
	if _, err := fileutil.ReadJSON(s.path, &ds); err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if ds == nil {
		ds = Dataset{}
	}
	return ds, nil
}

// Save rewrites the whole file with ds.
func (s *JSONStore) Save(ctx context.Context, ds Dataset) error {
	if ds == nil {
		ds = Dataset{}
	}
	if err := fileutil.WriteJSON(s.path, ds); err != nil {
		return fmt.Errorf("save dataset: %w", err)
	}
	return nil
}

// Close is a no-op for file stores.
func (s *JSONStore) Close() error {
	return nil
}

// LoadExamples reads the seed pool, a JSON array of examples.
func LoadExamples(path string) ([]Example, error) {
	var examples []Example
	found, err := fileutil.ReadJSON(path, &examples)
	if err != nil {
		return nil, fmt.Errorf("load examples: %w", err)
	}
	if !found || len(examples) == 0 {
		return nil, fmt.Errorf("load examples: no examples in %s", path)
	}
	for i, e := range examples {
		if strings.TrimSpace(e.Instruction) == "" {
			return nil, fmt.Errorf("load examples: example %d has no instruction", i)
		}
	}
	return examples, nil
}

// LoadLogs reads source conversations for the rewrite pipeline. Files ending
// in .jsonl hold one log per line; anything else is a JSON array.
func LoadLogs(path string) ([]Log, error) {
	data, err := fileutil.SafeReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}

	if !strings.EqualFold(filepath.Ext(path), ".jsonl") {
		var logs []Log
		if err := json.Unmarshal(data, &logs); err != nil {
			return nil, fmt.Errorf("load logs: %w", err)
		}
		return logs, nil
	}

	var logs []Log
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var l Log
		if err := json.Unmarshal(text, &l); err != nil {
			return nil, fmt.Errorf("load logs: line %d: %w", line, err)
		}
		logs = append(logs, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}
	return logs, nil
}

// RewriteStore persists rewrite records as one JSON array, sorted by id.
type RewriteStore struct {
	path string
}

// NewRewriteStore returns a store backed by the file at path.
func NewRewriteStore(path string) *RewriteStore {
	return &RewriteStore{path: path}
}

// Load reads the records. A missing or empty file yields none.
func (s *RewriteStore) Load() ([]RewriteRecord, error) {
	var recs []RewriteRecord
	if _, err := fileutil.ReadJSON(s.path, &recs); err != nil {
		return nil, fmt.Errorf("load rewrites: %w", err)
	}
	return recs, nil
}

// Save sorts recs by id in place and rewrites the file.
func (s *RewriteStore) Save(recs []RewriteRecord) error {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	if recs == nil {
		recs = []RewriteRecord{}
	}
	if err := fileutil.WriteJSON(s.path, recs); err != nil {
		return fmt.Errorf("save rewrites: %w", err)
	}
	return nil
}
