// Package reports persists the outcome of every bulk run as a JSON file.
package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lucasnoah/hirepipe/internal/bulk"
)

// ErrNotFound is returned when no report exists for a run ID.
var ErrNotFound = errors.New("report not found")

// ErrExists is returned when a report for the run was already saved.
var ErrExists = errors.New("report already exists")

// Report is one saved bulk run.
type Report struct {
	bulk.Result
	Summary  string `json:"summary"`
	Actor    string `json:"actor,omitempty"`
	RetryIDs []int  `json:"retry_ids,omitempty"`
}

// FromResult builds the report for res.
func FromResult(res bulk.Result, actor string) *Report {
	return &Report{
		Result:   res,
		Summary:  res.Summary(),
		Actor:    actor,
		RetryIDs: res.RetryIDs(),
	}
}

// Store manages run reports on disk.
type Store struct {
	baseDir string // defaults to ~/.hirepipe/reports
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// reportPath returns the path to the JSON file for a run.
func (s *Store) reportPath(runID string) string {
	return filepath.Join(s.baseDir, runID+".json")
}

// Save writes r under its run ID. A run is saved once; saving the same run
// ID again fails with ErrExists. The report is written to a hidden
// ".<runID>-*.tmp" file first and renamed into place, so List never sees a
// partial report.
func (s *Store) Save(r *Report) error {
	if err := checkRunID(r.RunID); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	path := s.reportPath(r.RunID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("save report %s: %w", r.RunID, ErrExists)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", r.RunID, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.baseDir, err)
	}
	tmp, err := os.CreateTemp(s.baseDir, "."+r.RunID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report %s: %w", r.RunID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", r.RunID, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename report %s: %w", r.RunID, err)
	}
	tmpName = ""
	return nil
}

// Get reads the report for runID.
func (s *Store) Get(runID string) (*Report, error) {
	if err := checkRunID(runID); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	r, err := readReport(s.reportPath(runID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("read report %s: %w", runID, err)
	}
	return r, nil
}

// checkRunID rejects IDs that could escape the store or collide with temp
// files.
func checkRunID(runID string) error {
	switch {
	case runID == "":
		return errors.New("run id is empty")
	case strings.HasPrefix(runID, "."), strings.ContainsAny(runID, `/\*`):
		return fmt.Errorf("invalid run id %q", runID)
	}
	return nil
}

// readReport decodes one report file. A report without a run ID is treated
// as corrupt.
func readReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if r.RunID == "" {
		return nil, fmt.Errorf("%s: report has no run id", path)
	}
	return &r, nil
}

// List returns saved reports, newest first. An empty kind returns all kinds.
func (s *Store) List(kind bulk.Kind) ([]Report, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var out []Report
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		r, err := readReport(filepath.Join(s.baseDir, name))
		if err != nil {
			continue // skip unreadable entries
		}
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// Prune removes reports that finished before cutoff and returns how many
// were removed.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	all, err := s.List("")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range all {
		if r.FinishedAt.Before(cutoff) {
			if err := os.Remove(s.reportPath(r.RunID)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return n, fmt.Errorf("remove report %s: %w", r.RunID, err)
			}
			n++
		}
	}
	return n, nil
}
