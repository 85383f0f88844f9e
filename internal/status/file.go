package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"jobhost/internal/job"
)

// recordFile is the status record name inside a job's data directory.
const recordFile = "status.json"

// Record is the persisted status of one continuous job.
type Record struct {
	Name      string     `json:"name"`
	Status    job.Status `json:"status"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// recordPath returns <dataRoot>/continuous/<name>/status.json.
func recordPath(dataRoot, name string) string {
	return filepath.Join(dataRoot, "continuous", name, recordFile)
}

// FileReporter persists one JSON status record per job under the data root.
// Records are written atomically (temp file + rename) so readers never see a
// partial record.
type FileReporter struct {
	dataRoot string
	logger   *slog.Logger
}

// NewFileReporter creates a reporter writing under dataRoot.
func NewFileReporter(dataRoot string) *FileReporter {
	return &FileReporter{
		dataRoot: dataRoot,
		logger:   slog.With("component", "status"),
	}
}

// Report writes the record for the transition. Failures are logged, never
// surfaced: losing one record must not disturb the supervisor.
func (r *FileReporter) Report(ctx context.Context, j *job.Job, st job.Status) {
	record := &Record{
		Name:      j.Name,
		Status:    st,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.write(record); err != nil {
		r.logger.Error("Failed to persist status record", "job", j.Name, "status", st, "error", err)
		return
	}
	r.logger.Debug("Status recorded", "job", j.Name, "status", st)
}

func (r *FileReporter) write(record *Record) error {
	dir := filepath.Dir(recordPath(r.dataRoot, record.Name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create status dir: %w", err)
	}

	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(dir, recordFile+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, recordPath(r.dataRoot, record.Name)); err != nil {
		return fmt.Errorf("failed to rename record: %w", err)
	}
	return nil
}

// Reader loads persisted status records. Used by jobctl, which shares only
// the filesystem with the agent.
type Reader struct {
	dataRoot string
}

// NewReader creates a reader over dataRoot.
func NewReader(dataRoot string) *Reader {
	return &Reader{dataRoot: dataRoot}
}

// Get loads the record for one job. A missing record means the agent has not
// reported the job yet.
func (r *Reader) Get(name string) (*Record, error) {
	b, err := os.ReadFile(recordPath(r.dataRoot, name))
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(b, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record for %s: %w", name, err)
	}
	return &record, nil
}

// List loads every record under the data root, sorted by job name.
func (r *Reader) List() ([]*Record, error) {
	entries, err := os.ReadDir(filepath.Join(r.dataRoot, "continuous"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read status root: %w", err)
	}

	var records []*Record
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		record, err := r.Get(e.Name())
		if err != nil {
			// Tolerate jobs without a record yet.
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}

	// ReadDir returns entries sorted by name, so records are already ordered.
	return records, nil
}
