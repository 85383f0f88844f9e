package job

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"jobhost/internal/apperrors"
	"jobhost/internal/host"
)

// scanConcurrency bounds parallel job-directory scans.
const scanConcurrency = 4

// Discovery scans the continuous-jobs root and produces job records.
// One subdirectory is one candidate job.
type Discovery struct {
	root     string
	registry *host.Registry
	logger   *slog.Logger
}

// NewDiscovery creates a discovery over root using the given host registry.
func NewDiscovery(root string, registry *host.Registry) *Discovery {
	return &Discovery{
		root:     root,
		registry: registry,
		logger:   slog.With("component", "discovery"),
	}
}

// Continuous returns a record for every job directory with a resolvable
// entry point, sorted by name. Directories with no runnable entry and
// directories with invalid names are omitted silently; a missing root yields
// an empty result, not an error.
func (d *Discovery) Continuous(ctx context.Context) ([]*Job, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read jobs root: %w", err)
	}

	var (
		mu   sync.Mutex
		jobs []*Job
	)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		g.Go(func() error {
			j, err := d.build(name)
			if err != nil || j == nil {
				return err
			}
			mu.Lock()
			jobs = append(jobs, j)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(jobs, func(a, b *Job) int { return strings.Compare(a.Name, b.Name) })
	return jobs, nil
}

// Find returns the record for one deployed job.
func (d *Discovery) Find(ctx context.Context, name string) (*Job, error) {
	if !ValidName(name) {
		return nil, apperrors.Validation("name", fmt.Sprintf("invalid job name %q", name))
	}
	j, err := d.build(name)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, apperrors.NotFound("job", name)
	}
	return j, nil
}

// build resolves one job directory into a record. A nil job with nil error
// means the directory is not a runnable job.
func (d *Discovery) build(name string) (*Job, error) {
	if !ValidName(name) {
		d.logger.Warn("Skipping job with invalid name", "job", name)
		return nil, nil
	}

	dir := filepath.Join(d.root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read job directory %s: %w", name, err)
	}

	// Top-level files only; nested directories never hold the entry point.
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}

	match, ok := d.registry.Resolve(files)
	if !ok {
		d.logger.Debug("No runnable entry", "job", name)
		return nil, nil
	}

	return &Job{
		Name:           name,
		Type:           TypeContinuous,
		BinariesPath:   dir,
		RunCommand:     match.File,
		ScriptFilePath: filepath.Join(dir, match.File),
		Host:           match.Host,
	}, nil
}
