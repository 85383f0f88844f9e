// jobctl operates on deployed continuous jobs through the filesystem
// contract shared with the agent: the job directories, the disable marker,
// and the persisted status records. It never talks to the agent directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"jobhost/internal/apperrors"
	"jobhost/internal/config"
	"jobhost/internal/host"
	"jobhost/internal/job"
	"jobhost/internal/marker"
	"jobhost/internal/status"
)

func main() {
	// Results go to stdout; internal logs stay on stderr and quiet.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "jobctl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}

	cfg := config.LoadAgentConfig()

	command, args := args[0], args[1:]
	switch command {
	case "list":
		return list(cfg)
	case "status":
		name, err := jobArg(command, args)
		if err != nil {
			return err
		}
		return showStatus(cfg, name)
	case "disable":
		name, err := jobArg(command, args)
		if err != nil {
			return err
		}
		return disable(cfg, name)
	case "enable":
		name, err := jobArg(command, args)
		if err != nil {
			return err
		}
		return enable(cfg, name)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// jobArg extracts the single job-name argument of a command.
func jobArg(command string, args []string) (string, error) {
	if len(args) != 1 {
		usage()
		return "", fmt.Errorf("%s takes exactly one job name", command)
	}
	if !job.ValidName(args[0]) {
		return "", fmt.Errorf("invalid job name %q", args[0])
	}
	return args[0], nil
}

// jobDir resolves a deployed job's binaries directory.
func jobDir(cfg *config.AgentConfig, name string) (string, error) {
	dir := filepath.Join(cfg.ContinuousJobsPath(), name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("job %s is not deployed under %s", name, cfg.ContinuousJobsPath())
	}
	return dir, nil
}

// hostRegistry builds the registry the agent uses for the configured
// backend, so status resolves entries the way the agent would.
func hostRegistry(cfg *config.AgentConfig) (*host.Registry, error) {
	switch cfg.Executor {
	case config.ExecutorProcess:
		return host.NewRegistry(host.Defaults(), host.CommandProbe), nil
	case config.ExecutorDocker:
		return host.NewRegistry(host.Defaults(), host.ImageProbe), nil
	default:
		return nil, fmt.Errorf("unknown executor backend %q", cfg.Executor)
	}
}

// statusLabel renders a recorded status, flagging values outside the known
// vocabulary. Records are plain files and other writers may drift.
func statusLabel(st job.Status) string {
	if slices.Contains(job.ValidStatuses, st) {
		return string(st)
	}
	return "invalid"
}

func list(cfg *config.AgentConfig) error {
	entries, err := os.ReadDir(cfg.ContinuousJobsPath())
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No continuous jobs deployed.")
			return nil
		}
		return err
	}

	records, err := status.NewReader(cfg.DataPath).List()
	if err != nil {
		return err
	}
	byName := make(map[string]*status.Record, len(records))
	for _, record := range records {
		byName[record.Name] = record
	}
	markers := marker.NewStore()

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tDISABLED\tUPDATED")
	for _, e := range entries {
		if !e.IsDir() || !job.ValidName(e.Name()) {
			continue
		}
		name := e.Name()

		// The record reflects the agent's last report and may lag reality.
		st, updated := "unknown", "-"
		if record, ok := byName[name]; ok {
			st = statusLabel(record.Status)
			updated = record.UpdatedAt.Local().Format(time.RFC3339)
		}

		disabled := "no"
		if markers.Disabled(filepath.Join(cfg.ContinuousJobsPath(), name)) {
			disabled = "yes"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, st, disabled, updated)
	}
	return w.Flush()
}

func showStatus(cfg *config.AgentConfig, name string) error {
	dir, err := jobDir(cfg, name)
	if err != nil {
		return err
	}

	disabled := marker.NewStore().Disabled(dir)

	// Entry and host as the agent would resolve them. A deployed job whose
	// entry cannot be resolved still shows its record.
	entry, hostName := "none", "-"
	registry, err := hostRegistry(cfg)
	if err != nil {
		return err
	}
	j, err := job.NewDiscovery(cfg.ContinuousJobsPath(), registry).Find(context.Background(), name)
	switch {
	case err == nil:
		entry, hostName = j.RunCommand, j.Host.Name
	case !errors.Is(err, apperrors.ErrNotFound):
		return err
	}

	record, err := status.NewReader(cfg.DataPath).Get(name)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("%s: no status recorded yet (disabled: %v, entry: %s, host: %s)\n",
				name, disabled, entry, hostName)
			return nil
		}
		return err
	}

	fmt.Printf("%s: %s (disabled: %v, entry: %s, host: %s, updated: %s)\n",
		name, statusLabel(record.Status), disabled, entry, hostName,
		record.UpdatedAt.Local().Format(time.RFC3339))
	return nil
}

func disable(cfg *config.AgentConfig, name string) error {
	dir, err := jobDir(cfg, name)
	if err != nil {
		return err
	}
	if err := marker.NewStore().Write(context.Background(), dir); err != nil {
		return err
	}
	fmt.Printf("Job %s disabled; the agent stops it on its next check.\n", name)
	return nil
}

func enable(cfg *config.AgentConfig, name string) error {
	dir, err := jobDir(cfg, name)
	if err != nil {
		return err
	}
	if err := marker.NewStore().Remove(context.Background(), dir); err != nil {
		return err
	}
	fmt.Printf("Job %s enabled; the agent starts it on its next check.\n", name)
	return nil
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: jobctl <command> [arguments]

Commands:
  list             list deployed continuous jobs
  status <job>     show the recorded status of one job
  disable <job>    write the disable marker; the agent stops the job
  enable <job>     remove the disable marker; the agent starts the job

The jobs root and data root come from JOBS_PATH and DATA_PATH. The status
command resolves entries with the backend EXECUTOR selects.
`)
}
