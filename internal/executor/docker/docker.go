// Package docker runs job instances in containers on the host Docker daemon.
//
// Each run is one container: the job's binaries directory is bind-mounted,
// the entry file runs under the host's interpreter image, and the container
// is removed after exit. Containers are labeled so leftovers from a previous
// agent run can be cleaned up at startup.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/google/uuid"

	"jobhost/internal/apperrors"
	"jobhost/internal/executor"
	"jobhost/internal/job"
)

const (
	labelManaged      = "managed-by"
	labelManagedValue = "jobs-agent"
	labelJob          = "jobhost.job"
	labelRun          = "jobhost.run"

	// workdir is where the job's binaries directory is mounted in the container.
	workdir = "/job"

	stdoutLog = "stdout.log"
	stderrLog = "stderr.log"
)

const defaultKillGrace = 5 * time.Second

// run tracks one live instance.
type run struct {
	id          string
	containerID string
	dir         string // artifact dir receiving copied logs
}

// Executor runs instances as containers.
type Executor struct {
	client    *client.Client
	dataRoot  string
	killGrace time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	runs map[string]*run
}

// NewExecutor creates a Docker executor and removes job containers left
// behind by a previous agent run.
func NewExecutor(ctx context.Context, dataRoot string, killGrace time.Duration) (*Executor, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, apperrors.Internal("docker.connect", err)
	}

	if killGrace <= 0 {
		killGrace = defaultKillGrace
	}

	e := &Executor{
		client:    dockerClient,
		dataRoot:  dataRoot,
		killGrace: killGrace,
		logger:    slog.With("component", "executor", "backend", "docker"),
		runs:      make(map[string]*run),
	}

	if err := e.removeLeftovers(ctx); err != nil {
		e.logger.Warn("Failed to clean up leftover containers", "error", err)
	}

	return e, nil
}

// removeLeftovers removes managed containers surviving a previous agent run.
func (e *Executor) removeLeftovers(ctx context.Context) error {
	containers, err := e.client.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", labelManaged+"="+labelManagedValue),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	for i := range containers {
		c := &containers[i]
		e.logger.Info("Removing leftover container", "job", c.Labels[labelJob], "container", shortID(c.ID))
		e.removeContainer(ctx, c.ID)
	}
	return nil
}

// RunDir returns the artifact directory for one run of a job.
func (e *Executor) RunDir(jobName, runID string) string {
	return filepath.Join(e.dataRoot, "runs", jobName, runID)
}

// Initialize ensures the host image is present and creates the run's
// container, without starting it.
func (e *Executor) Initialize(ctx context.Context, j *job.Job, logger *slog.Logger) error {
	if j.Host.Image == "" {
		return fmt.Errorf("host %s has no container image", j.Host.Name)
	}

	runID := uuid.New().String()
	dir := e.RunDir(j.Name, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	// Pull with a detached context so a canceled run doesn't abort the pull.
	if err := e.ensureImage(context.WithoutCancel(ctx), j.Host.Image); err != nil {
		return apperrors.Internal("docker.pullImage", err)
	}

	containerConfig := &container.Config{
		Image:      j.Host.Image,
		Cmd:        j.Host.Argv(j.RunCommand),
		WorkingDir: workdir,
		Env: []string{
			"JOBHOST_JOB_NAME=" + j.Name,
			"JOBHOST_RUN_ID=" + runID,
		},
		Labels: map[string]string{
			labelJob:     j.Name,
			labelRun:     runID,
			labelManaged: labelManagedValue,
		},
	}

	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: j.BinariesPath,
				Target: workdir,
			},
		},
	}

	containerName := fmt.Sprintf("jobhost-%s-%s", j.Name, runID[:8])
	resp, err := e.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName)
	if err != nil {
		return apperrors.Internal("docker.createContainer", err)
	}

	e.mu.Lock()
	e.runs[j.Name] = &run{id: runID, containerID: resp.ID, dir: dir}
	e.mu.Unlock()

	logger.Debug("Run prepared", "runId", runID, "container", shortID(resp.ID))
	return nil
}

// Run starts the container and blocks until it exits. Logs are copied into
// the run directory and the container is removed afterwards.
func (e *Executor) Run(ctx context.Context, j *job.Job, logger *slog.Logger) error {
	e.mu.Lock()
	r := e.runs[j.Name]
	e.mu.Unlock()
	if r == nil {
		return fmt.Errorf("no initialized run for job %s", j.Name)
	}

	if err := e.client.ContainerStart(ctx, r.containerID, container.StartOptions{}); err != nil {
		e.finish(context.WithoutCancel(ctx), j.Name, r, logger)
		return fmt.Errorf("failed to start instance: %w", err)
	}

	logger.Info("Instance started", "runId", r.id, "container", shortID(r.containerID))

	exitCode, waitErr := e.waitForExit(ctx, r.containerID)
	e.finish(context.WithoutCancel(ctx), j.Name, r, logger)

	if waitErr != nil {
		return fmt.Errorf("instance ended: %w", waitErr)
	}
	logger.Info("Instance exited", "runId", r.id, "exitCode", exitCode)
	if exitCode != 0 {
		return fmt.Errorf("instance exited with code %d", exitCode)
	}
	return nil
}

// Kill stops the job's current container. Docker handles the escalation:
// graceful signal first, hard kill after the grace timeout.
func (e *Executor) Kill(jobName string) {
	e.mu.Lock()
	r := e.runs[jobName]
	e.mu.Unlock()
	if r == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.killGrace+10*time.Second)
	defer cancel()

	e.logger.Info("Stopping instance", "job", jobName, "container", shortID(r.containerID))
	timeout := int(e.killGrace.Seconds())
	if err := e.client.ContainerStop(ctx, r.containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		e.logger.Warn("Failed to stop container", "job", jobName, "error", err)
	}
}

// Ping checks that the Docker daemon is reachable and responsive.
func (e *Executor) Ping(ctx context.Context) error {
	if _, err := e.client.Ping(ctx); err != nil {
		return apperrors.Internal("docker.ping", err)
	}
	return nil
}

// Close releases the Docker client.
func (e *Executor) Close() error {
	return e.client.Close()
}

// finish copies logs, removes the container, and drops the run.
func (e *Executor) finish(ctx context.Context, jobName string, r *run, logger *slog.Logger) {
	e.copyLogs(ctx, r, logger)
	e.removeContainer(ctx, r.containerID)

	e.mu.Lock()
	if e.runs[jobName] == r {
		delete(e.runs, jobName)
	}
	e.mu.Unlock()
}

// copyLogs writes the container's output into stdout.log / stderr.log in the
// run directory. Docker multiplexes both streams over one connection with an
// 8-byte frame header.
func (e *Executor) copyLogs(ctx context.Context, r *run, logger *slog.Logger) {
	logs, err := e.client.ContainerLogs(ctx, r.containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		logger.Warn("Failed to read container logs", "runId", r.id, "error", err)
		return
	}
	defer logs.Close()

	stdout, err := os.Create(filepath.Join(r.dir, stdoutLog))
	if err != nil {
		logger.Warn("Failed to create stdout log", "runId", r.id, "error", err)
		return
	}
	defer stdout.Close()

	stderr, err := os.Create(filepath.Join(r.dir, stderrLog))
	if err != nil {
		logger.Warn("Failed to create stderr log", "runId", r.id, "error", err)
		return
	}
	defer stderr.Close()

	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(logs, header); err != nil {
			if err != io.EOF {
				logger.Debug("Log copy ended", "runId", r.id, "error", err)
			}
			return
		}

		size := int(header[4])<<24 | int(header[5])<<16 | int(header[6])<<8 | int(header[7])
		if size == 0 {
			continue
		}

		dst := stdout
		if header[0] == 2 {
			dst = stderr
		}
		if _, err := io.CopyN(dst, logs, int64(size)); err != nil {
			logger.Debug("Failed to copy log frame", "runId", r.id, "error", err)
			return
		}
	}
}

func (e *Executor) waitForExit(ctx context.Context, containerID string) (int, error) {
	statusCh, errCh := e.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)

	select {
	case <-ctx.Done():
		return -1, ctx.Err()
	case err := <-errCh:
		return -1, err
	case status := <-statusCh:
		if status.Error != nil {
			return int(status.StatusCode), fmt.Errorf("%s", status.Error.Message)
		}
		return int(status.StatusCode), nil
	}
}

func (e *Executor) removeContainer(ctx context.Context, containerID string) {
	if containerID == "" {
		return
	}
	timeout := int(e.killGrace.Seconds())
	_ = e.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	_ = e.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
}

func (e *Executor) ensureImage(ctx context.Context, imageName string) error {
	_, err := e.client.ImageInspect(ctx, imageName)
	if err == nil {
		return nil
	}

	e.logger.Info("Pulling image", "image", imageName)
	reader, err := e.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func shortID(containerID string) string {
	if len(containerID) > 12 {
		return containerID[:12]
	}
	return containerID
}

// Verify Executor implements executor.Executor
var _ executor.Executor = (*Executor)(nil)
