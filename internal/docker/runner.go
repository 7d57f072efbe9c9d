// Package docker runs the optimizer in a container with the workspace
// bind-mounted, so the marker-file handshake works across the container boundary.
package docker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
	"github.com/sirupsen/logrus"
)

// WorkspaceMount is where the workspace appears inside the container.
const WorkspaceMount = "/workspace"

var logger = logrus.WithFields(logrus.Fields{
	"app":       "tuneloop",
	"component": "docker",
})

type RunOpts struct {
	Image        string
	Command      []string
	WorkspaceDir string
	Env          map[string]string
	CPULimit     float64
	MemoryLimit  int64
	UserID       string
}

type RunResult struct {
	ExitCode int
	Duration time.Duration
}

// Container is a started optimizer container. Stop must be called to remove it.
type Container struct {
	ID    string
	cli   *client.Client
	start time.Time

	stopOnce sync.Once
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// Start creates and starts the optimizer container without waiting for it.
func Start(ctx context.Context, opts *RunOpts) (*Container, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("optimizer image is not configured")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: opts.WorkspaceDir,
				Target: WorkspaceMount,
			},
		},
		Init: &initTrue,
	}
	if opts.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(opts.CPULimit * 1e9)
	}
	if opts.MemoryLimit > 0 {
		hostCfg.Memory = opts.MemoryLimit
	}

	containerCfg := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Command,
		Env:        envSlice(opts.Env),
		WorkingDir: WorkspaceMount,
		Labels:     map[string]string{"tuneloop": "true"},
	}
	// Run as the host user so rows the optimizer writes stay writable for the driver.
	if opts.UserID != "" {
		containerCfg.User = opts.UserID
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("creating container: %w", err)
	}
	c := &Container{ID: createResp.ID, cli: cli, start: time.Now()}

	if _, err := cli.ContainerStart(ctx, c.ID, client.ContainerStartOptions{}); err != nil {
		c.Stop()
		return nil, fmt.Errorf("starting container: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"container": c.ID,
		"image":     opts.Image,
	}).Info("Optimizer container started.")
	return c, nil
}

// Wait blocks until the container exits or ctx is done.
func (c *Container) Wait(ctx context.Context) (*RunResult, error) {
	waitResult := c.cli.ContainerWait(ctx, c.ID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				return nil, fmt.Errorf("waiting for container: %w", err)
			}
			// nil error means no error on this channel; wait for result
		case status := <-waitResult.Result:
			return &RunResult{
				ExitCode: int(status.StatusCode),
				Duration: time.Since(c.start),
			}, nil
		}
	}
}

// Logs returns the last tail lines of the container's output.
func (c *Container) Logs(tail string) (string, error) {
	logReader, err := c.cli.ContainerLogs(context.Background(), c.ID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true, Tail: tail})
	if err != nil {
		return "", fmt.Errorf("reading container logs: %w", err)
	}
	defer logReader.Close()
	data, err := io.ReadAll(logReader)
	if err != nil {
		return "", fmt.Errorf("reading container logs: %w", err)
	}
	return string(data), nil
}

// Stop kills and removes the container. It is safe to call more than once.
func (c *Container) Stop() {
	c.stopOnce.Do(func() {
		ctx := context.Background()
		c.cli.ContainerKill(ctx, c.ID, client.ContainerKillOptions{Signal: "SIGKILL"})
		c.cli.ContainerRemove(ctx, c.ID, client.ContainerRemoveOptions{Force: true})
		c.cli.Close()
		logger.WithField("container", c.ID).Info("Optimizer container stopped.")
	})
}
