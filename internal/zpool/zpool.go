// Package zpool wraps the zpool binary: pool discovery, status queries and
// scrub start. All invocations go through a Runner so tests can script the
// tool's output.
package zpool

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/zfsutils/scrubwatch/internal/model"
)

// Runner executes one zpool invocation and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner invokes the real binary. A non-zero exit is surfaced as an
// ExternalToolError carrying the captured stderr.
type ExecRunner struct {
	Binary string // path or name, defaults to "zpool"
}

func (r ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	binary := r.Binary
	if binary == "" {
		binary = "zpool"
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &model.ExternalToolError{
			Args:   append([]string{binary}, args...),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// Client exposes the zpool subcommands scrubwatch needs.
type Client struct {
	runner Runner
}

func New(runner Runner) Client {
	if runner == nil {
		runner = ExecRunner{}
	}
	return Client{runner: runner}
}

// ListPools returns the names of all pools on the system, in the order the
// tool reports them.
func (c Client) ListPools(ctx context.Context) ([]string, error) {
	out, err := c.runner.Run(ctx, "list", "-H", "-o", "name")
	if err != nil {
		return nil, err
	}
	var pools []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name != "" {
			pools = append(pools, name)
		}
	}
	slog.DebugContext(ctx, "available pools", "pools", pools)
	return pools, nil
}

// Status queries and parses the scrub state of one pool.
func (c Client) Status(ctx context.Context, pool string) (model.ScanState, error) {
	out, err := c.runner.Run(ctx, "status", pool)
	if err != nil {
		return model.ScanState{}, err
	}
	state, err := ParseStatus(out)
	if err != nil {
		var malformed *model.MalformedStatusError
		if errors.As(err, &malformed) {
			malformed.Pool = pool
		}
		return model.ScanState{}, err
	}
	return state, nil
}

// StartScrub issues the scrub start request. The scrub itself runs
// asynchronously inside the storage subsystem.
func (c Client) StartScrub(ctx context.Context, pool string) error {
	_, err := c.runner.Run(ctx, "scrub", pool)
	return err
}
