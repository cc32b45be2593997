package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"usbmap/internal/codec"
	"usbmap/internal/domain"
	"usbmap/internal/logger"
)

// CommandCollector runs a dump tool and decodes the JSON it prints
type CommandCollector struct {
	argv    []string
	timeout time.Duration
	codec   codec.Importer
	log     zerolog.Logger
}

// NewCommandCollector creates a collector running argv. A zero timeout means
// the context alone bounds the run.
func NewCommandCollector(argv []string, timeout time.Duration) *CommandCollector {
	return &CommandCollector{
		argv:    argv,
		timeout: timeout,
		codec:   codec.NewJSONCodec(),
		log:     logger.WithComponent("collector.command"),
	}
}

// Name returns the collector identifier
func (c *CommandCollector) Name() string {
	return "command"
}

// Collect runs the tool once. A missing binary is not worth retrying.
func (c *CommandCollector) Collect(ctx context.Context) (*domain.Topology, error) {
	if len(c.argv) == 0 {
		return nil, backoff.Permanent(errors.New("no dump command configured"))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, backoff.Permanent(fmt.Errorf("dump command %s: %w", c.argv[0], err))
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("dump command %s: %w: %s", c.argv[0], err, msg)
		}
		return nil, fmt.Errorf("dump command %s: %w", c.argv[0], err)
	}

	t, err := c.codec.Parse(&stdout)
	if err != nil {
		return nil, fmt.Errorf("dump command %s output: %w", c.argv[0], err)
	}
	normalize(t, c.log)

	c.log.Debug().
		Str("command", c.argv[0]).
		Dur("elapsed", time.Since(start)).
		Int("controllers", len(t.Controllers)).
		Msg("snapshot collected")
	return t, nil
}
