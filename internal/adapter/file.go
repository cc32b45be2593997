package adapter

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"usbmap/internal/codec"
	"usbmap/internal/domain"
	"usbmap/internal/logger"
)

// FileCollector reads a snapshot dump from disk
type FileCollector struct {
	path  string
	codec codec.Importer
	log   zerolog.Logger
}

// NewFileCollector creates a collector for the dump at path. The format is
// taken from the file extension.
func NewFileCollector(path string) *FileCollector {
	return &FileCollector{
		path:  path,
		codec: codec.ForPath(path),
		log:   logger.WithComponent("collector.file"),
	}
}

// Name returns the collector identifier
func (c *FileCollector) Name() string {
	return "file"
}

// Path returns the dump location
func (c *FileCollector) Path() string {
	return c.path
}

// Collect parses the dump
func (c *FileCollector) Collect(ctx context.Context) (*domain.Topology, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	t, err := c.codec.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.path, err)
	}
	normalize(t, c.log)

	c.log.Debug().Str("path", c.path).Int("controllers", len(t.Controllers)).Msg("snapshot read")
	return t, nil
}
