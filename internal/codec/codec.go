// Package codec reads and writes topology documents and emitted
// configurations.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"usbmap/internal/domain"
)

// Importer reads a topology document or collector snapshot.
type Importer interface {
	Parse(r io.Reader) (*domain.Topology, error)
	Format() string
}

// Exporter writes a topology document.
type Exporter interface {
	Export(t *domain.Topology, w io.Writer) error
	Format() string
}

// Codec is both an Importer and an Exporter.
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for a format name ("json", "yaml" or "yml").
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported topology format %q", format)
	}
}

// ForPath picks a codec from the file extension, defaulting to JSON.
func ForPath(path string) Codec {
	if c, err := ForFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return c
	}
	return NewJSONCodec()
}

// normalize fills in what older or partial documents leave out.
func normalize(t *domain.Topology) *domain.Topology {
	if t.Version == 0 {
		t.Version = domain.TopologyVersion
	}
	if t.Controllers == nil {
		t.Controllers = make([]domain.Controller, 0)
	}
	return t
}
