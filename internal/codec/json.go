package codec

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"usbmap/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse reads a topology document. A bare array of controllers, as written
// by dump tools, is accepted too.
func (c *JSONCodec) Parse(r io.Reader) (*domain.Topology, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	decoder := json.NewDecoder(br)
	if first == '[' {
		var controllers []domain.Controller
		if err := decoder.Decode(&controllers); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return normalize(&domain.Topology{Controllers: controllers}), nil
	}

	var topology domain.Topology
	if err := decoder.Decode(&topology); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return normalize(&topology), nil
}

// Export writes the topology as indented JSON
func (c *JSONCodec) Export(t *domain.Topology, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(t); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
