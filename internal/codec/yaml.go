package codec

import (
	"fmt"
	"io"

	"usbmap/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse reads a topology document. As with JSON, a top-level sequence is
// taken as the controller list.
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Topology, error) {
	var node yaml.Node
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&node); err != nil {
		if err == io.EOF {
			return domain.NewTopology(), nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	doc := &node
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}

	if doc.Kind == yaml.SequenceNode {
		var controllers []domain.Controller
		if err := doc.Decode(&controllers); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		return normalize(&domain.Topology{Controllers: controllers}), nil
	}

	var topology domain.Topology
	if err := doc.Decode(&topology); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return normalize(&topology), nil
}

// Export writes the topology as YAML
func (c *YAMLCodec) Export(t *domain.Topology, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(t); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
