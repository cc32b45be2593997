package service

import (
	"context"
	"fmt"

	"usbmap/internal/codec"
	"usbmap/internal/core/emit"
)

// BuildResult describes a written bundle
type BuildResult struct {
	Path          string `json:"path"`
	Bundle        string `json:"bundle"`
	Personalities int    `json:"personalities"`
	Ports         int    `json:"ports"`
}

// EmitOptions maps the session settings onto emission options
func (s *Session) EmitOptions() emit.Options {
	return emit.Options{
		Native:           s.settings.UseNative,
		LegacyNative:     s.settings.UseLegacyNative,
		ModelIdentifier:  s.settings.ModelIdentifier,
		AddComments:      s.settings.AddCommentsToMap,
		EmptyControllers: emit.EmptyPolicy(s.settings.EmptyControllers),
	}
}

// SetModelIdentifier records the model identifier native bundles are keyed on
func (s *Session) SetModelIdentifier(model string) {
	s.settings.ModelIdentifier = model
}

// Build validates the selection and writes the bundle into the output
// directory. Nothing is written unless every emitted controller has a
// matching key.
func (s *Session) Build(ctx context.Context) (*BuildResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	for _, c := range s.Listing() {
		if c.OverLimit() {
			s.log.Warn().
				Str("controller", c.Name).
				Int("selected", c.Selected).
				Int("limit", MaxPortsPerController).
				Msg("more ports selected than the platform maps")
		}
	}

	cfg, err := emit.Build(s.topo, s.EmitOptions())
	if err != nil {
		return nil, fmt.Errorf("build configuration: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := codec.NewPlistExporter().WriteBundle(s.outputDir, cfg)
	if err != nil {
		return nil, err
	}

	res := &BuildResult{Path: path, Bundle: cfg.BundleName(), Personalities: len(cfg.Personalities)}
	for _, p := range cfg.Personalities {
		res.Ports += len(p.Ports)
	}

	s.log.Info().
		Str("path", path).
		Int("personalities", res.Personalities).
		Int("ports", res.Ports).
		Msg("bundle written")
	s.events.Publish(Event{Type: EventBundleBuilt, Payload: res})
	return res, nil
}
