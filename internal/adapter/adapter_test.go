package adapter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usbmap/internal/config"
	"usbmap/internal/domain"
)

const dump = `{
  "version": 1,
  "controllers": [{
    "identifiers": {"bdf": [0, 20, 0]},
    "class": 48,
    "properties": {"product": " Intel xHCI "},
    "ports": [{"index": 1, "class": 3, "guessed": 3, "type": null, "comment": null}]
  }]
}`

type flakyCollector struct {
	failures int
	calls    int
	err      error
}

func (f *flakyCollector) Name() string { return "flaky" }

func (f *flakyCollector) Collect(ctx context.Context) (*domain.Topology, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return domain.NewTopology(), nil
}

var fastPolicy = RetryPolicy{MaxTries: 3, Backoff: time.Millisecond}

func writeDump(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileCollector(t *testing.T) {
	path := writeDump(t, "usbdump.json", dump)

	topo, err := NewFileCollector(path).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, topo.Controllers, 1)

	c := topo.Controllers[0]
	assert.Equal(t, "Intel xHCI", c.Name, "name falls back to the product property")
	require.Len(t, c.Ports, 1)
	assert.Equal(t, "Port 1", c.Ports[0].Name)
	assert.Equal(t, []int{0, 20, 0}, c.Identifiers.BDF)
}

func TestFileCollectorMissing(t *testing.T) {
	_, err := NewFileCollector(filepath.Join(t.TempDir(), "absent.json")).Collect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRetrying(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		inner := &flakyCollector{failures: 2, err: errors.New("device busy")}
		topo, err := WithRetry(inner, fastPolicy).Collect(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, topo)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("gives up with a collection error", func(t *testing.T) {
		cause := errors.New("device busy")
		inner := &flakyCollector{failures: 10, err: cause}
		_, err := WithRetry(inner, fastPolicy).Collect(context.Background())
		require.Error(t, err)

		var ce *domain.CollectionError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "flaky", ce.Collector)
		assert.Equal(t, 3, ce.Attempts)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("permanent errors stop immediately", func(t *testing.T) {
		inner := &flakyCollector{failures: 10, err: backoff.Permanent(errors.New("no such tool"))}
		_, err := WithRetry(inner, fastPolicy).Collect(context.Background())
		require.Error(t, err)

		var ce *domain.CollectionError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, 1, ce.Attempts)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("cancelled context passes through", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		inner := &flakyCollector{failures: 10, err: errors.New("device busy")}
		_, err := WithRetry(inner, fastPolicy).Collect(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("zero policy takes defaults", func(t *testing.T) {
		r := WithRetry(&flakyCollector{}, RetryPolicy{})
		assert.Equal(t, DefaultRetryPolicy, r.policy)
	})
}

func TestCommandCollector(t *testing.T) {
	t.Run("empty argv is permanent", func(t *testing.T) {
		_, err := NewCommandCollector(nil, 0).Collect(context.Background())
		var perm *backoff.PermanentError
		assert.ErrorAs(t, err, &perm)
	})

	t.Run("missing binary is permanent", func(t *testing.T) {
		_, err := NewCommandCollector([]string{"usbmap-no-such-dump-tool"}, time.Second).Collect(context.Background())
		var perm *backoff.PermanentError
		assert.ErrorAs(t, err, &perm)
	})
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(fastPolicy)
	require.NoError(t, reg.Register(&flakyCollector{failures: 1, err: errors.New("busy")}))
	assert.Error(t, reg.Register(&flakyCollector{}), "duplicate names are rejected")
	assert.Equal(t, []string{"flaky"}, reg.Names())

	topo, err := reg.Collect(context.Background(), "flaky")
	require.NoError(t, err)
	assert.NotNil(t, topo)

	_, err = reg.Collect(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownCollector)
}

func TestFromConfig(t *testing.T) {
	path := writeDump(t, "usbdump.json", dump)

	reg, name, err := FromConfig(config.CollectorConfig{
		Kind:     config.CollectorFile,
		Path:     path,
		MaxTries: 2,
		Backoff:  config.Duration(time.Millisecond),
	})
	require.NoError(t, err)
	assert.Equal(t, "file", name)

	topo, err := reg.Collect(context.Background(), name)
	require.NoError(t, err)
	assert.Len(t, topo.Controllers, 1)

	_, _, err = FromConfig(config.CollectorConfig{Kind: config.CollectorFile})
	assert.Error(t, err)
	_, _, err = FromConfig(config.CollectorConfig{Kind: config.CollectorCommand})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	topo := &domain.Topology{Controllers: []domain.Controller{
		{Name: "Kept"},
		{Properties: map[string]any{"name": "   "}},
		{Ports: []domain.Port{{Index: 4}}},
	}}
	normalize(topo, zerolog.Nop())

	assert.Equal(t, "Kept", topo.Controllers[0].Name)
	assert.Equal(t, "Controller 2", topo.Controllers[1].Name)
	assert.Equal(t, "Port 4", topo.Controllers[2].Ports[0].Name)
}

func TestLookupString(t *testing.T) {
	v, err := lookupString(map[string]any{"device_name": "EHC1"}, "name", "device_name")
	require.NoError(t, err)
	assert.Equal(t, "EHC1", v)

	_, err = lookupString(nil, "name")
	assert.ErrorIs(t, err, domain.ErrLookupMiss)
}

func TestParseModelIdentifier(t *testing.T) {
	report := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<array>
	<dict>
		<key>_dataType</key>
		<string>SPHardwareDataType</string>
		<key>_items</key>
		<array>
			<dict>
				<key>machine_model</key>
				<string>iMac19,1</string>
				<key>machine_name</key>
				<string>iMac</string>
			</dict>
		</array>
	</dict>
</array>
</plist>`

	model, err := parseModelIdentifier([]byte(report))
	require.NoError(t, err)
	assert.Equal(t, "iMac19,1", model)

	_, err = parseModelIdentifier([]byte(`<plist version="1.0"><array/></plist>`))
	assert.Error(t, err)
}
