package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usbmap/internal/config"
	"usbmap/internal/domain"
	"usbmap/internal/repository"
	"usbmap/internal/repository/file"
	"usbmap/internal/repository/sqlite"
)

func ptr[T any](v T) *T { return &v }

// snapshot has four XHCI ports (selection indices 1-4) where port 1 and
// port 5 are companions, followed by one EHCI port (index 5).
func snapshot() *domain.Topology {
	return &domain.Topology{Version: domain.TopologyVersion, Controllers: []domain.Controller{
		{
			Name:        "Intel XHCI",
			Identifiers: domain.Identifiers{BDF: []int{0, 20, 0}, ACPIPath: `\_SB.PCI0.XHC`},
			Class:       domain.ControllerXHCI,
			HubName:     "USB#ROOT_HUB30#4",
			Ports: []domain.Port{
				{
					Index: 1, Name: "Port 1", Class: domain.SpeedSuper,
					Guessed:       ptr(domain.ConnectorUSB3TypeA),
					CompanionInfo: &domain.CompanionInfo{Hub: "USB#ROOT_HUB30#4", Port: 5},
				},
				{
					Index: 2, Name: "Port 2", Class: domain.SpeedHigh,
					Guessed: ptr(domain.ConnectorInternal),
					Devices: []domain.Device{{Name: "Bluetooth"}},
				},
				{Index: 3, Name: "Port 3", Class: domain.SpeedHigh},
				{
					Index: 5, Name: "Port 5", Class: domain.SpeedHigh,
					Guessed:       ptr(domain.ConnectorUSB3TypeA),
					CompanionInfo: &domain.CompanionInfo{Hub: "USB#ROOT_HUB30#4", Port: 1},
					Devices:       []domain.Device{{Name: "Keyboard"}},
				},
			},
		},
		{
			Name:        "Intel EHCI",
			Identifiers: domain.Identifiers{BDF: []int{0, 26, 0}},
			Class:       domain.ControllerEHCI,
			Ports:       []domain.Port{{Index: 1, Name: "Port 1", Class: domain.SpeedHigh}},
		},
	}}
}

type staticCollector struct {
	topo *domain.Topology
	err  error
}

func (c staticCollector) Name() string { return "static" }

func (c staticCollector) Collect(context.Context) (*domain.Topology, error) {
	return c.topo, c.err
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func openFileSession(t *testing.T, cfg *config.Config) (*Session, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usb.json")
	store, err := file.New(path)
	require.NoError(t, err)

	s, err := Open(context.Background(), store, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

// newSession returns a session holding snapshot() merged.
func newSession(t *testing.T, cfg *config.Config) *Session {
	t.Helper()
	s, _ := openFileSession(t, cfg)
	require.NoError(t, s.ApplySnapshot(snapshot()))
	return s
}

func selection(s *Session) []bool {
	var out []bool
	for _, c := range s.Listing() {
		for _, p := range c.Ports {
			out = append(out, p.Port.IsSelected())
		}
	}
	return out
}

func TestListingDefaultSelection(t *testing.T) {
	s := newSession(t, testConfig(t))

	views := s.Listing()
	require.Len(t, views, 2)
	assert.Equal(t, []bool{true, true, false, true, false}, selection(s),
		"ports with devices, or whose companion has devices, start selected")

	xhci := views[0]
	assert.Equal(t, 3, xhci.Selected)
	assert.False(t, xhci.OverLimit())
	assert.Equal(t, 4, xhci.Ports[0].Companion)
	assert.Equal(t, 1, xhci.Ports[3].Companion)
	assert.Equal(t, 0, xhci.Ports[1].Companion)
	assert.Equal(t, "Port 2 | USB 2.0 | Internal (guessed)", xhci.Ports[1].Label)
	assert.Equal(t, 5, views[1].Ports[0].SelectionIndex)
}

func TestDefaultSelectionKeepsExplicitChoices(t *testing.T) {
	s := newSession(t, testConfig(t))
	s.Topology().Controllers[0].Port(2).SetSelected(false)
	assert.Equal(t, []bool{true, false, false, true, false}, selection(s))
}

func TestTogglePorts(t *testing.T) {
	t.Run("companion follows", func(t *testing.T) {
		s := newSession(t, testConfig(t))
		require.NoError(t, s.TogglePorts(1))
		assert.Equal(t, []bool{false, true, false, false, false}, selection(s))
	})

	t.Run("companion listed too is changed once", func(t *testing.T) {
		s := newSession(t, testConfig(t))
		require.NoError(t, s.TogglePorts(1, 4))
		assert.Equal(t, []bool{false, true, false, false, false}, selection(s))
	})

	t.Run("binding off", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Settings.AutoBindCompanions = false
		s := newSession(t, cfg)
		require.NoError(t, s.TogglePorts(1, 3))
		assert.Equal(t, []bool{false, true, true, true, false}, selection(s))
	})

	t.Run("unknown index changes nothing", func(t *testing.T) {
		s := newSession(t, testConfig(t))
		err := s.TogglePorts(2, 99)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port 99 does not exist")
		assert.Equal(t, []bool{true, true, false, true, false}, selection(s))
	})
}

func TestBulkSelection(t *testing.T) {
	s := newSession(t, testConfig(t))

	s.SelectAll()
	assert.Equal(t, []bool{true, true, true, true, true}, selection(s))

	s.DeselectEmpty()
	assert.Equal(t, []bool{true, true, false, true, false}, selection(s))

	s.SelectNone()
	assert.Equal(t, []bool{false, false, false, false, false}, selection(s))

	s.SelectPopulated()
	assert.Equal(t, []bool{true, true, false, true, false}, selection(s))
}

func TestSetPortType(t *testing.T) {
	s := newSession(t, testConfig(t))

	require.NoError(t, s.SetPortType(domain.ConnectorTypeCWithSwitch, 1))
	xhci := &s.Topology().Controllers[0]
	assert.Equal(t, domain.ConnectorTypeCWithSwitch, *xhci.Port(1).Type)
	assert.Equal(t, domain.ConnectorTypeCWithSwitch, *xhci.Port(5).Type, "companion takes the same type")
	assert.Nil(t, xhci.Port(2).Type)

	assert.Error(t, s.SetPortType(domain.ConnectorType(42), 2))
	assert.Error(t, s.SetPortType(domain.ConnectorTypeA, 0))
	assert.Nil(t, xhci.Port(2).Type)
}

func TestSetComment(t *testing.T) {
	s := newSession(t, testConfig(t))

	require.NoError(t, s.SetComment("front left", 2, 3))
	xhci := &s.Topology().Controllers[0]
	require.NotNil(t, xhci.Port(2).Comment)
	assert.Equal(t, "front left", *xhci.Port(3).Comment)

	require.NoError(t, s.SetComment("", 2))
	assert.Nil(t, xhci.Port(2).Comment)
	assert.NotNil(t, xhci.Port(3).Comment)
}

func TestValidate(t *testing.T) {
	s := newSession(t, testConfig(t))
	assert.NoError(t, s.Validate())

	s.SelectNone()
	err := s.Validate()
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, 0, verrs[0].SelectionIndex)

	require.NoError(t, s.TogglePorts(2, 3, 5))
	err = s.Validate()
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, 3, verrs[0].SelectionIndex)
	assert.Equal(t, 5, verrs[1].SelectionIndex)
	assert.Contains(t, verrs[0].Error(), "no connector type")
}

func TestApplySnapshotViolationLeavesTopology(t *testing.T) {
	s := newSession(t, testConfig(t))
	s.Topology().Controllers[0].Properties = map[string]any{"acpi": "XHC"}
	before := s.Topology().Clone()

	fresh := snapshot()
	fresh.Controllers[0].Properties = map[string]any{"acpi": []any{"XHC"}}
	err := s.ApplySnapshot(fresh)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStructuralMerge)
	assert.Equal(t, before, s.Topology())
}

func TestDiscoverPersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	s, path := openFileSession(t, cfg)

	require.NoError(t, s.Discover(ctx, staticCollector{topo: snapshot()}))
	require.NoError(t, s.Discover(ctx, staticCollector{topo: snapshot()}))
	assert.Len(t, s.Topology().Controllers, 2, "discovering the same snapshot twice adds nothing")
	require.NoError(t, s.Close())

	store, err := file.New(path)
	require.NoError(t, err)
	reopened, err := Open(ctx, store, cfg)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, s.Topology(), reopened.Topology())
}

func TestDiscoverCollectionFailure(t *testing.T) {
	s := newSession(t, testConfig(t))
	cause := &domain.CollectionError{Collector: "static", Attempts: 10, Err: errors.New("timeout")}
	err := s.Discover(context.Background(), staticCollector{err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Len(t, s.Topology().Controllers, 2)
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)
	s := newSession(t, cfg)

	events := make(chan Event, 8)
	s.Events().Subscribe(events)

	res, err := s.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UTBMap.kext", res.Bundle)
	assert.Equal(t, 1, res.Personalities, "the empty EHCI controller is ignored")
	assert.Equal(t, 3, res.Ports)
	assert.FileExists(t, filepath.Join(res.Path, "Contents", "Info.plist"))
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "UTBMap.kext"), res.Path)

	select {
	case ev := <-events:
		assert.Equal(t, EventBundleBuilt, ev.Type)
	default:
		t.Fatal("no event published")
	}
}

func TestBuildRefusesInvalidSelection(t *testing.T) {
	cfg := testConfig(t)
	s := newSession(t, cfg)
	s.SelectNone()

	_, err := s.Build(context.Background())
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assertEmptyDir(t, cfg.Output.Dir)
}

func TestBuildIsAtomicOnNoMatch(t *testing.T) {
	cfg := testConfig(t)
	s, _ := openFileSession(t, cfg)

	fresh := snapshot()
	// Two distinct controllers whose only matchable identifier is shared.
	fresh.Controllers[1].Identifiers = domain.Identifiers{PCIID: []string{"8086", "a36d"}, DriverKey: "0001"}
	fresh.Controllers[1].Ports[0].Guessed = ptr(domain.ConnectorTypeA)
	fresh.Controllers = append(fresh.Controllers, domain.Controller{
		Name:        "Twin EHCI",
		Identifiers: domain.Identifiers{PCIID: []string{"8086", "a36d"}, DriverKey: "0002"},
		Class:       domain.ControllerEHCI,
	})
	require.NoError(t, s.ApplySnapshot(fresh))
	s.SelectAll()
	require.NoError(t, s.SetPortType(domain.ConnectorInternal, 3))

	_, err := s.Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoMatchAvailable)
	assertEmptyDir(t, cfg.Output.Dir)
}

func TestBuildNativeNeedsModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Settings.UseNative = true
	s := newSession(t, cfg)

	_, err := s.Build(context.Background())
	require.Error(t, err)

	s.SetModelIdentifier("iMac19,1")
	res, err := s.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "USBMap.kext", res.Bundle)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be written when emission fails")
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s, path := openFileSession(t, testConfig(t))
	require.NoError(t, s.Discover(ctx, staticCollector{topo: snapshot()}))
	assert.FileExists(t, path)

	require.NoError(t, s.Reset(ctx))
	assert.True(t, s.Topology().IsEmpty())
	assert.NoFileExists(t, path)
}

func TestHistoryAndRestore(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	s, err := Open(ctx, repo, testConfig(t))
	require.NoError(t, err)
	defer s.Close()

	first := snapshot()
	first.Controllers = first.Controllers[:1]
	require.NoError(t, s.Discover(ctx, staticCollector{topo: first}))
	require.NoError(t, s.Discover(ctx, staticCollector{topo: snapshot()}))

	history, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Current)
	assert.Equal(t, 2, history[0].Controllers)
	assert.Equal(t, 1, history[1].Controllers)

	require.NoError(t, s.Restore(ctx, history[1].ID))
	assert.Len(t, s.Topology().Controllers, 1)

	err = s.Restore(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHistoryUnsupported(t *testing.T) {
	s := newSession(t, testConfig(t))
	_, err := s.History(context.Background(), 0)
	assert.ErrorIs(t, err, ErrHistoryUnsupported)
	assert.ErrorIs(t, s.Restore(context.Background(), "x"), ErrHistoryUnsupported)
}

func TestExport(t *testing.T) {
	s := newSession(t, testConfig(t))

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf, "yaml"))
	assert.Contains(t, buf.String(), "name: Intel XHCI")

	assert.Error(t, s.Export(&buf, "toml"))
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	fast := make(chan Event, 1)
	slow := make(chan Event)
	bus.Subscribe(fast)
	bus.Subscribe(slow)

	bus.Publish(Event{Type: EventCheckpointSaved})
	assert.Equal(t, EventCheckpointSaved, (<-fast).Type)

	bus.Unsubscribe(fast)
	close(fast)
	assert.NotPanics(t, func() { bus.Publish(Event{Type: EventTopologyReset}) })
}
