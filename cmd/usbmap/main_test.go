package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usbmap/internal/domain"
	"usbmap/internal/service"
)

func TestParsePorts(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []int
		wantErr bool
	}{
		{name: "comma list", args: []string{"1,2,3"}, want: []int{1, 2, 3}},
		{name: "separate args", args: []string{"4", "2"}, want: []int{4, 2}},
		{name: "range", args: []string{"5-7"}, want: []int{5, 6, 7}},
		{name: "spaces and duplicates", args: []string{" 1, 2 ,1", "2-3"}, want: []int{1, 2, 3}},
		{name: "not a number", args: []string{"a"}, wantErr: true},
		{name: "backwards range", args: []string{"7-5"}, wantErr: true},
		{name: "nothing", args: []string{","}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePorts(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintListing(t *testing.T) {
	comment := "rear"
	listing := []service.ControllerView{{
		Name:     "XHCI",
		Class:    domain.ControllerXHCI,
		Selected: 1,
		Ports: []service.PortView{
			{
				SelectionIndex: 1,
				Port: domain.Port{
					Index:    1,
					Selected: func() *bool { v := true; return &v }(),
					Comment:  &comment,
					Devices:  []domain.Device{{Name: "Hub", Speed: domain.SpeedHigh, Devices: []domain.Device{{Name: "Mouse", Speed: domain.SpeedLow}}}},
				},
				Label:     "Port 1 | USB 3.0 | USB 3 Type A",
				Companion: 2,
			},
			{SelectionIndex: 2, Label: "Port 2 | USB 2.0 | Unknown"},
		},
	}}

	var buf bytes.Buffer
	printListing(&buf, listing, listingOptions{Devices: true})
	out := buf.String()

	assert.Contains(t, out, "XHCI | USB 3.0 (XHCI) | 1/2 ports\n")
	assert.Contains(t, out, "[#] 1. Port 1 | USB 3.0 | USB 3 Type A | Companion to 2\n")
	assert.Contains(t, out, "[ ] 2. Port 2 | USB 2.0 | Unknown\n")
	assert.Contains(t, out, "       rear\n")
	assert.Contains(t, out, "       - Hub - operating at USB 2.0\n")
	assert.Contains(t, out, "         - Mouse - operating at USB 1.1\n")

	buf.Reset()
	printListing(&buf, listing, listingOptions{Raw: true})
	out = buf.String()
	assert.Contains(t, out, "[#] 1. Port 1 | USB 3.0 | USB 3 Type A | Companion to 2 | 01000000\n")
	assert.Contains(t, out, "[ ] 2. Port 2 | USB 2.0 | Unknown | 00000000\n")
	assert.NotContains(t, out, "- Hub")
}

func TestReportValidation(t *testing.T) {
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	defer func() { stdout = old }()

	err := reportValidation(domain.ValidationErrors{
		{SelectionIndex: 3, Message: "port 3 is selected but has no connector type"},
	})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "  - port 3 is selected but has no connector type\n")

	plain := errors.New("disk full")
	assert.Equal(t, plain, reportValidation(plain))
}

func TestLogEventsStops(t *testing.T) {
	var buf bytes.Buffer
	bus := service.NewEventBus()
	stop := logEvents(bus, zerolog.New(&buf).Level(zerolog.DebugLevel))

	bus.Publish(service.Event{Type: service.EventSnapshotMerged})

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("event logger did not stop")
	}

	assert.NotPanics(t, func() {
		bus.Publish(service.Event{Type: service.EventCheckpointSaved})
	}, "publishing after stop must not reach the closed channel")
	assert.Contains(t, buf.String(), string(service.EventSnapshotMerged))
	assert.NotContains(t, buf.String(), string(service.EventCheckpointSaved))
}
