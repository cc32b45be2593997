package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"

	"usbmap/internal/adapter"
	"usbmap/internal/config"
	"usbmap/internal/core/encoding"
	"usbmap/internal/domain"
	"usbmap/internal/service"
	"usbmap/internal/watcher"
)

var stdout io.Writer = os.Stdout

func registerCommands(p *flags.Parser, a *app) {
	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"discover", "Collect a snapshot and merge it", "Collects one snapshot with the configured collector, merges it into the stored topology and checkpoints it.", &discoverCmd{app: a}},
		{"show", "List controllers and ports", "Lists every controller with its numbered ports, selections, comments and attached devices.", &showCmd{app: a}},
		{"toggle", "Toggle port selections", "Toggles the selection of the listed ports, e.g. 1,2,5-7.", &toggleCmd{app: a}},
		{"select", "Change selections in bulk", "Selects all, none or the populated ports, or deselects the empty ones.", &selectCmd{app: a}},
		{"type", "Set port connector types", "Sets the connector type of the listed ports. Run 'usbmap types' for the values.", &typeCmd{app: a}},
		{"types", "List connector types", "Lists every connector type value.", &typesCmd{}},
		{"comment", "Set or clear port comments", "Sets the comment of the listed ports, or clears it with --clear.", &commentCmd{app: a}},
		{"validate", "Check the selection", "Reports every problem that would stop a build.", &validateCmd{app: a}},
		{"build", "Write the bundle", "Validates the selection and writes the bundle into the output directory.", &buildCmd{app: a}},
		{"export", "Export the topology", "Writes the stored topology as JSON or YAML.", &exportCmd{app: a}},
		{"reset", "Delete the stored topology", "Deletes the stored topology and all checkpoints.", &resetCmd{app: a}},
		{"history", "List checkpoints", "Lists stored checkpoints, newest first. Needs the sqlite store.", &historyCmd{app: a}},
		{"restore", "Restore a checkpoint", "Makes an earlier checkpoint current. Needs the sqlite store.", &restoreCmd{app: a}},
		{"config", "Show or write configuration", "Prints the effective configuration, or writes it with --write.", &configCmd{app: a}},
	}
	for _, c := range commands {
		if _, err := p.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			panic(err)
		}
	}
}

type portArgs struct {
	Ports []string `positional-arg-name:"PORTS" required:"1"`
}

type discoverCmd struct {
	app   *app
	Path  string `short:"p" long:"path" description:"snapshot dump to read, overriding collector.path"`
	Watch bool   `short:"w" long:"watch" description:"keep running and merge whenever the dump changes"`
}

func (c *discoverCmd) Execute([]string) error {
	cfg := c.app.cfg.Collector
	if c.Path != "" {
		cfg.Kind = config.CollectorFile
		cfg.Path = c.Path
	}
	if c.Watch && cfg.Kind != config.CollectorFile {
		return errors.New("--watch needs the file collector")
	}

	reg, name, err := adapter.FromConfig(cfg)
	if err != nil {
		return err
	}
	collector, err := reg.Get(name)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := c.app.session(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Discover(ctx, collector); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d controller(s) recorded\n", len(s.Topology().Controllers))

	if !c.Watch {
		return nil
	}

	defer logEvents(s.Events(), c.app.log)()

	w := watcher.New(cfg.Path, func(ctx context.Context) error {
		if err := s.Discover(ctx, collector); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d controller(s) recorded\n", len(s.Topology().Controllers))
		return nil
	}).WithDebounce(cfg.Debounce.Duration())

	err = w.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// logEvents logs session events at debug level until the returned stop
// function is called. stop waits for the logging goroutine to exit.
func logEvents(bus *service.EventBus, log zerolog.Logger) (stop func()) {
	events := make(chan service.Event, 16)
	done := make(chan struct{})
	bus.Subscribe(events)
	go func() {
		defer close(done)
		for ev := range events {
			log.Debug().Str("event", string(ev.Type)).Msg("session event")
		}
	}()
	return func() {
		bus.Unsubscribe(events)
		close(events)
		<-done
	}
}

type showCmd struct {
	app     *app
	Devices bool `short:"D" long:"devices" description:"also list attached devices"`
	Raw     bool `short:"r" long:"raw" description:"also show each port's raw index bytes"`
}

func (c *showCmd) Execute([]string) error {
	return c.app.withSession(func(ctx context.Context, s *service.Session) error {
		listing := s.Listing()
		if len(listing) == 0 {
			fmt.Fprintln(stdout, "No ports recorded. Run 'usbmap discover' first.")
			return nil
		}
		printListing(stdout, listing, listingOptions{Devices: c.Devices, Raw: c.Raw})
		fmt.Fprintf(stdout, "Binding companions is %s.\n", onOff(s.Settings().AutoBindCompanions))
		return nil
	})
}

type listingOptions struct {
	Devices bool
	Raw     bool
}

func printListing(w io.Writer, listing []service.ControllerView, opts listingOptions) {
	last := 0
	for _, c := range listing {
		if n := len(c.Ports); n > 0 {
			last = c.Ports[n-1].SelectionIndex
		}
	}
	width := len(fmt.Sprint(last))
	for _, c := range listing {
		marker := ""
		if c.OverLimit() {
			marker = " (over the limit)"
		}
		fmt.Fprintf(w, "%s | %s | %d/%d ports%s\n", c.Name, c.Class, c.Selected, len(c.Ports), marker)
		for _, p := range c.Ports {
			box := " "
			if p.Port.IsSelected() {
				box = "#"
			}
			line := fmt.Sprintf("[%s] %*d. %s", box, width, p.SelectionIndex, p.Label)
			if p.Companion != 0 {
				line += fmt.Sprintf(" | Companion to %d", p.Companion)
			}
			if opts.Raw {
				if raw, err := encoding.Index(p.Port.Index); err == nil {
					line += " | " + encoding.Hex32(raw)
				}
			}
			fmt.Fprintln(w, line)
			indent := strings.Repeat(" ", width+6)
			if p.Port.Comment != nil {
				fmt.Fprintf(w, "%s%s\n", indent, *p.Port.Comment)
			}
			if opts.Devices {
				printDevices(w, p.Port.Devices, indent)
			}
		}
		fmt.Fprintln(w)
	}
}

func printDevices(w io.Writer, devices []domain.Device, indent string) {
	for _, d := range devices {
		fmt.Fprintf(w, "%s- %s\n", indent, d.Describe())
		printDevices(w, d.Devices, indent+"  ")
	}
}

type toggleCmd struct {
	app  *app
	Args portArgs `positional-args:"yes" required:"yes"`
}

func (c *toggleCmd) Execute([]string) error {
	ports, err := parsePorts(c.Args.Ports)
	if err != nil {
		return err
	}
	return c.app.withSession(func(ctx context.Context, s *service.Session) error {
		return s.TogglePorts(ports...)
	})
}

type selectCmd struct {
	app       *app
	All       bool `short:"a" long:"all" description:"select every port"`
	None      bool `short:"n" long:"none" description:"deselect every port"`
	Populated bool `short:"p" long:"populated" description:"select every port with something attached"`
	Empty     bool `short:"e" long:"disable-empty" description:"deselect every port with nothing attached"`
}

func (c *selectCmd) Execute([]string) error {
	n := 0
	for _, set := range []bool{c.All, c.None, c.Populated, c.Empty} {
		if set {
			n++
		}
	}
	if n != 1 {
		return errors.New("give exactly one of --all, --none, --populated or --disable-empty")
	}
	return c.app.withSession(func(ctx context.Context, s *service.Session) error {
		switch {
		case c.All:
			s.SelectAll()
		case c.None:
			s.SelectNone()
		case c.Populated:
			s.SelectPopulated()
		default:
			s.DeselectEmpty()
		}
		return nil
	})
}

type typeCmd struct {
	app  *app
	Type int      `short:"t" long:"type" required:"yes" description:"connector type value"`
	Args portArgs `positional-args:"yes" required:"yes"`
}

func (c *typeCmd) Execute([]string) error {
	ct, err := domain.ParseConnectorType(c.Type)
	if err != nil {
		return err
	}
	ports, err := parsePorts(c.Args.Ports)
	if err != nil {
		return err
	}
	return c.app.withSession(func(ctx context.Context, s *service.Session) error {
		return s.SetPortType(ct, ports...)
	})
}

type typesCmd struct{}

func (c *typesCmd) Execute([]string) error {
	for _, ct := range domain.ConnectorTypes() {
		fmt.Fprintf(stdout, "%3d  %s\n", int(ct), ct)
	}
	return nil
}

type commentCmd struct {
	app   *app
	Text  string   `short:"m" long:"message" description:"comment text"`
	Clear bool     `long:"clear" description:"remove the comment"`
	Args  portArgs `positional-args:"yes" required:"yes"`
}

func (c *commentCmd) Execute([]string) error {
	if (c.Text == "") == !c.Clear {
		return errors.New("give either --message or --clear")
	}
	ports, err := parsePorts(c.Args.Ports)
	if err != nil {
		return err
	}
	return c.app.withSession(func(ctx context.Context, s *service.Session) error {
		return s.SetComment(c.Text, ports...)
	})
}

type validateCmd struct {
	app *app
}

func (c *validateCmd) Execute([]string) error {
	return c.app.withSession(func(ctx context.Context, s *service.Session) error {
		if err := reportValidation(s.Validate()); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Selection is complete.")
		return nil
	})
}

// reportValidation prints each curation problem on its own line.
func reportValidation(err error) error {
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, e := range verrs {
		fmt.Fprintf(stdout, "  - %s\n", e.Message)
	}
	return fmt.Errorf("%d problem(s) with the selection", len(verrs))
}

type buildCmd struct {
	app         *app
	Model       string `short:"m" long:"model" description:"model identifier for native bundles"`
	DetectModel bool   `long:"detect-model" description:"ask the host for its model identifier"`
}

func (c *buildCmd) Execute([]string) error {
	return c.app.withSession(func(ctx context.Context, s *service.Session) error {
		switch {
		case c.Model != "":
			s.SetModelIdentifier(c.Model)
		case c.DetectModel:
			model, err := adapter.DetectModelIdentifier(ctx)
			if err != nil {
				return err
			}
			s.SetModelIdentifier(model)
		}

		res, err := s.Build(ctx)
		if err != nil {
			return reportValidation(err)
		}
		fmt.Fprintf(stdout, "Wrote %s (%d controller(s), %d port(s))\n", res.Path, res.Personalities, res.Ports)
		return nil
	})
}

type exportCmd struct {
	app    *app
	Format string `short:"f" long:"format" default:"json" choice:"json" choice:"yaml" description:"document format"`
	File   string `long:"file" description:"write to this file instead of stdout"`
}

func (c *exportCmd) Execute([]string) error {
	ctx := context.Background()
	s, err := c.app.session(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.File == "" {
		return s.Export(stdout, c.Format)
	}
	f, err := os.Create(c.File)
	if err != nil {
		return err
	}
	if err := s.Export(f, c.Format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type resetCmd struct {
	app *app
	Yes bool `short:"y" long:"yes" description:"confirm deleting the stored topology"`
}

func (c *resetCmd) Execute([]string) error {
	if !c.Yes {
		return errors.New("reset deletes every recorded port and selection; pass --yes to confirm")
	}
	ctx := context.Background()
	s, err := c.app.session(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Reset(ctx)
}

type historyCmd struct {
	app   *app
	Limit int `short:"n" long:"limit" default:"20" description:"number of checkpoints to list"`
}

func (c *historyCmd) Execute([]string) error {
	ctx := context.Background()
	s, err := c.app.session(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	history, err := s.History(ctx, c.Limit)
	if err != nil {
		return err
	}
	for _, cp := range history {
		current := " "
		if cp.Current {
			current = "*"
		}
		fmt.Fprintf(stdout, "%s %s  %s  %d controller(s)\n",
			current, cp.ID, cp.CreatedAt.Local().Format("2006-01-02 15:04:05"), cp.Controllers)
	}
	return nil
}

type restoreCmd struct {
	app  *app
	Args struct {
		ID string `positional-arg-name:"CHECKPOINT"`
	} `positional-args:"yes" required:"yes"`
}

func (c *restoreCmd) Execute([]string) error {
	ctx := context.Background()
	s, err := c.app.session(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Restore(ctx, c.Args.ID)
}

type configCmd struct {
	app   *app
	Write bool   `long:"write" description:"write the effective configuration"`
	To    string `long:"to" description:"file to write instead of the loaded or default config file"`
}

func (c *configCmd) Execute([]string) error {
	if c.Write {
		path := config.WritePath(c.To, c.app.configPath)
		if err := c.app.cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", path)
		return nil
	}
	if c.app.configPath != "" {
		fmt.Fprintf(stdout, "Config: %s\n", c.app.configPath)
	} else {
		fmt.Fprintln(stdout, "Config: defaults (no file found)")
	}
	fmt.Fprintln(stdout, c.app.cfg.Summary())
	return nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
