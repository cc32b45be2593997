// Command usbmap keeps a persistent record of a host's USB controllers and
// ports, lets the operator curate which ports to map and emits the
// driver-loader bundle that maps them.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

var version = "dev"

// Options are the flags shared by every command
type Options struct {
	Config  string `short:"c" long:"config" description:"config file to use instead of the search path"`
	Store   string `short:"s" long:"store" description:"topology store path, overriding store.path"`
	Output  string `short:"o" long:"output-dir" description:"directory the bundle is written to, overriding output.dir"`
	Debug   bool   `short:"d" long:"debug" description:"debug logging"`
	Version bool   `short:"v" long:"version" description:"display the version and exit"`
}

func main() {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)
	parser.Name = "usbmap"
	parser.SubcommandsOptional = true

	a := &app{opts: opts}
	registerCommands(parser, a)
	parser.CommandHandler = a.run

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if parser.Active == nil {
		if opts.Version {
			fmt.Println(version)
			return
		}
		parser.WriteHelp(os.Stderr)
		os.Exit(2)
	}
}
