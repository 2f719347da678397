package main

import (
	"fmt"
	"runtime/debug"

	"github.com/alecthomas/kong"
)

var _version = "dev"

var _debugReadBuildInfo = debug.ReadBuildInfo

// versionFlag prints version information and exits, before any
// subcommand runs.
type versionFlag bool

func (v versionFlag) BeforeReset(app *kong.Kong) error {
	fmt.Fprintf(app.Stdout, "fel %s", _version)
	if report := _generateBuildReport(); report != "" {
		fmt.Fprintf(app.Stdout, " (%s)", report)
	}
	fmt.Fprintln(app.Stdout)
	app.Exit(0)
	return nil
}

type versionCmd struct {
	Short bool `help:"Print only the version number"`
}

func (cmd *versionCmd) Run(app *kong.Kong) error {
	if cmd.Short {
		fmt.Fprintln(app.Stdout, _version)
		return nil
	}
	fmt.Fprintf(app.Stdout, "fel %s\n", _version)
	return nil
}

var _generateBuildReport = func() string {
	info, ok := _debugReadBuildInfo()
	if !ok {
		return ""
	}

	var revision, vcsTime string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			vcsTime = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision != "" && dirty {
		revision += "-dirty"
	}

	switch {
	case revision != "" && vcsTime != "":
		return revision + " " + vcsTime
	case revision != "":
		return revision
	case vcsTime != "":
		return vcsTime
	default:
		return ""
	}
}
