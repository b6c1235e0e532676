// grove plays scripted demos of the scoped-tree library: it builds a tree
// on an in-memory surface, applies one scenario step at a time on a task
// loop, and renders the tree after every step.
//
// With no flags it plays a built-in tour of the public API. Pass
// --scenario to play a YAML script instead.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/go-grove/grove/cmd/grove/internal/scenario"
	"github.com/go-grove/grove/pkg/render"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		scenarioPath string
		noColor      bool
		stepDelay    time.Duration
		maxWidth     int
		showSizes    bool
	)

	flagSet := pflag.NewFlagSet("grove", pflag.ContinueOnError)
	flagSet.StringVar(&scenarioPath, "scenario", "", "path to a scenario YAML file (default: built-in tour)")
	flagSet.BoolVar(&noColor, "no-color", false, "disable ANSI styling")
	flagSet.DurationVar(&stepDelay, "step-delay", 0, "pause between steps")
	flagSet.IntVar(&maxWidth, "width", 0, "truncate outline lines to this many columns")
	flagSet.BoolVar(&showSizes, "sizes", false, "show observed element sizes")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) > 0 && args[0] == "play" {
		args = args[1:]
	}
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	s := scenario.Default()
	if scenarioPath != "" {
		loaded, err := scenario.Load(scenarioPath)
		if err != nil {
			return err
		}
		s = loaded
	}

	var opts []render.Option
	if noColor {
		opts = append(opts, render.WithNoColor())
	}
	if maxWidth > 0 {
		opts = append(opts, render.WithMaxWidth(maxWidth))
	}
	if showSizes {
		opts = append(opts, render.WithSizes())
	}

	return newPlayer(os.Stdout, render.New(opts...), stepDelay).play(s)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `grove — scripted demos of the scoped-tree library.

Plays a scenario one step at a time against an in-memory surface and
renders the tree after every step. Steps cover tree building, splicing,
events, resize observation, rooted tasks, and the root anchor.

Usage:
  grove play [flags]

Examples:
  # Play the built-in tour
  grove play

  # Play a scripted scenario slowly, without color
  grove play --scenario demo.yaml --step-delay 500ms --no-color

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
