// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"

	"github.com/peterbourgon/ff/v3/ffcli"

	"go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/reporter"
)

const (
	formatText      = "text"
	formatGraphviz  = "graphviz"
	formatCollapsed = "collapsed"
	formatPprof     = "pprof"
	formatJSON      = "json"
	formatSource    = "source"
)

var reportFormats = []string{
	formatText, formatGraphviz, formatCollapsed, formatPprof, formatJSON, formatSource,
}

type reportCmd struct {
	verbose func()

	// User-specified command line arguments.
	format, filter, out string
}

func newReportCmd(verbose func()) *ffcli.Command {
	cmd := reportCmd{verbose: verbose}
	set := flag.NewFlagSet("report", flag.ContinueOnError)
	set.StringVar(&cmd.format, "format", defaultArgFormat, formatHelp)
	set.StringVar(&cmd.filter, "filter", "", filterHelp)
	set.StringVar(&cmd.out, "out", "", reportHelp)
	return &ffcli.Command{
		Name:       "report",
		ShortUsage: "report [flags] <profile>...",
		ShortHelp:  "Render one profile, or the combination of several",
		FlagSet:    set,
		Options:    subOptions("report"),
		Exec:       cmd.exec,
	}
}

func (cmd *reportCmd) exec(ctx context.Context, args []string) error {
	cmd.verbose()
	if !slices.Contains(reportFormats, cmd.format) {
		return fmt.Errorf("unknown format %q", cmd.format)
	}
	if len(args) == 0 {
		return errors.New("no profiles given")
	}
	var filter *regexp.Regexp
	if cmd.filter != "" {
		var err error
		if filter, err = regexp.Compile(cmd.filter); err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}
	}
	if cmd.format == formatSource && filter == nil {
		return errors.New("the source format requires -filter")
	}

	p, err := loadCombined(ctx, args)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if cmd.out != "" {
		f, err := os.Create(cmd.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	if err = render(bw, p, cmd.format, filter); err != nil {
		return err
	}
	return bw.Flush()
}

func render(w io.Writer, p *profile.Profile, format string, filter *regexp.Regexp) error {
	switch format {
	case formatText:
		return reporter.WriteText(w, p)
	case formatGraphviz:
		return reporter.WriteGraphviz(w, p, filter)
	case formatCollapsed:
		return reporter.WriteCollapsed(w, p)
	case formatPprof:
		return reporter.WritePprof(w, p)
	case formatJSON:
		return profile.Encode(w, p)
	case formatSource:
		return reporter.WriteSource(w, p, filter)
	}
	return fmt.Errorf("unknown format %q", format)
}
