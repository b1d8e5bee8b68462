// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// stackprof records, combines and renders statistical call-stack profiles.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/stackprof/metrics"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go 'flag' package calls os.Exit(2) on flag parse errors, if ExitOnError is set
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode(os.Args[1:])))
}

func mainWithExitCode(args []string) exitCode {
	log.SetReportCaller(false)
	log.SetFormatter(&log.TextFormatter{})

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	if err := root.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		log.Errorf("Failure to parse arguments: %v", err)
		return exitParseError
	}
	if err := root.Run(ctx); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		log.Errorf("%v", err)
		return exitFailure
	}
	return exitSuccess
}

func newRootCmd() *ffcli.Command {
	var verbose bool
	set := flag.NewFlagSet("stackprof", flag.ContinueOnError)
	set.BoolVar(&verbose, "v", false, "Shorthand for -verbose.")
	set.BoolVar(&verbose, "verbose", false, verboseHelp)
	set.String("config", "", configHelp)

	enableVerbose := func() {
		if !verbose {
			return
		}
		log.SetLevel(log.DebugLevel)
		rep, err := newLogReporter()
		if err != nil {
			log.Warnf("Failed to set up metrics logging: %v", err)
			return
		}
		metrics.SetReporter(rep)
	}

	return &ffcli.Command{
		Name:       "stackprof",
		ShortUsage: "stackprof [flags] <subcommand> [flags] [args]",
		ShortHelp:  "Statistical call-stack profiler",
		FlagSet:    set,
		Options:    rootOptions(),
		Subcommands: []*ffcli.Command{
			newRecordCmd(enableVerbose),
			newCombineCmd(enableVerbose),
			newReportCmd(enableVerbose),
			newVersionCmd(),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}
