// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/stackprof/host"
	"go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/sampler"
)

type recordCmd struct {
	verbose func()

	// User-specified command line arguments.
	mode, tags, metadata, out       string
	interval                        uint64
	raw, ignoreGC, debug, aggregate bool
	duration                  time.Duration
	workers                   int
}

func newRecordCmd(verbose func()) *ffcli.Command {
	cmd := recordCmd{verbose: verbose}
	set := flag.NewFlagSet("record", flag.ContinueOnError)
	set.StringVar(&cmd.mode, "mode", defaultArgMode, modeHelp)
	set.Uint64Var(&cmd.interval, "interval", 0, intervalHelp)
	set.BoolVar(&cmd.raw, "raw", false, rawHelp)
	set.StringVar(&cmd.tags, "tags", "", tagsHelp)
	set.StringVar(&cmd.metadata, "metadata", "", metadataHelp)
	set.StringVar(&cmd.out, "out", "", outHelp)
	set.DurationVar(&cmd.duration, "duration", defaultArgDuration, durationHelp)
	set.IntVar(&cmd.workers, "workers", 2, workersHelp)
	set.BoolVar(&cmd.ignoreGC, "ignore-gc", false, ignoreGCHelp)
	set.BoolVar(&cmd.aggregate, "aggregate", true, aggregateHelp)
	set.BoolVar(&cmd.debug, "debug", false, debugHelp)
	return &ffcli.Command{
		Name:       "record",
		ShortUsage: "record [flags]",
		ShortHelp:  "Profile the built-in workload and write the profile",
		FlagSet:    set,
		Options:    subOptions("record"),
		Exec:       cmd.exec,
	}
}

func (cmd *recordCmd) config() (sampler.Config, error) {
	mode, err := profile.ParseMode(cmd.mode)
	if err != nil {
		return sampler.Config{}, &sampler.ConfigurationError{Field: "mode", Err: err}
	}
	metadata, err := sampler.ParseMetadata([]byte(cmd.metadata))
	if err != nil {
		return sampler.Config{}, err
	}
	out := cmd.out
	if out == "" {
		out = fmt.Sprintf("stackprof-%s-%s.json", mode, uuid.NewString())
	}
	cfg := sampler.Config{
		Mode:     mode,
		Interval: cmd.interval,
		Raw:      cmd.raw,
		Tags:     splitList(cmd.tags),
		Metadata: metadata,
		Out:      out,
		Debug:    cmd.debug,
		IgnoreGC: cmd.ignoreGC,

		NoAggregate: !cmd.aggregate,
	}
	return cfg, cfg.Validate()
}

func (cmd *recordCmd) exec(ctx context.Context, _ []string) error {
	cmd.verbose()
	cfg, err := cmd.config()
	if err != nil {
		return err
	}

	start := time.Now()
	log.Infof("Recording %s profile of the built-in workload for %v", cfg.Mode, cmd.duration)
	p, err := sampler.Run(ctx, cfg, func(thr *host.Thread, s *sampler.Session) {
		runWorkload(ctx, thr, s, cmd.workers, cmd.duration)
	})
	if err != nil {
		return err
	}
	log.Infof("Wrote %d samples (%d missed, %d gc) to %s in %v",
		p.Samples, p.MissedSamples, p.GCSamples, cfg.Out, time.Since(start))
	return nil
}
