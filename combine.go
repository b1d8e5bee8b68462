// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/stackprof/metrics"
	"go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/reporter"
)

// maxConcurrentLoads bounds the number of profiles read in parallel.
const maxConcurrentLoads = 8

type combineCmd struct {
	verbose func()

	// User-specified command line arguments.
	out string
}

func newCombineCmd(verbose func()) *ffcli.Command {
	cmd := combineCmd{verbose: verbose}
	set := flag.NewFlagSet("combine", flag.ContinueOnError)
	set.StringVar(&cmd.out, "out", "", combineHelp)
	return &ffcli.Command{
		Name:       "combine",
		ShortUsage: "combine -out <path> <profile>...",
		ShortHelp:  "Merge profiles of the same mode and interval into one",
		FlagSet:    set,
		Options:    subOptions("combine"),
		Exec:       cmd.exec,
	}
}

func (cmd *combineCmd) exec(ctx context.Context, args []string) error {
	cmd.verbose()
	if cmd.out == "" {
		return errors.New("missing -out")
	}
	if len(args) == 0 {
		return errors.New("no profiles given")
	}

	p, err := loadCombined(ctx, args)
	if err != nil {
		return err
	}
	if err = reporter.Save(ctx, cmd.out, p); err != nil {
		return err
	}
	log.Infof("Combined %d profiles (%d samples, %d frames) into %s",
		len(args), p.Samples, len(p.Frames), cmd.out)
	return nil
}

// loadProfiles reads all paths concurrently. The result keeps the order of
// paths.
func loadProfiles(ctx context.Context, paths []string) ([]*profile.Profile, error) {
	profiles := make([]*profile.Profile, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, path := range paths {
		g.Go(func() error {
			p, err := reporter.Load(ctx, path)
			if err != nil {
				return err
			}
			profiles[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// loadCombined reads paths and merges them unless there is only one.
func loadCombined(ctx context.Context, paths []string) (*profile.Profile, error) {
	profiles, err := loadProfiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 1 {
		return profiles[0], nil
	}
	p, err := profile.Combine(profiles...)
	if err != nil {
		return nil, err
	}
	metrics.Add(metrics.IDCombinedProfiles, metrics.MetricValue(len(profiles)))
	return p, nil
}
