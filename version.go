// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/peterbourgon/ff/v3/ffcli"

	"go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/vc"
)

func newVersionCmd() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "version",
		ShortHelp:  "Show version",
		Exec: func(context.Context, []string) error {
			fmt.Println(vc.String())
			fmt.Printf("profile format %.1f\n", profile.Version)
			return nil
		},
	}
}
