/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

// Command merge-warden is the CLI wrapper spec.md §6 specifies "for
// completeness": a single-shot "check" subcommand that runs one
// reconciliation cycle against a named PR and exits with the codes §6/§8
// define. It is explicitly out of the core's primary scope; everything it
// does is a thin argument-parsing and wiring layer over the policy,
// validate, bypass, and reconcile packages.
package main

import (
	"errors"
	"fmt"
	"os"

	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/spf13/cobra"
)

// Exit codes, per spec.md §6.
const (
	exitPass          = 0
	exitFail          = 1
	exitConfigError   = 2
	exitAuthError     = 3
	exitPlatformError = 4
	exitInvalidArgs   = 5
)

func main() {
	root := &cobra.Command{
		Use:           "merge-warden",
		Short:         "Policy-enforcement CLI for pull requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCheckCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitInvalidArgs)
	}
}
