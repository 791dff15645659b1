// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

var (
	// Persistent flags
	configPath string
	logLevel   string
	logFormat  string

	// hydrate flags
	observer    string
	fullRender  bool
	requestID   string
	compactJSON bool

	rootCmd = &cobra.Command{
		Use:   "hydrator",
		Short: "Builds page state snapshots from a bridge JSON-RPC backend",
		Long: `hydrator classifies a page URL, fetches its content and auxiliary
data from the backend, and prints the normalized state snapshot.`,
		SilenceUsage: true,
	}

	hydrateCmd = &cobra.Command{
		Use:   "hydrate <url>",
		Short: "Hydrate one page and print the snapshot as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runHydrate,
	}

	classifyCmd = &cobra.Command{
		Use:   "classify <path>",
		Short: "Print the page intent for a URL path",
		Args:  cobra.ExactArgs(1),
		RunE:  runClassify,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the hydrator version",
		Args:  cobra.NoArgs,
		Run:   runVersion,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to hydrator.yaml (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format (auto, text, json)")

	hydrateCmd.Flags().StringVar(&observer, "observer", "", "Viewing account")
	hydrateCmd.Flags().BoolVar(&fullRender, "full", false, "Full render: also fetch profile and trending topics")
	hydrateCmd.Flags().StringVar(&requestID, "request-id", "", "Request id for timers and logs (default: generated)")
	hydrateCmd.Flags().BoolVar(&compactJSON, "compact", false, "Print compact JSON")

	rootCmd.AddCommand(hydrateCmd, classifyCmd, versionCmd)
}
