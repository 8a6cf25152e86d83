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

	"github.com/AleutianAI/nova-discovery/pkg/ux"
	"github.com/AleutianAI/nova-discovery/services/discovery"
)

// --- Global Command Variables ---
var (
	personalityLevel string
	serverURL        string
	locale           string

	chatEmail string
	chatWait  bool

	reportFile string
	reportWait bool

	rootCmd = &cobra.Command{
		Use:           "nova",
		Short:         "NOVA product-discovery chat service and terminal client",
		Version:       discovery.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if personalityLevel != "" {
				ux.SetLevel(ux.ParseLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the discovery HTTP service",
		Long: `Runs the discovery service configured from the environment
(NOVA_PORT, NOVA_DRIVER, ANTHROPIC_API_KEY, RESEND_API_KEY, ...).`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Run a discovery conversation in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Send a saved conversation as a discovery report",
		Args:  cobra.NoArgs,
		RunE:  runReport,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("nova " + discovery.Version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "", "output style: full, minimal or machine (env NOVA_PERSONALITY)")

	for _, c := range []*cobra.Command{chatCmd, reportCmd} {
		c.Flags().StringVar(&serverURL, "server", "http://localhost:12210", "discovery service base URL")
		c.Flags().StringVar(&locale, "locale", "en", "interface language (en, ro, fr, de, ...)")
	}

	chatCmd.Flags().StringVar(&chatEmail, "email", "", "your email, added as reply-to on the report")
	chatCmd.Flags().BoolVar(&chatWait, "wait", false, "wait for the proposal before confirming the report")

	reportCmd.Flags().StringVarP(&reportFile, "file", "f", "", "transcript JSON file (\"-\" for stdin)")
	reportCmd.Flags().BoolVar(&reportWait, "wait", true, "wait for the proposal and delivery result")
	_ = reportCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(serveCmd, chatCmd, reportCmd, versionCmd)
}
