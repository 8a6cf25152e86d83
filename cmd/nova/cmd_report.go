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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/ux"
)

var errEmptyTranscript = errors.New("transcript has no messages")

// loadTranscript reads a report payload. The file is either a full payload
// object or a bare array of messages; for the latter the final assistant
// message is taken from the history.
func loadTranscript(r io.Reader, defaultLocale string) (ux.ReportPayload, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ux.ReportPayload{}, fmt.Errorf("read transcript: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	var payload ux.ReportPayload
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &payload.Messages); err != nil {
			return ux.ReportPayload{}, fmt.Errorf("parse transcript: %w", err)
		}
	} else if err := json.Unmarshal(raw, &payload); err != nil {
		return ux.ReportPayload{}, fmt.Errorf("parse transcript: %w", err)
	}

	if len(payload.Messages) == 0 {
		return ux.ReportPayload{}, errEmptyTranscript
	}
	if payload.Locale == "" {
		payload.Locale = defaultLocale
	}
	if payload.FinalAssistantMessage == "" {
		if m, ok := chat.LastByRole(payload.Messages, chat.RoleAssistant); ok {
			payload.FinalAssistantMessage = m.Content
		}
	}
	if payload.SessionID == "" {
		payload.SessionID = "cli-" + uuid.NewString()
	}
	return payload, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if reportFile != "-" {
		f, err := os.Open(reportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	payload, err := loadTranscript(in, locale)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	reply, err := ux.NewClient(serverURL, nil).Report(context.Background(), payload, reportWait)
	if err != nil {
		return err
	}
	if !reply.OK {
		ux.Error(out, reply.Error)
		return fmt.Errorf("report rejected: %s", reply.Error)
	}

	msg := "Report accepted"
	if reply.ProposalGenerated != nil && *reply.ProposalGenerated {
		msg += " (proposal generated)"
	}
	ux.Success(out, msg)
	return nil
}
