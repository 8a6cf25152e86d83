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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/session"
	"github.com/AleutianAI/nova-discovery/pkg/ux"
)

// Chat commands typed at the prompt.
const (
	cmdQuit   = "/quit"
	cmdExit   = "/exit"
	cmdReport = "/report"
)

// =============================================================================
// ChatRunner
// =============================================================================

// ChatRunner drives one terminal conversation against a discovery server.
//
// # Description
//
// The runner opens with the assistant's greeting, then alternates visitor
// answers and streamed assistant turns. When a turn carries the summary
// signal it offers to schedule a call; accepting posts the report, at most
// once per session.
//
// # Thread Safety
//
// Not safe for concurrent use.
type ChatRunner struct {
	client   *ux.Client
	session  *session.Session
	input    ux.InputReader
	prompter ux.Prompter // nil: quick replies are typed
	renderer *ux.Renderer
	out      io.Writer

	userEmail  string
	waitReport bool
}

// ChatRunnerConfig configures NewChatRunner.
type ChatRunnerConfig struct {
	Client   *ux.Client
	Locale   string
	Input    ux.InputReader
	Prompter ux.Prompter
	Out      io.Writer

	UserEmail  string
	WaitReport bool
}

// NewChatRunner returns a runner with a fresh session.
func NewChatRunner(cfg ChatRunnerConfig) *ChatRunner {
	return &ChatRunner{
		client:     cfg.Client,
		session:    session.New("cli-"+uuid.NewString(), cfg.Locale),
		input:      cfg.Input,
		prompter:   cfg.Prompter,
		renderer:   ux.NewRenderer(cfg.Out),
		out:        cfg.Out,
		userEmail:  cfg.UserEmail,
		waitReport: cfg.WaitReport,
	}
}

// Session exposes the conversation state.
func (r *ChatRunner) Session() *session.Session {
	return r.session
}

// Run converses until the visitor quits, input ends or ctx is cancelled.
func (r *ChatRunner) Run(ctx context.Context) error {
	if _, err := r.session.BeginGreeting(); err != nil {
		return err
	}
	if err := r.stream(ctx); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		if r.session.SummaryReady() && !r.session.ReportSent() && r.prompter != nil {
			ok, err := r.prompter.Confirm("Schedule a call with the team?")
			if err != nil {
				return err
			}
			if ok {
				r.sendReport(ctx)
			}
		}

		answer, err := r.nextAnswer()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(answer) {
		case "":
			continue
		case cmdQuit, cmdExit:
			return nil
		case cmdReport:
			r.sendReport(ctx)
			continue
		}

		if _, err := r.session.BeginTurn(chat.NewUserMessage(answer)); err != nil {
			return err
		}
		if err := r.stream(ctx); err != nil {
			return err
		}
	}
}

// stream runs the turn already begun in the session.
func (r *ChatRunner) stream(ctx context.Context) error {
	r.renderer.Begin()
	res, err := r.client.Chat(ctx, r.session.Messages(), r.session.Locale(), r.renderer.Text)
	if err != nil {
		r.renderer.End(&ux.StreamResult{Error: "NOVA is unavailable right now. Please try again."})
		_ = r.session.FailTurn("")
		if ctx.Err() != nil {
			return nil
		}
		ux.Muted(r.out, err.Error())
		return nil
	}
	r.renderer.End(res)

	switch {
	case res.Failed():
		return r.session.FailTurn(res.Error)
	case res.Final.IsBlank():
		return r.session.FailTurn("")
	default:
		return r.session.CompleteTurn(res.Final, res.Signals)
	}
}

// nextAnswer returns the visitor's next message, with a chosen quick reply
// rendered as its label.
func (r *ChatRunner) nextAnswer() (string, error) {
	replies := r.session.PendingQuickReplies()
	if len(replies) > 0 && r.prompter != nil {
		choice, err := r.prompter.SelectReply("Choose an answer", replies)
		if err != nil {
			return "", err
		}
		if choice != ux.FreeTextChoice {
			return labelFor(choice, replies), nil
		}
	}

	if p, ok := r.input.(ux.PromptingInputReader); ok {
		p.SetPrompt(ux.Styles.User.Render("You") + " ")
	} else if ux.Level() != ux.PersonalityMachine {
		fmt.Fprint(r.out, "You: ")
	}
	line, err := r.input.ReadLine()
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(line, "/") {
		return line, nil
	}
	return labelFor(ux.ResolveReply(line, replies), replies), nil
}

func labelFor(id string, replies []chat.QuickReply) string {
	for _, qr := range replies {
		if qr.ID == id {
			return qr.Label
		}
	}
	return id
}

// sendReport posts the report once. A failed post still counts as sent so
// the team is never emailed twice for one conversation.
func (r *ChatRunner) sendReport(ctx context.Context) {
	if !r.session.SummaryReady() {
		ux.Warning(r.out, "Finish the conversation first; the report is sent once the summary is ready.")
		return
	}
	if !r.session.MarkReportSent() {
		ux.Muted(r.out, "The report was already sent.")
		return
	}

	reply, err := r.client.Report(ctx, ux.ReportPayload{
		Locale:                r.session.Locale(),
		Messages:              r.session.Messages(),
		FinalAssistantMessage: r.session.FinalAssistantMessage(),
		UserEmail:             r.userEmail,
		SessionID:             r.session.ID(),
	}, r.waitReport)
	switch {
	case err != nil:
		ux.Error(r.out, "Could not send the report: "+err.Error())
	case !reply.OK:
		ux.Error(r.out, "Could not send the report: "+reply.Error)
	default:
		ux.Success(r.out, "Thanks! The team will be in touch to schedule a call.")
	}
}

// =============================================================================
// Command
// =============================================================================

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var prompter ux.Prompter
	if ux.IsInteractive() {
		prompter = ux.HuhPrompter{}
	}

	out := cmd.OutOrStdout()
	if ux.Level() == ux.PersonalityFull {
		fmt.Fprintln(out, ux.Styles.Title.Render("NOVA")+ux.Styles.Muted.Render(" discovery chat  (/report to send, /quit to leave)"))
	}

	runner := NewChatRunner(ChatRunnerConfig{
		Client:     ux.NewClient(serverURL, nil),
		Locale:     locale,
		Input:      ux.NewInputReader(50),
		Prompter:   prompter,
		Out:        out,
		UserEmail:  chatEmail,
		WaitReport: chatWait,
	})
	return runner.Run(ctx)
}
