// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package ux

import (
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
)

// FreeTextChoice is the selector value meaning "let me type instead".
const FreeTextChoice = "__free_text__"

// Prompter asks the visitor to choose. The chat runner takes it as a
// dependency so tests can script the answers.
type Prompter interface {
	// SelectReply returns a quick-reply id or FreeTextChoice.
	SelectReply(title string, replies []chat.QuickReply) (string, error)

	// Confirm asks a yes/no question.
	Confirm(title string) (bool, error)
}

// HuhPrompter renders prompts with charmbracelet/huh.
type HuhPrompter struct{}

// SelectReply implements Prompter.
func (HuhPrompter) SelectReply(title string, replies []chat.QuickReply) (string, error) {
	opts := make([]huh.Option[string], 0, len(replies)+1)
	for _, qr := range replies {
		opts = append(opts, huh.NewOption(qr.Label, qr.ID))
	}
	opts = append(opts, huh.NewOption("Type my own answer", FreeTextChoice))

	var choice string
	err := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&choice).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return FreeTextChoice, nil
	}
	return choice, err
}

// Confirm implements Prompter.
func (HuhPrompter) Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("Not now").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
