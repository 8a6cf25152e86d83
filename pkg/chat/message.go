// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chat defines the wire model shared by the discovery service and
// its clients: conversation messages and the stream chunks that carry an
// assistant turn over a newline-delimited JSON response.
//
// Messages are values. Once created they are never mutated; a conversation
// is an ordered slice of Message where slice order is conversation order.
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Roles
// =============================================================================

// Role identifies the author of a Message.
type Role string

const (
	// RoleUser is a message typed or selected by the visitor.
	RoleUser Role = "user"

	// RoleAssistant is a message produced by the conversation driver.
	RoleAssistant Role = "assistant"

	// RoleSystem is an instruction message. It is never forwarded from
	// clients to the completion service.
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// =============================================================================
// Message
// =============================================================================

// Message is one turn of a discovery conversation.
//
// # Description
//
// CreatedAt is carried on the wire as Unix milliseconds so that browser
// clients can pass Date.now() values through unchanged.
//
// # Assumptions
//
//   - ID is unique within a session. Client-supplied IDs are not checked.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role" validate:"required,oneof=user assistant system"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

// NewMessage creates a message stamped with the current time and a fresh ID
// of the form "<role>-<uuid>".
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        string(role) + "-" + uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// NewAssistantMessage is shorthand for NewMessage(RoleAssistant, content).
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewUserMessage is shorthand for NewMessage(RoleUser, content).
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// Time returns CreatedAt as a time.Time. A zero CreatedAt yields the zero time.
func (m Message) Time() time.Time {
	if m.CreatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.CreatedAt).UTC()
}

// IsBlank reports whether the message has no visible content.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Content) == ""
}

// LastByRole returns the most recent message with the given role.
func LastByRole(history []Message, role Role) (Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == role {
			return history[i], true
		}
	}
	return Message{}, false
}

// CountByRole returns how many messages in history have the given role.
func CountByRole(history []Message, role Role) int {
	n := 0
	for _, m := range history {
		if m.Role == role {
			n++
		}
	}
	return n
}
