// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
)

// DefaultLedgerCapacity bounds the number of remembered sessions.
const DefaultLedgerCapacity = 10000

// Ledger remembers which sessions already produced a report.
//
// # Description
//
// MarkSent is the only transition: it returns true exactly once per key.
// The ledger lives in memory and forgets the oldest key when full, so the
// guarantee holds per process and for the most recent sessions.
//
// # Thread Safety
//
// Safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	keys     map[string]*list.Element
	order    *list.List
}

// NewLedger returns a Ledger holding at most capacity keys. Zero or
// negative means DefaultLedgerCapacity.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultLedgerCapacity
	}
	return &Ledger{
		capacity: capacity,
		keys:     make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// MarkSent records key and reports whether this call recorded it.
func (l *Ledger) MarkSent(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.keys[key]; ok {
		return false
	}
	l.keys[key] = l.order.PushBack(key)
	for l.order.Len() > l.capacity {
		oldest := l.order.Front()
		l.order.Remove(oldest)
		delete(l.keys, oldest.Value.(string))
	}
	return true
}

// Sent reports whether key was recorded.
func (l *Ledger) Sent(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[key]
	return ok
}

// Len returns the number of remembered keys.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

// SessionKey identifies a session: the client-supplied id when present,
// otherwise a digest of the transcript.
func SessionKey(sessionID string, messages []chat.Message) string {
	if sessionID != "" {
		return "session:" + sessionID
	}
	h := sha256.New()
	for _, m := range messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	return "transcript:" + hex.EncodeToString(h.Sum(nil))
}
