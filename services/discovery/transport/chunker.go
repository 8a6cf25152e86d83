// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transport

import (
	"strings"
	"unicode/utf8"
)

// FlushThreshold is the buffer length, in runes and not counting the
// trailing separator, above which a fragment is emitted.
const FlushThreshold = 20

// Rechunker regroups arbitrary text deltas into word-aligned fragments.
//
// # Description
//
// Text is split on spaces. Each word keeps the space that ended it, so the
// emitted fragments concatenate back to the exact input. Words accumulate in
// a buffer that is emitted as soon as its words, without the space that
// ended the last one, exceed FlushThreshold runes;
// Flush emits whatever remains, including an unterminated last word.
//
// # Thread Safety
//
// Not safe for concurrent use. One Rechunker serves one stream.
type Rechunker struct {
	buf     strings.Builder
	pending strings.Builder
}

// Push adds delta and returns the fragments that became complete.
func (r *Rechunker) Push(delta string) []string {
	var out []string
	for delta != "" {
		i := strings.IndexByte(delta, ' ')
		if i < 0 {
			r.pending.WriteString(delta)
			break
		}
		r.pending.WriteString(delta[:i+1])
		delta = delta[i+1:]

		r.buf.WriteString(r.pending.String())
		r.pending.Reset()
		if utf8.RuneCountInString(r.buf.String())-1 > FlushThreshold {
			out = append(out, r.buf.String())
			r.buf.Reset()
		}
	}
	return out
}

// Flush returns the remaining text, or "" when nothing is buffered.
func (r *Rechunker) Flush() string {
	r.buf.WriteString(r.pending.String())
	r.pending.Reset()
	rest := r.buf.String()
	r.buf.Reset()
	return rest
}

// Chunk splits text into the fragments a Rechunker would emit for it.
//
// # Examples
//
//	Chunk("Hello there, what would you like to build?")
//	// ["Hello there, what would ", "you like to build?"]
func Chunk(text string) []string {
	var r Rechunker
	out := r.Push(text)
	if rest := r.Flush(); rest != "" {
		out = append(out, rest)
	}
	return out
}
