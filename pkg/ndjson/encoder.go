// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ndjson

import (
	"encoding/json"
	"io"
	"sync"
)

// flusher matches http.Flusher and gin.ResponseWriter without importing either.
type flusher interface {
	Flush()
}

// Encoder writes one JSON value per line and flushes after each line when
// the underlying writer supports it.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
	f  flusher
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	f, _ := w.(flusher)
	return &Encoder{w: w, f: f}
}

// Encode marshals v, appends a newline, writes and flushes it.
func (e *Encoder) Encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	if e.f != nil {
		e.f.Flush()
	}
	return nil
}
