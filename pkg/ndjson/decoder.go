// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ndjson reads and writes newline-delimited JSON streams.
//
// The decoder is schema-agnostic: it is parameterized by the value type and
// knows nothing about chat chunks. Input may arrive in arbitrary byte
// fragments (a network read can end mid-line or in the middle of a
// multi-byte UTF-8 sequence); bytes are buffered until a full line is
// available and only complete lines are decoded.
package ndjson

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxLineBytes bounds a single line. Chat chunks are small; the
// limit only guards against a peer that never sends a newline.
const DefaultMaxLineBytes = 1 << 20

// ErrLineTooLong is returned when a line exceeds the configured maximum.
var ErrLineTooLong = errors.New("ndjson: line exceeds maximum length")

// SyntaxError reports a line that is not valid JSON for the target type.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("ndjson: line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Decoder decodes successive JSON values of type T from a byte stream.
//
// # Description
//
// Blank lines and surrounding whitespace (including "\r") are ignored. The
// final line does not need a trailing newline.
//
// # Thread Safety
//
// Not safe for concurrent use.
type Decoder[T any] struct {
	r       *bufio.Reader
	buf     []byte
	maxLine int
	line    int
}

// Option configures a Decoder.
type Option func(*options)

type options struct {
	maxLine int
}

// WithMaxLineBytes overrides DefaultMaxLineBytes.
func WithMaxLineBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLine = n
		}
	}
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder[T any](r io.Reader, opts ...Option) *Decoder[T] {
	o := options{maxLine: DefaultMaxLineBytes}
	for _, opt := range opts {
		opt(&o)
	}
	return &Decoder[T]{
		r:       bufio.NewReader(r),
		maxLine: o.maxLine,
	}
}

// Line returns the number of non-blank lines decoded so far.
func (d *Decoder[T]) Line() int {
	return d.line
}

// Next decodes the next value. It returns io.EOF when the stream is
// exhausted and no partial line remains.
func (d *Decoder[T]) Next() (T, error) {
	var zero T
	for {
		frag, err := d.r.ReadSlice('\n')
		d.buf = append(d.buf, frag...)
		if len(d.buf) > d.maxLine {
			d.buf = d.buf[:0]
			return zero, ErrLineTooLong
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		atEOF := errors.Is(err, io.EOF)
		if err != nil && !atEOF {
			return zero, err
		}

		line := bytes.TrimSpace(d.buf)
		if len(line) == 0 {
			d.buf = d.buf[:0]
			if atEOF {
				return zero, io.EOF
			}
			continue
		}

		d.line++
		var v T
		uerr := json.Unmarshal(line, &v)
		d.buf = d.buf[:0]
		if uerr != nil {
			return zero, &SyntaxError{Line: d.line, Err: uerr}
		}
		return v, nil
	}
}

// Each decodes every value from r and passes it to fn. It stops at the end
// of the stream, on the first error, or when ctx is cancelled. Returning
// ErrStop from fn ends iteration without an error.
func Each[T any](ctx context.Context, r io.Reader, fn func(T) error, opts ...Option) error {
	dec := NewDecoder[T](r, opts...)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

// ErrStop can be returned from an Each callback to stop early.
var ErrStop = errors.New("ndjson: stop")
