// Copyright (c) 2020 Mercari, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package normalize

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Position is a 1-based line and column in the source text. Columns count
// runes, not bytes.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span covers a node's source text. End points just past the last rune.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Error is a semantic error raised while normalizing a parse tree. The first
// Error aborts the whole conversion.
type Error struct {
	Message string `json:"message"`
	Span    Span   `json:"location"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

// Errorf builds an Error located at span.
func Errorf(span Span, format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}

// Source maps byte offsets of an input text to line and column positions.
type Source struct {
	text  string
	lines []int // byte offset of each line start
}

// NewSource indexes the line starts of text.
func NewSource(text string) *Source {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Source{text: text, lines: lines}
}

// Text returns the whole source text.
func (s *Source) Text() string {
	return s.text
}

// Slice returns the source text between the byte offsets start and end,
// clamped to the text bounds.
func (s *Source) Slice(start, end int) string {
	start, end = s.clamp(start), s.clamp(end)
	if end < start {
		return ""
	}
	return s.text[start:end]
}

// Position converts a byte offset to a Position.
func (s *Source) Position(offset int) Position {
	offset = s.clamp(offset)
	line := sort.Search(len(s.lines), func(i int) bool {
		return s.lines[i] > offset
	}) - 1
	col := utf8.RuneCountInString(s.text[s.lines[line]:offset]) + 1
	return Position{Line: line + 1, Column: col}
}

// Span converts the byte range [start, end) to a Span.
func (s *Source) Span(start, end int) Span {
	if end < start {
		end = start
	}
	return Span{Start: s.Position(start), End: s.Position(end)}
}

// Errorf builds an Error covering the byte range [start, end).
func (s *Source) Errorf(start, end int, format string, args ...interface{}) *Error {
	return Errorf(s.Span(start, end), format, args...)
}

func (s *Source) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(s.text) {
		return len(s.text)
	}
	return offset
}
