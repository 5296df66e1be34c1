//
// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// NOTE: This code is adapted from https://github.com/cloudspannerecosystem/spanner-cli/blob/5eebf0a802df2a02c47776dc6aa52f59600e0b5e/separator.go
// to keep the byte offset of every statement.
package spanner

import (
	"strings"
)

// rawStatement is one statement of the input. Offset is the byte offset of
// Text in the whole input, so parser positions can be shifted back.
type rawStatement struct {
	Text   string
	Offset int
}

func separateInput(input string) []rawStatement {
	return (&separator{src: input}).separate()
}

type separator struct {
	src string
	pos int
}

func (s *separator) rest() string {
	return s.src[s.pos:]
}

func (s *separator) consumeStringContent(delim string, raw bool) {
	for s.pos < len(s.src) {
		if strings.HasPrefix(s.rest(), delim) {
			s.pos += len(delim)
			return
		}

		// escape sequence
		if s.src[s.pos] == '\\' && !raw {
			s.pos += 2
			if s.pos > len(s.src) {
				s.pos = len(s.src)
			}
			continue
		}
		s.pos++
	}
}

func (s *separator) consumeStringDelimiter() string {
	c := s.src[s.pos]
	// check triple-quoted delim
	if len(s.rest()) >= 3 && s.src[s.pos+1] == c && s.src[s.pos+2] == c {
		s.pos += 3
		return strings.Repeat(string(c), 3)
	}
	s.pos++
	return string(c)
}

// skipComment skips one comment at the current position and reports
// whether there was one.
func (s *separator) skipComment() bool {
	var terminate string
	rest := s.rest()
	switch {
	case strings.HasPrefix(rest, "#"):
		terminate = "\n"
		s.pos++
	case strings.HasPrefix(rest, "--"):
		terminate = "\n"
		s.pos += 2
	case strings.HasPrefix(rest, "/*"):
		// NOTE: Nested multiline comments are not supported in Spanner.
		// https://cloud.google.com/spanner/docs/lexical#multiline_comments
		terminate = "*/"
		s.pos += 2
	default:
		return false
	}

	if i := strings.Index(s.rest(), terminate); i >= 0 {
		s.pos += i + len(terminate)
	} else {
		s.pos = len(s.src)
	}
	return true
}

// separate separates input string into multiple Spanner statements.
// This does not validate syntax of statements. Comments stay in the
// statement text, so positions inside a statement match the input, but a
// run holding only comments is not a statement.
//
// NOTE: Logic for parsing a statement is mostly taken from spansql.
// https://github.com/googleapis/google-cloud-go/blob/master/spanner/spansql/parser.go
func (s *separator) separate() []rawStatement {
	var statements []rawStatement
	start, code := 0, false
	flush := func(end int) {
		if !code {
			return
		}
		text := s.src[start:end]
		trimmed := strings.TrimLeft(text, " \t\r\n")
		offset := start + len(text) - len(trimmed)
		trimmed = strings.TrimRight(trimmed, " \t\r\n")
		if trimmed != "" {
			statements = append(statements, rawStatement{Text: trimmed, Offset: offset})
		}
	}

	for s.pos < len(s.src) {
		if s.skipComment() {
			continue
		}

		c := s.src[s.pos]
		if c != ';' && !isSpace(c) {
			code = true
		}
		switch c {
		// possibly string literal
		case '"', '\'', 'r', 'R', 'b', 'B':
			// valid string prefix: "b", "B", "r", "R", "br", "bR", "Br", "BR"
			// https://cloud.google.com/spanner/docs/lexical#string_and_bytes_literals
			if s.pos > 0 && isIdentByte(s.src[s.pos-1]) && c != '"' && c != '\'' {
				s.pos++
				continue
			}
			raw := false
			i := s.pos
			for n := 0; n < 2 && i < len(s.src); n++ {
				switch s.src[i] {
				case 'r', 'R':
					raw = true
					i++
					continue
				case 'b', 'B':
					i++
					continue
				}
				break
			}
			if i < len(s.src) && (s.src[i] == '"' || s.src[i] == '\'') {
				s.pos = i
				delim := s.consumeStringDelimiter()
				s.consumeStringContent(delim, raw)
				continue
			}
			s.pos++
		// quoted identifier
		case '`':
			s.pos++
			s.consumeStringContent("`", false)
		// horizontal delim
		case ';':
			flush(s.pos)
			s.pos++
			start, code = s.pos, false
		default:
			s.pos++
		}
	}

	// flush remained
	flush(len(s.src))
	return statements
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isIdentByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
