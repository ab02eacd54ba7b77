/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"strings"
	"unicode"
)

// sqlSplitter breaks a migration file into statements on top-level
// semicolons. Quoted strings, comments and dollar-quoted bodies are kept
// intact so function definitions survive.
type sqlSplitter struct {
	src     string
	pos     int
	current strings.Builder
	out     []string

	singleQuote  bool
	doubleQuote  bool
	lineComment  bool
	blockComment bool
	dollarTag    string
}

func splitSQLStatements(content string) []string {
	s := &sqlSplitter{src: content}

	for s.pos < len(s.src) {
		s.step()
	}

	s.flush()

	return s.out
}

func (s *sqlSplitter) step() {
	ch := s.src[s.pos]
	rest := s.src[s.pos:]

	switch {
	case s.lineComment:
		if ch == '\n' {
			s.lineComment = false
			s.current.WriteByte(ch)
		}

		s.pos++
	case s.blockComment:
		if strings.HasPrefix(rest, "*/") {
			s.blockComment = false
			s.pos += 2

			return
		}

		s.pos++
	case s.dollarTag != "":
		if strings.HasPrefix(rest, s.dollarTag) {
			s.write(s.dollarTag)
			s.dollarTag = ""

			return
		}

		s.write(string(ch))
	case s.unquoted() && strings.HasPrefix(rest, "--"):
		s.lineComment = true
		s.pos += 2
	case s.unquoted() && strings.HasPrefix(rest, "/*"):
		s.blockComment = true
		s.pos += 2
	case s.unquoted() && parseDollarTag(rest) != "":
		s.dollarTag = parseDollarTag(rest)
		s.write(s.dollarTag)
	case ch == '\'' && !s.doubleQuote:
		s.singleQuote = !s.singleQuote
		s.write("'")
	case ch == '"' && !s.singleQuote:
		s.doubleQuote = !s.doubleQuote
		s.write(`"`)
	case ch == ';' && s.unquoted():
		s.flush()
		s.pos++
	default:
		s.write(string(ch))
	}
}

func (s *sqlSplitter) unquoted() bool {
	return !s.singleQuote && !s.doubleQuote
}

func (s *sqlSplitter) write(text string) {
	s.current.WriteString(text)
	s.pos += len(text)
}

func (s *sqlSplitter) flush() {
	if stmt := strings.TrimSpace(s.current.String()); stmt != "" {
		s.out = append(s.out, stmt)
	}

	s.current.Reset()
}

// parseDollarTag returns the opening tag ($$ or $name$) at the start of
// content, or "" when content does not start one.
func parseDollarTag(content string) string {
	if content == "" || content[0] != '$' {
		return ""
	}

	for i := 1; i < len(content); i++ {
		if content[i] == '$' {
			return content[:i+1]
		}

		ch := rune(content[i])
		if ch != '_' && !unicode.IsLetter(ch) && !unicode.IsDigit(ch) {
			return ""
		}
	}

	return ""
}

// migrationVersion is the numeric prefix of a migration file name.
func migrationVersion(filename string) string {
	version, _, _ := strings.Cut(filename, "_")

	return version
}
