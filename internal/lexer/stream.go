// Copyright The glowy Authors.
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

package lexer

import "github.com/ist199211-ist199311/glowy-langsec/internal/token"

// Stream is a one-token-lookahead view over a Lexer, the "peekable token
// stream" the parser consumes.
type Stream struct {
	lex    *Lexer
	peeked *token.Token
}

// NewStream wraps lex in a peekable Stream.
func NewStream(lex *Lexer) *Stream {
	return &Stream{lex: lex}
}

// Peek returns the next token without consuming it.
func (s *Stream) Peek() token.Token {
	if s.peeked == nil {
		t := s.lex.Next()
		s.peeked = &t
	}
	return *s.peeked
}

// Next consumes and returns the next token.
func (s *Stream) Next() token.Token {
	if s.peeked != nil {
		t := *s.peeked
		s.peeked = nil
		return t
	}
	return s.lex.Next()
}

// Errors returns every lexing diagnostic seen so far on the underlying Lexer.
func (s *Stream) Errors() []*Error {
	return s.lex.Errors()
}
