/*
   SIRC assembler token stream definitions.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

package asm

import (
	"fmt"

	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
)

// TokenKind discriminates the parser's output tokens.
type TokenKind int

const (
	TokenInstruction TokenKind = iota
	TokenLabel
	TokenOrigin
	TokenData
	TokenEqu
	TokenComment
)

// RefToken is a symbol reference with its relocation kind (obj.Ref*).
type RefToken struct {
	Name string
	Kind uint8
}

// Token is one element of the parsed stream. Every token records the byte
// offset of its source line so debug info can map program counters back to
// source positions.
type Token struct {
	Kind      TokenKind
	SrcOffset int

	// TokenInstruction
	Instruction inst.Instruction
	SymbolRef   *RefToken
	Placeholder string // Unresolved $name, substituted from .EQU

	// TokenLabel / TokenEqu
	Name string

	// TokenOrigin
	Origin uint32

	// TokenData: raw bytes, plus references for address-sized entries
	Data     []byte
	DataRefs []DataRef

	// TokenEqu
	Value uint16

	// TokenComment
	Text string
}

// DataRef marks a symbol reference inside a data directive: the word pair
// at Offset receives the target's address at link time.
type DataRef struct {
	Offset uint32 // Byte offset relative to the start of the data block
	Name   string
}

// SourceError is a parse or assembly failure with a source span and, where
// the parser can tell, a suggested fix.
type SourceError struct {
	File    string
	Line    int // 1-based
	Column  int // 1-based
	Message string
	Suggest string
}

func (e *SourceError) Error() string {
	loc := fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	if e.Suggest != "" {
		return fmt.Sprintf("%s: %s (try %s)", loc, e.Message, e.Suggest)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}
