/*
   SIRC assembler parser: recursive descent over the assembly grammar,
   producing the token stream the assembler emits from.

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
	"strings"

	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
)

// Addressing modes recognized by the operand parser.
type operandKind int

const (
	opImmediate operandKind = iota
	opRegister
	opAddressRegister
	opIndirect
	opShift
)

// immediatePayload is a number, a symbol reference or a placeholder.
type immediatePayload struct {
	value       uint32
	ref         *RefToken
	placeholder string
}

type operand struct {
	kind operandKind

	imm immediatePayload

	reg  uint8 // opRegister
	pair uint8 // opAddressRegister / opIndirect

	// opIndirect
	dispIsReg bool
	dispReg   uint8
	preDec    bool
	postInc   bool

	// opShift
	shiftType  uint8
	shiftIsReg bool
	shiftCount uint8
}

// parser tracks position for error spans.
type parser struct {
	file string
	line int
	col  int
}

func (p *parser) errorf(format string, args ...any) *SourceError {
	return &SourceError{
		File:    p.file,
		Line:    p.line,
		Column:  p.col,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *parser) suggestf(suggest, format string, args ...any) *SourceError {
	err := p.errorf(format, args...)
	err.Suggest = suggest
	return err
}

func (p *parser) parseImmediatePayload(s string) (immediatePayload, string, bool) {
	if value, rest, ok := parseImmediate(s); ok {
		return immediatePayload{value: value}, rest, true
	}
	if ref, rest, ok := parseSymbolReference(s); ok {
		return immediatePayload{ref: &ref}, rest, true
	}
	if name, rest, ok := parsePlaceholder(s); ok {
		return immediatePayload{placeholder: name}, rest, true
	}
	return immediatePayload{}, s, false
}

// parseIndirect parses "(disp, ar)" with optional wrapping pre-decrement /
// trailing post-increment already handled by the caller.
func (p *parser) parseIndirect(s string) (operand, string, error) {
	var op operand
	op.kind = opIndirect
	s = skipSpace(s[1:]) // past '('

	if payload, rest, ok := p.parseImmediatePayload(s); ok {
		op.imm = payload
		s = rest
	} else {
		name, rest := takeName(s)
		index, isReg := registerIndex(name)
		if !isReg {
			return op, s, p.errorf("expected a displacement (immediate or register) inside indirect operand")
		}
		op.dispIsReg = true
		op.dispReg = index
		s = rest
	}

	s = skipSpace(s)
	if !strings.HasPrefix(s, ",") {
		return op, s, p.errorf("expected ',' before the address register in indirect operand")
	}
	s = skipSpace(s[1:])

	name, rest := takeName(s)
	pair, ok := addressRegisterIndex(name)
	if !ok {
		return op, s, p.errorf("expected an address register (l, a, s, p), got %q", name)
	}
	op.pair = pair
	s = skipSpace(rest)

	if !strings.HasPrefix(s, ")") {
		return op, s, p.errorf("expected ')' to close indirect operand")
	}
	return op, s[1:], nil
}

// parseOperand parses one comma-separated operand.
func (p *parser) parseOperand(s string) (operand, string, error) {
	s = skipSpace(s)

	// Pre-decrement indirect.
	if strings.HasPrefix(s, "-(") {
		op, rest, err := p.parseIndirect(s[1:])
		op.preDec = true
		return op, rest, err
	}
	// Indirect, possibly post-increment.
	if strings.HasPrefix(s, "(") {
		op, rest, err := p.parseIndirect(s)
		if err != nil {
			return op, rest, err
		}
		if strings.HasPrefix(rest, "+") {
			op.postInc = true
			rest = rest[1:]
		}
		return op, rest, nil
	}
	// Immediate payloads.
	if payload, rest, ok := p.parseImmediatePayload(s); ok {
		return operand{kind: opImmediate, imm: payload}, rest, nil
	}

	// Shift definition: three letter kind then count.
	name, rest := takeName(s)
	if kind, isShift := shiftTypeFor(name); isShift {
		rest = skipSpace(rest)
		if value, after, ok := parseImmediate(rest); ok {
			if value > uint32(inst.MaxShiftCount) {
				return operand{}, s, p.errorf(
					"shift count must be 0-%d, got %d", inst.MaxShiftCount, value)
			}
			return operand{kind: opShift, shiftType: kind,
				shiftCount: uint8(value)}, after, nil
		}
		regName, after := takeName(rest)
		if index, isReg := registerIndex(regName); isReg {
			return operand{kind: opShift, shiftType: kind,
				shiftIsReg: true, shiftCount: index}, after, nil
		}
		return operand{}, s, p.errorf("expected a shift count (#n or register) after %s", name)
	}

	// Direct registers. Register names win over the single letter address
	// register aliases, so try them first.
	if index, ok := registerIndex(name); ok {
		return operand{kind: opRegister, reg: index}, rest, nil
	}
	if pair, ok := addressRegisterIndex(name); ok {
		return operand{kind: opAddressRegister, pair: pair}, rest, nil
	}

	return operand{}, s, p.errorf("unrecognized operand starting at %q", firstWord(s))
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t,"); i >= 0 {
		return s[:i]
	}
	return s
}

func (p *parser) parseOperands(s string) ([]operand, error) {
	s = skipSpace(s)
	if s == "" {
		return nil, nil
	}
	var ops []operand
	for {
		op, rest, err := p.parseOperand(s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		rest = skipSpace(rest)
		if rest == "" {
			return ops, nil
		}
		if !strings.HasPrefix(rest, ",") {
			return nil, p.errorf("unexpected trailing input %q", firstWord(rest))
		}
		s = skipSpace(rest[1:])
	}
}

// splitMnemonic splits "BRAN|==" style heads into mnemonic and condition.
func (p *parser) splitMnemonic(head string) (string, uint8, error) {
	mnemonic, cond := head, inst.CondAlways
	if i := strings.IndexByte(head, '|'); i >= 0 {
		code, ok := conditionFor(head[i+1:])
		if !ok {
			return "", 0, p.errorf("unknown condition code %q", head[i+1:])
		}
		mnemonic, cond = head[:i], code
	}
	return mnemonic, cond, nil
}

// parseLine parses one source line (already stripped of comments) into a
// token, or nil for a blank line.
func (p *parser) parseLine(line string, srcOffset int) (*Token, error) {
	trimmed := skipSpace(line)
	p.col = len(line) - len(trimmed) + 1
	if trimmed == "" {
		return nil, nil
	}

	// Comment lines.
	if strings.HasPrefix(trimmed, ";") {
		return &Token{Kind: TokenComment, SrcOffset: srcOffset,
			Text: strings.TrimSpace(trimmed[1:])}, nil
	}

	// Labels.
	if strings.HasPrefix(trimmed, ":") {
		name, rest := takeName(trimmed[1:])
		if name == "" || skipSpace(rest) != "" {
			return nil, p.errorf("malformed label %q", trimmed)
		}
		return &Token{Kind: TokenLabel, SrcOffset: srcOffset, Name: name}, nil
	}

	// Directives.
	if strings.HasPrefix(trimmed, ".") {
		return p.parseDirective(trimmed, srcOffset)
	}

	// Instructions.
	head, rest := firstWord(trimmed), trimmed[len(firstWord(trimmed)):]
	mnemonic, cond, err := p.splitMnemonic(head)
	if err != nil {
		return nil, err
	}
	operands, err := p.parseOperands(rest)
	if err != nil {
		return nil, err
	}
	token, err := p.buildInstruction(mnemonic, cond, operands)
	if err != nil {
		return nil, err
	}
	token.SrcOffset = srcOffset
	return token, nil
}

// parseDirective handles .ORG, .EQU and the data directives.
func (p *parser) parseDirective(line string, srcOffset int) (*Token, error) {
	head := firstWord(line)
	rest := skipSpace(line[len(head):])

	switch head {
	case ".ORG":
		value, after, ok := parseNumber(rest)
		if !ok || skipSpace(after) != "" {
			return nil, p.errorf(".ORG requires a single numeric offset")
		}
		return &Token{Kind: TokenOrigin, SrcOffset: srcOffset, Origin: value & 0x00FFFFFF}, nil

	case ".EQU":
		name, after := takeName(rest)
		if name == "" {
			return nil, p.errorf(".EQU requires a name and a value")
		}
		value, after2, ok := parseImmediate(skipSpace(after))
		if !ok || skipSpace(after2) != "" {
			return nil, p.errorf(".EQU %s requires a single immediate value", name)
		}
		if !fitsField(value, 16) {
			return nil, p.errorf(".EQU %s value %#x does not fit 16 bits", name, value)
		}
		return &Token{Kind: TokenEqu, SrcOffset: srcOffset, Name: name,
			Value: uint16(value)}, nil

	case ".DB", ".DW", ".DQ":
		return p.parseDataDirective(head, rest, srcOffset)
	}
	return nil, p.errorf("unknown directive %s", head)
}

func (p *parser) parseDataDirective(head, rest string, srcOffset int) (*Token, error) {
	token := &Token{Kind: TokenData, SrcOffset: srcOffset}
	for {
		rest = skipSpace(rest)
		if ref, after, ok := parseSymbolReference(rest); ok {
			if head != ".DQ" {
				return nil, p.errorf("symbol references are only valid in .DQ entries")
			}
			token.DataRefs = append(token.DataRefs,
				DataRef{Offset: uint32(len(token.Data)), Name: ref.Name})
			token.Data = append(token.Data, 0, 0, 0, 0)
			rest = after
		} else {
			value, after, ok := parseImmediate(rest)
			if !ok {
				value, after, ok = parseNumber(rest)
			}
			if !ok {
				return nil, p.errorf("%s requires numeric values or @refs", head)
			}
			switch head {
			case ".DB":
				if !fitsField(value, 8) {
					return nil, p.errorf(".DB value %#x does not fit 8 bits", value)
				}
				token.Data = append(token.Data, byte(value))
			case ".DW":
				if !fitsField(value, 16) {
					return nil, p.errorf(".DW value %#x does not fit 16 bits", value)
				}
				token.Data = append(token.Data, byte(value>>8), byte(value))
			case ".DQ":
				token.Data = append(token.Data,
					byte(value>>24), byte(value>>16), byte(value>>8), byte(value))
			}
			rest = after
		}
		rest = skipSpace(rest)
		if rest == "" {
			return token, nil
		}
		if !strings.HasPrefix(rest, ",") {
			return nil, p.errorf("unexpected trailing input %q in %s", firstWord(rest), head)
		}
		rest = rest[1:]
	}
}

// Parse tokenizes an entire source text. Each token records its source
// byte offset for the debug info service.
func Parse(file, source string) ([]Token, error) {
	p := &parser{file: file}
	var tokens []Token
	offset := 0
	for lineNo, line := range strings.Split(source, "\n") {
		p.line = lineNo + 1
		// Strip end of line comments, keeping ';' inside nothing special
		// (the grammar has no string literals).
		content := line
		if i := strings.IndexByte(content, ';'); i > 0 {
			content = content[:i]
		}
		token, err := p.parseLine(content, offset)
		if err != nil {
			return nil, err
		}
		if token != nil {
			tokens = append(tokens, *token)
		}
		offset += len(line) + 1
	}
	return tokens, nil
}
