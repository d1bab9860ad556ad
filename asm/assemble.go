/*
   SIRC assembler back end: token stream to object image.

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
	"github.com/NoxHarmonium/sirc-sub000/obj"
)

// Assemble parses a source text and emits the object image: encoded
// program bytes, the symbol table, relocations, and the debug sidecar
// mapping program words back to source offsets.
func Assemble(file, source string) (*obj.Object, error) {
	tokens, err := Parse(file, source)
	if err != nil {
		return nil, err
	}

	// Constants may be used before their .EQU line.
	constants := make(map[string]uint16)
	for _, token := range tokens {
		if token.Kind == TokenEqu {
			if _, dup := constants[token.Name]; dup {
				return nil, fmt.Errorf("asm: duplicate .EQU %s", token.Name)
			}
			constants[token.Name] = token.Value
		}
	}

	object := &obj.Object{
		SourceFile:    file,
		SourceText:    source,
		SourceOffsets: make(map[uint32]int),
	}

	// Byte position within the image; .ORG moves it in word units.
	pos := uint32(0)
	extend := func(upto uint32) {
		for uint32(len(object.Program)) < upto {
			object.Program = append(object.Program, 0)
		}
	}
	emit := func(data []byte) {
		extend(pos + uint32(len(data)))
		copy(object.Program[pos:], data)
		pos += uint32(len(data))
	}

	for _, token := range tokens {
		switch token.Kind {
		case TokenComment, TokenEqu:

		case TokenOrigin:
			pos = token.Origin * 2
			extend(pos)

		case TokenLabel:
			for _, sym := range object.Symbols {
				if sym.Name == token.Name {
					return nil, fmt.Errorf("asm: duplicate label :%s", token.Name)
				}
			}
			object.Symbols = append(object.Symbols,
				obj.Symbol{Name: token.Name, Offset: pos})

		case TokenData:
			for _, ref := range token.DataRefs {
				object.DataRelocations = append(object.DataRelocations,
					obj.Relocation{Offset: pos + ref.Offset, Name: ref.Name,
						Kind: obj.RefUpperWord},
					obj.Relocation{Offset: pos + ref.Offset + 2, Name: ref.Name,
						Kind: obj.RefLowerWord},
				)
			}
			emit(token.Data)

		case TokenInstruction:
			record := token.Instruction

			if token.Placeholder != "" {
				value, defined := constants[token.Placeholder]
				if !defined {
					return nil, fmt.Errorf(
						"asm: unresolvable placeholder $%s (no matching .EQU)",
						token.Placeholder)
				}
				if record.Immediate == nil {
					return nil, fmt.Errorf(
						"asm: placeholder $%s on a non-immediate instruction",
						token.Placeholder)
				}
				patched := *record.Immediate
				patched.Value = value
				record = inst.Instruction{Immediate: &patched}
			}

			if token.SymbolRef != nil {
				if token.SymbolRef.Kind == obj.RefImplied {
					return nil, fmt.Errorf(
						"asm: implied relocation for @%s was not resolved",
						token.SymbolRef.Name)
				}
				object.Relocations = append(object.Relocations, obj.Relocation{
					Offset: pos,
					Name:   token.SymbolRef.Name,
					Kind:   token.SymbolRef.Kind,
				})
			}

			raw := inst.Encode(record)
			object.SourceOffsets[pos/2] = token.SrcOffset
			emit(raw[:])
		}
	}

	return object, nil
}
