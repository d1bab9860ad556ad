/*
   SIRC linker: merges object images, resolves symbols and patches encoded
   instruction fields by relocation kind.

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

package link

import (
	"errors"
	"fmt"

	"github.com/NoxHarmonium/sirc-sub000/emu/debug"
	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
	"github.com/NoxHarmonium/sirc-sub000/obj"
)

var (
	ErrUnknownSymbol      = errors.New("link: unknown symbol")
	ErrOffsetOutOfRange   = errors.New("link: relocation offset out of range")
	ErrImpliedRelocation  = errors.New("link: implied relocation reached the linker")
	ErrUnpatchableOpcode  = errors.New("link: instruction cannot carry a relocation")
)

// Link concatenates the object images at their assembled positions,
// resolves every relocation against the merged symbol table and the given
// segment base (a word address), and returns the linked byte stream plus
// the program debug info.
func Link(objects []*obj.Object, segmentBase uint32) ([]byte, *debug.ProgramDebugInfo, error) {
	if len(objects) == 0 {
		return nil, nil, errors.New("link: no input objects")
	}

	// Lay objects out back to back, each aligned to an instruction
	// boundary, and merge the symbol tables.
	type placed struct {
		object *obj.Object
		base   uint32 // byte offset within the linked image
	}
	var layout []placed
	symbols := make(map[string]uint32) // byte offset within the linked image
	var program []byte

	for _, object := range objects {
		base := uint32(len(program))
		layout = append(layout, placed{object: object, base: base})
		program = append(program, object.Program...)
		for len(program)%int(inst.SizeBytes) != 0 {
			program = append(program, 0)
		}
		for _, sym := range object.Symbols {
			if _, dup := symbols[sym.Name]; dup {
				return nil, nil, fmt.Errorf("link: duplicate symbol %q", sym.Name)
			}
			symbols[sym.Name] = base + sym.Offset
		}
	}

	lookup := func(name string) (uint32, error) {
		offset, found := symbols[name]
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
		}
		// Word address of the symbol once loaded at the segment base.
		return offset/2 + segmentBase, nil
	}

	debugInfo := &debug.ProgramDebugInfo{Objects: make(map[int]debug.ObjectDebugInfo)}

	for index, entry := range layout {
		object := entry.object

		for _, rel := range object.Relocations {
			if rel.Kind == obj.RefImplied {
				return nil, nil, fmt.Errorf("%w: symbol %q", ErrImpliedRelocation, rel.Name)
			}
			target, err := lookup(rel.Name)
			if err != nil {
				return nil, nil, err
			}
			at := entry.base + rel.Offset
			if err := patchInstruction(program, at, segmentBase, target, rel); err != nil {
				return nil, nil, err
			}
		}

		for _, rel := range object.DataRelocations {
			target, err := lookup(rel.Name)
			if err != nil {
				return nil, nil, err
			}
			at := entry.base + rel.Offset
			if int(at)+1 >= len(program) {
				return nil, nil, fmt.Errorf("link: data relocation for %q outside image", rel.Name)
			}
			var word uint16
			switch rel.Kind {
			case obj.RefUpperWord:
				word = uint16(target >> 16 & 0xFF)
			case obj.RefLowerWord:
				word = uint16(target)
			default:
				return nil, nil, fmt.Errorf("link: data relocation for %q has kind %s",
					rel.Name, obj.RefTypeNames[rel.Kind])
			}
			program[at] = byte(word >> 8)
			program[at+1] = byte(word)
		}

		// Rebase the debug offsets by the object's placement.
		offsets := make(map[uint32]int, len(object.SourceOffsets))
		for word, src := range object.SourceOffsets {
			offsets[word+entry.base/2+segmentBase] = src
		}
		debugInfo.Objects[index] = debug.NewObjectDebugInfo(
			object.SourceFile, object.SourceText, offsets)
	}

	return program, debugInfo, nil
}

// patchInstruction decodes the instruction at a byte offset, computes the
// patched field for the relocation kind and splices the re-encoded word
// back into the image.
func patchInstruction(program []byte, at, segmentBase, target uint32, rel obj.Relocation) error {
	if int(at)+int(inst.SizeBytes) > len(program) {
		return fmt.Errorf("link: relocation for %q outside image", rel.Name)
	}
	var raw [4]byte
	copy(raw[:], program[at:])
	record := inst.Decode(raw)

	// PC relative kinds measure from the patched instruction's own word.
	instructionWord := at/2 + segmentBase
	wordOffset := int32(target) - int32(instructionWord)

	var value uint16
	switch rel.Kind {
	case obj.RefOffset:
		if wordOffset < -32768 || wordOffset > 32767 {
			return fmt.Errorf("%w: %q is %d words away (16 bit signed)",
				ErrOffsetOutOfRange, rel.Name, wordOffset)
		}
		value = uint16(int16(wordOffset))
	case obj.RefSmallOffset:
		if wordOffset < -128 || wordOffset > 127 {
			return fmt.Errorf("%w: %q is %d words away (8 bit signed)",
				ErrOffsetOutOfRange, rel.Name, wordOffset)
		}
		value = uint16(int16(wordOffset)) & 0x00FF
	case obj.RefLowerWord:
		value = uint16(target)
	case obj.RefUpperWord:
		value = uint16(target >> 16 & 0xFF)
	default:
		return fmt.Errorf("%w: symbol %q", ErrImpliedRelocation, rel.Name)
	}

	switch {
	case record.Immediate != nil:
		record.Immediate.Value = value
	case record.ShortImmediate != nil:
		if value > 0xFF {
			return fmt.Errorf("%w: %q does not fit the short immediate field",
				ErrOffsetOutOfRange, rel.Name)
		}
		record.ShortImmediate.Value = uint8(value)
	default:
		return fmt.Errorf("%w: %q at byte %d", ErrUnpatchableOpcode, rel.Name, at)
	}

	patched := inst.Encode(record)
	copy(program[at:], patched[:])
	return nil
}
