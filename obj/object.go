/*
   SIRC object file model and serialization.

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

package obj

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
)

// Relocation kinds. The byte values are part of the object file format.
const (
	RefOffset      uint8 = 0 // 16 bit signed PC-relative word offset
	RefSmallOffset uint8 = 1 // 8 bit signed word offset
	RefLowerWord   uint8 = 2 // Low 16 bits of the absolute 24 bit address
	RefUpperWord   uint8 = 3 // High byte of the absolute 24 bit address
	RefImplied     uint8 = 4 // Kind chosen by context; must be resolved before linking
)

// RefTypeNames maps a relocation kind to its display name.
var RefTypeNames = map[uint8]string{
	RefOffset:      "offset",
	RefSmallOffset: "small-offset",
	RefLowerWord:   "lower-word",
	RefUpperWord:   "upper-word",
	RefImplied:     "implied",
}

// Symbol is a named byte offset into the program image.
type Symbol struct {
	Name   string
	Offset uint32
}

// Relocation defers a field patch until the target symbol's address is
// known.
type Relocation struct {
	Offset uint32 // Byte offset of the instruction to patch
	Name   string // Target symbol
	Kind   uint8
}

// Object is one assembled translation unit.
type Object struct {
	Program     []byte
	Symbols     []Symbol
	Relocations []Relocation

	// DataRelocations patch raw data words (vector table entries and the
	// like) rather than instruction fields: RefUpperWord writes the high
	// byte of the target address into the word at Offset, RefLowerWord
	// the low 16 bits.
	DataRelocations []Relocation

	// Debug sidecar: program word offset to source byte offset, plus the
	// original input so the debugger can map PC to line/column.
	SourceFile    string
	SourceText    string
	SourceOffsets map[uint32]int
}

// FindSymbol looks a symbol up by name.
func (o *Object) FindSymbol(name string) (Symbol, bool) {
	for _, sym := range o.Symbols {
		if sym.Name == name {
			return sym, true
		}
	}
	return Symbol{}, false
}

// Encode serializes an object with a compact self-describing binary
// encoding.
func Encode(object *Object) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(object); err != nil {
		return nil, fmt.Errorf("obj: encoding object: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes an object image.
func Decode(data []byte) (*Object, error) {
	var object Object
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&object); err != nil {
		return nil, fmt.Errorf("obj: decoding object: %w", err)
	}
	return &object, nil
}

// WriteFile serializes an object to disk.
func WriteFile(path string, object *Object) error {
	data, err := Encode(object)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile deserializes an object from disk.
func ReadFile(path string) (*Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("obj: reading %q: %w", path, err)
	}
	return Decode(data)
}
