/*
   SIRC debug info: bidirectional mapping between program counter values
   and source line/column positions.

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

package debug

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ObjectDebugInfo carries the per source file sidecar the assembler emits:
// the original input text and the map from program counter (word address at
// an instruction boundary) to byte offset within the input.
type ObjectDebugInfo struct {
	Checksum         string
	OriginalFilename string
	OriginalInput    string

	// Program counter to source byte offset, instruction aligned.
	ProgramToInputOffset map[uint32]int
}

// ProgramDebugInfo is the linked program's debug info, one entry per object
// in link order.
type ProgramDebugInfo struct {
	Objects map[int]ObjectDebugInfo
}

// NewObjectDebugInfo builds the sidecar for one assembled source.
func NewObjectDebugInfo(filename, input string, offsets map[uint32]int) ObjectDebugInfo {
	sum := sha256.Sum256([]byte(input))
	return ObjectDebugInfo{
		Checksum:             hex.EncodeToString(sum[:]),
		OriginalFilename:     filename,
		OriginalInput:        input,
		ProgramToInputOffset: offsets,
	}
}

// offsetToLineColumn converts a byte offset into a 1-based line and column.
func offsetToLineColumn(input string, offset int) (line, column int) {
	if offset > len(input) {
		offset = len(input)
	}
	prefix := input[:offset]
	line = strings.Count(prefix, "\n") + 1
	last := strings.LastIndexByte(prefix, '\n')
	column = offset - last
	return line, column
}

// lineColumnToOffset is the inverse of offsetToLineColumn.
func lineColumnToOffset(input string, line, column int) int {
	offset := 0
	for l := 1; l < line; l++ {
		next := strings.IndexByte(input[offset:], '\n')
		if next < 0 {
			return -1
		}
		offset += next + 1
	}
	return offset + column - 1
}

// TranslatePCToLineColumn maps an instruction aligned program counter to
// its source position. Odd program counters can never sit on an
// instruction boundary and always return false.
func TranslatePCToLineColumn(info *ProgramDebugInfo, pc uint32) (line, column int, filename string, ok bool) {
	if pc&1 != 0 {
		return 0, 0, "", false
	}
	for _, object := range info.Objects {
		offset, found := object.ProgramToInputOffset[pc]
		if !found {
			continue
		}
		line, column = offsetToLineColumn(object.OriginalInput, offset)
		return line, column, object.OriginalFilename, true
	}
	return 0, 0, "", false
}

// TranslateLineColumnToPC maps a source position back to the program
// counter of the instruction assembled there.
func TranslateLineColumnToPC(info *ProgramDebugInfo, filename string, line, column int) (uint32, bool) {
	for _, object := range info.Objects {
		if object.OriginalFilename != filename {
			continue
		}
		want := lineColumnToOffset(object.OriginalInput, line, column)
		if want < 0 {
			continue
		}
		for pc, offset := range object.ProgramToInputOffset {
			if offset == want {
				return pc, true
			}
		}
	}
	return 0, false
}
