/*
   SIRC instruction codec: bit exact encode/decode of 32 bit instruction
   words.

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

package inst

import "encoding/binary"

/*
   Word layout, high order bit first:

   Immediate:       [6 op][4 reg][16 value][2 flags][4 cond]
   Short immediate: [6 op][4 reg][8 value][1 shift op][3 shift type]
                    [4 shift count][2 flags][4 cond]
   Register:        [6 op][4 r1][4 r2][4 r3][1 shift op][3 shift type]
                    [4 shift count][2 flags][4 cond]
   Implied:         [6 op][22 reserved][4 cond]
*/

const (
	opcodeShift = 26
	opcodeMask  = 0x3F

	regMask   = 0xF
	condMask  = 0xF
	flagsMask = 0x3

	flagsShift = 4

	shiftCountShift   = 6
	shiftCountMask    = 0xF
	shiftTypeShift    = 10
	shiftTypeMask     = 0x7
	shiftOperandShift = 13
	shiftOperandMask  = 0x1
)

// OpCodeOf extracts the 6 bit opcode from a raw instruction word without
// decoding the rest.
func OpCodeOf(raw [4]byte) uint8 {
	return uint8((binary.BigEndian.Uint32(raw[:]) >> opcodeShift) & opcodeMask)
}

func decodeImmediate(word uint32) *Immediate {
	return &Immediate{
		OpCode:          uint8((word >> opcodeShift) & opcodeMask),
		Register:        uint8((word >> 22) & regMask),
		Value:           uint16((word >> 6) & 0xFFFF),
		AdditionalFlags: uint8((word >> flagsShift) & flagsMask),
		Condition:       uint8(word & condMask),
	}
}

func decodeShortImmediate(word uint32) *ShortImmediate {
	return &ShortImmediate{
		OpCode:          uint8((word >> opcodeShift) & opcodeMask),
		Register:        uint8((word >> 22) & regMask),
		Value:           uint8((word >> 14) & 0xFF),
		ShiftOperand:    uint8((word >> shiftOperandShift) & shiftOperandMask),
		ShiftType:       uint8((word >> shiftTypeShift) & shiftTypeMask),
		ShiftCount:      uint8((word >> shiftCountShift) & shiftCountMask),
		AdditionalFlags: uint8((word >> flagsShift) & flagsMask),
		Condition:       uint8(word & condMask),
	}
}

func decodeRegister(word uint32) *Register {
	return &Register{
		OpCode:          uint8((word >> opcodeShift) & opcodeMask),
		R1:              uint8((word >> 22) & regMask),
		R2:              uint8((word >> 18) & regMask),
		R3:              uint8((word >> 14) & regMask),
		ShiftOperand:    uint8((word >> shiftOperandShift) & shiftOperandMask),
		ShiftType:       uint8((word >> shiftTypeShift) & shiftTypeMask),
		ShiftCount:      uint8((word >> shiftCountShift) & shiftCountMask),
		AdditionalFlags: uint8((word >> flagsShift) & flagsMask),
		Condition:       uint8(word & condMask),
	}
}

// DecodeImmediateView decodes the immediate interpretation of a word
// regardless of the opcode range. The CPU decode stage uses all three views
// in parallel the way the hardware does.
func DecodeImmediateView(raw [4]byte) *Immediate {
	return decodeImmediate(binary.BigEndian.Uint32(raw[:]))
}

// DecodeShortImmediateView decodes the short immediate interpretation of a
// word regardless of the opcode range.
func DecodeShortImmediateView(raw [4]byte) *ShortImmediate {
	return decodeShortImmediate(binary.BigEndian.Uint32(raw[:]))
}

// DecodeRegisterView decodes the register interpretation of a word
// regardless of the opcode range.
func DecodeRegisterView(raw [4]byte) *Register {
	return decodeRegister(binary.BigEndian.Uint32(raw[:]))
}

// Decode maps a raw 32 bit word to an instruction record. Every bit pattern
// decodes; opcodes with no architectural meaning still produce a record in
// their range's default variant so that Encode(Decode(w)) == w.
func Decode(raw [4]byte) Instruction {
	word := binary.BigEndian.Uint32(raw[:])
	op := uint8((word >> opcodeShift) & opcodeMask)
	switch {
	case op <= 0x0F:
		return Instruction{Immediate: decodeImmediate(word)}
	case op <= 0x1F:
		// Even ids in the mixed range take an immediate displacement,
		// odd ids a register displacement.
		if op&1 == 1 {
			return Instruction{Register: decodeRegister(word)}
		}
		return Instruction{Immediate: decodeImmediate(word)}
	case op <= 0x2F:
		return Instruction{ShortImmediate: decodeShortImmediate(word)}
	default:
		return Instruction{Register: decodeRegister(word)}
	}
}

func encodeShift(operand, kind, count uint8) uint32 {
	return (uint32(operand&shiftOperandMask) << shiftOperandShift) |
		(uint32(kind&shiftTypeMask) << shiftTypeShift) |
		(uint32(count&shiftCountMask) << shiftCountShift)
}

// Encode maps an instruction record back to its 32 bit word. For any record
// produced by Decode this is the exact inverse.
func Encode(in Instruction) [4]byte {
	var word uint32
	switch {
	case in.Immediate != nil:
		d := in.Immediate
		word = (uint32(d.OpCode&opcodeMask) << opcodeShift) |
			(uint32(d.Register&regMask) << 22) |
			(uint32(d.Value) << 6) |
			(uint32(d.AdditionalFlags&flagsMask) << flagsShift) |
			uint32(d.Condition&condMask)
	case in.ShortImmediate != nil:
		d := in.ShortImmediate
		word = (uint32(d.OpCode&opcodeMask) << opcodeShift) |
			(uint32(d.Register&regMask) << 22) |
			(uint32(d.Value) << 14) |
			encodeShift(d.ShiftOperand, d.ShiftType, d.ShiftCount) |
			(uint32(d.AdditionalFlags&flagsMask) << flagsShift) |
			uint32(d.Condition&condMask)
	case in.Register != nil:
		d := in.Register
		word = (uint32(d.OpCode&opcodeMask) << opcodeShift) |
			(uint32(d.R1&regMask) << 22) |
			(uint32(d.R2&regMask) << 18) |
			(uint32(d.R3&regMask) << 14) |
			encodeShift(d.ShiftOperand, d.ShiftType, d.ShiftCount) |
			(uint32(d.AdditionalFlags&flagsMask) << flagsShift) |
			uint32(d.Condition&condMask)
	default:
		d := in.Implied
		word = (uint32(d.OpCode&opcodeMask) << opcodeShift) |
			uint32(d.Condition&condMask)
	}
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], word)
	return raw
}

// BytesToWords splits an instruction's four bytes into the two 16 bit bus
// words, high half first.
func BytesToWords(raw [4]byte) [2]uint16 {
	return [2]uint16{
		binary.BigEndian.Uint16(raw[0:2]),
		binary.BigEndian.Uint16(raw[2:4]),
	}
}

// WordsToBytes reassembles the two bus words into instruction bytes.
func WordsToBytes(words [2]uint16) [4]byte {
	var raw [4]byte
	binary.BigEndian.PutUint16(raw[0:2], words[0])
	binary.BigEndian.PutUint16(raw[2:4], words[1])
	return raw
}
