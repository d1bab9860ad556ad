/*
   SIRC instruction set definitions.

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

// Instructions are 32 bits wide, stored and transferred as two 16 bit words.
const (
	SizeWords = 2
	SizeBytes = 4

	MaxShiftCount = 15 // Shift count field is 4 bits
)

// Opcode identifiers. The top two bits of the 6 bit opcode select the
// encoding family: 0x00-0x0F long immediate, 0x10-0x1F mixed (even ids
// immediate, odd ids register), 0x20-0x2F short immediate with shift,
// 0x30-0x3F register.
const (
	// Long immediate family.
	OpAddImmediate               uint8 = 0x00
	OpAddImmediateWithCarry      uint8 = 0x01
	OpSubtractImmediate          uint8 = 0x02
	OpSubtractImmediateWithCarry uint8 = 0x03
	OpAndImmediate               uint8 = 0x04
	OpOrImmediate                uint8 = 0x05
	OpXorImmediate               uint8 = 0x06
	OpLoadImmediate              uint8 = 0x07
	OpCompareImmediate           uint8 = 0x08
	OpTestAndImmediate           uint8 = 0x09
	OpTestXorImmediate           uint8 = 0x0A
	OpBranchImmediate            uint8 = 0x0B
	OpBranchToSubroutine         uint8 = 0x0C
	OpShortJumpImmediate         uint8 = 0x0D
	OpShortJumpToSubroutine      uint8 = 0x0E
	OpCoprocessorCallImmediate   uint8 = 0x0F

	// Mixed family, even ids carry an immediate displacement, odd ids a
	// register displacement.
	OpStoreIndirectImmediate         uint8 = 0x10
	OpStoreIndirectRegister          uint8 = 0x11
	OpStoreIndirectImmediatePreDec   uint8 = 0x12
	OpStoreIndirectRegisterPreDec    uint8 = 0x13
	OpLoadIndirectImmediate          uint8 = 0x14
	OpLoadIndirectRegister           uint8 = 0x15
	OpLoadIndirectImmediatePostInc   uint8 = 0x16
	OpLoadIndirectRegisterPostInc    uint8 = 0x17
	OpLoadEffectiveAddressImmediate  uint8 = 0x18
	OpLoadEffectiveAddressRegister   uint8 = 0x19
	OpLongJumpImmediate              uint8 = 0x1A
	OpLongJumpRegister               uint8 = 0x1B
	OpLongJumpToSubroutineImmediate  uint8 = 0x1C
	OpLongJumpToSubroutineRegister   uint8 = 0x1D
	OpUndocumented0x1E               uint8 = 0x1E
	OpUndocumented0x1F               uint8 = 0x1F

	// Short immediate family, mirrors the long immediate family with an
	// 8 bit value and an 8 bit shift definition.
	OpAddShortImmediate               uint8 = 0x20
	OpAddShortImmediateWithCarry      uint8 = 0x21
	OpSubtractShortImmediate          uint8 = 0x22
	OpSubtractShortImmediateWithCarry uint8 = 0x23
	OpAndShortImmediate               uint8 = 0x24
	OpOrShortImmediate                uint8 = 0x25
	OpXorShortImmediate               uint8 = 0x26
	OpLoadShortImmediate              uint8 = 0x27
	OpCompareShortImmediate           uint8 = 0x28
	OpTestAndShortImmediate           uint8 = 0x29
	OpTestXorShortImmediate           uint8 = 0x2A
	OpBranchShortImmediate            uint8 = 0x2B
	OpBranchToSubroutineShort         uint8 = 0x2C
	OpShortJumpShortImmediate         uint8 = 0x2D
	OpShortJumpToSubroutineShort      uint8 = 0x2E
	OpCoprocessorCallShortImmediate   uint8 = 0x2F

	// Register family.
	OpAddRegister               uint8 = 0x30
	OpAddRegisterWithCarry      uint8 = 0x31
	OpSubtractRegister          uint8 = 0x32
	OpSubtractRegisterWithCarry uint8 = 0x33
	OpAndRegister               uint8 = 0x34
	OpOrRegister                uint8 = 0x35
	OpXorRegister               uint8 = 0x36
	OpLoadRegister              uint8 = 0x37
	OpCompareRegister           uint8 = 0x38
	OpTestAndRegister           uint8 = 0x39
	OpTestXorRegister           uint8 = 0x3A
	OpReturnFromSubroutine      uint8 = 0x3B
	OpNoOperation               uint8 = 0x3C
	OpUndocumented0x3D          uint8 = 0x3D
	OpUndocumented0x3E          uint8 = 0x3E
	OpCoprocessorCallRegister   uint8 = 0x3F
)

// Condition codes, evaluated against the status register flags. Every
// instruction carries one in its low four bits.
const (
	CondAlways uint8 = iota
	CondEqual
	CondNotEqual
	CondCarrySet
	CondCarryClear
	CondNegativeSet
	CondNegativeClear
	CondOverflowSet
	CondOverflowClear
	CondUnsignedHigher
	CondUnsignedLowerOrSame
	CondGreaterOrEqual
	CondLessThan
	CondGreaterThan
	CondLessThanOrEqual
	CondNever
)

// Shift kinds carried in the 8 bit shift field.
const (
	ShiftNone uint8 = iota
	ShiftLogicalLeft
	ShiftLogicalRight
	ShiftArithmeticLeft
	ShiftArithmeticRight
	ShiftRotateLeft
	ShiftRotateRight
	ShiftReserved
)

// Shift operand source.
const (
	ShiftOperandImmediate uint8 = 0
	ShiftOperandRegister  uint8 = 1
)

// Status register update sources, carried in the additional flags bits of
// ALU instructions.
const (
	SrSourceNone  uint8 = 0
	SrSourceAlu   uint8 = 1
	SrSourceShift uint8 = 2
)

// Encoding families.
type Family int

const (
	FamilyImplied Family = iota
	FamilyImmediate
	FamilyShortImmediate
	FamilyRegister
)

// Implied instructions carry only the opcode and condition code. They are
// an assembler convenience; the decoder always produces one of the other
// three variants so that re-encoding is lossless.
type Implied struct {
	OpCode    uint8
	Condition uint8
}

// Immediate instructions apply a 16 bit value to a register.
type Immediate struct {
	OpCode          uint8
	Register        uint8
	Value           uint16
	Condition       uint8
	AdditionalFlags uint8 // 2 bits, address register pair or SR source
}

// ShortImmediate instructions trade 8 bits of value for a shift definition.
type ShortImmediate struct {
	OpCode          uint8
	Register        uint8
	Value           uint8
	ShiftOperand    uint8
	ShiftType       uint8
	ShiftCount      uint8
	Condition       uint8
	AdditionalFlags uint8
}

// Register instructions operate on up to three registers plus a shift.
type Register struct {
	OpCode          uint8
	R1              uint8
	R2              uint8
	R3              uint8
	ShiftOperand    uint8
	ShiftType       uint8
	ShiftCount      uint8
	Condition       uint8
	AdditionalFlags uint8
}

// Instruction is the tagged union over the four encodings. Exactly one of
// the variant pointers is non-nil.
type Instruction struct {
	Implied        *Implied
	Immediate      *Immediate
	ShortImmediate *ShortImmediate
	Register       *Register
}

// Family reports which variant an instruction record holds.
func (in Instruction) Family() Family {
	switch {
	case in.Immediate != nil:
		return FamilyImmediate
	case in.ShortImmediate != nil:
		return FamilyShortImmediate
	case in.Register != nil:
		return FamilyRegister
	default:
		return FamilyImplied
	}
}

// OpCode returns the 6 bit opcode regardless of variant.
func (in Instruction) OpCode() uint8 {
	switch {
	case in.Immediate != nil:
		return in.Immediate.OpCode
	case in.ShortImmediate != nil:
		return in.ShortImmediate.OpCode
	case in.Register != nil:
		return in.Register.OpCode
	default:
		return in.Implied.OpCode
	}
}

// Condition returns the condition code regardless of variant.
func (in Instruction) Condition() uint8 {
	switch {
	case in.Immediate != nil:
		return in.Immediate.Condition
	case in.ShortImmediate != nil:
		return in.ShortImmediate.Condition
	case in.Register != nil:
		return in.Register.Condition
	default:
		return in.Implied.Condition
	}
}
