/*
   SIRC ALU: arithmetic, logic and flag derivation.

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

package cpu

// ALU operations. The low three bits of an ALU range opcode select the
// operation; the simulate variants (compare, test-and, test-xor) reuse
// subtract, and, xor with the result discarded.
const (
	AluAdd uint8 = iota
	AluAddWithCarry
	AluSubtract
	AluSubtractWithCarry
	AluAnd
	AluOr
	AluXor
	AluLoad
)

func negative(value uint16) bool {
	return value&0x8000 != 0
}

// setAluBits derives the zero/negative/carry flags for a result, plus the
// signed overflow flag when the operand pair is supplied. For addition the
// overflow rule is: same input signs, different result sign. Subtraction
// passes the complemented second operand.
func setAluBits(sr *uint16, value uint16, carry bool, a, b uint16, checkOverflow bool) {
	flags := *sr &^ (FlagZero | FlagNegative | FlagCarry | FlagOverflow)
	if value == 0 {
		flags |= FlagZero
	}
	if negative(value) {
		flags |= FlagNegative
	}
	if carry {
		flags |= FlagCarry
	}
	if checkOverflow && negative(a) == negative(b) && negative(value) != negative(a) {
		flags |= FlagOverflow
	}
	*sr = flags
}

func performAdd(a, b uint16, inter *intermediate) {
	result := a + b
	carry := result < a
	setAluBits(&inter.aluStatus, result, carry, a, b, true)
	inter.aluOutput = result
}

func performAddWithCarry(a, b, sr uint16, inter *intermediate) {
	carryIn := uint16(0)
	if sr&FlagCarry != 0 {
		carryIn = 1
	}
	r1 := a + b
	c1 := r1 < a
	r2 := r1 + carryIn
	c2 := r2 < r1
	setAluBits(&inter.aluStatus, r2, c1 || c2, a, b, true)
	inter.aluOutput = r2
}

func performSubtract(a, b uint16, inter *intermediate) {
	result := a - b
	borrow := a < b
	// The ones complement of b is used for the overflow calculation
	// because this is a subtraction.
	setAluBits(&inter.aluStatus, result, borrow, a, ^b, true)
	inter.aluOutput = result
}

func performSubtractWithCarry(a, b, sr uint16, inter *intermediate) {
	borrowIn := uint16(0)
	if sr&FlagCarry != 0 {
		borrowIn = 1
	}
	r1 := a - b
	c1 := a < b
	r2 := r1 - borrowIn
	c2 := r1 < borrowIn
	setAluBits(&inter.aluStatus, r2, c1 || c2, a, ^b, true)
	inter.aluOutput = r2
}

func performLogic(op uint8, a, b uint16, inter *intermediate) {
	var result uint16
	switch op {
	case AluAnd:
		result = a & b
	case AluOr:
		result = a | b
	case AluXor:
		result = a ^ b
	case AluLoad:
		result = b
	}
	setAluBits(&inter.aluStatus, result, false, a, b, true)
	inter.aluOutput = result
}

// performAluOperation runs one ALU op over the scratchpad. When simulate is
// set the result is discarded and only the status flags survive.
func performAluOperation(op uint8, simulate bool, a, b, sr uint16, inter *intermediate) {
	switch op & 0x7 {
	case AluAdd:
		performAdd(a, b, inter)
	case AluAddWithCarry:
		performAddWithCarry(a, b, sr, inter)
	case AluSubtract:
		performSubtract(a, b, inter)
	case AluSubtractWithCarry:
		performSubtractWithCarry(a, b, sr, inter)
	default:
		performLogic(op&0x7, a, b, inter)
	}
	if simulate {
		inter.aluOutput = 0
	}
}
