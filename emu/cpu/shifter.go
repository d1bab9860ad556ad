/*
   SIRC barrel shifter. Applied to operand A during decode/register fetch,
   and to bus data when a load commits.

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

import "github.com/NoxHarmonium/sirc-sub000/emu/inst"

func clampShiftCount(count uint16) uint16 {
	if count > 16 {
		return 16
	}
	return count
}

func setShiftBits(sr *uint16, value uint16, carry bool, overflow bool) {
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
	if overflow {
		flags |= FlagOverflow
	}
	*sr = flags
}

// performShift applies a shift of the given kind and count to a 16 bit
// operand, returning the result and the derived status flags. The count is
// clamped to [0, 16].
func performShift(operand uint16, kind uint8, count uint16) (uint16, uint16) {
	count = clampShiftCount(count)
	var status uint16
	switch kind {
	case inst.ShiftNone:
		// Identity; flags derive from the operand with no carry change.
		setShiftBits(&status, operand, false, false)
		return operand, status

	case inst.ShiftReserved:
		// Identity, but the status flags are left untouched.
		return operand, status

	case inst.ShiftLogicalLeft, inst.ShiftArithmeticLeft:
		wide := uint32(operand) << count
		result := uint16(wide)
		// The last bit shifted out lands in bit 16 of the wide result.
		carry := count > 0 && wide&0x10000 != 0
		// Arithmetic left additionally reports a sign change as overflow.
		overflow := kind == inst.ShiftArithmeticLeft && negative(result) != negative(operand)
		setShiftBits(&status, result, carry, overflow)
		return result, status

	case inst.ShiftLogicalRight:
		result := operand >> count
		if count >= 16 {
			result = 0
		}
		carry := count > 0 && count <= 16 && (operand>>(count-1))&1 != 0
		setShiftBits(&status, result, carry, false)
		return result, status

	case inst.ShiftArithmeticRight:
		// Preserve the sign bit while shifting.
		signed := int32(int16(operand))
		c := count
		if c > 15 {
			c = 15
		}
		result := uint16(signed >> c)
		carry := count > 0 && (operand>>(count-1))&1 != 0
		if count > 16 {
			carry = negative(operand)
		}
		setShiftBits(&status, result, carry, false)
		return result, status

	case inst.ShiftRotateLeft:
		c := count & 15
		result := operand<<c | operand>>(16-c)
		if c == 0 {
			result = operand
		}
		// The bit rotated into the low end goes to carry, even for a
		// rotation by zero.
		carry := result&1 != 0
		setShiftBits(&status, result, carry, false)
		return result, status

	case inst.ShiftRotateRight:
		c := count & 15
		result := operand>>c | operand<<(16-c)
		if c == 0 {
			result = operand
		}
		// The bit rotated into the high end goes to carry, even for a
		// rotation by zero.
		carry := result&0x8000 != 0
		setShiftBits(&status, result, carry, false)
		return result, status
	}
	setShiftBits(&status, operand, false, false)
	return operand, status
}
