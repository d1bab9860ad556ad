/*
   SIRC disassembler: renders instruction records back to assembly syntax
   for the monitor and debug output.

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

import (
	"fmt"
	"strings"
)

func condSuffix(cond uint8) string {
	name := ConditionNames[cond&0xF]
	if name == "" {
		return ""
	}
	return "|" + name
}

func shiftSuffix(operand, kind, count uint8) string {
	if kind == ShiftNone && count == 0 && operand == ShiftOperandImmediate {
		return ""
	}
	if operand == ShiftOperandRegister {
		return fmt.Sprintf(", %s %s", ShiftNames[kind&7], RegisterNames[count&0xF])
	}
	return fmt.Sprintf(", %s #%d", ShiftNames[kind&7], count)
}

func indirect(displacement string, addrReg uint8, op uint8) string {
	base := fmt.Sprintf("(%s, %s)", displacement, AddressRegisterNames[addrReg&3])
	switch op {
	case OpStoreIndirectImmediatePreDec, OpStoreIndirectRegisterPreDec:
		return "-" + base
	case OpLoadIndirectImmediatePostInc, OpLoadIndirectRegisterPostInc:
		return base + "+"
	}
	return base
}

// Disassemble renders one instruction record as assembly text. The output
// re-assembles to the same word for every architecturally defined opcode.
func Disassemble(in Instruction) string {
	op := in.OpCode()
	mn := Mnemonics[op] + condSuffix(in.Condition())

	var b strings.Builder
	b.WriteString(mn)

	switch {
	case in.Immediate != nil:
		d := in.Immediate
		switch {
		case op <= 0x0F:
			switch op {
			case OpBranchImmediate, OpBranchToSubroutine, OpShortJumpImmediate, OpShortJumpToSubroutine:
				fmt.Fprintf(&b, " #0x%04X", d.Value)
			default:
				fmt.Fprintf(&b, " %s, #0x%04X", RegisterNames[d.Register], d.Value)
			}
		case op == OpStoreIndirectImmediate || op == OpStoreIndirectImmediatePreDec:
			fmt.Fprintf(&b, " %s, %s",
				indirect(fmt.Sprintf("#0x%04X", d.Value), d.AdditionalFlags, op),
				RegisterNames[d.Register])
		case op == OpLongJumpImmediate || op == OpLongJumpToSubroutineImmediate:
			fmt.Fprintf(&b, " %s",
				indirect(fmt.Sprintf("#0x%04X", d.Value), d.AdditionalFlags, op))
		default:
			fmt.Fprintf(&b, " %s, %s", RegisterNames[d.Register],
				indirect(fmt.Sprintf("#0x%04X", d.Value), d.AdditionalFlags, op))
		}
	case in.ShortImmediate != nil:
		d := in.ShortImmediate
		switch op {
		case OpBranchShortImmediate, OpBranchToSubroutineShort, OpShortJumpShortImmediate, OpShortJumpToSubroutineShort:
			fmt.Fprintf(&b, " #0x%02X", d.Value)
		default:
			fmt.Fprintf(&b, " %s, #0x%02X", RegisterNames[d.Register], d.Value)
		}
		b.WriteString(shiftSuffix(d.ShiftOperand, d.ShiftType, d.ShiftCount))
	case in.Register != nil:
		d := in.Register
		switch op {
		case OpReturnFromSubroutine, OpNoOperation, OpUndocumented0x3D, OpUndocumented0x3E:
			// No operands.
		case OpStoreIndirectRegister, OpStoreIndirectRegisterPreDec:
			fmt.Fprintf(&b, " %s, %s",
				indirect(RegisterNames[d.R3], d.AdditionalFlags, op), RegisterNames[d.R2])
		case OpLoadIndirectRegister, OpLoadIndirectRegisterPostInc,
			OpLoadEffectiveAddressRegister:
			fmt.Fprintf(&b, " %s, %s", RegisterNames[d.R1],
				indirect(RegisterNames[d.R3], d.AdditionalFlags, op))
			b.WriteString(shiftSuffix(d.ShiftOperand, d.ShiftType, d.ShiftCount))
		case OpLongJumpRegister, OpLongJumpToSubroutineRegister:
			fmt.Fprintf(&b, " %s", indirect(RegisterNames[d.R3], d.AdditionalFlags, op))
		default:
			fmt.Fprintf(&b, " %s, %s, %s",
				RegisterNames[d.R1], RegisterNames[d.R2], RegisterNames[d.R3])
			b.WriteString(shiftSuffix(d.ShiftOperand, d.ShiftType, d.ShiftCount))
		}
	default:
		// Implied records carry no operands.
	}
	return b.String()
}
