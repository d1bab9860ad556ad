/*
   SIRC execution stages: effective address / ALU, memory access and branch
   completion, write back.

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

func executionClass(op uint8) int {
	switch {
	case op <= 0x0A || op >= 0x20 && op <= 0x2A || op >= 0x30 && op <= 0x3A:
		return exAlu
	case op == inst.OpBranchImmediate || op == inst.OpBranchToSubroutine ||
		op == inst.OpBranchShortImmediate || op == inst.OpBranchToSubroutineShort:
		return exBranch
	case op == inst.OpShortJumpImmediate || op == inst.OpShortJumpToSubroutine ||
		op == inst.OpShortJumpShortImmediate || op == inst.OpShortJumpToSubroutineShort:
		return exShortJump
	case op == inst.OpCoprocessorCallImmediate || op == inst.OpCoprocessorCallShortImmediate ||
		op == inst.OpCoprocessorCallRegister:
		return exCoprocessorValue
	case op >= 0x10 && op <= 0x1D:
		return exMemoryRef
	default:
		return exNoOp
	}
}

// aluOpFor maps an ALU range opcode to the ALU operation. The simulate
// variants reuse subtract, and, xor with the result discarded.
func aluOpFor(op uint8) (aluOp uint8, simulate bool) {
	switch low := op & 0xF; low {
	case 0x8: // Compare
		return AluSubtract, true
	case 0x9: // Test and
		return AluAnd, true
	case 0xA: // Test xor
		return AluXor, true
	default:
		return low & 0x7, false
	}
}

func writeBackClass(op uint8, conOK bool) int {
	if !conOK {
		return wbNoOp
	}
	switch {
	case op <= 0x07 || op >= 0x20 && op <= 0x27 || op >= 0x30 && op <= 0x37:
		return wbAluToRegister
	case op <= 0x0A || op >= 0x28 && op <= 0x2A || op >= 0x38 && op <= 0x3A:
		return wbAluStatusOnly
	case op == inst.OpCoprocessorCallImmediate || op == inst.OpCoprocessorCallShortImmediate ||
		op == inst.OpCoprocessorCallRegister:
		return wbCoprocessorCall
	case op == inst.OpStoreIndirectImmediatePreDec || op == inst.OpStoreIndirectRegisterPreDec:
		return wbAddressWriteStorePreDec
	case op == inst.OpLoadIndirectImmediate || op == inst.OpLoadIndirectRegister:
		return wbMemoryLoad
	case op == inst.OpLoadIndirectImmediatePostInc || op == inst.OpLoadIndirectRegisterPostInc:
		return wbAddressWriteLoadPostInc
	case op >= inst.OpLoadEffectiveAddressImmediate && op <= inst.OpLongJumpToSubroutineRegister:
		return wbAddressWrite
	default:
		return wbNoOp
	}
}

// executeEffectiveAddress is stage three: effective address arithmetic for
// the memory reference class, the ALU operation for the ALU class, and the
// branch target addition.
func (c *CPU) executeEffectiveAddress(d *stepInfo, inter *intermediate) {
	switch executionClass(d.ins) {
	case exAlu:
		aluOp, simulate := aluOpFor(d.ins)
		performAluOperation(aluOp, simulate,
			d.srAVal, d.srBVal, c.reg.SR(), inter)

	case exMemoryRef:
		ea := d.adLVal + d.srBVal
		carried := ea < d.adLVal
		if d.addrInc < 0 {
			// Pre-decrement happens before the access.
			if ea == 0 {
				carried = true
			}
			ea--
		}
		inter.aluOutput = ea
		inter.addressOutput = ea
		if d.addrInc > 0 {
			inter.addressOutput = ea + 1
		}
		if carried && c.reg.FlagSet(FlagTrapOnAddressOverflow) && d.conOK {
			c.raiseFault(FaultSegmentOverflow, c.reg.FullPC())
		}

	case exBranch:
		// Branch targets are PC relative in the low half only.
		performAluOperation(AluAdd, false,
			c.reg.Get(inst.RegPl), d.srBVal, c.reg.SR(), inter)

	case exShortJump:
		// Short jumps are absolute within the current segment.
		performAluOperation(AluLoad, false,
			d.srAVal, d.srBVal, c.reg.SR(), inter)

	case exCoprocessorValue:
		performAluOperation(AluLoad, false,
			d.srAVal, d.srBVal, c.reg.SR(), inter)
	}
}

// executeMemory is stage four: assert the effective address on the bus for
// the load/store classes, and complete branches by committing the program
// counter.
func (c *CPU) executeMemory(d *stepInfo, inter *intermediate) {
	// Sequential advance first; a taken branch overwrites it below.
	c.reg.Set(inst.RegPl, d.npcL)
	c.reg.Set(inst.RegPh, d.npcH)

	if !d.conOK {
		return
	}

	switch d.ins {
	case inst.OpLoadIndirectImmediate, inst.OpLoadIndirectRegister,
		inst.OpLoadIndirectImmediatePostInc, inst.OpLoadIndirectRegisterPostInc:
		inter.lmd = c.bus.ReadAddress(ToFullAddress(d.adHVal, inter.aluOutput))

	case inst.OpStoreIndirectImmediate, inst.OpStoreIndirectRegister,
		inst.OpStoreIndirectImmediatePreDec, inst.OpStoreIndirectRegisterPreDec:
		c.bus.WriteAddress(ToFullAddress(d.adHVal, inter.aluOutput), d.srAVal)

	case inst.OpBranchImmediate, inst.OpBranchShortImmediate,
		inst.OpShortJumpImmediate, inst.OpShortJumpShortImmediate:
		c.reg.Set(inst.RegPl, inter.aluOutput)

	case inst.OpBranchToSubroutine, inst.OpBranchToSubroutineShort,
		inst.OpShortJumpToSubroutine, inst.OpShortJumpToSubroutineShort:
		// Subroutine calls stash the return address in the link pair.
		c.reg.Set(inst.RegLh, d.npcH)
		c.reg.Set(inst.RegLl, d.npcL)
		c.reg.Set(inst.RegPl, inter.aluOutput)

	case inst.OpLongJumpToSubroutineImmediate, inst.OpLongJumpToSubroutineRegister:
		c.reg.Set(inst.RegLh, d.npcH)
		c.reg.Set(inst.RegLl, d.npcL)

	case inst.OpReturnFromSubroutine:
		c.reg.Set(inst.RegPh, c.reg.Get(inst.RegLh))
		c.reg.Set(inst.RegPl, c.reg.Get(inst.RegLl))
	}
}

// updateStatusFlags routes an SR update through the privileged mask for the
// selected source.
func (c *CPU) updateStatusFlags(d *stepInfo, inter *intermediate) {
	switch d.srSrc {
	case inst.SrSourceAlu:
		c.reg.SetSR((c.reg.SR() & PMASK) | (inter.aluStatus & LMASK))
	case inst.SrSourceShift:
		c.reg.SetSR((c.reg.SR() & PMASK) | (d.srShift & LMASK))
	}
}

// executeWriteBack is stage five: commit registers by write back class.
func (c *CPU) executeWriteBack(d *stepInfo, inter *intermediate) {
	switch writeBackClass(d.ins, d.conOK) {
	case wbNoOp:

	case wbAluToRegister:
		c.reg.SetChecked(d.des, inter.aluOutput)
		c.updateStatusFlags(d, inter)

	case wbAluStatusOnly:
		c.updateStatusFlags(d, inter)

	case wbMemoryLoad:
		// Loads shift the bus data and never update the status register.
		shifted, _ := c.doShift(inter.lmd, d.shiftOperand, d.shiftType, d.shiftCount)
		c.reg.SetChecked(d.des, shifted)

	case wbAddressWriteLoadPostInc:
		shifted, _ := c.doShift(inter.lmd, d.shiftOperand, d.shiftType, d.shiftCount)
		c.reg.SetChecked(d.des, shifted)
		c.reg.Set(d.adH, d.adHVal)
		c.reg.Set(d.adL, inter.addressOutput)

	case wbAddressWriteStorePreDec:
		c.reg.Set(d.adH, d.adHVal)
		c.reg.Set(d.adL, inter.addressOutput)

	case wbAddressWrite:
		c.reg.Set(d.desAdH, d.adHVal)
		c.reg.Set(d.desAdL, inter.addressOutput)

	case wbCoprocessorCall:
		c.reg.PendingCop = inter.aluOutput
	}
}
