/*
   SIRC decode/register-fetch stage.

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

func isShortBranchFamily(op uint8) bool {
	switch op {
	case inst.OpBranchShortImmediate, inst.OpBranchToSubroutineShort,
		inst.OpShortJumpShortImmediate, inst.OpShortJumpToSubroutineShort:
		return true
	}
	return false
}

// evalCondition evaluates a condition code against the current status
// register flags.
func (c *CPU) evalCondition(cond uint8) bool {
	z := c.reg.FlagSet(FlagZero)
	n := c.reg.FlagSet(FlagNegative)
	cy := c.reg.FlagSet(FlagCarry)
	v := c.reg.FlagSet(FlagOverflow)

	switch cond & 0xF {
	case inst.CondAlways:
		return true
	case inst.CondEqual:
		return z
	case inst.CondNotEqual:
		return !z
	case inst.CondCarrySet:
		return cy
	case inst.CondCarryClear:
		return !cy
	case inst.CondNegativeSet:
		return n
	case inst.CondNegativeClear:
		return !n
	case inst.CondOverflowSet:
		return v
	case inst.CondOverflowClear:
		return !v
	case inst.CondUnsignedHigher:
		return cy && !z
	case inst.CondUnsignedLowerOrSame:
		return !cy || z
	case inst.CondGreaterOrEqual:
		return n == v
	case inst.CondLessThan:
		return n != v
	case inst.CondGreaterThan:
		return !z && n == v
	case inst.CondLessThanOrEqual:
		return z || n != v
	default:
		return false
	}
}

// doShift resolves the shift count (immediate or register sourced) and runs
// the shifter.
func (c *CPU) doShift(operand uint16, shiftOperand, kind, count uint8) (uint16, uint16) {
	if shiftOperand == inst.ShiftOperandRegister {
		return performShift(operand, kind, c.reg.GetChecked(count))
	}
	return performShift(operand, kind, uint16(count))
}

// decodeAndRegisterFetch decodes all three encoding views of a word in
// parallel the way the hardware does, picks the relevant fields by opcode
// range, and fetches the referenced registers into the stage scratchpad.
// The irrelevant fields deliberately carry whatever bits the word had, so
// that the simulation does not accidentally depend on values the hardware
// would leave as garbage.
func (c *CPU) decodeAndRegisterFetch(raw [4]byte) stepInfo {
	immView := inst.DecodeImmediateView(raw)
	shortView := inst.DecodeShortImmediateView(raw)
	regView := inst.DecodeRegisterView(raw)

	op := immView.OpCode
	var d stepInfo
	d.ins = op
	d.des = immView.Register
	d.srA = regView.R2
	d.srB = regView.R3
	d.con = immView.Condition
	d.adr = immView.AdditionalFlags
	d.adH, d.adL = pairIndexes(d.adr)
	d.desAdH, d.desAdL = pairIndexes(d.des)
	d.srSrc = immView.AdditionalFlags & 0x3

	switch op {
	case inst.OpLoadIndirectImmediatePostInc, inst.OpLoadIndirectRegisterPostInc:
		d.addrInc = 1
	case inst.OpStoreIndirectImmediatePreDec, inst.OpStoreIndirectRegisterPreDec:
		d.addrInc = -1
	}

	d.shiftOperand = regView.ShiftOperand
	d.shiftType = regView.ShiftType
	d.shiftCount = regView.ShiftCount

	d.desVal = c.reg.GetChecked(d.des)

	switch {
	case op <= 0x0F || op&0x30 == 0x10 && op&1 == 0:
		// Long immediate view: no shifter in the datapath.
		d.srAVal = d.desVal
		d.srBVal = immView.Value
	case op >= 0x20 && op <= 0x2F:
		if isShortBranchFamily(op) {
			// The shifter extends the reach of short branch
			// displacements.
			d.srAVal = d.desVal
			d.srBVal, d.srShift = c.doShift(uint16(shortView.Value),
				d.shiftOperand, d.shiftType, d.shiftCount)
		} else {
			d.srAVal, d.srShift = c.doShift(d.desVal,
				d.shiftOperand, d.shiftType, d.shiftCount)
			d.srBVal = uint16(shortView.Value)
		}
	default:
		// Register views, including the odd half of the mixed range.
		d.srAVal, d.srShift = c.doShift(c.reg.GetChecked(d.srA),
			d.shiftOperand, d.shiftType, d.shiftCount)
		d.srBVal = c.reg.GetChecked(d.srB)
	}

	d.adLVal = c.reg.Get(d.adL)
	d.adHVal = c.reg.Get(d.adH)
	d.conOK = c.evalCondition(d.con)

	d.npcL = c.reg.Get(inst.RegPl) + inst.SizeWords
	d.npcOverflow = d.npcL < c.reg.Get(inst.RegPl)
	d.npcH = c.reg.Get(inst.RegPh)
	return d
}
