/*
   SIRC assembler instruction builders: map mnemonics plus addressing modes
   onto encoded instruction records.

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

package asm

import (
	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
	"github.com/NoxHarmonium/sirc-sub000/obj"
)

// ALU operation index within each encoding family.
var aluIndex = map[string]uint8{
	"ADDI": 0x0, "ADDR": 0x0,
	"ADCI": 0x1, "ADCR": 0x1,
	"SUBI": 0x2, "SUBR": 0x2,
	"SBCI": 0x3, "SBCR": 0x3,
	"ANDI": 0x4, "ANDR": 0x4,
	"ORRI": 0x5, "ORRR": 0x5,
	"XORI": 0x6, "XORR": 0x6,
	"CMPI": 0x8, "CMPR": 0x8,
	"TSAI": 0x9, "TSAR": 0x9,
	"TSXI": 0xA, "TSXR": 0xA,
}

var branchOpcodes = map[string]uint8{
	"BRAN": inst.OpBranchImmediate,
	"BRSR": inst.OpBranchToSubroutine,
	"SJMP": inst.OpShortJumpImmediate,
	"SJSR": inst.OpShortJumpToSubroutine,
}

func isBranchMnemonic(m string) bool {
	_, ok := branchOpcodes[m]
	return ok
}

// refKindForContext resolves an implied relocation kind: branches take PC
// relative offsets, everything else the low word of the absolute address.
func refKindForContext(ref *RefToken, branch bool) *RefToken {
	if ref == nil || ref.Kind != obj.RefImplied {
		return ref
	}
	resolved := *ref
	if branch {
		resolved.Kind = obj.RefOffset
	} else {
		resolved.Kind = obj.RefLowerWord
	}
	return &resolved
}

// immediateOperandToken builds a long immediate instruction token for an
// operand that may be a literal, symbol reference or placeholder.
func (p *parser) immediateOperandToken(op uint8, register uint8, payload immediatePayload,
	cond uint8, flags uint8, branch bool) (*Token, error) {
	token := &Token{Kind: TokenInstruction}
	value := uint16(0)
	switch {
	case payload.ref != nil:
		token.SymbolRef = refKindForContext(payload.ref, branch)
	case payload.placeholder != "":
		token.Placeholder = payload.placeholder
	default:
		if !fitsField(payload.value, 16) {
			return nil, p.errorf("value %#x does not fit a 16 bit field", payload.value)
		}
		value = uint16(payload.value)
	}
	token.Instruction = inst.Instruction{Immediate: &inst.Immediate{
		OpCode:          op,
		Register:        register,
		Value:           value,
		Condition:       cond,
		AdditionalFlags: flags,
	}}
	return token, nil
}

func (p *parser) shortImmediateToken(op uint8, register uint8, payload immediatePayload,
	shift operand, cond uint8, flags uint8) (*Token, error) {
	if payload.ref != nil || payload.placeholder != "" {
		return nil, p.errorf("symbol references need the long immediate form (drop the shift)")
	}
	if !fitsField(payload.value, 8) {
		return nil, p.errorf("value %#x does not fit the 8 bit short immediate field", payload.value)
	}
	shiftOperand := inst.ShiftOperandImmediate
	if shift.shiftIsReg {
		shiftOperand = inst.ShiftOperandRegister
	}
	return &Token{Kind: TokenInstruction, Instruction: inst.Instruction{
		ShortImmediate: &inst.ShortImmediate{
			OpCode:          op,
			Register:        register,
			Value:           uint8(payload.value),
			ShiftOperand:    shiftOperand,
			ShiftType:       shift.shiftType,
			ShiftCount:      shift.shiftCount,
			Condition:       cond,
			AdditionalFlags: flags,
		}}}, nil
}

func registerToken(op uint8, r1, r2, r3 uint8, shift operand, cond uint8, flags uint8) *Token {
	shiftOperand := inst.ShiftOperandImmediate
	if shift.shiftIsReg {
		shiftOperand = inst.ShiftOperandRegister
	}
	return &Token{Kind: TokenInstruction, Instruction: inst.Instruction{
		Register: &inst.Register{
			OpCode:          op,
			R1:              r1,
			R2:              r2,
			R3:              r3,
			ShiftOperand:    shiftOperand,
			ShiftType:       shift.shiftType,
			ShiftCount:      shift.shiftCount,
			Condition:       cond,
			AdditionalFlags: flags,
		}}}
}

func impliedToken(op uint8, cond uint8) *Token {
	return &Token{Kind: TokenInstruction, Instruction: inst.Instruction{
		Implied: &inst.Implied{OpCode: op, Condition: cond}}}
}

func copiToken(value uint16, cond uint8) *Token {
	return &Token{Kind: TokenInstruction, Instruction: inst.Instruction{
		Immediate: &inst.Immediate{
			OpCode:    inst.OpCoprocessorCallImmediate,
			Value:     value,
			Condition: cond,
		}}}
}

// buildInstruction dispatches a parsed mnemonic and operand list to the
// matching encoder.
func (p *parser) buildInstruction(mnemonic string, cond uint8, ops []operand) (*Token, error) {
	switch mnemonic {
	case "NOOP":
		return impliedToken(inst.OpNoOperation, cond), nil
	case "RETS":
		return impliedToken(inst.OpReturnFromSubroutine, cond), nil
	case "WAIT":
		return copiToken(0x1900, cond), nil
	case "RETE":
		return copiToken(0x1A00, cond), nil
	case "RSET":
		return copiToken(0x1B00, cond), nil
	case "EXCP":
		return p.buildExcp(cond, ops)
	case "ETFR":
		return p.buildEtfr(cond, ops)
	case "ETTR":
		return p.buildEttr(cond, ops)
	case "SHFI":
		return p.buildShift(cond, ops)
	case "COPI":
		return p.buildCopi(cond, ops)
	case "LOAD":
		return p.buildLoad(cond, ops)
	case "STOR":
		return p.buildStore(cond, ops)
	case "LDEA":
		return p.buildLdea(cond, ops)
	case "LJMP":
		return p.buildLongJump(cond, ops, false)
	case "LJSR":
		return p.buildLongJump(cond, ops, true)
	}

	if isBranchMnemonic(mnemonic) {
		return p.buildBranch(mnemonic, cond, ops)
	}
	if _, ok := aluIndex[mnemonic]; ok {
		return p.buildAlu(mnemonic, cond, ops)
	}
	return nil, p.errorf("unknown mnemonic %q", mnemonic)
}

func (p *parser) buildAlu(mnemonic string, cond uint8, ops []operand) (*Token, error) {
	index := aluIndex[mnemonic]
	register := mnemonic[3] == 'R'

	if register {
		// XXXR rd, rs | XXXR rd, ra, rb, each with an optional shift.
		var shift operand
		if n := len(ops); n > 0 && ops[n-1].kind == opShift {
			shift = ops[n-1]
			ops = ops[:n-1]
		}
		switch {
		case len(ops) == 2 && ops[0].kind == opRegister && ops[1].kind == opRegister:
			return registerToken(0x30+index, ops[0].reg, ops[0].reg, ops[1].reg,
				shift, cond, inst.SrSourceAlu), nil
		case len(ops) == 3 && ops[0].kind == opRegister &&
			ops[1].kind == opRegister && ops[2].kind == opRegister:
			return registerToken(0x30+index, ops[0].reg, ops[1].reg, ops[2].reg,
				shift, cond, inst.SrSourceAlu), nil
		}
		return nil, p.errorf("%s expects two or three register operands", mnemonic)
	}

	// XXXI rd, #value with an optional shift (short immediate form).
	switch {
	case len(ops) == 2 && ops[0].kind == opRegister && ops[1].kind == opImmediate:
		return p.immediateOperandToken(index, ops[0].reg, ops[1].imm,
			cond, inst.SrSourceAlu, false)
	case len(ops) == 3 && ops[0].kind == opRegister && ops[1].kind == opImmediate &&
		ops[2].kind == opShift:
		return p.shortImmediateToken(0x20+index, ops[0].reg, ops[1].imm,
			ops[2], cond, inst.SrSourceAlu)
	}
	return nil, p.errorf("%s expects a register and an immediate", mnemonic)
}

// SHFI rd, <shift def>: encoded as a short immediate add of zero with the
// status register fed from the shifter.
func (p *parser) buildShift(cond uint8, ops []operand) (*Token, error) {
	if len(ops) != 2 || ops[0].kind != opRegister || ops[1].kind != opShift {
		return nil, p.suggestf("SHFI r1, LSL #3", "SHFI expects a register and a shift definition")
	}
	return p.shortImmediateToken(inst.OpAddShortImmediate, ops[0].reg,
		immediatePayload{}, ops[1], cond, inst.SrSourceShift)
}

func (p *parser) buildCopi(cond uint8, ops []operand) (*Token, error) {
	if len(ops) != 2 || ops[0].kind != opRegister || ops[1].kind != opImmediate {
		return nil, p.errorf("COPI expects a register and an immediate command word")
	}
	return p.immediateOperandToken(inst.OpCoprocessorCallImmediate, ops[0].reg,
		ops[1].imm, cond, 0, false)
}

func (p *parser) buildBranch(mnemonic string, cond uint8, ops []operand) (*Token, error) {
	op := branchOpcodes[mnemonic]
	switch {
	case len(ops) == 1 && ops[0].kind == opImmediate:
		return p.immediateOperandToken(op, 0, ops[0].imm, cond, 0, true)
	case len(ops) == 2 && ops[0].kind == opImmediate && ops[1].kind == opShift:
		// Short immediate form: the shifter extends the displacement.
		return p.shortImmediateToken(op+0x20, 0, ops[0].imm, ops[1], cond, 0)
	}
	return nil, p.errorf("%s expects an immediate displacement", mnemonic)
}

func (p *parser) buildExcp(cond uint8, ops []operand) (*Token, error) {
	if len(ops) != 1 || ops[0].kind != opImmediate {
		return nil, p.suggestf("EXCP #0x40", "EXCP expects an immediate vector number")
	}
	if ops[0].imm.ref != nil || ops[0].imm.placeholder != "" {
		return nil, p.errorf("EXCP does not support symbol refs or placeholders")
	}
	if ops[0].imm.value > 0x7F {
		return nil, p.errorf("EXCP vector %#x does not fit 7 bits", ops[0].imm.value)
	}
	return copiToken(0x1100|uint16(ops[0].imm.value), cond), nil
}

func (p *parser) linkRegisterField(op operand) (uint16, error) {
	if op.kind != opImmediate || op.imm.ref != nil || op.imm.placeholder != "" {
		return 0, p.errorf("expected an immediate link register index")
	}
	if op.imm.value > 0xF {
		return 0, p.errorf("link register index %#x does not fit 4 bits", op.imm.value)
	}
	return uint16(op.imm.value), nil
}

func (p *parser) buildEtfr(cond uint8, ops []operand) (*Token, error) {
	switch {
	case len(ops) == 1:
		lr, err := p.linkRegisterField(ops[0])
		if err != nil {
			return nil, err
		}
		return copiToken(0x1C30|lr, cond), nil
	case len(ops) == 2 && ops[0].kind == opRegister:
		if ops[0].reg != inst.RegR7 {
			return nil, p.suggestf("ETFR r7, #n",
				"the saved status register can only be transferred to r7")
		}
		lr, err := p.linkRegisterField(ops[1])
		if err != nil {
			return nil, err
		}
		return copiToken(0x1C20|lr, cond), nil
	case len(ops) == 2 && ops[0].kind == opAddressRegister:
		if ops[0].pair != inst.AddrRegAddress {
			return nil, p.suggestf("ETFR a, #n",
				"the return address can only be transferred to a")
		}
		lr, err := p.linkRegisterField(ops[1])
		if err != nil {
			return nil, err
		}
		return copiToken(0x1C10|lr, cond), nil
	}
	return nil, p.errorf("ETFR expects #n, r7, #n or a, #n")
}

func (p *parser) buildEttr(cond uint8, ops []operand) (*Token, error) {
	switch {
	case len(ops) == 1:
		lr, err := p.linkRegisterField(ops[0])
		if err != nil {
			return nil, err
		}
		return copiToken(0x1D30|lr, cond), nil
	case len(ops) == 2 && ops[1].kind == opRegister:
		if ops[1].reg != inst.RegR7 {
			return nil, p.suggestf("ETTR #n, r7",
				"the return status register can only be loaded from r7")
		}
		lr, err := p.linkRegisterField(ops[0])
		if err != nil {
			return nil, err
		}
		return copiToken(0x1D20|lr, cond), nil
	case len(ops) == 2 && ops[1].kind == opAddressRegister:
		if ops[1].pair != inst.AddrRegAddress {
			return nil, p.suggestf("ETTR #n, a",
				"the return address can only be loaded from a")
		}
		lr, err := p.linkRegisterField(ops[0])
		if err != nil {
			return nil, err
		}
		return copiToken(0x1D10|lr, cond), nil
	}
	return nil, p.errorf("ETTR expects #n, #n, r7 or #n, a")
}

func (p *parser) buildLoad(cond uint8, ops []operand) (*Token, error) {
	var shift operand
	if n := len(ops); n > 0 && ops[n-1].kind == opShift {
		shift = ops[n-1]
		ops = ops[:n-1]
	}
	if len(ops) != 2 || ops[0].kind != opRegister {
		return nil, p.errorf("LOAD expects a destination register first")
	}
	dest := ops[0].reg
	src := ops[1]

	switch src.kind {
	case opImmediate:
		if shift.kind == opShift {
			return p.shortImmediateToken(inst.OpLoadShortImmediate, dest,
				src.imm, shift, cond, inst.SrSourceAlu)
		}
		return p.immediateOperandToken(inst.OpLoadImmediate, dest, src.imm,
			cond, inst.SrSourceAlu, false)

	case opRegister:
		return registerToken(inst.OpLoadRegister, dest, 0, src.reg,
			shift, cond, inst.SrSourceAlu), nil

	case opIndirect:
		if src.preDec {
			return nil, p.errorf("LOAD does not support pre-decrement; use (…)+ post-increment")
		}
		if src.dispIsReg {
			op := inst.OpLoadIndirectRegister
			if src.postInc {
				op = inst.OpLoadIndirectRegisterPostInc
			}
			return registerToken(op, dest, 0, src.dispReg, shift, cond, src.pair), nil
		}
		op := inst.OpLoadIndirectImmediate
		if src.postInc {
			op = inst.OpLoadIndirectImmediatePostInc
		}
		if shift.kind == opShift {
			return nil, p.errorf("immediate displacement loads do not take a shift")
		}
		return p.immediateOperandToken(op, dest, src.imm, cond, src.pair, false)
	}
	return nil, p.errorf("unsupported LOAD source operand")
}

func (p *parser) buildStore(cond uint8, ops []operand) (*Token, error) {
	if len(ops) != 2 || ops[0].kind != opIndirect || ops[1].kind != opRegister {
		return nil, p.suggestf("STOR (#0, a), r1",
			"STOR expects an indirect destination then a source register")
	}
	dst := ops[0]
	src := ops[1].reg
	if dst.postInc {
		return nil, p.errorf("STOR does not support post-increment; use -(…) pre-decrement")
	}

	if dst.dispIsReg {
		op := inst.OpStoreIndirectRegister
		if dst.preDec {
			op = inst.OpStoreIndirectRegisterPreDec
		}
		return registerToken(op, 0, src, dst.dispReg, operand{}, cond, dst.pair), nil
	}
	op := inst.OpStoreIndirectImmediate
	if dst.preDec {
		op = inst.OpStoreIndirectImmediatePreDec
	}
	return p.immediateOperandToken(op, src, dst.imm, cond, dst.pair, false)
}

func (p *parser) buildLdea(cond uint8, ops []operand) (*Token, error) {
	if len(ops) != 2 || ops[0].kind != opAddressRegister || ops[1].kind != opIndirect {
		return nil, p.suggestf("LDEA s, (#0x20, a)",
			"LDEA expects an address register destination and an indirect source")
	}
	dest := ops[0].pair
	src := ops[1]
	if src.preDec || src.postInc {
		return nil, p.errorf("LDEA does not support increment modes")
	}
	if src.dispIsReg {
		return registerToken(inst.OpLoadEffectiveAddressRegister, dest, 0,
			src.dispReg, operand{}, cond, src.pair), nil
	}
	return p.immediateOperandToken(inst.OpLoadEffectiveAddressImmediate, dest,
		src.imm, cond, src.pair, false)
}

func (p *parser) buildLongJump(cond uint8, ops []operand, subroutine bool) (*Token, error) {
	name := "LJMP"
	if subroutine {
		name = "LJSR"
	}
	if len(ops) != 1 {
		return nil, p.errorf("%s expects one operand", name)
	}

	immOp := inst.OpLongJumpImmediate
	regOp := inst.OpLongJumpRegister
	if subroutine {
		immOp = inst.OpLongJumpToSubroutineImmediate
		regOp = inst.OpLongJumpToSubroutineRegister
	}

	switch src := ops[0]; src.kind {
	case opAddressRegister:
		// A bare address register is a zero displacement jump.
		return p.immediateOperandToken(immOp, inst.AddrRegProgramCounter,
			immediatePayload{}, cond, src.pair, false)
	case opIndirect:
		if src.preDec || src.postInc {
			return nil, p.errorf("%s does not support increment modes", name)
		}
		if src.dispIsReg {
			return registerToken(regOp, inst.AddrRegProgramCounter, 0,
				src.dispReg, operand{}, cond, src.pair), nil
		}
		return p.immediateOperandToken(immOp, inst.AddrRegProgramCounter,
			src.imm, cond, src.pair, false)
	}
	return nil, p.suggestf(name+" a", "%s expects an address register or indirect operand", name)
}
