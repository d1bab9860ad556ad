/*
   SIRC instruction codec tests.

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
	"encoding/binary"
	"math/rand"
	"testing"
)

// Every 32 bit pattern must decode, and re-encoding must give back the
// original word.
func TestEncodeDecodeIdentityOnWords(t *testing.T) {
	rng := rand.New(rand.NewSource(0x51AC))
	for i := 0; i < 100000; i++ {
		var raw [4]byte
		binary.BigEndian.PutUint32(raw[:], rng.Uint32())
		decoded := Decode(raw)
		encoded := Encode(decoded)
		if encoded != raw {
			t.Fatalf("round trip failed for %02x: decoded %+v encoded %02x",
				raw, decoded, encoded)
		}
	}

	// Every opcode with all-ones operand bits.
	for op := 0; op < 64; op++ {
		word := (uint32(op) << 26) | 0x03FFFFFF
		var raw [4]byte
		binary.BigEndian.PutUint32(raw[:], word)
		if got := Encode(Decode(raw)); got != raw {
			t.Errorf("opcode %02x: round trip %02x != %02x", op, got, raw)
		}
	}
}

// Well formed records must survive encode then decode.
func TestDecodeEncodeIdentityOnRecords(t *testing.T) {
	rng := rand.New(rand.NewSource(0xC0DE))

	immediateOps := []uint8{
		OpAddImmediate, OpAddImmediateWithCarry, OpSubtractImmediate,
		OpSubtractImmediateWithCarry, OpAndImmediate, OpOrImmediate,
		OpXorImmediate, OpLoadImmediate, OpCompareImmediate,
		OpTestAndImmediate, OpTestXorImmediate, OpBranchImmediate,
		OpBranchToSubroutine, OpShortJumpImmediate, OpShortJumpToSubroutine,
		OpCoprocessorCallImmediate, OpStoreIndirectImmediate,
		OpStoreIndirectImmediatePreDec, OpLoadIndirectImmediate,
		OpLoadIndirectImmediatePostInc, OpLoadEffectiveAddressImmediate,
		OpLongJumpImmediate, OpLongJumpToSubroutineImmediate,
	}
	for i := 0; i < 2000; i++ {
		record := Instruction{Immediate: &Immediate{
			OpCode:          immediateOps[rng.Intn(len(immediateOps))],
			Register:        uint8(rng.Intn(16)),
			Value:           uint16(rng.Uint32()),
			Condition:       uint8(rng.Intn(16)),
			AdditionalFlags: uint8(rng.Intn(4)),
		}}
		got := Decode(Encode(record))
		if got.Immediate == nil || *got.Immediate != *record.Immediate {
			t.Fatalf("immediate round trip: %+v != %+v", got.Immediate, record.Immediate)
		}
	}

	shortOps := []uint8{
		OpAddShortImmediate, OpAddShortImmediateWithCarry,
		OpSubtractShortImmediate, OpSubtractShortImmediateWithCarry,
		OpAndShortImmediate, OpOrShortImmediate, OpXorShortImmediate,
		OpLoadShortImmediate, OpCompareShortImmediate, OpTestAndShortImmediate,
		OpTestXorShortImmediate, OpBranchShortImmediate,
		OpBranchToSubroutineShort, OpShortJumpShortImmediate,
		OpShortJumpToSubroutineShort, OpCoprocessorCallShortImmediate,
	}
	for i := 0; i < 2000; i++ {
		record := Instruction{ShortImmediate: &ShortImmediate{
			OpCode:          shortOps[rng.Intn(len(shortOps))],
			Register:        uint8(rng.Intn(16)),
			Value:           uint8(rng.Uint32()),
			ShiftOperand:    uint8(rng.Intn(2)),
			ShiftType:       uint8(rng.Intn(8)),
			ShiftCount:      uint8(rng.Intn(16)),
			Condition:       uint8(rng.Intn(16)),
			AdditionalFlags: uint8(rng.Intn(4)),
		}}
		got := Decode(Encode(record))
		if got.ShortImmediate == nil || *got.ShortImmediate != *record.ShortImmediate {
			t.Fatalf("short immediate round trip: %+v != %+v",
				got.ShortImmediate, record.ShortImmediate)
		}
	}

	registerOps := []uint8{
		OpAddRegister, OpAddRegisterWithCarry, OpSubtractRegister,
		OpSubtractRegisterWithCarry, OpAndRegister, OpOrRegister,
		OpXorRegister, OpLoadRegister, OpCompareRegister, OpTestAndRegister,
		OpTestXorRegister, OpReturnFromSubroutine, OpNoOperation,
		OpCoprocessorCallRegister, OpStoreIndirectRegister,
		OpStoreIndirectRegisterPreDec, OpLoadIndirectRegister,
		OpLoadIndirectRegisterPostInc, OpLoadEffectiveAddressRegister,
		OpLongJumpRegister, OpLongJumpToSubroutineRegister,
	}
	for i := 0; i < 2000; i++ {
		record := Instruction{Register: &Register{
			OpCode:          registerOps[rng.Intn(len(registerOps))],
			R1:              uint8(rng.Intn(16)),
			R2:              uint8(rng.Intn(16)),
			R3:              uint8(rng.Intn(16)),
			ShiftOperand:    uint8(rng.Intn(2)),
			ShiftType:       uint8(rng.Intn(8)),
			ShiftCount:      uint8(rng.Intn(16)),
			Condition:       uint8(rng.Intn(16)),
			AdditionalFlags: uint8(rng.Intn(4)),
		}}
		got := Decode(Encode(record))
		if got.Register == nil || *got.Register != *record.Register {
			t.Fatalf("register round trip: %+v != %+v", got.Register, record.Register)
		}
	}
}

func TestKnownEncodings(t *testing.T) {
	// BRAN #0xCAFE with register field 4, cond <<, flags 1.
	raw := Encode(Instruction{Immediate: &Immediate{
		OpCode:          OpBranchImmediate,
		Register:        0x4,
		Value:           0xCAFE,
		Condition:       CondLessThan,
		AdditionalFlags: 0x1,
	}})
	if raw != [4]byte{0x2D, 0x32, 0xBF, 0x9C} {
		t.Errorf("BRAN encoding mismatch: %02x", raw)
	}

	// XORR r10, r11, r12, LSR #3, cond LO, flags 2.
	raw = Encode(Instruction{Register: &Register{
		OpCode:          OpXorRegister,
		R1:              0x0A,
		R2:              0x0B,
		R3:              0x0C,
		ShiftOperand:    ShiftOperandImmediate,
		ShiftType:       ShiftLogicalRight,
		ShiftCount:      3,
		Condition:       CondUnsignedLowerOrSame,
		AdditionalFlags: 0x2,
	}})
	if raw != [4]byte{0xDA, 0xAF, 0x08, 0xEA} {
		t.Errorf("XORR encoding mismatch: %02x", raw)
	}

	decoded := Decode([4]byte{0xDA, 0xAF, 0x08, 0xEA})
	if decoded.Register == nil {
		t.Fatalf("expected register record, got %+v", decoded)
	}
	if decoded.Register.R1 != 0x0A || decoded.Register.R2 != 0x0B || decoded.Register.R3 != 0x0C {
		t.Errorf("register fields mismatch: %+v", decoded.Register)
	}
	if decoded.Register.ShiftCount != 3 || decoded.Register.ShiftType != ShiftLogicalRight {
		t.Errorf("shift fields mismatch: %+v", decoded.Register)
	}
}

func TestFamilySelection(t *testing.T) {
	families := []struct {
		op   uint8
		want Family
	}{
		{OpAddImmediate, FamilyImmediate},
		{OpCoprocessorCallImmediate, FamilyImmediate},
		{OpStoreIndirectImmediate, FamilyImmediate},
		{OpStoreIndirectRegister, FamilyRegister},
		{OpLoadIndirectImmediatePostInc, FamilyImmediate},
		{OpLoadIndirectRegisterPostInc, FamilyRegister},
		{OpAddShortImmediate, FamilyShortImmediate},
		{OpCoprocessorCallShortImmediate, FamilyShortImmediate},
		{OpAddRegister, FamilyRegister},
		{OpNoOperation, FamilyRegister},
		{OpCoprocessorCallRegister, FamilyRegister},
	}
	for _, tc := range families {
		var raw [4]byte
		binary.BigEndian.PutUint32(raw[:], uint32(tc.op)<<26)
		if got := Decode(raw).Family(); got != tc.want {
			t.Errorf("opcode %02x: family %v, want %v", tc.op, got, tc.want)
		}
	}
}

func TestImpliedEncoding(t *testing.T) {
	// Implied records are encode-only sugar: NOOP with a condition encodes
	// with zeroed middle bits and decodes as a register record.
	raw := Encode(Instruction{Implied: &Implied{
		OpCode:    OpNoOperation,
		Condition: CondLessThan,
	}})
	if raw != [4]byte{0xF0, 0x00, 0x00, 0x0C} {
		t.Errorf("NOOP encoding mismatch: %02x", raw)
	}
	decoded := Decode(raw)
	if decoded.Register == nil || decoded.Register.OpCode != OpNoOperation {
		t.Errorf("NOOP should decode into the register view: %+v", decoded)
	}
	if Encode(decoded) != raw {
		t.Errorf("NOOP re-encode mismatch")
	}
}

func TestWordSplitting(t *testing.T) {
	raw := [4]byte{0xDE, 0xAD, 0xBE, 0xEF}
	words := BytesToWords(raw)
	if words[0] != 0xDEAD || words[1] != 0xBEEF {
		t.Errorf("word split mismatch: %04x", words)
	}
	if WordsToBytes(words) != raw {
		t.Errorf("word join mismatch")
	}
}

func TestDisassembleSpotChecks(t *testing.T) {
	cases := []struct {
		in   Instruction
		want string
	}{
		{Instruction{Register: &Register{OpCode: OpAddRegister, R1: 1, R2: 1, R3: 2}},
			"ADDR r1, r1, r2"},
		{Instruction{Immediate: &Immediate{OpCode: OpBranchImmediate, Value: 0x000E, Condition: CondEqual}},
			"BRAN|== #0x000E"},
		{Instruction{Register: &Register{OpCode: OpNoOperation}}, "NOOP"},
		{Instruction{Immediate: &Immediate{OpCode: OpLoadIndirectImmediate, Register: RegR1, Value: 0xCAFE, AdditionalFlags: AddrRegAddress}},
			"LOAD r1, (#0xCAFE, a)"},
		{Instruction{Register: &Register{OpCode: OpLoadIndirectRegisterPostInc, R1: RegR1, R3: RegR2, AdditionalFlags: AddrRegAddress}},
			"LOAD r1, (r2, a)+"},
		{Instruction{Register: &Register{OpCode: OpStoreIndirectRegisterPreDec, R2: RegR1, R3: RegR2, AdditionalFlags: AddrRegStack}},
			"STOR -(r2, s), r1"},
	}
	for _, tc := range cases {
		if got := Disassemble(tc.in); got != tc.want {
			t.Errorf("Disassemble: got %q want %q", got, tc.want)
		}
	}
}
