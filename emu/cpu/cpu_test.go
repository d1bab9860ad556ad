/*
   SIRC CPU pipeline tests.

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

import (
	"testing"

	"github.com/NoxHarmonium/sirc-sub000/emu/bus"
	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
)

// testMachine builds a CPU over a single writable RAM segment covering the
// low 64K words, with the vector table at offset zero.
func testMachine() (*CPU, *bus.Bus) {
	b := bus.New()
	b.MapSegment("ram", 0x000000, 0x10000, true, bus.NewRAM(0x10000))
	c := New(b, "ram", 0)
	return c, b
}

func putInstruction(b *bus.Bus, addr uint32, in inst.Instruction) {
	words := inst.BytesToWords(inst.Encode(in))
	b.WriteAddress(addr, words[0])
	b.WriteAddress(addr+1, words[1])
}

func putVector(b *bus.Bus, vector uint8, target uint32) {
	b.WriteAddress(uint32(vector)*VectorSizeWords, uint16(target>>16))
	b.WriteAddress(uint32(vector)*VectorSizeWords+1, uint16(target))
}

func step(t *testing.T, c *CPU) {
	t.Helper()
	if _, err := c.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
}

// Scenario: add sets carry on unsigned overflow.
func TestAddSetsCarryOnUnsignedOverflow(t *testing.T) {
	c, b := testMachine()
	c.Registers().Set(inst.RegR1, 0xFFFF)
	c.Registers().Set(inst.RegR2, 0x0001)
	c.Registers().SetFullPC(0x0200)
	putInstruction(b, 0x0200, inst.Instruction{Register: &inst.Register{
		OpCode: inst.OpAddRegister, R1: inst.RegR1, R2: inst.RegR1, R3: inst.RegR2,
		AdditionalFlags: inst.SrSourceAlu,
	}})

	step(t, c)

	if got := c.Registers().Get(inst.RegR1); got != 0x0000 {
		t.Errorf("r1 = %04x want 0", got)
	}
	sr := c.Registers().SR()
	if sr&FlagZero == 0 || sr&FlagCarry == 0 {
		t.Errorf("Z and C should be set: sr %04x", sr)
	}
	if sr&FlagOverflow != 0 || sr&FlagNegative != 0 {
		t.Errorf("V and N should be clear: sr %04x", sr)
	}
}

// Scenario: subtract with borrow.
func TestSubtractWithBorrow(t *testing.T) {
	c, b := testMachine()
	c.Registers().Set(inst.RegR1, 0x0000)
	c.Registers().SetSR(FlagCarry)
	c.Registers().SetFullPC(0x0200)
	putInstruction(b, 0x0200, inst.Instruction{ShortImmediate: &inst.ShortImmediate{
		OpCode: inst.OpSubtractShortImmediateWithCarry, Register: inst.RegR1, Value: 1,
		AdditionalFlags: inst.SrSourceAlu,
	}})

	step(t, c)

	if got := c.Registers().Get(inst.RegR1); got != 0xFFFE {
		t.Errorf("r1 = %04x want FFFE", got)
	}
	sr := c.Registers().SR()
	if sr&FlagCarry == 0 || sr&FlagNegative == 0 {
		t.Errorf("C and N should be set: sr %04x", sr)
	}
}

// Scenario: branch on equal taken and not taken.
func TestBranchOnEqual(t *testing.T) {
	c, b := testMachine()
	b.MapSegment("high", 0xCC0000, 0x10000, true, bus.NewRAM(0x10000))

	branch := inst.Instruction{Immediate: &inst.Immediate{
		OpCode: inst.OpBranchImmediate, Value: 0x000E, Condition: inst.CondEqual,
	}}
	putInstruction(b, 0xCCFAC0, branch)

	// Taken.
	c.Registers().SetSR(FlagZero)
	c.Registers().SetFullPC(0xCCFAC0)
	step(t, c)
	if got := c.Registers().FullPC(); got != 0xCCFACE {
		t.Errorf("taken branch: pc %06x want CCFACE", got)
	}

	// Not taken: sequential.
	c.Registers().SetSR(0)
	c.Registers().SetFullPC(0xCCFAC0)
	step(t, c)
	if got := c.Registers().FullPC(); got != 0xCCFAC2 {
		t.Errorf("untaken branch: pc %06x want CCFAC2", got)
	}
}

// Scenario: load with post-increment updates the address register.
func TestLoadPostIncrement(t *testing.T) {
	c, b := testMachine()
	c.Registers().Set(inst.RegAh, 0x0000)
	c.Registers().Set(inst.RegAl, 0x1000)
	c.Registers().Set(inst.RegR2, 0x0004)
	c.Registers().SetFullPC(0x0200)
	b.WriteAddress(0x1004, 0xBEEF)
	putInstruction(b, 0x0200, inst.Instruction{Register: &inst.Register{
		OpCode: inst.OpLoadIndirectRegisterPostInc,
		R1:     inst.RegR1, R3: inst.RegR2,
		AdditionalFlags: inst.AddrRegAddress,
	}})

	step(t, c)

	if got := c.Registers().Get(inst.RegR1); got != 0xBEEF {
		t.Errorf("r1 = %04x want BEEF", got)
	}
	if got := c.Registers().Get(inst.RegAl); got != 0x1005 {
		t.Errorf("al = %04x want 1005 (post-incremented)", got)
	}
	if got := c.Registers().Get(inst.RegAh); got != 0x0000 {
		t.Errorf("ah = %04x should be unchanged", got)
	}
}

// Scenario: store with pre-decrement.
func TestStorePreDecrement(t *testing.T) {
	c, b := testMachine()
	c.Registers().Set(inst.RegSh, 0x0000)
	c.Registers().Set(inst.RegSl, 0x2000)
	c.Registers().Set(inst.RegR1, 0xCAFE)
	c.Registers().Set(inst.RegR2, 0x0010)
	c.Registers().SetFullPC(0x0200)
	putInstruction(b, 0x0200, inst.Instruction{Register: &inst.Register{
		OpCode: inst.OpStoreIndirectRegisterPreDec,
		R2:     inst.RegR1, R3: inst.RegR2,
		AdditionalFlags: inst.AddrRegStack,
	}})

	step(t, c)

	if got := b.ReadAddress(0x200F); got != 0xCAFE {
		t.Errorf("memory at 200F = %04x want CAFE", got)
	}
	if got := c.Registers().Get(inst.RegSl); got != 0x200F {
		t.Errorf("sl = %04x want 200F (pre-decremented)", got)
	}
}

func TestStoreIndirectImmediate(t *testing.T) {
	c, b := testMachine()
	c.Registers().Set(inst.RegAh, 0x0000)
	c.Registers().Set(inst.RegAl, 0x3000)
	c.Registers().Set(inst.RegR3, 0x1234)
	c.Registers().SetFullPC(0x0200)
	putInstruction(b, 0x0200, inst.Instruction{Immediate: &inst.Immediate{
		OpCode: inst.OpStoreIndirectImmediate, Register: inst.RegR3, Value: 0x0008,
		AdditionalFlags: inst.AddrRegAddress,
	}})

	step(t, c)

	if got := b.ReadAddress(0x3008); got != 0x1234 {
		t.Errorf("memory at 3008 = %04x want 1234", got)
	}
}

func TestLoadImmediate(t *testing.T) {
	c, b := testMachine()
	c.Registers().SetFullPC(0x0200)
	putInstruction(b, 0x0200, inst.Instruction{Immediate: &inst.Immediate{
		OpCode: inst.OpLoadImmediate, Register: inst.RegR5, Value: 0x0040,
		AdditionalFlags: inst.SrSourceAlu,
	}})

	step(t, c)

	if got := c.Registers().Get(inst.RegR5); got != 0x0040 {
		t.Errorf("r5 = %04x want 0040", got)
	}
	if c.Registers().FullPC() != 0x0202 {
		t.Errorf("pc = %06x want 000202", c.Registers().FullPC())
	}
}

func TestCompareDiscardsResult(t *testing.T) {
	c, b := testMachine()
	c.Registers().Set(inst.RegR3, 0x0040)
	c.Registers().Set(inst.RegR2, 0x0040)
	c.Registers().SetFullPC(0x0200)
	putInstruction(b, 0x0200, inst.Instruction{Register: &inst.Register{
		OpCode: inst.OpCompareRegister, R1: inst.RegR3, R2: inst.RegR3, R3: inst.RegR2,
		AdditionalFlags: inst.SrSourceAlu,
	}})

	step(t, c)

	if got := c.Registers().Get(inst.RegR3); got != 0x0040 {
		t.Errorf("compare must not write back: r3 = %04x", got)
	}
	if c.Registers().SR()&FlagZero == 0 {
		t.Errorf("equal compare sets Z: sr %04x", c.Registers().SR())
	}
}

// Program counter overflow raises a segment overflow fault only when the
// trap bit is armed.
func TestNextPCOverflow(t *testing.T) {
	c, b := testMachine()
	noop := inst.Instruction{Register: &inst.Register{OpCode: inst.OpNoOperation}}
	putInstruction(b, 0xFFFE, noop)

	c.Registers().SetFullPC(0x00FFFE)
	step(t, c)
	if c.ExceptionRegisters().PendingFault != FaultNone {
		t.Errorf("no fault without TrapOnAddressOverflow")
	}
	if got := c.Registers().FullPC(); got != 0x000000 {
		t.Errorf("pc should wrap within the segment: %06x", got)
	}

	c.Registers().SetFullPC(0x00FFFE)
	c.Registers().SetFlag(FlagTrapOnAddressOverflow, true)
	step(t, c)
	if c.ExceptionRegisters().PendingFault != FaultSegmentOverflow {
		t.Errorf("fault = %d want SegmentOverflow", c.ExceptionRegisters().PendingFault)
	}
}

func TestEffectiveAddressOverflowFault(t *testing.T) {
	c, b := testMachine()
	c.Registers().Set(inst.RegAl, 0xFFFE)
	c.Registers().SetFullPC(0x0200)
	load := inst.Instruction{Immediate: &inst.Immediate{
		OpCode: inst.OpLoadIndirectImmediate, Register: inst.RegR1, Value: 0xCAFE,
		AdditionalFlags: inst.AddrRegAddress,
	}}
	putInstruction(b, 0x0200, load)

	step(t, c)
	if c.ExceptionRegisters().PendingFault != FaultNone {
		t.Errorf("no fault unless TrapOnAddressOverflow is set")
	}

	c.Registers().SetFullPC(0x0200)
	c.Registers().SetFlag(FlagTrapOnAddressOverflow, true)
	step(t, c)
	if c.ExceptionRegisters().PendingFault != FaultSegmentOverflow {
		t.Errorf("fault = %d want SegmentOverflow", c.ExceptionRegisters().PendingFault)
	}
}

func TestShortJump(t *testing.T) {
	c, b := testMachine()
	c.Registers().SetFullPC(0x0200)
	putInstruction(b, 0x0200, inst.Instruction{Immediate: &inst.Immediate{
		OpCode: inst.OpShortJumpImmediate, Value: 0x0400,
	}})

	step(t, c)
	if got := c.Registers().FullPC(); got != 0x0400 {
		t.Errorf("pc = %06x want 000400", got)
	}
}

func TestBranchToSubroutineAndReturn(t *testing.T) {
	c, b := testMachine()
	c.Registers().SetFullPC(0x0200)
	putInstruction(b, 0x0200, inst.Instruction{Immediate: &inst.Immediate{
		OpCode: inst.OpBranchToSubroutine, Value: 0x0010,
	}})
	putInstruction(b, 0x0210, inst.Instruction{Register: &inst.Register{
		OpCode: inst.OpReturnFromSubroutine,
	}})

	step(t, c)
	if got := c.Registers().FullPC(); got != 0x0210 {
		t.Errorf("pc = %06x want 000210", got)
	}
	if l := ToFullAddress(c.Registers().Get(inst.RegLh), c.Registers().Get(inst.RegLl)); l != 0x0202 {
		t.Errorf("link = %06x want 000202", l)
	}

	step(t, c)
	if got := c.Registers().FullPC(); got != 0x0202 {
		t.Errorf("after RETS pc = %06x want 000202", got)
	}
}

func TestLongJump(t *testing.T) {
	c, b := testMachine()
	b.MapSegment("high", 0xAB0000, 0x100, true, bus.NewRAM(0x100))
	c.Registers().Set(inst.RegAh, 0x00AB)
	c.Registers().Set(inst.RegAl, 0x0010)
	c.Registers().SetFullPC(0x0200)
	// LJMP (#4, a): the destination pair in the register field is p.
	putInstruction(b, 0x0200, inst.Instruction{Immediate: &inst.Immediate{
		OpCode: inst.OpLongJumpImmediate, Register: inst.AddrRegProgramCounter,
		Value: 0x0004, AdditionalFlags: inst.AddrRegAddress,
	}})

	step(t, c)
	if got := c.Registers().FullPC(); got != 0xAB0014 {
		t.Errorf("pc = %06x want AB0014", got)
	}
}

func TestLoadEffectiveAddress(t *testing.T) {
	c, b := testMachine()
	c.Registers().Set(inst.RegAh, 0x0012)
	c.Registers().Set(inst.RegAl, 0x1000)
	c.Registers().SetFullPC(0x0200)
	// LDEA s, (#0x20, a)
	putInstruction(b, 0x0200, inst.Instruction{Immediate: &inst.Immediate{
		OpCode: inst.OpLoadEffectiveAddressImmediate, Register: inst.AddrRegStack,
		Value: 0x0020, AdditionalFlags: inst.AddrRegAddress,
	}})

	step(t, c)
	if got := c.Registers().Get(inst.RegSl); got != 0x1020 {
		t.Errorf("sl = %04x want 1020", got)
	}
	if got := c.Registers().Get(inst.RegSh); got != 0x0012 {
		t.Errorf("sh = %04x want 0012", got)
	}
}

func TestConditionSuppressesEffects(t *testing.T) {
	c, b := testMachine()
	c.Registers().Set(inst.RegR1, 0x1111)
	c.Registers().SetFullPC(0x0200)
	// Z is clear so |== suppresses the add.
	putInstruction(b, 0x0200, inst.Instruction{Register: &inst.Register{
		OpCode: inst.OpAddRegister, R1: inst.RegR1, R2: inst.RegR1, R3: inst.RegR1,
		Condition: inst.CondEqual, AdditionalFlags: inst.SrSourceAlu,
	}})

	step(t, c)
	if got := c.Registers().Get(inst.RegR1); got != 0x1111 {
		t.Errorf("suppressed add must not write back: %04x", got)
	}
	if c.Registers().FullPC() != 0x0202 {
		t.Errorf("pc advances past a suppressed instruction")
	}
}

func TestConditionEvaluation(t *testing.T) {
	c, _ := testMachine()
	cases := []struct {
		cond uint8
		sr   uint16
		want bool
	}{
		{inst.CondAlways, 0, true},
		{inst.CondNever, 0xFFFF, false},
		{inst.CondEqual, FlagZero, true},
		{inst.CondEqual, 0, false},
		{inst.CondNotEqual, 0, true},
		{inst.CondCarrySet, FlagCarry, true},
		{inst.CondCarryClear, FlagCarry, false},
		{inst.CondNegativeSet, FlagNegative, true},
		{inst.CondOverflowSet, FlagOverflow, true},
		{inst.CondOverflowClear, 0, true},
		{inst.CondUnsignedHigher, FlagCarry, true},
		{inst.CondUnsignedHigher, FlagCarry | FlagZero, false},
		{inst.CondUnsignedLowerOrSame, FlagZero, true},
		{inst.CondUnsignedLowerOrSame, FlagCarry, false},
		{inst.CondGreaterOrEqual, FlagNegative | FlagOverflow, true},
		{inst.CondGreaterOrEqual, FlagNegative, false},
		{inst.CondLessThan, FlagNegative, true},
		{inst.CondGreaterThan, 0, true},
		{inst.CondGreaterThan, FlagZero, false},
		{inst.CondLessThanOrEqual, FlagZero, true},
		{inst.CondLessThanOrEqual, FlagOverflow, true},
	}
	for _, tc := range cases {
		c.Registers().SetSR(tc.sr)
		if got := c.evalCondition(tc.cond); got != tc.want {
			t.Errorf("cond %d sr %04x: got %v want %v", tc.cond, tc.sr, got, tc.want)
		}
	}
}

// The shifter applies to loaded data at write back.
func TestLoadAppliesShift(t *testing.T) {
	c, b := testMachine()
	c.Registers().Set(inst.RegAl, 0x1000)
	c.Registers().Set(inst.RegR2, 0x0000)
	c.Registers().SetFullPC(0x0200)
	b.WriteAddress(0x1000, 0x00FF)
	putInstruction(b, 0x0200, inst.Instruction{Register: &inst.Register{
		OpCode: inst.OpLoadIndirectRegister,
		R1:     inst.RegR1, R3: inst.RegR2,
		ShiftType: inst.ShiftLogicalLeft, ShiftCount: 8,
		AdditionalFlags: inst.AddrRegAddress,
	}})

	step(t, c)
	if got := c.Registers().Get(inst.RegR1); got != 0xFF00 {
		t.Errorf("r1 = %04x want FF00 (shifted bus data)", got)
	}
}

// Address register high halves always read back with a zero top byte.
func TestAddressRegisterTopByteZero(t *testing.T) {
	c, _ := testMachine()
	c.Registers().SetFull(inst.AddrRegAddress, 0xFFFFFFFF)
	if got := c.Registers().GetFull(inst.AddrRegAddress); got != 0x00FFFFFF {
		t.Errorf("full address = %08x want 00FFFFFF", got)
	}
	// The raw high half keeps only the low byte after a full write.
	if got := c.Registers().Get(inst.RegAh); got != 0x00FF {
		t.Errorf("ah = %04x want 00FF", got)
	}
}

// The loop program from the architecture suite, hand assembled.
func TestCountingLoop(t *testing.T) {
	c, b := testMachine()
	base := uint32(0x0200)
	c.Registers().SetFullPC(base)

	program := []inst.Instruction{
		{Immediate: &inst.Immediate{OpCode: inst.OpLoadImmediate, Register: inst.RegR1, Value: 5, AdditionalFlags: inst.SrSourceAlu}},
		{Immediate: &inst.Immediate{OpCode: inst.OpLoadImmediate, Register: inst.RegR2, Value: 3, AdditionalFlags: inst.SrSourceAlu}},
		{Immediate: &inst.Immediate{OpCode: inst.OpLoadImmediate, Register: inst.RegR3, Value: 64, AdditionalFlags: inst.SrSourceAlu}},
		// :loop ADDR r2, r1
		{Register: &inst.Register{OpCode: inst.OpAddRegister, R1: inst.RegR2, R2: inst.RegR2, R3: inst.RegR1, AdditionalFlags: inst.SrSourceAlu}},
		// CMPR r3, r2
		{Register: &inst.Register{OpCode: inst.OpCompareRegister, R1: inst.RegR3, R2: inst.RegR3, R3: inst.RegR2, AdditionalFlags: inst.SrSourceAlu}},
		// BRAN|>= @loop (loop is 2 instructions = 4 words back)
		{Immediate: &inst.Immediate{OpCode: inst.OpBranchImmediate, Value: 0xFFFC, Condition: inst.CondGreaterOrEqual}},
		{Register: &inst.Register{OpCode: inst.OpNoOperation}},
		{Immediate: &inst.Immediate{OpCode: inst.OpCoprocessorCallImmediate, Register: inst.RegR1, Value: CommandHaltSimulator}},
	}
	for i, in := range program {
		putInstruction(b, base+uint32(i)*inst.SizeWords, in)
	}

	_, err := c.Run(10000)
	if err != ErrHalted {
		t.Fatalf("program should halt cleanly, got %v", err)
	}
	// r2 counts 3, 8, 13, ... first value > 64 is 68.
	if got := c.Registers().Get(inst.RegR2); got != 68 {
		t.Errorf("r2 = %d want 68", got)
	}
	if !c.Halted() {
		t.Errorf("halted flag should be set")
	}
}

func TestRunYieldsOnQuota(t *testing.T) {
	c, b := testMachine()
	c.Registers().SetFullPC(0x0200)
	// An endless loop of NOOPs; RAM reads as NOOP only where written, so
	// jump in place instead.
	putInstruction(b, 0x0200, inst.Instruction{Immediate: &inst.Immediate{
		OpCode: inst.OpShortJumpImmediate, Value: 0x0200,
	}})

	clocks, err := c.Run(60)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if clocks < 60 || clocks > 60+CyclesPerInstruction {
		t.Errorf("quota yield at %d cycles", clocks)
	}
}
