/*
   SIRC core integration tests: source text through the assembler, linker,
   bus and CPU.

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

package core

import (
	"testing"

	"github.com/NoxHarmonium/sirc-sub000/asm"
	"github.com/NoxHarmonium/sirc-sub000/emu/bus"
	"github.com/NoxHarmonium/sirc-sub000/emu/cpu"
	"github.com/NoxHarmonium/sirc-sub000/emu/debug"
	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
	"github.com/NoxHarmonium/sirc-sub000/link"
	"github.com/NoxHarmonium/sirc-sub000/obj"
)

// buildMachine assembles and links a program at a base word address and
// loads it into a fresh machine.
func buildMachine(t *testing.T, source string, base uint32) (*cpu.CPU, *bus.Bus) {
	t.Helper()
	object, err := asm.Assemble("test.asm", source)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	linked, _, err := link.Link([]*obj.Object{object}, base)
	if err != nil {
		t.Fatalf("link: %v", err)
	}

	b := bus.New()
	b.MapSegment("ram", 0x000000, 0x10000, true, bus.NewRAM(0x10000))
	for i := 0; i+1 < len(linked); i += 2 {
		b.WriteAddress(base+uint32(i/2), uint16(linked[i])<<8|uint16(linked[i+1]))
	}
	c := cpu.New(b, "ram", 0)
	c.Registers().SetFullPC(base)
	return c, b
}

const loopSource = `:start
LOAD    r1, #5
LOAD    r2, #3
LOAD    r3, #64

:loop
ADDR    r2, r1
CMPR    r3, r2
BRAN|>= @loop

NOOP

COPI    r1, #0x14FF
`

func TestAssembledLoopRunsToHalt(t *testing.T) {
	c, b := buildMachine(t, loopSource, 0x0200)
	simulation := New(c, b, nil)
	simulation.Start()

	if !simulation.Halted() {
		t.Fatalf("program should halt")
	}
	if got := c.Registers().Get(inst.RegR2); got != 68 {
		t.Errorf("r2 = %d want 68", got)
	}
}

func TestDebuggedRunWithBreakpoint(t *testing.T) {
	c, b := buildMachine(t, loopSource, 0x0200)
	channels := debug.NewChannels()
	simulation := New(c, b, channels)
	go simulation.Start()

	// Initial pause: plant a breakpoint on the NOOP after the loop.
	first := <-channels.VM
	if first.Reason != debug.ReasonInit {
		t.Fatalf("first event = %+v", first)
	}
	channels.Debugger <- debug.DebuggerMessage{
		Kind:        debug.MsgUpdateBreakpoints,
		Breakpoints: []debug.BreakpointRef{{ID: 3, PC: 0x020C}},
	}
	channels.Debugger <- debug.DebuggerMessage{Kind: debug.MsgResumeVM}

	hit := <-channels.VM
	if hit.Reason != debug.ReasonBreakpoint || hit.BreakpointID != 3 {
		t.Fatalf("expected breakpoint 3, got %+v", hit)
	}
	if hit.State.PC != 0x020C {
		t.Errorf("paused pc = %06x want 00020C", hit.State.PC)
	}
	if hit.State.Registers["r2"] != "68" {
		t.Errorf("r2 at breakpoint = %s want 68", hit.State.Registers["r2"])
	}

	// Single step one instruction (the NOOP).
	channels.Debugger <- debug.DebuggerMessage{
		Kind: debug.MsgResumeVM, Condition: debug.ResumeUntilNextStep}
	stepped := <-channels.VM
	if stepped.Reason != debug.ReasonStep || stepped.State.PC != 0x020E {
		t.Errorf("step event: %+v", stepped)
	}

	// Run to the halt; the core emits a final snapshot.
	channels.Debugger <- debug.DebuggerMessage{Kind: debug.MsgResumeVM}
	final := <-channels.VM
	if final.State.PC != 0x0210 {
		t.Errorf("final snapshot pc = %06x", final.State.PC)
	}
	simulation.Stop()
}

func TestInterruptDrivenWait(t *testing.T) {
	// The vector table lives at word 0; the handler halts the machine.
	// Vector 0x12 (hardware line 2) occupies the word pair at 0x24.
	source := `.ORG 0x0024
.DQ @handler

.ORG 0x0100
:handler
COPI r1, #0x14FF

.ORG 0x0200
:start
LOAD r1, #0x0400
LOAD sr, r1
WAIT
NOOP
`
	c, b := buildMachine(t, source, 0)
	c.Registers().SetFullPC(0x0200)

	// Device raising hardware line 2 after a few polls.
	timer := &pulseDevice{fireAfter: 5, line: 0b00010}
	b.MapSegment("timer", 0xF00000, 0x10, true, timer)

	simulation := New(c, b, nil)
	simulation.Start()

	if !simulation.Halted() {
		t.Fatalf("handler should have halted the machine")
	}
	if timer.polls < 5 {
		t.Errorf("device should have been polled while waiting: %d", timer.polls)
	}
}

// pulseDevice asserts an interrupt line once after a number of polls.
type pulseDevice struct {
	bus.StubDevice
	fireAfter int
	line      uint8
	polls     int
}

func (d *pulseDevice) Poll(_ bus.Assertions, _ bool) bus.Assertions {
	d.polls++
	if d.polls == d.fireAfter {
		return bus.Assertions{InterruptAssertion: d.line}
	}
	return bus.Assertions{}
}
