/*
   CPU: SIRC instruction fetch and four stage execution pipeline.

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
	"errors"

	"github.com/NoxHarmonium/sirc-sub000/emu/bus"
	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
)

/*
   The SIRC processor is a 16 bit machine with 24 bit segmented addressing.
   Sixteen registers: the status register, seven general registers, and four
   address register pairs (link, address, stack, program counter) whose
   halves are addressable individually. Instructions are 32 bits, fetched as
   two 16 bit bus words, and execute over stage functions that mirror the
   hardware pipeline: fetch, decode/register fetch, effective address / ALU,
   memory access / branch completion, write back.

   Exceptions are handled by a coprocessor sitting between instructions:
   faults, five prioritized hardware interrupt lines, and software traps
   dispatched through the coprocessor call instruction.
*/

// ErrHalted is returned once the CPU stops for good, either via the debug
// halt escape or a double fault.
var ErrHalted = errors.New("cpu: halted")

// CPU bundles the register file, exception unit state and the bus the core
// drives. A fresh instance per VM; there is no global state.
type CPU struct {
	reg Registers
	eu  ExceptionState
	bus *bus.Bus

	cycles uint64
}

// New creates a CPU attached to a bus. The program counter starts at the
// base of the named program segment, and vectors are read relative to the
// system RAM offset.
func New(b *bus.Bus, programSegment string, systemRAMOffset uint32) *CPU {
	c := &CPU{bus: b}
	c.reg.SystemRAMOffset = systemRAMOffset
	if seg := b.SegmentForLabel(programSegment); seg != nil {
		c.reg.SetFullPC(seg.Address)
	}
	return c
}

// Registers exposes the register file to the core, monitor and tests. The
// CPU retains exclusive ownership; callers must not hold the pointer across
// Step calls from another goroutine.
func (c *CPU) Registers() *Registers {
	return &c.reg
}

// ExceptionRegisters exposes the exception unit state.
func (c *CPU) ExceptionRegisters() *ExceptionState {
	return &c.eu
}

// Cycles returns the simulated clock.
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// Halted reports whether the CPU has stopped for good.
func (c *CPU) Halted() bool {
	return c.eu.Halted
}

// Waiting reports whether the CPU is paused in WAIT.
func (c *CPU) Waiting() bool {
	return c.eu.Waiting
}

// Reset clears the exception unit and privileged state and re-enters
// through the reset vector.
func (c *CPU) Reset() {
	c.eu = ExceptionState{}
	c.reg.SetSR(0)
	c.reg.PendingCop = 0
	vaddr := c.reg.SystemRAMOffset + VectorReset*VectorSizeWords
	high := c.bus.ReadAddress(vaddr)
	low := c.bus.ReadAddress(vaddr + 1)
	c.reg.SetFullPC(ToFullAddress(high, low))
}

// Step executes one instruction, or takes a pending exception. It returns
// the cycles consumed. ErrHalted reports that the CPU stopped.
func (c *CPU) Step() (int, error) {
	if c.eu.Halted {
		return 0, ErrHalted
	}

	// Interrupt entry check sits between instructions. An entry consumes
	// the step: the vector fetch occupies the pipeline.
	if c.checkException() {
		c.cycles += CyclesPerInstruction
		if c.eu.Halted {
			return CyclesPerInstruction, ErrHalted
		}
		return CyclesPerInstruction, nil
	}
	if c.eu.Waiting {
		// Idle tick; peripherals keep running on the master clock.
		c.cycles += CyclesPerInstruction
		return CyclesPerInstruction, nil
	}

	// Stage 1: fetch. Two bus words, big-endian assembly.
	pc := c.reg.FullPC()
	if pc&1 != 0 {
		c.raiseFault(FaultAlignment, pc&^1)
		c.cycles += CyclesPerInstruction
		return CyclesPerInstruction, nil
	}
	raw := inst.WordsToBytes([2]uint16{
		c.bus.ReadAddress(pc),
		c.bus.ReadAddress(pc + 1),
	})

	// Stage 2: decode and register fetch.
	d := c.decodeAndRegisterFetch(raw)
	if d.npcOverflow && c.reg.FlagSet(FlagTrapOnAddressOverflow) {
		// The PC high half never increments without going through the
		// exception path.
		c.raiseFault(FaultSegmentOverflow, ToFullAddress(d.npcH, d.npcL))
	}

	// Stages 3-5 over the shared scratchpad.
	var inter intermediate
	c.executeEffectiveAddress(&d, &inter)
	c.executeMemory(&d, &inter)
	c.executeWriteBack(&d, &inter)

	// A coprocessor call handed a command to the exception unit.
	if c.reg.PendingCop != 0 {
		command := c.reg.PendingCop
		c.reg.PendingCop = 0
		c.processCoprocessorCommand(command)
	}

	// Trace mode raises one fault per instruction.
	if c.reg.FlagSet(FlagTraceMode) && c.eu.PendingFault == FaultNone &&
		c.eu.CurrentLevel < LevelFault {
		c.raiseFault(FaultInstructionTrace, c.reg.FullPC())
	}

	c.cycles += CyclesPerInstruction
	if c.eu.Halted {
		return CyclesPerInstruction, ErrHalted
	}
	return CyclesPerInstruction, nil
}

// Run executes instructions until the cycle quota is exhausted, returning
// the cycles consumed. Reaching the quota is a clean yield so the outer
// scheduler can poll peripherals and service debugger traffic.
func (c *CPU) Run(clockQuota int) (int, error) {
	clocks := 0
	for {
		used, err := c.Step()
		clocks += used
		if err != nil {
			return clocks, err
		}
		if clocks >= clockQuota {
			return clocks, nil
		}
	}
}

// AbsorbAssertions feeds the folded per-tick device assertions into the
// exception unit: interrupt lines pend, a bus error pends a fault against
// the instruction that issued the cycle.
func (c *CPU) AbsorbAssertions(a bus.Assertions) {
	if a.InterruptAssertion != 0 {
		c.PostHardwareInterrupt(a.InterruptAssertion)
	}
	if a.BusError {
		c.raiseFault(FaultBus, c.reg.FullPC())
	}
}
