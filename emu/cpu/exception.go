/*
   SIRC exception unit: prioritized hardware interrupts, software traps,
   faults and the privileged mode switch.

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
	"log/slog"

	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
)

func hwEnableFlag(line uint8) uint16 {
	return FlagHwIntEnable1 << (line - 1)
}

// hwLevel maps a hardware interrupt line (1 = highest priority) to its
// exception level.
func hwLevel(line uint8) uint8 {
	return 7 - line
}

// raiseFault latches a fault into the pending slot. Later faults in the
// same instruction do not displace an earlier one.
func (c *CPU) raiseFault(kind uint8, returnAddress uint32) {
	if c.eu.PendingFault != FaultNone {
		return
	}
	c.eu.PendingFault = kind
	c.eu.FaultReturn = returnAddress & AMASK
}

// PostHardwareInterrupt asserts hardware interrupt lines from outside the
// CPU (the run loop feeds bus poll assertions through here).
func (c *CPU) PostHardwareInterrupt(lines uint8) {
	c.eu.PendingHardware |= lines & 0x1F
}

// enterException performs the entry protocol: stack the return state into
// the link register for the new level, drop to supervisor mode, mask lower
// priority interrupts, and vector.
func (c *CPU) enterException(level uint8, vector uint8, returnAddress uint32) {
	link := &c.eu.LinkRegisters[level&0x7]
	link.ReturnAddress = returnAddress & AMASK
	link.ReturnSR = c.reg.SR()
	link.SavedLevel = c.eu.CurrentLevel
	c.eu.CurrentLevel = level

	sr := c.reg.SR()
	sr &^= FlagProtectedMode
	sr |= FlagExceptionActive
	// Mask every line whose level does not outrank the one being entered;
	// higher priority lines stay serviceable for nesting.
	for line := uint8(1); line <= 5; line++ {
		if hwLevel(line) <= level {
			sr &^= hwEnableFlag(line)
		}
	}
	c.reg.SetSR(sr)

	vaddr := c.reg.SystemRAMOffset + uint32(vector)*VectorSizeWords
	high := c.bus.ReadAddress(vaddr)
	low := c.bus.ReadAddress(vaddr + 1)
	c.reg.SetFullPC(ToFullAddress(high, low))
	c.eu.Waiting = false
}

// returnFromException is the RETE protocol.
func (c *CPU) returnFromException() {
	link := c.eu.LinkRegisters[c.eu.CurrentLevel&0x7]
	c.reg.SetSR(link.ReturnSR)
	c.reg.SetFullPC(link.ReturnAddress)
	c.eu.CurrentLevel = link.SavedLevel
	c.eu.Waiting = false
}

// checkException runs between instructions: pending faults outrank
// everything, then hardware lines in priority order. Software traps enter
// directly from the coprocessor command dispatcher. Reports whether an
// entry (or the double fault halt) consumed the step.
func (c *CPU) checkException() bool {
	if c.eu.PendingFault != FaultNone {
		if c.eu.CurrentLevel == LevelFault {
			// Double fault. Nothing left to do but stop.
			slog.Error("cpu: double fault, halting",
				"fault", c.eu.PendingFault)
			c.eu.Halted = true
			c.eu.PendingFault = FaultNone
			return true
		}
		fault := c.eu.PendingFault
		c.eu.PendingFault = FaultNone
		c.enterException(LevelFault, fault, c.eu.FaultReturn)
		return true
	}

	if c.eu.PendingHardware == 0 {
		return false
	}
	for line := uint8(1); line <= 5; line++ {
		bit := uint8(1) << (line - 1)
		if c.eu.PendingHardware&bit == 0 {
			continue
		}
		if !c.reg.FlagSet(hwEnableFlag(line)) {
			continue
		}
		level := hwLevel(line)
		if line == 1 && c.eu.CurrentLevel == level {
			// The highest priority line cannot nest with itself.
			c.eu.PendingHardware &^= bit
			c.raiseFault(FaultLevelFiveInterruptConflict, c.reg.FullPC())
			return false
		}
		if level <= c.eu.CurrentLevel {
			continue
		}
		c.eu.PendingHardware &^= bit
		c.enterException(level, VectorHardwareBase+line, c.reg.FullPC())
		return true
	}
	return false
}

// processCoprocessorCommand dispatches a command word latched by a
// coprocessor call instruction. Commands other than a software exception
// are privileged.
func (c *CPU) processCoprocessorCommand(command uint16) {
	processor := (command >> copProcessorShift) & copProcessorMask
	if processor == 0 {
		// Processor 0 is the CPU itself; nothing to delegate.
		return
	}
	if processor != copExceptionUnit {
		c.raiseFault(FaultInvalidOpCode, c.reg.FullPC())
		return
	}

	op := uint8((command >> copOpShift) & copOpMask)
	if c.reg.Protected() && op != copOpRaise {
		c.raiseFault(FaultPrivilegeViolation, c.reg.FullPC())
		return
	}

	switch op {
	case copOpRaise:
		vector := uint8(command) & (VectorCount - 1)
		if c.eu.CurrentLevel >= LevelSoftware {
			slog.Warn("cpu: software exception ignored at level",
				"level", c.eu.CurrentLevel, "vector", vector)
			return
		}
		c.enterException(LevelSoftware, vector, c.reg.FullPC())

	case copOpHalt:
		if command == CommandHaltSimulator {
			c.eu.Halted = true
		}

	case copOpWait:
		c.eu.Waiting = true

	case copOpRete:
		if c.eu.CurrentLevel == LevelNone {
			slog.Warn("cpu: RETE with no active exception")
			return
		}
		c.returnFromException()

	case copOpReset:
		c.Reset()

	case copOpEtfr:
		link := c.eu.LinkRegisters[command&0x7]
		if command&0x10 != 0 {
			c.reg.SetFull(inst.AddrRegAddress, link.ReturnAddress)
		}
		if command&0x20 != 0 {
			c.reg.Set(inst.RegR7, link.ReturnSR)
		}

	case copOpEttr:
		link := &c.eu.LinkRegisters[command&0x7]
		if command&0x10 != 0 {
			link.ReturnAddress = c.reg.GetFull(inst.AddrRegAddress)
		}
		if command&0x20 != 0 {
			link.ReturnSR = c.reg.Get(inst.RegR7)
		}

	default:
		c.raiseFault(FaultInvalidOpCode, c.reg.FullPC())
	}
}
