/*
   SIRC register file: sixteen 16 bit registers with segmented address
   aliases and a privileged status register.

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
	"fmt"

	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
)

// Registers holds the architectural register file plus the CPU internal
// registers programs cannot address directly.
type Registers struct {
	regs [16]uint16

	// System RAM access (interrupt vectors) is offset from here.
	SystemRAMOffset uint32
	// A coprocessor call instruction latches its command word here; the
	// exception unit consumes it between instructions.
	PendingCop uint16
}

// Get returns a register value without redaction. Index is masked to four
// bits the way the hardware register select lines are.
func (r *Registers) Get(index uint8) uint16 {
	return r.regs[index&0xF]
}

// Set stores a register value without any SR masking. Use SetChecked for
// writes originating from instructions.
func (r *Registers) Set(index uint8, value uint16) {
	r.regs[index&0xF] = value
}

// Protected reports whether the CPU is running in protected (user) mode.
func (r *Registers) Protected() bool {
	return r.regs[inst.RegSr]&FlagProtectedMode != 0
}

// GetChecked returns a register value applying SR redaction: in protected
// mode the privileged byte of the status register reads as zero.
func (r *Registers) GetChecked(index uint8) uint16 {
	index &= 0xF
	if index == inst.RegSr && r.Protected() {
		return r.regs[index] & LMASK
	}
	return r.regs[index]
}

// SetChecked stores a register value applying the SR write rules: protected
// mode writes touch only the unprivileged byte, supervisor writes touch
// everything except the exception-active bit which only the exception unit
// may change.
func (r *Registers) SetChecked(index uint8, value uint16) {
	index &= 0xF
	if index != inst.RegSr {
		r.regs[index] = value
		return
	}
	sr := r.regs[inst.RegSr]
	if r.Protected() {
		r.regs[inst.RegSr] = (sr & PMASK) | (value & LMASK)
	} else {
		r.regs[inst.RegSr] = (value &^ FlagExceptionActive) | (sr & FlagExceptionActive)
	}
}

// SR returns the raw status register.
func (r *Registers) SR() uint16 {
	return r.regs[inst.RegSr]
}

// SetSR stores the raw status register. Reserved for the exception unit and
// test setup; instruction writes go through SetChecked.
func (r *Registers) SetSR(value uint16) {
	r.regs[inst.RegSr] = value
}

// Flag helpers.

func (r *Registers) FlagSet(flag uint16) bool {
	return r.regs[inst.RegSr]&flag == flag
}

func (r *Registers) SetFlag(flag uint16, on bool) {
	if on {
		r.regs[inst.RegSr] |= flag
	} else {
		r.regs[inst.RegSr] &^= flag
	}
}

// ToFullAddress concatenates an address register pair into a 24 bit
// address. The top byte of the high half is ignored.
func ToFullAddress(high, low uint16) uint32 {
	return (uint32(high)<<16 | uint32(low)) & AMASK
}

// ToSegmented splits a 24 bit address into the high/low register halves.
func ToSegmented(address uint32) (high, low uint16) {
	address &= AMASK
	return uint16(address >> 16), uint16(address)
}

// Address register pair accessors. The pair index is the two bit value from
// the instruction's additional flags (0=l 1=a 2=s 3=p).

func pairIndexes(pair uint8) (high, low uint8) {
	return 0x8 | (pair&3)<<1, 0x9 | (pair&3)<<1
}

// GetFull reads an address register pair as a 24 bit address.
func (r *Registers) GetFull(pair uint8) uint32 {
	h, l := pairIndexes(pair)
	return ToFullAddress(r.regs[h], r.regs[l])
}

// SetFull writes a 24 bit address into an address register pair.
func (r *Registers) SetFull(pair uint8, address uint32) {
	h, l := pairIndexes(pair)
	r.regs[h], r.regs[l] = ToSegmented(address)
}

// FullPC returns the segmented program counter as a 24 bit address.
func (r *Registers) FullPC() uint32 {
	return ToFullAddress(r.regs[inst.RegPh], r.regs[inst.RegPl])
}

// SetFullPC jumps the program counter to a 24 bit address.
func (r *Registers) SetFullPC(address uint32) {
	r.regs[inst.RegPh], r.regs[inst.RegPl] = ToSegmented(address)
}

// Snapshot returns the register values keyed by name, formatted as decimal
// strings for the debug channel.
func (r *Registers) Snapshot() map[string]string {
	snap := make(map[string]string, 16)
	for i, name := range inst.RegisterNames {
		snap[name] = fmt.Sprintf("%d", r.regs[i])
	}
	return snap
}
