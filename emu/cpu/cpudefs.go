/*
   CPU definitions for the SIRC simulator.

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

// Address and status register masks.
const (
	AMASK uint32 = 0x00ffffff // Mask address bits (24 bit addressing)
	LMASK uint16 = 0x00ff     // Unprivileged half of the status register
	PMASK uint16 = 0xff00     // Privileged half of the status register

	// Status register byte 0 (unprivileged).
	FlagZero     uint16 = 0x0001
	FlagNegative uint16 = 0x0002
	FlagCarry    uint16 = 0x0004
	FlagOverflow uint16 = 0x0008

	// Status register byte 1 (privileged).
	FlagProtectedMode uint16 = 0x0100
	FlagHwIntEnable1  uint16 = 0x0200 // Highest priority line
	FlagHwIntEnable2  uint16 = 0x0400
	FlagHwIntEnable3  uint16 = 0x0800
	FlagHwIntEnable4  uint16 = 0x1000
	FlagHwIntEnable5  uint16 = 0x2000 // Lowest priority line
	// The line 5 enable doubles as the exception-active flag. Only the
	// exception unit may change this bit; while it is set the lowest
	// priority line is implicitly masked.
	FlagExceptionActive      uint16 = 0x2000
	FlagTrapOnAddressOverflow uint16 = 0x4000
	FlagTraceMode             uint16 = 0x8000
)

// Fault codes. The fault code is also the vector index.
const (
	FaultNone uint8 = iota
	FaultBus
	FaultAlignment
	FaultSegmentOverflow
	FaultInvalidOpCode
	FaultPrivilegeViolation
	FaultInstructionTrace
	FaultLevelFiveInterruptConflict
)

// Exception levels. Fault is the highest level, software the lowest.
// Hardware line L (1 = highest priority) enters at level 7-L.
const (
	LevelNone     uint8 = 0
	LevelSoftware uint8 = 1
	LevelFault    uint8 = 7
)

// Vector table layout. Each vector is two words holding a 24 bit address;
// the table lives at the system RAM offset.
const (
	VectorReset          = 0x00
	VectorHardwareBase   = 0x10 // Line L vectors at VectorHardwareBase + L
	VectorCount          = 128
	VectorSizeWords      = 2
)

// Coprocessor command encoding. The upper nibble selects the coprocessor;
// the exception unit answers to id 1. The next nibble is the operation.
const (
	copProcessorShift = 12
	copProcessorMask  = 0xF
	copExceptionUnit  = 0x1

	copOpShift = 8
	copOpMask  = 0xF

	copOpRaise = 0x1 // Software exception, vector in the low 7 bits
	copOpHalt  = 0x4 // With low byte 0xFF: halt the simulator (debug escape)
	copOpWait  = 0x9
	copOpRete  = 0xA
	copOpReset = 0xB
	copOpEtfr  = 0xC // Link register fields to registers
	copOpEttr  = 0xD // Registers to link register fields

	// CommandHaltSimulator is the debug escape the toolchain test programs
	// use to stop the run loop cleanly.
	CommandHaltSimulator uint16 = 0x14FF
)

// Each completed instruction advances the simulated clock by a fixed count.
const CyclesPerInstruction = 6

// Link register storage inside the exception unit.
type ExceptionLink struct {
	ReturnAddress uint32 // 24 bit return address
	ReturnSR      uint16
	SavedLevel    uint8 // Level that was active when this entry was written
}

// ExceptionState is the exception unit's register file: pending interrupt
// lines, one pending fault slot, the link register stack and the wait/halt
// flags.
type ExceptionState struct {
	PendingHardware uint8 // 5 bit mask, bit 0 = line 1 (highest priority)
	PendingFault    uint8 // FaultNone when empty
	FaultReturn     uint32

	// Seven exception levels plus a metadata slot at index 0xF & 7.
	LinkRegisters [8]ExceptionLink

	Waiting      bool // WAIT issued, paused until an unmasked interrupt
	Halted       bool // Double fault or debug escape
	CurrentLevel uint8
}

// stepInfo is the decode/register-fetch scratchpad shared by the pipeline
// stage functions for a single instruction.
type stepInfo struct {
	ins uint8 // Opcode
	des uint8 // Destination register index
	srA uint8 // Source register index A (register view r2)
	srB uint8 // Source register index B (register view r3)
	con uint8 // Condition code

	adr    uint8 // Address register pair from the additional flags
	adL    uint8 // Register index of the selected pair's low half
	adH    uint8 // Register index of the selected pair's high half
	desAdL uint8 // Destination pair low half index
	desAdH uint8 // Destination pair high half index
	srSrc  uint8 // Status register update source

	shiftOperand uint8
	shiftType    uint8
	shiftCount   uint8

	addrInc int8 // -1 pre-decrement store, +1 post-increment load

	desVal  uint16 // Destination register's current value
	srAVal  uint16 // Operand A after the decode stage shifter
	srBVal  uint16 // Operand B (register, value, or shifted displacement)
	srShift uint16 // Flags produced by the decode stage shifter
	adLVal  uint16
	adHVal  uint16

	conOK       bool   // Condition evaluated against the current SR
	npcL        uint16 // Next sequential PC, low half
	npcH        uint16
	npcOverflow bool // The low half increment wrapped
}

// intermediate is the EX/MEM/WB scratchpad.
type intermediate struct {
	aluOutput     uint16
	aluStatus     uint16
	lmd           uint16 // Load memory data latched by the memory stage
	addressOutput uint16 // Updated address register value for inc/dec modes
}

// Write-back classes.
const (
	wbNoOp = iota
	wbMemoryLoad
	wbAluToRegister
	wbAluStatusOnly
	wbAddressWrite
	wbAddressWriteLoadPostInc
	wbAddressWriteStorePreDec
	wbCoprocessorCall
)

// Execution (EA/ALU) classes.
const (
	exNoOp = iota
	exMemoryRef
	exAlu
	exBranch
	exShortJump
	exCoprocessorValue
)
