/*
   SIRC mnemonic and register name tables, shared by the assembler and the
   disassembler.

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

// Register indexes. Index 0 is the status register, 1-7 the general
// registers, 8-15 the high/low halves of the four address register pairs.
const (
	RegSr uint8 = iota
	RegR1
	RegR2
	RegR3
	RegR4
	RegR5
	RegR6
	RegR7
	RegLh
	RegLl
	RegAh
	RegAl
	RegSh
	RegSl
	RegPh
	RegPl
)

// Address register pair indexes as used in the two additional flag bits.
const (
	AddrRegLink uint8 = iota
	AddrRegAddress
	AddrRegStack
	AddrRegProgramCounter
)

// RegisterNames maps register index to assembly name.
var RegisterNames = [16]string{
	"sr", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"lh", "ll", "ah", "al", "sh", "sl", "ph", "pl",
}

// AddressRegisterNames maps address register pair index to assembly name.
var AddressRegisterNames = [4]string{"l", "a", "s", "p"}

// ConditionNames maps condition code to the |cc mnemonic suffix. The always
// code has no suffix.
var ConditionNames = [16]string{
	"", "==", "!=", "CS", "CC", "NS", "NC", "OS",
	"OC", "HI", "LO", ">=", "<<", ">>", "<=", "NV",
}

// ShiftNames maps shift kind to mnemonic.
var ShiftNames = [8]string{"NUL", "LSL", "LSR", "ASL", "ASR", "RTL", "RTR", "NUL"}

// Mnemonics maps each opcode to its assembly mnemonic. Several opcodes share
// a mnemonic; the addressing mode distinguishes them in source form.
var Mnemonics = [64]string{
	0x00: "ADDI", 0x01: "ADCI", 0x02: "SUBI", 0x03: "SBCI",
	0x04: "ANDI", 0x05: "ORRI", 0x06: "XORI", 0x07: "LOAD",
	0x08: "CMPI", 0x09: "TSAI", 0x0A: "TSXI", 0x0B: "BRAN",
	0x0C: "BRSR", 0x0D: "SJMP", 0x0E: "SJSR", 0x0F: "COPI",

	0x10: "STOR", 0x11: "STOR", 0x12: "STOR", 0x13: "STOR",
	0x14: "LOAD", 0x15: "LOAD", 0x16: "LOAD", 0x17: "LOAD",
	0x18: "LDEA", 0x19: "LDEA", 0x1A: "LJMP", 0x1B: "LJMP",
	0x1C: "LJSR", 0x1D: "LJSR", 0x1E: "????", 0x1F: "????",

	0x20: "ADDI", 0x21: "ADCI", 0x22: "SUBI", 0x23: "SBCI",
	0x24: "ANDI", 0x25: "ORRI", 0x26: "XORI", 0x27: "LOAD",
	0x28: "CMPI", 0x29: "TSAI", 0x2A: "TSXI", 0x2B: "BRAN",
	0x2C: "BRSR", 0x2D: "SJMP", 0x2E: "SJSR", 0x2F: "COPI",

	0x30: "ADDR", 0x31: "ADCR", 0x32: "SUBR", 0x33: "SBCR",
	0x34: "ANDR", 0x35: "ORRR", 0x36: "XORR", 0x37: "LOAD",
	0x38: "CMPR", 0x39: "TSAR", 0x3A: "TSXR", 0x3B: "RETS",
	0x3C: "NOOP", 0x3D: "????", 0x3E: "????", 0x3F: "COPR",
}
