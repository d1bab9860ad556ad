/*
   SIRC assembler lexical helpers: numbers, names, registers and symbol
   references.

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
	"strconv"
	"strings"
	"unicode"

	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
	"github.com/NoxHarmonium/sirc-sub000/obj"
)

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// takeName splits a leading identifier from the input.
func takeName(s string) (name, rest string) {
	for i, r := range s {
		if !isNameRune(r) {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func skipSpace(s string) string {
	return strings.TrimLeft(s, " \t")
}

// parseNumber parses a bare numeric literal: decimal with an optional
// sign, 0x hex or 0b binary, all allowing underscore separators. Returns
// the 32 bit value (signed values wrap) and the remaining input.
func parseNumber(s string) (uint32, string, bool) {
	negative := false
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	base := 10
	digits := "0123456789"
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base = 16
		digits = "0123456789abcdefABCDEF"
		s = s[2:]
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base = 2
		digits = "01"
		s = s[2:]
	}

	i := 0
	for i < len(s) && (strings.ContainsRune(digits, rune(s[i])) || s[i] == '_') {
		i++
	}
	if i == 0 {
		return 0, s, false
	}
	raw := strings.ReplaceAll(s[:i], "_", "")
	value, err := strconv.ParseUint(raw, base, 32)
	if err != nil {
		// Allow full range signed decimals.
		signed, serr := strconv.ParseInt(raw, base, 32)
		if serr != nil {
			return 0, s, false
		}
		value = uint64(uint32(signed))
	}
	result := uint32(value)
	if negative {
		result = -result
	}
	return result, s[i:], true
}

// parseImmediate parses a '#' prefixed numeric literal.
func parseImmediate(s string) (uint32, string, bool) {
	if !strings.HasPrefix(s, "#") {
		return 0, s, false
	}
	return parseNumber(s[1:])
}

// parseSymbolReference parses an '@name' reference with an optional
// relocation suffix: .l low word, .h high byte, .@ PC relative offset.
// Without a suffix the kind is implied and chosen from context.
func parseSymbolReference(s string) (RefToken, string, bool) {
	if !strings.HasPrefix(s, "@") {
		return RefToken{}, s, false
	}
	name, rest := takeName(s[1:])
	if name == "" {
		return RefToken{}, s, false
	}
	kind := obj.RefImplied
	switch {
	case strings.HasPrefix(rest, ".l"):
		kind = obj.RefLowerWord
		rest = rest[2:]
	case strings.HasPrefix(rest, ".h"):
		kind = obj.RefUpperWord
		rest = rest[2:]
	case strings.HasPrefix(rest, ".@"):
		kind = obj.RefOffset
		rest = rest[2:]
	}
	return RefToken{Name: name, Kind: kind}, rest, true
}

// parsePlaceholder parses a '$name' placeholder reference.
func parsePlaceholder(s string) (string, string, bool) {
	if !strings.HasPrefix(s, "$") {
		return "", s, false
	}
	name, rest := takeName(s[1:])
	if name == "" {
		return "", s, false
	}
	return name, rest, true
}

// registerIndex resolves a direct register name.
func registerIndex(name string) (uint8, bool) {
	for i, reg := range inst.RegisterNames {
		if reg == name {
			return uint8(i), true
		}
	}
	return 0, false
}

// addressRegisterIndex resolves an address register pair alias.
func addressRegisterIndex(name string) (uint8, bool) {
	for i, reg := range inst.AddressRegisterNames {
		if reg == name {
			return uint8(i), true
		}
	}
	return 0, false
}

// shiftTypeFor resolves a shift mnemonic.
func shiftTypeFor(name string) (uint8, bool) {
	switch name {
	case "NUL":
		return inst.ShiftNone, true
	case "LSL":
		return inst.ShiftLogicalLeft, true
	case "LSR":
		return inst.ShiftLogicalRight, true
	case "ASL":
		return inst.ShiftArithmeticLeft, true
	case "ASR":
		return inst.ShiftArithmeticRight, true
	case "RTL":
		return inst.ShiftRotateLeft, true
	case "RTR":
		return inst.ShiftRotateRight, true
	}
	return 0, false
}

// conditionFor resolves a |cc suffix.
func conditionFor(code string) (uint8, bool) {
	switch code {
	case "AL":
		return inst.CondAlways, true
	case "==":
		return inst.CondEqual, true
	case "!=":
		return inst.CondNotEqual, true
	case "CS":
		return inst.CondCarrySet, true
	case "CC":
		return inst.CondCarryClear, true
	case "NS":
		return inst.CondNegativeSet, true
	case "NC":
		return inst.CondNegativeClear, true
	case "OS":
		return inst.CondOverflowSet, true
	case "OC":
		return inst.CondOverflowClear, true
	case "HI":
		return inst.CondUnsignedHigher, true
	case "LO":
		return inst.CondUnsignedLowerOrSame, true
	case ">=":
		return inst.CondGreaterOrEqual, true
	case "<<":
		return inst.CondLessThan, true
	case ">>":
		return inst.CondGreaterThan, true
	case "<=":
		return inst.CondLessThanOrEqual, true
	case "NV":
		return inst.CondNever, true
	}
	return 0, false
}

// fitsField reports whether a 32 bit two's complement value fits the
// given field width as either signed or unsigned.
func fitsField(value uint32, bits int) bool {
	max := uint32(1)<<bits - 1
	minSigned := -(int32(1) << (bits - 1))
	if value <= max {
		return true
	}
	return int32(value) >= minSigned && int32(value) < 0
}
