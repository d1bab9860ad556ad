/*
 * SIRC - Hex formatting for the monitor and debug output.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package hex

import "strings"

var hexMap = "0123456789ABCDEF"

// FormatAddress writes a 24 bit address as six hex digits.
func FormatAddress(str *strings.Builder, addr uint32) {
	shift := 20
	for range 6 {
		str.WriteByte(hexMap[(addr>>shift)&0xf])
		shift -= 4
	}
}

// FormatWord writes 16 bit words, space separated.
func FormatWord(str *strings.Builder, words []uint16) {
	for _, word := range words {
		shift := 12
		for range 4 {
			str.WriteByte(hexMap[(word>>shift)&0xf])
			shift -= 4
		}
		str.WriteByte(' ')
	}
}

// FormatByte writes one byte as two hex digits.
func FormatByte(str *strings.Builder, data byte) {
	str.WriteByte(hexMap[(data>>4)&0xf])
	str.WriteByte(hexMap[data&0xf])
}

// DumpWords renders a word region as address prefixed rows of eight words.
func DumpWords(base uint32, words []uint16) string {
	var str strings.Builder
	for i := 0; i < len(words); i += 8 {
		FormatAddress(&str, base+uint32(i))
		str.WriteString(": ")
		end := i + 8
		if end > len(words) {
			end = len(words)
		}
		FormatWord(&str, words[i:end])
		str.WriteByte('\n')
	}
	return str.String()
}
