/*
   SIRC RAM device: plain word addressed storage behind the bus device
   contract.

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

package bus

// RAM backs a segment with an in-memory word array. Out of range accesses
// read zero and drop writes; range checking against the segment length is
// the bus's job.
type RAM struct {
	words []uint16
}

// NewRAM allocates a RAM device of the given size in words.
func NewRAM(sizeWords uint32) *RAM {
	return &RAM{words: make([]uint16, sizeWords)}
}

func (d *RAM) ReadAddress(address uint32) uint16 {
	if address >= uint32(len(d.words)) {
		return 0
	}
	return d.words[address]
}

func (d *RAM) WriteAddress(address uint32, value uint16) {
	if address < uint32(len(d.words)) {
		d.words[address] = value
	}
}

func (d *RAM) ReadRawBytes(limitWords uint32) []byte {
	if limitWords > uint32(len(d.words)) {
		limitWords = uint32(len(d.words))
	}
	raw := make([]byte, limitWords*2)
	for i := uint32(0); i < limitWords; i++ {
		raw[i*2] = byte(d.words[i] >> 8)
		raw[i*2+1] = byte(d.words[i])
	}
	return raw
}

func (d *RAM) WriteRawBytes(data []byte) {
	for i := 0; i+1 < len(data) && i/2 < len(d.words); i += 2 {
		d.words[i/2] = uint16(data[i])<<8 | uint16(data[i+1])
	}
}

func (d *RAM) Poll(_ Assertions, _ bool) Assertions {
	return Assertions{}
}
