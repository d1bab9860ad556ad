/*
   SIRC bus device contract.

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

// Bus cycle operations.
const (
	OpNone int = iota
	OpRead
	OpWrite
)

// Assertions carries the per-tick signals a device places on the bus.
// Interrupt lines are a five bit mask, bit 0 being the highest priority
// line. Assertions from all devices are folded together by PollAll.
type Assertions struct {
	Address            uint32 // In-flight bus address (24 bit)
	Data               uint16 // Data word for the in-flight cycle
	Op                 int    // Bus operation for the in-flight cycle
	InterruptAssertion uint8  // Raised interrupt lines (5 bits)
	BusError           bool   // Device detected an error on the cycle
}

// Fold merges another device's assertions into this one. Interrupt lines
// are or'd together, a single bus error flags the whole tick.
func (a Assertions) Fold(other Assertions) Assertions {
	return Assertions{
		InterruptAssertion: a.InterruptAssertion | other.InterruptAssertion,
		BusError:           a.BusError || other.BusError,
	}
}

// Device is the contract every memory mapped peripheral implements.
// Addresses handed to ReadAddress/WriteAddress are segment relative word
// addresses. Poll is called once per master clock tick; selected indicates
// the device is chip-selected for the in-flight bus cycle, and a device
// must not touch its memory on a poll unless selected.
type Device interface {
	ReadAddress(address uint32) uint16
	WriteAddress(address uint32, value uint16)

	// Raw byte access for segment snapshotting, two big-endian bytes per
	// word.
	ReadRawBytes(limitWords uint32) []byte
	WriteRawBytes(data []byte)

	Poll(incoming Assertions, selected bool) Assertions
}

// StubDevice is the minimal device used by tests and as filler for
// unpopulated segments. Reads beyond the backing array return zero, writes
// beyond it are dropped.
type StubDevice struct {
	Store [32]uint16
}

func (d *StubDevice) ReadAddress(address uint32) uint16 {
	if address >= uint32(len(d.Store)) {
		return 0
	}
	return d.Store[address]
}

func (d *StubDevice) WriteAddress(address uint32, value uint16) {
	if address < uint32(len(d.Store)) {
		d.Store[address] = value
	}
}

func (d *StubDevice) ReadRawBytes(limitWords uint32) []byte {
	if limitWords > uint32(len(d.Store)) {
		limitWords = uint32(len(d.Store))
	}
	raw := make([]byte, limitWords*2)
	for i := uint32(0); i < limitWords; i++ {
		raw[i*2] = byte(d.Store[i] >> 8)
		raw[i*2+1] = byte(d.Store[i])
	}
	return raw
}

func (d *StubDevice) WriteRawBytes(data []byte) {
	for i := 0; i+1 < len(data) && i/2 < len(d.Store); i += 2 {
		d.Store[i/2] = uint16(data[i])<<8 | uint16(data[i+1])
	}
}

func (d *StubDevice) Poll(_ Assertions, _ bool) Assertions {
	return Assertions{}
}
