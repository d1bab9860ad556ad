/*
   SIRC bus peripheral tests.

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

import (
	"testing"
)

// Test device which records polls and raises configurable assertions.
type testDev struct {
	StubDevice
	polls      int
	selected   int
	assertIRQ  uint8
	assertBerr bool
}

func (d *testDev) Poll(_ Assertions, selected bool) Assertions {
	d.polls++
	if selected {
		d.selected++
	}
	return Assertions{InterruptAssertion: d.assertIRQ, BusError: d.assertBerr}
}

func TestSegmentRouting(t *testing.T) {
	b := New()
	ram1 := NewRAM(0x100)
	ram2 := NewRAM(0x100)
	b.MapSegment("low", 0x000000, 0x100, true, ram1)
	b.MapSegment("high", 0x200000, 0x100, true, ram2)

	b.WriteAddress(0x000010, 0xCAFE)
	b.WriteAddress(0x200010, 0xBEEF)

	if got := b.ReadAddress(0x000010); got != 0xCAFE {
		t.Errorf("low segment read: %04x", got)
	}
	if got := b.ReadAddress(0x200010); got != 0xBEEF {
		t.Errorf("high segment read: %04x", got)
	}

	// Same segment addresses route to the same device.
	if ram1.ReadAddress(0x10) != 0xCAFE || ram2.ReadAddress(0x10) != 0xBEEF {
		t.Errorf("writes routed to wrong device")
	}
}

func TestUnmappedAccess(t *testing.T) {
	b := New()
	b.MapSegment("only", 0x1000, 0x10, true, NewRAM(0x10))

	if got := b.ReadAddress(0x9999); got != 0 {
		t.Errorf("unmapped read should return 0, got %04x", got)
	}
	// Unmapped writes are dropped without panicking.
	b.WriteAddress(0x9999, 0xFFFF)
}

func TestReadOnlySegmentPanics(t *testing.T) {
	b := New()
	b.MapSegment("rom", 0x0, 0x10, false, NewRAM(0x10))

	defer func() {
		if recover() == nil {
			t.Errorf("write to read-only segment should panic")
		}
	}()
	b.WriteAddress(0x0, 0x1234)
}

func TestOverlapPanics(t *testing.T) {
	b := New()
	b.MapSegment("first", 0x100, 0x100, true, NewRAM(0x100))

	defer func() {
		if recover() == nil {
			t.Errorf("overlapping segment should panic")
		}
	}()
	b.MapSegment("second", 0x180, 0x100, true, NewRAM(0x100))
}

func TestPollAggregation(t *testing.T) {
	b := New()
	d1 := &testDev{assertIRQ: 0b00001}
	d2 := &testDev{assertIRQ: 0b10000}
	d3 := &testDev{assertBerr: true}
	b.MapSegment("d1", 0x0000, 0x100, true, d1)
	b.MapSegment("d2", 0x1000, 0x100, true, d2)
	b.MapSegment("d3", 0x2000, 0x100, true, d3)

	folded := b.PollAll()
	if folded.InterruptAssertion != 0b10001 {
		t.Errorf("interrupt fold: %05b", folded.InterruptAssertion)
	}
	if !folded.BusError {
		t.Errorf("bus error should aggregate")
	}
	if d1.polls != 1 || d2.polls != 1 || d3.polls != 1 {
		t.Errorf("each device polled once: %d %d %d", d1.polls, d2.polls, d3.polls)
	}
}

func TestChipSelectOnPoll(t *testing.T) {
	b := New()
	d1 := &testDev{}
	d2 := &testDev{}
	b.MapSegment("d1", 0x0000, 0x100, true, d1)
	b.MapSegment("d2", 0x1000, 0x100, true, d2)

	b.WriteAddress(0x1004, 0xAA55)
	b.PollAll()
	if d1.selected != 0 || d2.selected != 1 {
		t.Errorf("only the addressed device is selected: %d %d", d1.selected, d2.selected)
	}

	// The cycle is consumed; the next poll selects nobody.
	b.PollAll()
	if d2.selected != 1 {
		t.Errorf("selection should not persist across ticks")
	}
}

func TestDumpAndLoadSegment(t *testing.T) {
	b := New()
	b.MapSegment("prog", 0x0, 0x8, true, NewRAM(0x8))

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01}
	if err := b.LoadBinaryIntoSegment("prog", data); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := b.ReadAddress(0x0); got != 0xDEAD {
		t.Errorf("word 0: %04x", got)
	}
	if got := b.ReadAddress(0x2); got != 0x0001 {
		t.Errorf("word 2: %04x", got)
	}

	dump, err := b.DumpSegment("prog")
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if len(dump) != 16 {
		t.Errorf("dump length: %d", len(dump))
	}
	for i, want := range data {
		if dump[i] != want {
			t.Errorf("dump[%d] = %02x want %02x", i, dump[i], want)
		}
	}

	if err := b.LoadBinaryIntoSegment("prog", make([]byte, 100)); err == nil {
		t.Errorf("oversized load should fail")
	}
	if err := b.LoadBinaryIntoSegment("nope", data); err == nil {
		t.Errorf("unknown label should fail")
	}
}

func TestStubDevice(t *testing.T) {
	var d StubDevice
	if d.ReadAddress(0) != 0 || d.ReadAddress(9999) != 0 {
		t.Errorf("stub reads zero")
	}
	d.WriteAddress(3, 0x1234)
	if d.ReadAddress(3) != 0x1234 {
		t.Errorf("stub accepts writes into backing array")
	}
	d.WriteAddress(9999, 0x1234) // dropped, no panic
}
