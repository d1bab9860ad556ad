/*
   SIRC bus peripheral: segment registry, address routing and per tick
   device polling.

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
	"fmt"
	"log/slog"
	"os"
)

// Segment binds a device to a range of the 24 bit address space. Segments
// are registered at setup and never move.
type Segment struct {
	Label    string
	Address  uint32 // Base word address
	Size     uint32 // Length in words
	Writable bool
	Device   Device
}

// Bus owns the registered segments and routes all memory traffic. It is the
// single mutation point for device memory.
type Bus struct {
	segments []*Segment

	// Address and data of the most recent CPU initiated cycle, handed to
	// devices on the next poll so the selected device can observe it.
	lastCycle Assertions
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// MapSegment registers a device over an address range. Overlapping an
// existing segment is a configuration bug and panics.
func (b *Bus) MapSegment(label string, address, size uint32, writable bool, device Device) {
	for _, seg := range b.segments {
		if address < seg.Address+seg.Size && seg.Address < address+size {
			panic(fmt.Sprintf("bus: segment %s [%06x-%06x] overlaps %s [%06x-%06x]",
				label, address, address+size-1,
				seg.Label, seg.Address, seg.Address+seg.Size-1))
		}
	}
	slog.Debug("bus: map segment", "label", label,
		"base", fmt.Sprintf("0x%06x", address),
		"size", fmt.Sprintf("0x%06x", size), "writable", writable)
	b.segments = append(b.segments, &Segment{
		Label:    label,
		Address:  address,
		Size:     size,
		Writable: writable,
		Device:   device,
	})
}

// SegmentForLabel finds a registered segment by label.
func (b *Bus) SegmentForLabel(label string) *Segment {
	for _, seg := range b.segments {
		if seg.Label == label {
			return seg
		}
	}
	return nil
}

// SegmentForAddress finds the segment mapping an address. Registration
// order breaks ties, although MapSegment refuses overlaps anyway.
func (b *Bus) SegmentForAddress(address uint32) *Segment {
	for _, seg := range b.segments {
		if address >= seg.Address && address < seg.Address+seg.Size {
			return seg
		}
	}
	return nil
}

// ReadAddress reads one word. Unmapped addresses warn and read as zero.
func (b *Bus) ReadAddress(address uint32) uint16 {
	seg := b.SegmentForAddress(address)
	if seg == nil {
		slog.Warn("bus: read of unmapped address",
			"address", fmt.Sprintf("0x%06x", address))
		return 0
	}
	value := seg.Device.ReadAddress(address - seg.Address)
	b.lastCycle = Assertions{Address: address, Data: value, Op: OpRead}
	return value
}

// WriteAddress writes one word. Unmapped addresses warn and drop the value;
// writing a read-only segment is a programmer error and panics.
func (b *Bus) WriteAddress(address uint32, value uint16) {
	seg := b.SegmentForAddress(address)
	if seg == nil {
		slog.Warn("bus: write to unmapped address",
			"address", fmt.Sprintf("0x%06x", address),
			"value", fmt.Sprintf("0x%04x", value))
		return
	}
	if !seg.Writable {
		panic(fmt.Sprintf("bus: segment %s is read-only (write 0x%04x to 0x%06x)",
			seg.Label, value, address))
	}
	seg.Device.WriteAddress(address-seg.Address, value)
	b.lastCycle = Assertions{Address: address, Data: value, Op: OpWrite}
}

// PollAll runs every device once in registration order and folds their
// assertions. The device owning the most recent bus cycle is polled with
// selected set.
func (b *Bus) PollAll() Assertions {
	incoming := b.lastCycle
	folded := Assertions{}
	for _, seg := range b.segments {
		selected := incoming.Op != OpNone &&
			incoming.Address >= seg.Address && incoming.Address < seg.Address+seg.Size
		folded = folded.Fold(seg.Device.Poll(incoming, selected))
	}
	b.lastCycle = Assertions{}
	return folded
}

// DumpSegment serializes a segment's contents as raw bytes, two big-endian
// bytes per word.
func (b *Bus) DumpSegment(label string) ([]byte, error) {
	seg := b.SegmentForLabel(label)
	if seg == nil {
		return nil, fmt.Errorf("bus: no segment with label %q", label)
	}
	return seg.Device.ReadRawBytes(seg.Size), nil
}

// LoadBinaryIntoSegment copies raw bytes into a segment's device.
func (b *Bus) LoadBinaryIntoSegment(label string, data []byte) error {
	seg := b.SegmentForLabel(label)
	if seg == nil {
		return fmt.Errorf("bus: no segment with label %q", label)
	}
	if uint32(len(data)) > seg.Size*2 {
		return fmt.Errorf("bus: binary of %d bytes does not fit segment %q of %d words",
			len(data), label, seg.Size)
	}
	seg.Device.WriteRawBytes(data)
	return nil
}

// LoadBinaryIntoSegmentFromFile loads a linked binary from disk.
func (b *Bus) LoadBinaryIntoSegmentFromFile(label, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("bus: loading %q: %w", path, err)
	}
	return b.LoadBinaryIntoSegment(label, data)
}

// DumpSegmentToFile writes a segment snapshot to disk.
func (b *Bus) DumpSegmentToFile(label, path string) error {
	data, err := b.DumpSegment(label)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
