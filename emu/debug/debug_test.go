/*
   SIRC debug channel tests.

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

package debug

import (
	"testing"
	"time"
)

func snapshotAt(pc uint32) func() Snapshot {
	return func() Snapshot {
		return Snapshot{PC: pc, Registers: map[string]string{"r1": "0"}}
	}
}

func TestInitialPauseAndResume(t *testing.T) {
	ch := NewChannels()
	ctl := NewController(ch)

	done := make(chan bool)
	go func() {
		done <- ctl.Gate(0x0200, snapshotAt(0x0200))
	}()

	msg := <-ch.VM
	if msg.Reason != ReasonInit {
		t.Errorf("first pause reason = %v want Init", msg.Reason)
	}
	if msg.State.PC != 0x0200 {
		t.Errorf("snapshot pc = %04x", msg.State.PC)
	}
	ch.Debugger <- DebuggerMessage{Kind: MsgResumeVM, Condition: ResumeNone}
	if !<-done {
		t.Errorf("gate should report running after resume")
	}
}

func TestBreakpointPause(t *testing.T) {
	ch := NewChannels()
	ctl := NewController(ch)
	ctl.started = true
	ctl.UpdateBreakpoints([]BreakpointRef{{ID: 7, PC: 0x0204}})

	// No pause away from the breakpoint.
	if !ctl.Gate(0x0200, snapshotAt(0x0200)) {
		t.Fatalf("gate should pass a non-breakpoint pc")
	}

	done := make(chan bool)
	go func() {
		done <- ctl.Gate(0x0204, snapshotAt(0x0204))
	}()
	msg := <-ch.VM
	if msg.Reason != ReasonBreakpoint || msg.BreakpointID != 7 {
		t.Errorf("pause = %v id %d, want breakpoint 7", msg.Reason, msg.BreakpointID)
	}
	ch.Debugger <- DebuggerMessage{Kind: MsgResumeVM}
	<-done
}

func TestUntilNextStepPausesOnce(t *testing.T) {
	ch := NewChannels()
	ctl := NewController(ch)
	ctl.started = true

	// Ask for a single step while running.
	ch.Debugger <- DebuggerMessage{Kind: MsgResumeVM, Condition: ResumeUntilNextStep}
	if !ctl.Gate(0x0200, snapshotAt(0x0200)) {
		t.Fatalf("gate should keep running after arming single step")
	}

	done := make(chan bool)
	go func() {
		done <- ctl.Gate(0x0202, snapshotAt(0x0202))
	}()
	msg := <-ch.VM
	if msg.Reason != ReasonStep {
		t.Errorf("pause reason = %v want Step", msg.Reason)
	}
	ch.Debugger <- DebuggerMessage{Kind: MsgResumeVM}
	<-done

	// The step condition is consumed; the next gate sails through.
	passed := make(chan bool)
	go func() {
		passed <- ctl.Gate(0x0204, snapshotAt(0x0204))
	}()
	select {
	case ok := <-passed:
		if !ok {
			t.Errorf("gate should keep running")
		}
	case <-time.After(time.Second):
		t.Errorf("gate should not pause twice for one step request")
	}
}

func TestDisconnectStopsExecutor(t *testing.T) {
	ch := NewChannels()
	ctl := NewController(ch)
	ctl.started = true
	ctl.UpdateBreakpoints([]BreakpointRef{{ID: 1, PC: 0x0200}})

	done := make(chan bool)
	go func() {
		done <- ctl.Gate(0x0200, snapshotAt(0x0200))
	}()
	<-ch.VM
	ch.Debugger <- DebuggerMessage{Kind: MsgDisconnect}
	if <-done {
		t.Errorf("gate should report stop after disconnect")
	}
	if !ctl.Disconnected() {
		t.Errorf("controller should be disconnected")
	}
}

func TestBreakpointUpdateWhilePaused(t *testing.T) {
	ch := NewChannels()
	ctl := NewController(ch)
	ctl.started = true
	ctl.UpdateBreakpoints([]BreakpointRef{{ID: 1, PC: 0x0200}})

	done := make(chan bool)
	go func() {
		done <- ctl.Gate(0x0200, snapshotAt(0x0200))
	}()
	<-ch.VM
	// Swap the table while paused, then resume.
	ch.Debugger <- DebuggerMessage{Kind: MsgUpdateBreakpoints,
		Breakpoints: []BreakpointRef{{ID: 2, PC: 0x0300}}}
	ch.Debugger <- DebuggerMessage{Kind: MsgResumeVM}
	<-done

	if !ctl.Gate(0x0200, snapshotAt(0x0200)) {
		t.Errorf("old breakpoint should be gone")
	}
	if _, hit := ctl.breakpoints[0x0300]; !hit {
		t.Errorf("new breakpoint should be installed")
	}
}

func TestNilChannelsNeverPause(t *testing.T) {
	ctl := NewController(nil)
	for pc := uint32(0); pc < 0x10; pc += 2 {
		if !ctl.Gate(pc, snapshotAt(pc)) {
			t.Fatalf("nil-channel controller must never stop")
		}
	}
}
