/*
   SIRC debug event channel: the pause/resume contract between the executor
   and an external observer, plus the breakpoint table.

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

import "time"

// Pause reasons reported to the observer.
type PauseReason int

const (
	ReasonInit PauseReason = iota
	ReasonBreakpoint
	ReasonStep
)

// Resume conditions requested by the observer.
type ResumeCondition int

const (
	ResumeNone ResumeCondition = iota
	ResumeUntilNextStep
)

// Debugger message kinds.
type MessageKind int

const (
	MsgResumeVM MessageKind = iota
	MsgPauseVM
	MsgUpdateBreakpoints
	MsgDisconnect
)

// Snapshot is the machine state attached to a pause event: the program
// counter and every register value as a decimal string keyed by name.
type Snapshot struct {
	PC        uint32
	Registers map[string]string
}

// VMMessage flows executor to observer.
type VMMessage struct {
	Reason       PauseReason
	BreakpointID int // Valid for ReasonBreakpoint
	State        Snapshot
}

// BreakpointRef pairs a breakpoint id with its program counter.
type BreakpointRef struct {
	ID int
	PC uint32
}

// DebuggerMessage flows observer to executor.
type DebuggerMessage struct {
	Kind        MessageKind
	Condition   ResumeCondition // For MsgResumeVM
	Breakpoints []BreakpointRef // For MsgUpdateBreakpoints
}

// Channels is the paired channel set between the executor and observer.
type Channels struct {
	VM       chan VMMessage
	Debugger chan DebuggerMessage
}

// NewChannels allocates the channel pair. The VM side is unbuffered so a
// pause event blocks the executor until the observer reads it.
func NewChannels() *Channels {
	return &Channels{
		VM:       make(chan VMMessage),
		Debugger: make(chan DebuggerMessage, 8),
	}
}

// Controller gates the executor on debug conditions. All methods run on
// the executor goroutine between instructions.
type Controller struct {
	channels *Channels

	breakpoints  map[uint32]int
	singleStep   bool
	disconnected bool
	started      bool
}

// NewController wraps a channel pair. A nil channel set produces a
// controller that never pauses, so the executor can run undebugged without
// special cases.
func NewController(channels *Channels) *Controller {
	return &Controller{
		channels:    channels,
		breakpoints: make(map[uint32]int),
	}
}

// Disconnected reports whether the observer has gone away; the executor
// should drain and stop.
func (c *Controller) Disconnected() bool {
	return c.disconnected
}

// UpdateBreakpoints replaces the breakpoint table.
func (c *Controller) UpdateBreakpoints(refs []BreakpointRef) {
	c.breakpoints = make(map[uint32]int, len(refs))
	for _, ref := range refs {
		c.breakpoints[ref.PC] = ref.ID
	}
}

func (c *Controller) handle(msg DebuggerMessage) (resume bool) {
	switch msg.Kind {
	case MsgResumeVM:
		c.singleStep = msg.Condition == ResumeUntilNextStep
		return true
	case MsgUpdateBreakpoints:
		c.UpdateBreakpoints(msg.Breakpoints)
		return false
	case MsgPauseVM:
		// Already paused.
		return false
	case MsgDisconnect:
		c.disconnected = true
		return true
	}
	return false
}

// pause emits a pause event and blocks until the observer resumes or
// disconnects.
func (c *Controller) pause(reason PauseReason, id int, state Snapshot) {
	c.channels.VM <- VMMessage{Reason: reason, BreakpointID: id, State: state}
	for {
		msg, ok := <-c.channels.Debugger
		if !ok {
			c.disconnected = true
			return
		}
		if c.handle(msg) {
			return
		}
	}
}

// NotifyHalt hands the final register snapshot to the observer when the
// machine halts. Best effort: if the observer stops reading, the event is
// dropped after a grace period rather than wedging shutdown.
func (c *Controller) NotifyHalt(state Snapshot) {
	if c.channels == nil || c.disconnected {
		return
	}
	select {
	case c.channels.VM <- VMMessage{Reason: ReasonStep, State: state}:
	case <-time.After(time.Second):
	}
}

// Gate is called between instructions with the current PC and a state
// snapshot builder. It pauses the executor when a debug condition holds.
// Returns false once the observer disconnects.
func (c *Controller) Gate(pc uint32, snapshot func() Snapshot) bool {
	if c.channels == nil || c.disconnected {
		return !c.disconnected
	}

	// Initial pause so the observer can plant breakpoints before the
	// first instruction.
	if !c.started {
		c.started = true
		c.pause(ReasonInit, 0, snapshot())
		return !c.disconnected
	}

	// A single step request pauses at the next instruction boundary.
	if c.singleStep {
		c.singleStep = false
		c.pause(ReasonStep, 0, snapshot())
		return !c.disconnected
	}
	if id, hit := c.breakpoints[pc]; hit {
		c.pause(ReasonBreakpoint, id, snapshot())
		return !c.disconnected
	}

	// Drain without blocking: the observer may have asked for a pause or
	// replaced the breakpoint table while we were running.
	for {
		select {
		case msg, ok := <-c.channels.Debugger:
			if !ok {
				c.disconnected = true
				return false
			}
			if msg.Kind == MsgPauseVM {
				c.pause(ReasonStep, 0, snapshot())
				return !c.disconnected
			}
			c.handle(msg)
			continue
		default:
		}
		break
	}
	return true
}
