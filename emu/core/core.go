/*
   SIRC core: drives the CPU, polls the bus devices once per tick and gates
   execution on the debug channel.

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

package core

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/NoxHarmonium/sirc-sub000/emu/bus"
	"github.com/NoxHarmonium/sirc-sub000/emu/cpu"
	"github.com/NoxHarmonium/sirc-sub000/emu/debug"
)

// Core owns the simulation loop. The CPU, bus and devices are only touched
// from the core's goroutine once Start has been called.
type Core struct {
	cpu *cpu.CPU
	bus *bus.Bus
	ctl *debug.Controller

	wg   sync.WaitGroup
	done chan struct{}
}

// New wires a core over a CPU and bus. The debug channel set may be nil
// when running without a debugger.
func New(c *cpu.CPU, b *bus.Bus, channels *debug.Channels) *Core {
	return &Core{
		cpu:  c,
		bus:  b,
		ctl:  debug.NewController(channels),
		done: make(chan struct{}),
	}
}

func (core *Core) snapshot() debug.Snapshot {
	return debug.Snapshot{
		PC:        core.cpu.Registers().FullPC(),
		Registers: core.cpu.Registers().Snapshot(),
	}
}

// Start runs the simulation until the CPU halts, the debugger disconnects
// or Stop is called. Intended to run as a goroutine.
func (core *Core) Start() {
	core.wg.Add(1)
	defer core.wg.Done()

	for {
		select {
		case <-core.done:
			slog.Info("core: shutdown requested")
			return
		default:
		}

		// Debug gate between instructions; blocks while paused.
		if !core.ctl.Gate(core.cpu.Registers().FullPC(), core.snapshot) {
			slog.Info("core: debugger disconnected, stopping")
			return
		}

		_, err := core.cpu.Step()

		// Devices observe the bus once per tick; their assertions are
		// sampled at the entry check after the tick completes.
		core.cpu.AbsorbAssertions(core.bus.PollAll())

		if err != nil {
			if errors.Is(err, cpu.ErrHalted) {
				slog.Info("core: cpu halted",
					"cycles", core.cpu.Cycles(),
					"pc", core.cpu.Registers().FullPC())
				// Emit the final snapshot if a debugger is attached.
				core.ctl.NotifyHalt(core.snapshot())
				return
			}
			slog.Error("core: execution stopped", "error", err.Error())
			return
		}
	}
}

// Stop asks a running core to exit and waits briefly for it.
func (core *Core) Stop() {
	close(core.done)
	finished := make(chan struct{})
	go func() {
		core.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		slog.Warn("core: timed out waiting for simulation to finish")
	}
}

// Halted reports whether the CPU reached a halt state.
func (core *Core) Halted() bool {
	return core.cpu.Halted()
}
