/*
   SIRC interactive monitor: a liner driven console that observes the VM
   through the debug channel.

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

package command

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/NoxHarmonium/sirc-sub000/emu/bus"
	"github.com/NoxHarmonium/sirc-sub000/emu/debug"
	"github.com/NoxHarmonium/sirc-sub000/emu/inst"
	"github.com/NoxHarmonium/sirc-sub000/util/hex"
)

var commands = []string{
	"break", "continue", "delete", "examine", "help", "quit", "registers", "step",
}

// Monitor is the interactive console attached to a paused VM.
type Monitor struct {
	channels *debug.Channels
	bus      *bus.Bus

	breakpoints map[int]uint32
	nextID      int
	lastState   debug.Snapshot
}

// NewMonitor builds a monitor over the debug channel pair. The bus pointer
// is only used to examine memory while the VM is paused.
func NewMonitor(channels *debug.Channels, b *bus.Bus) *Monitor {
	return &Monitor{
		channels:    channels,
		bus:         b,
		breakpoints: make(map[int]uint32),
		nextID:      1,
	}
}

func (m *Monitor) waitForPause() bool {
	msg, ok := <-m.channels.VM
	if !ok {
		return false
	}
	m.lastState = msg.State
	switch msg.Reason {
	case debug.ReasonInit:
		fmt.Println("Paused at start of program")
	case debug.ReasonBreakpoint:
		fmt.Printf("Breakpoint %d hit at %06x\n", msg.BreakpointID, msg.State.PC)
	case debug.ReasonStep:
		fmt.Printf("Paused at %06x\n", msg.State.PC)
	}
	return true
}

func (m *Monitor) syncBreakpoints() {
	refs := make([]debug.BreakpointRef, 0, len(m.breakpoints))
	for id, pc := range m.breakpoints {
		refs = append(refs, debug.BreakpointRef{ID: id, PC: pc})
	}
	m.channels.Debugger <- debug.DebuggerMessage{
		Kind: debug.MsgUpdateBreakpoints, Breakpoints: refs}
}

func (m *Monitor) printRegisters() {
	names := inst.RegisterNames
	for i, name := range names {
		fmt.Printf("%-3s %6s", name, m.lastState.Registers[name])
		if i%4 == 3 {
			fmt.Println()
		} else {
			fmt.Print("   ")
		}
	}
	fmt.Printf("pc  %06x\n", m.lastState.PC)
}

func (m *Monitor) examine(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: examine <addr> [count]")
		return
	}
	addr, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 32)
	if err != nil {
		fmt.Println("bad address:", args[0])
		return
	}
	count := uint64(8)
	if len(args) > 1 {
		if count, err = strconv.ParseUint(args[1], 10, 16); err != nil {
			fmt.Println("bad count:", args[1])
			return
		}
	}
	words := make([]uint16, count)
	for i := range words {
		words[i] = m.bus.ReadAddress(uint32(addr) + uint32(i))
	}
	fmt.Print(hex.DumpWords(uint32(addr), words))

	// Show the first two words disassembled as an instruction when the
	// address is instruction aligned.
	if addr&1 == 0 && count >= 2 {
		raw := inst.WordsToBytes([2]uint16{words[0], words[1]})
		fmt.Printf("  %s\n", inst.Disassemble(inst.Decode(raw)))
	}
}

// process runs one command; reports whether the monitor should exit.
func (m *Monitor) process(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch {
	case strings.HasPrefix("registers", cmd):
		m.printRegisters()

	case strings.HasPrefix("examine", cmd):
		m.examine(args)

	case strings.HasPrefix("step", cmd):
		m.channels.Debugger <- debug.DebuggerMessage{
			Kind: debug.MsgResumeVM, Condition: debug.ResumeUntilNextStep}
		return !m.waitForPause()

	case strings.HasPrefix("continue", cmd):
		m.channels.Debugger <- debug.DebuggerMessage{
			Kind: debug.MsgResumeVM, Condition: debug.ResumeNone}
		return !m.waitForPause()

	case strings.HasPrefix("break", cmd):
		if len(args) != 1 {
			fmt.Println("usage: break <addr>")
			return false
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 32)
		if err != nil {
			fmt.Println("bad address:", args[0])
			return false
		}
		id := m.nextID
		m.nextID++
		m.breakpoints[id] = uint32(addr)
		m.syncBreakpoints()
		fmt.Printf("Breakpoint %d at %06x\n", id, addr)

	case strings.HasPrefix("delete", cmd):
		if len(args) != 1 {
			fmt.Println("usage: delete <id>")
			return false
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println("bad breakpoint id:", args[0])
			return false
		}
		delete(m.breakpoints, id)
		m.syncBreakpoints()

	case strings.HasPrefix("help", cmd):
		fmt.Println("commands:", strings.Join(commands, ", "))

	case strings.HasPrefix("quit", cmd):
		m.channels.Debugger <- debug.DebuggerMessage{Kind: debug.MsgDisconnect}
		return true

	default:
		fmt.Println("unknown command; try help")
	}
	return false
}

// Run reads commands until quit or the VM goes away.
func (m *Monitor) Run() {
	if !m.waitForPause() {
		return
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var matches []string
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, strings.ToLower(prefix)) {
				matches = append(matches, cmd)
			}
		}
		return matches
	})

	for {
		input, err := line.Prompt("sirc> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				m.channels.Debugger <- debug.DebuggerMessage{Kind: debug.MsgDisconnect}
				return
			}
			slog.Error("monitor: reading line", "error", err.Error())
			return
		}
		line.AppendHistory(input)
		if m.process(input) {
			return
		}
	}
}
