/*
   SIRC virtual machine entry point.

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

package main

import (
	"io"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/NoxHarmonium/sirc-sub000/command"
	config "github.com/NoxHarmonium/sirc-sub000/config/configparser"
	"github.com/NoxHarmonium/sirc-sub000/emu/bus"
	"github.com/NoxHarmonium/sirc-sub000/emu/core"
	"github.com/NoxHarmonium/sirc-sub000/emu/cpu"
	"github.com/NoxHarmonium/sirc-sub000/emu/debug"
	logger "github.com/NoxHarmonium/sirc-sub000/util/logger"
)

func deviceFor(segment config.SegmentDef) bus.Device {
	if segment.Type == config.TypeStub {
		return &bus.StubDevice{}
	}
	return bus.NewRAM(segment.Size)
}

func main() {
	optConfig := getopt.StringLong("config", 'c', "sirc.cfg", "Configuration file")
	optProgram := getopt.StringLong("program", 'p', "", "Linked binary to load into the program segment")
	optSegment := getopt.StringLong("segment", 's', "program", "Program segment label")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Start the interactive monitor")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	machine, err := config.LoadConfigFile(*optConfig)
	if err != nil {
		slog.Error("cannot load configuration", "path", *optConfig, "error", err.Error())
		os.Exit(1)
	}

	logPath := machine.LogFile
	if *optLogFile != "" {
		logPath = *optLogFile
	}
	var logSink io.Writer
	if logPath != "" {
		logFile, err := os.Create(logPath)
		if err != nil {
			slog.Error("cannot create log file", "path", logPath, "error", err.Error())
			os.Exit(1)
		}
		defer logFile.Close()
		logSink = logFile
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	slog.SetDefault(slog.New(logger.NewHandler(logSink,
		&slog.HandlerOptions{Level: level}, *optDebug)))

	slog.Info("SIRC started", "config", *optConfig)

	machineBus := bus.New()
	for _, segment := range machine.Segments {
		machineBus.MapSegment(segment.Label, segment.Address, segment.Size,
			segment.Writable, deviceFor(segment))
	}
	for _, program := range machine.Programs {
		if err := machineBus.LoadBinaryIntoSegmentFromFile(program.Segment, program.Path); err != nil {
			slog.Error("cannot load program", "error", err.Error())
			os.Exit(1)
		}
	}
	if *optProgram != "" {
		if err := machineBus.LoadBinaryIntoSegmentFromFile(*optSegment, *optProgram); err != nil {
			slog.Error("cannot load program", "error", err.Error())
			os.Exit(1)
		}
	}

	processor := cpu.New(machineBus, *optSegment, machine.SystemRAMOffset)

	var channels *debug.Channels
	if *optDebug {
		channels = debug.NewChannels()
	}
	simulation := core.New(processor, machineBus, channels)

	if *optDebug {
		go simulation.Start()
		command.NewMonitor(channels, machineBus).Run()
		simulation.Stop()
	} else {
		simulation.Start()
	}

	if !simulation.Halted() {
		os.Exit(1)
	}
}
