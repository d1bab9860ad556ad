/*
   SIRC machine configuration file parser.

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

package configparser

/* Configuration file format:
 *
 * '#' indicates a comment, rest of line is ignored.
 * <line> := 'segment' <label> <address> <size> <type> *(<option>) |
 *           'program' <label> <path> |
 *           'sysram' <address> |
 *           'logfile' <path>
 * <address>, <size> ::= hex number ('0x' prefix) | decimal number
 * <type> ::= 'ram' | 'rom' | 'stub'
 * <option> ::= 'readonly'
 */

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Segment device types.
const (
	TypeRAM = "ram"
	TypeROM = "rom"
	TypeStub = "stub"
)

// SegmentDef describes one bus segment to create at VM start.
type SegmentDef struct {
	Label    string
	Address  uint32 // Base word address
	Size     uint32 // Length in words
	Type     string
	Writable bool
}

// ProgramDef names a linked binary to load into a segment.
type ProgramDef struct {
	Segment string
	Path    string
}

// Config is the parsed machine description.
type Config struct {
	Segments        []SegmentDef
	Programs        []ProgramDef
	SystemRAMOffset uint32
	LogFile         string
}

var errBadLine = errors.New("configparser: malformed line")

func parseNumber(field string) (uint32, error) {
	if strings.HasPrefix(field, "0x") || strings.HasPrefix(field, "0X") {
		value, err := strconv.ParseUint(field[2:], 16, 32)
		return uint32(value), err
	}
	value, err := strconv.ParseUint(field, 10, 32)
	return uint32(value), err
}

func parseSegment(fields []string, lineNumber int) (SegmentDef, error) {
	if len(fields) < 4 {
		return SegmentDef{}, fmt.Errorf("%w %d: segment needs label, address, size and type",
			errBadLine, lineNumber)
	}
	address, err := parseNumber(fields[1])
	if err != nil {
		return SegmentDef{}, fmt.Errorf("%w %d: bad address %q", errBadLine, lineNumber, fields[1])
	}
	size, err := parseNumber(fields[2])
	if err != nil || size == 0 {
		return SegmentDef{}, fmt.Errorf("%w %d: bad size %q", errBadLine, lineNumber, fields[2])
	}

	segType := strings.ToLower(fields[3])
	writable := true
	switch segType {
	case TypeRAM, TypeStub:
	case TypeROM:
		writable = false
	default:
		return SegmentDef{}, fmt.Errorf("%w %d: unknown segment type %q",
			errBadLine, lineNumber, fields[3])
	}

	for _, option := range fields[4:] {
		switch strings.ToLower(option) {
		case "readonly":
			writable = false
		default:
			return SegmentDef{}, fmt.Errorf("%w %d: unknown option %q",
				errBadLine, lineNumber, option)
		}
	}

	return SegmentDef{
		Label:    fields[0],
		Address:  address,
		Size:     size,
		Type:     segType,
		Writable: writable,
	}, nil
}

// Parse reads a configuration from a stream.
func Parse(r io.Reader) (*Config, error) {
	config := &Config{}
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "segment":
			segment, err := parseSegment(fields[1:], lineNumber)
			if err != nil {
				return nil, err
			}
			for _, existing := range config.Segments {
				if existing.Label == segment.Label {
					return nil, fmt.Errorf("%w %d: duplicate segment %q",
						errBadLine, lineNumber, segment.Label)
				}
			}
			config.Segments = append(config.Segments, segment)

		case "program":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w %d: program needs a segment label and a path",
					errBadLine, lineNumber)
			}
			config.Programs = append(config.Programs,
				ProgramDef{Segment: fields[1], Path: fields[2]})

		case "sysram":
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w %d: sysram needs an address", errBadLine, lineNumber)
			}
			address, err := parseNumber(fields[1])
			if err != nil {
				return nil, fmt.Errorf("%w %d: bad sysram address %q",
					errBadLine, lineNumber, fields[1])
			}
			config.SystemRAMOffset = address

		case "logfile":
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w %d: logfile needs a path", errBadLine, lineNumber)
			}
			config.LogFile = fields[1]

		default:
			return nil, fmt.Errorf("%w %d: unknown keyword %q", errBadLine, lineNumber, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigFile parses a configuration from disk.
func LoadConfigFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file)
}
