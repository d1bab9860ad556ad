/*
   SIRC toolchain driver: assembler and linker subcommands.

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
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NoxHarmonium/sirc-sub000/asm"
	"github.com/NoxHarmonium/sirc-sub000/link"
	"github.com/NoxHarmonium/sirc-sub000/obj"
)

func parseBase(field string) (uint32, error) {
	if strings.HasPrefix(field, "0x") || strings.HasPrefix(field, "0X") {
		value, err := strconv.ParseUint(field[2:], 16, 32)
		return uint32(value), err
	}
	value, err := strconv.ParseUint(field, 10, 32)
	return uint32(value), err
}

func newAsmCommand() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "asm [flags] <input files>",
		Short: "Assemble SIRC sources into an object file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			for _, path := range args {
				source, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				object, err := asm.Assemble(path, string(source))
				if err != nil {
					return err
				}
				// A named output only applies to a single input; with
				// several inputs each object lands next to its source.
				target := strings.TrimSuffix(path, ".asm") + ".o"
				if outputFile != "" && len(args) == 1 {
					target = outputFile
				}
				if err := obj.WriteFile(target, object); err != nil {
					return err
				}
				fmt.Printf("assembled %s -> %s (%d bytes)\n",
					path, target, len(object.Program))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output object file")
	return cmd
}

func newLinkCommand() *cobra.Command {
	var outputFile string
	var segmentBase string

	cmd := &cobra.Command{
		Use:   "link [flags] <object files>",
		Short: "Link object files into a loadable binary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			base, err := parseBase(segmentBase)
			if err != nil {
				return fmt.Errorf("bad segment base %q: %w", segmentBase, err)
			}
			var objects []*obj.Object
			for _, path := range args {
				object, err := obj.ReadFile(path)
				if err != nil {
					return err
				}
				objects = append(objects, object)
			}
			linked, _, err := link.Link(objects, base)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outputFile, linked, 0o644); err != nil {
				return err
			}
			fmt.Printf("linked %d object(s) -> %s (%d bytes at 0x%06x)\n",
				len(objects), outputFile, len(linked), base)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "out.bin", "Output binary")
	cmd.Flags().StringVarP(&segmentBase, "segment-base", "s", "0x0000", "Segment base word address")
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:   "sirc-tools",
		Short: "SIRC assembler and linker",
	}
	root.AddCommand(newAsmCommand())
	root.AddCommand(newLinkCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
