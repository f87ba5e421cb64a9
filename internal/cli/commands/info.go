// Copyright 2024 LatentFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"hugefs/internal/hugefile"
)

var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Show the on-disk layout of a huge file",
	Long: `Show the persisted end of file and the sub-files of a huge file.

Sub-files past the one holding the end of file are reported as stray, and
sub-files larger than the configured sub-file size as oversized. Either
means the directory was changed outside of hugefile.

Examples:
  hugefile info ./area/line.bin
  hugefile info --settings small.yaml /data/index`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	dir, err := absPath(args[0])
	if err != nil {
		return err
	}

	layout, err := hugefile.Inspect(osfs.New("/", osfs.WithBoundOS()), dir, options)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Path:          %s\n", layout.Path)
	fmt.Fprintf(out, "End of file:   %s bytes (%s)\n", humanize.Comma(layout.EOF), humanize.IBytes(uint64(layout.EOF)))
	fmt.Fprintf(out, "Sub-file size: %s\n", humanize.IBytes(uint64(layout.MaxSubfileSize)))
	fmt.Fprintf(out, "Sub-files:     %d (%s on disk)\n", len(layout.Subfiles), humanize.IBytes(uint64(layout.PhysicalSize())))
	for _, sf := range layout.Subfiles {
		fmt.Fprintf(out, "  %s  %s\n", sf.Name, humanize.Comma(sf.Size))
	}

	if layout.Clean() {
		fmt.Fprintln(out, "Status:        clean")
		return nil
	}
	for _, sf := range layout.Stray {
		fmt.Fprintf(out, "Stray:         %s\n", sf.Name)
	}
	for _, sf := range layout.Oversized {
		fmt.Fprintf(out, "Oversized:     %s\n", sf.Name)
	}
	return nil
}
