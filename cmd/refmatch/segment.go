package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/refmatch/internal/reference"
	"github.com/matsen/refmatch/internal/segment"
)

var segmentCmd = &cobra.Command{
	Use:   "segment <file>",
	Short: "Split a reference list into individual references",
	Long: `Split a reference list into individual references.

Numbered lines ("[1]", "(1)", "1.") start a new reference, other lines
continue the current one and blank lines end it. Use "-" to read stdin.

Examples:
  refmatch segment refs.txt
  refmatch segment paper.pdf --human
  pbpaste | refmatch segment -`,
	Args: cobra.ExactArgs(1),
	Run:  runSegment,
}

func init() {
	rootCmd.AddCommand(segmentCmd)
}

// SegmentResponse is the response for the segment command.
type SegmentResponse struct {
	Count      int              `json:"count"`
	References []reference.Span `json:"references"`
}

func runSegment(cmd *cobra.Command, args []string) {
	spans := segment.Segment(mustReadInput(args[0]))
	if spans == nil {
		spans = []reference.Span{}
	}

	if humanOutput {
		for _, s := range spans {
			outputHuman("%s\n\n", formatSpanHuman(s))
		}
		outputHuman("%d references\n", len(spans))
		return
	}
	outputJSON(SegmentResponse{Count: len(spans), References: spans})
}

func formatSpanHuman(s reference.Span) string {
	return fmt.Sprintf("#%d [%s] %s", s.Ordinal, orDash(s.Label), s.Text)
}
