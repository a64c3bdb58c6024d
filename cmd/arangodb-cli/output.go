package main

import (
	"encoding/json"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var heading = color.New(color.FgCyan, color.Bold)

// printResult writes title as a heading followed by v as indented JSON
func printResult(cmd *cobra.Command, title string, v any) error {
	return writeResult(cmd.OutOrStdout(), title, v)
}

func writeResult(w io.Writer, title string, v any) error {
	if title != "" {
		heading.Fprintln(w, title)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
