package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"chunklab/internal/chunker"
)

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List chunking strategies and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := chunker.Catalog()
			out := cmd.OutOrStdout()

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"strategies": catalog})
			}

			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()
			faint := color.New(color.Faint).SprintFunc()

			for _, s := range catalog {
				status := green("available")
				if !s.Available {
					status = red("unavailable")
				}
				fmt.Fprintf(out, "%s (%s) %s\n", s.Key, s.Name, status)
				fmt.Fprintf(out, "  %s\n", s.Description)
				for _, p := range s.Params {
					line := fmt.Sprintf("    %-18s %-9s default %v", p.Name, p.Type, formatDefault(p.Default))
					if len(p.Enum) > 0 {
						line += " one of " + strings.Join(p.Enum, "|")
					}
					if p.Reserved {
						line += " " + faint("(reserved)")
					}
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func formatDefault(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
