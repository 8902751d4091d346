package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"chunklab/internal/chunker"
	"chunklab/internal/extract"
	"chunklab/internal/preview"
	"chunklab/internal/tokens"
)

const snippetRunes = 60

func newPreviewCmd() *cobra.Command {
	var (
		strategy string
		backend  string
		params   []string
		showText bool
	)
	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Chunk a file (or stdin) with one strategy",
		Example: `  chunkctl preview README.md --strategy structure
  cat notes.txt | chunkctl preview --strategy fixed --param unit=chars --param size=200
  chunkctl preview doc.md --strategy recursive --param 'separators=["\n\n"]' --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			p, err := parseParams(params)
			if err != nil {
				return err
			}

			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			svc := preview.NewService(log, chunker.New(tokens.New(backend)), nil, nil, preview.Options{Backend: backend})
			resp, err := svc.Preview(context.Background(), preview.Request{Text: &text, StrategyKey: strategy, Params: p})
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printPreview(cmd.OutOrStdout(), resp, showText)
			return nil
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", chunker.KeyRecursive, "Strategy key")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Strategy parameter as key=value; JSON values are decoded")
	cmd.Flags().StringVar(&backend, "tokenizer-backend", tokens.BackendHeuristic, "Token estimator: heuristic or tiktoken")
	cmd.Flags().BoolVar(&showText, "show-text", false, "Print the full text of every chunk")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return extract.Text(args[0], extract.TypeFor(args[0]), b)
}

// parseParams turns key=value pairs into Params. Values that parse as JSON
// keep their JSON type; anything else is a string.
func parseParams(pairs []string) (chunker.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	p := chunker.Params{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			p[k] = decoded
		} else {
			p[k] = v
		}
	}
	return p, nil
}

func printPreview(w io.Writer, resp preview.Response, showText bool) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	if len(resp.Chunks) == 0 {
		fmt.Fprintln(w, faint("no chunks"))
		return
	}

	if showText {
		for _, c := range resp.Chunks {
			fmt.Fprintf(w, "%s %s %s\n", bold(fmt.Sprintf("#%d", c.Ordinal)), cyan(fmt.Sprintf("[%d,%d)", c.StartChar, c.EndChar)), faint(fmt.Sprintf("%d tokens", c.TokenCount)))
			fmt.Fprintln(w, c.Text)
			fmt.Fprintln(w)
		}
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tSPAN\tTOKENS\tTEXT")
		for _, c := range resp.Chunks {
			fmt.Fprintf(tw, "%d\t[%d,%d)\t%d\t%s\n", c.Ordinal, c.StartChar, c.EndChar, c.TokenCount, snippet(c.Text))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	m := resp.Metrics
	fmt.Fprintf(w, "%s %d chunks, %d tokens (avg %d, min %d, max %d)\n",
		bold("metrics:"), m.TotalChunks, m.TotalTokens, m.AvgTokensPerChunk, m.MinTokens, m.MaxTokens)
}

func snippet(text string) string {
	text = strings.NewReplacer("\n", `\n`, "\t", `\t`).Replace(text)
	r := []rune(text)
	if len(r) <= snippetRunes {
		return text
	}
	return string(r[:snippetRunes-1]) + "…"
}
