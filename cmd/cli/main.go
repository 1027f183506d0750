package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datasamory/datasamorybot/internal/config"
	"github.com/datasamory/datasamorybot/internal/handlers"
	"github.com/datasamory/datasamorybot/internal/links"
	"github.com/datasamory/datasamorybot/internal/logging"
	"github.com/datasamory/datasamorybot/internal/telegram"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "datasamorybot-cli",
		Short:        "Run the URL summarization pipeline without Telegram",
		SilenceUsage: true,
	}

	root.AddCommand(newURLsCmd(), newFetchCmd(), newSummarizeCmd())
	return root
}

func newURLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "urls <text>",
		Short: "Print the URLs found in text, one per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, url := range links.Extract(strings.Join(args, " ")) {
				fmt.Fprintln(cmd.OutOrStdout(), url)
			}
			return nil
		},
	}
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url>",
		Short: "Extract the article at url and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPipeline()
			if err != nil {
				return err
			}

			fetcher, _, err := handlers.NewPipeline(cfg, logging.New(cmd.ErrOrStderr(), cfg.LogLevel, logging.FormatConsole))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ProcessTimeout())
			defer cancel()

			a, ok := fetcher.Fetch(ctx, args[0])
			if !ok {
				return fmt.Errorf("failed to extract content from: %s", args[0])
			}

			return writeJSON(cmd.OutOrStdout(), a)
		},
	}
}

func newSummarizeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summarize <url>...",
		Short: "Summarize each url in English and Russian",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPipeline()
			if err != nil {
				return err
			}

			fetcher, generator, err := handlers.NewPipeline(cfg, logging.New(cmd.ErrOrStderr(), cfg.LogLevel, logging.FormatConsole))
			if err != nil {
				return err
			}

			failed := 0
			for _, url := range args {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ProcessTimeout())

				a, ok := fetcher.Fetch(ctx, url)
				if !ok {
					cancel()
					fmt.Fprintf(cmd.ErrOrStderr(), "❌ Failed to extract content from: %s\n", url)
					failed++
					continue
				}

				result := generator.Generate(ctx, a.Text, url)
				cancel()

				if asJSON {
					err = writeJSON(cmd.OutOrStdout(), handlers.SummarizeResponse{
						Title:       a.Title,
						URL:         a.URL,
						Authors:     a.Authors,
						PublishDate: a.PublishDate,
						English:     result.English,
						Russian:     result.Russian,
						Text:        telegram.FormatSummary(a, result),
					})
				} else {
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", telegram.FormatSummary(a, result))
				}
				if err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d URLs failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
