// Command search is a terminal client for the BrowseEase streaming
// search endpoint. It starts one search, mirrors the server's log and
// progress stream to stdout, and renders the final results as a table.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/browseease/browseease/internal/domain"
	"github.com/browseease/browseease/internal/stream"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	maxResults  int
	interval    time.Duration
	maxAttempts int
	noReconnect bool
	verbose     bool
)

func main() {
	root := &cobra.Command{
		Use:   "search [query]",
		Short: "Run a product search against a BrowseEase server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(strings.Join(args, " "))
		},
	}

	root.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "server base URL")
	root.Flags().IntVar(&maxResults, "max-results", domain.DefaultMaxResults, "maximum results to request")
	root.Flags().DurationVar(&interval, "interval", 2*time.Second, "delay between reconnect attempts")
	root.Flags().IntVar(&maxAttempts, "max-attempts", 5, "reconnect attempts before giving up")
	root.Flags().BoolVar(&noReconnect, "no-reconnect", false, "fail immediately when the connection drops")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(query string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := stream.New(strings.TrimRight(serverURL, "/")+"/ws/search",
		stream.WithLogger(logger),
		stream.WithReconnect(stream.ReconnectConfig{
			AutoReconnect: !noReconnect,
			Interval:      interval,
			MaxAttempts:   maxAttempts,
		}),
	)

	updates := sess.Subscribe()
	if err := sess.Start(ctx, domain.SearchRequest{Query: query, MaxResults: maxResults}); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		sess.Cancel()
	}()

	printed := make(map[string]bool)
	lastProgress := -1
	for state := range updates {
		for _, entry := range state.Logs {
			if printed[entry.Key] {
				continue
			}
			printed[entry.Key] = true
			fmt.Printf("%s %s\n", severityMark(entry.Severity), entry.Message)
		}
		if state.Progress > lastProgress && state.Status != "" {
			lastProgress = state.Progress
			fmt.Printf("  [%3d%%] %s\n", state.Progress, state.Status)
		}
		if state.Terminal() {
			return report(state)
		}
	}
	return nil
}

func report(state *stream.SessionState) error {
	switch state.Phase {
	case stream.PhaseCompleted:
		printResults(state.Results)
		return nil
	case stream.PhaseCancelled:
		fmt.Println("Search cancelled.")
		return nil
	default:
		if state.Err != nil {
			return state.Err
		}
		return fmt.Errorf("search ended in phase %s", state.Phase)
	}
}

func printResults(products []domain.Product) {
	if len(products) == 0 {
		fmt.Println("No results.")
		return
	}

	fmt.Println()
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header([]string{"Name", "Price", "Rating", "Source"})
	for _, p := range products {
		table.Append([]string{
			p.Name,
			fmt.Sprintf("₹%.0f", p.Price),
			fmt.Sprintf("%.1f (%d)", p.Rating, p.Reviews),
			p.Source,
		})
	}
	if err := table.Render(); err != nil {
		slog.Warn("Failed to render results table", "error", err)
	}
}

func severityMark(severity stream.Severity) string {
	switch severity {
	case stream.SeveritySuccess:
		return "✓"
	case stream.SeverityWarning:
		return "!"
	case stream.SeverityError:
		return "✗"
	case stream.SeverityProgress:
		return "…"
	default:
		return "·"
	}
}
