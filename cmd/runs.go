package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/nyc-design/neil-logger/pkg/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of documents to show",
			Value: storage.DefaultLimit,
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Only show documents of this run",
		},
	}
}

// RunsCommand creates the runs command
func RunsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show the most recent run batches",
		Flags: listFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			return listCollection(ctx, c, func(cfgLog, _ string) string { return cfgLog })
		},
	}
}

// ErrorsCommand creates the errors command
func ErrorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "errors",
		Usage: "Show the most recent error batches and uncaught failures",
		Flags: listFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			return listCollection(ctx, c, func(_, cfgErr string) string { return cfgErr })
		},
	}
}

func listCollection(ctx context.Context, c *cli.Command, pick func(logCollection, errorCollection string) string) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	reader, closeStore, err := openReader(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	collection := pick(cfg.Store.LogCollection, cfg.Store.ErrorCollection)
	entries, err := reader.Recent(ctx, collection, storage.Query{
		RunID: c.String("run-id"),
		Limit: int(c.Int("limit")),
	})
	if err != nil {
		return fmt.Errorf("listing %s: %w", collection, err)
	}
	return renderEntries(os.Stdout, collection, entries, time.Now())
}

// storedRecord and storedDocument decode the fields shared by every document
// kind. Timestamps are taken from storage.Entry because MongoDB renders them
// as extended JSON.
type storedRecord struct {
	Level    string `json:"level"`
	Message  string `json:"message"`
	Function string `json:"function"`
}

type storedDocument struct {
	Logs      []storedRecord `json:"logs"`
	Errors    []storedRecord `json:"errors"`
	ErrorType string         `json:"error_type"`
	Error     string         `json:"error"`
	Script    string         `json:"script"`
}

func renderEntries(w io.Writer, collection string, entries []storage.Entry, now time.Time) error {
	fmt.Fprintln(w, titleStyle.Render(collectionTitle(collection)))
	if len(entries) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No documents found."))
		return nil
	}

	for _, entry := range entries {
		var doc storedDocument
		if err := json.Unmarshal(entry.Body, &doc); err != nil {
			return fmt.Errorf("decoding document %s: %w", entry.ID, err)
		}

		fmt.Fprintf(w, "%s %s\n", headerStyle.Render(entry.RunID),
			metaStyle.Render(formatTime(entry.Timestamp, now)))

		if doc.ErrorType != "" {
			fmt.Fprintf(w, "  %s %s\n", failureStyle.Render("uncaught "+doc.ErrorType+":"), truncate(doc.Error, 100))
			if doc.Script != "" {
				fmt.Fprintf(w, "  %s\n", metaStyle.Render("in "+doc.Script))
			}
			continue
		}

		records := doc.Logs
		if len(records) == 0 {
			records = doc.Errors
		}
		counts := make(map[string]int)
		for _, r := range records {
			counts[r.Level]++
		}
		fmt.Fprintf(w, "  %s\n", levelSummary(counts))
		if len(records) > 0 {
			last := records[len(records)-1]
			fmt.Fprintf(w, "  %s %s\n", metaStyle.Render("last:"), truncate(last.Message, 100))
		}
	}
	return nil
}
