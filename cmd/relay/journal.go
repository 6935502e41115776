package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"pictora-hq/relay/pkg/cli"
	"pictora-hq/relay/pkg/config"
	"pictora-hq/relay/pkg/journal"
)

var journalFlags struct {
	limit  int
	output string
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect and maintain the relay journal",
	Long: `Inspect and maintain the relay journal, the optional record of
generation and payment calls. Only persistent backends (sqlite, postgres)
can be inspected from the command line.`,
}

var journalRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print the most recent journal records",
	Long: `Print the most recent journal records, newest first.

Examples:
  relay journal recent
  relay journal recent --limit 50 --output json`,
	RunE: journalRecent,
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete journal records older than the retention period",
	RunE:  journalPrune,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRecentCmd, journalPruneCmd)

	journalRecentCmd.Flags().IntVarP(&journalFlags.limit, "limit", "n", 20, "maximum number of records")
	journalRecentCmd.Flags().StringVarP(&journalFlags.output, "output", "o", "text", "output format: text, json, yaml")
}

// recordView is the printable form of a journal record.
type recordView struct {
	ID         string `json:"id" yaml:"id"`
	RequestID  string `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Kind       string `json:"kind" yaml:"kind"`
	Provider   string `json:"provider" yaml:"provider"`
	Reference  string `json:"reference,omitempty" yaml:"reference,omitempty"`
	Status     string `json:"status" yaml:"status"`
	HTTPStatus int    `json:"http_status" yaml:"http_status"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
	CreatedAt  string `json:"created_at" yaml:"created_at"`
}

func newRecordView(r journal.Record) recordView {
	return recordView{
		ID:         r.ID,
		RequestID:  r.RequestID,
		Kind:       r.Kind,
		Provider:   r.Provider,
		Reference:  r.Reference,
		Status:     r.Status,
		HTTPStatus: r.HTTPStatus,
		Error:      r.Error,
		DurationMs: r.DurationMs,
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (v recordView) line() string {
	line := fmt.Sprintf("%s  %-10s %-9s %-7s %3d %5dms  %s",
		v.CreatedAt, v.Kind, v.Provider, v.Status, v.HTTPStatus, v.DurationMs, v.Reference)
	if v.Error != "" {
		line += "  error=" + v.Error
	}
	return line
}

// openJournal opens the configured persistent journal store.
func openJournal(cmd *cobra.Command) (journal.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Journal.Backend == "" || cfg.Journal.Backend == "memory" {
		return nil, nil, cli.NewConfigError("journal.backend", "the memory backend cannot be inspected; use sqlite or postgres")
	}

	store, err := journal.Open(cmd.Context(), cfg.Journal)
	if err != nil {
		return nil, nil, cli.NewCommandError(cmd.Name(), err)
	}
	return store, cfg, nil
}

func journalRecent(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(journalFlags.output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}

	store, _, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(cmd.Context(), journalFlags.limit)
	if err != nil {
		return cli.NewCommandError("journal recent", err)
	}

	views := make([]recordView, 0, len(records))
	for _, r := range records {
		views = append(views, newRecordView(r))
	}

	out := cmd.OutOrStdout()
	if format != cli.FormatText {
		return cli.NewFormatter(format).FormatTo(out, views)
	}

	if len(views) == 0 {
		return cli.NewFormatter(format).FormatTo(out, "No journal records found.")
	}
	lines := make([]string, 0, len(views))
	for _, v := range views {
		lines = append(lines, v.line())
	}
	return cli.NewFormatter(format).FormatTo(out, lines)
}

func journalPrune(cmd *cobra.Command, args []string) error {
	store, cfg, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	pruner := journal.NewPruner(store, cfg.Journal.RetentionDays, config.ScheduleOff, slog.Default())
	n, err := pruner.RunOnce(cmd.Context())
	if err != nil {
		return cli.NewCommandError("journal prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d records older than %d days\n", n, cfg.Journal.RetentionDays)
	return nil
}
