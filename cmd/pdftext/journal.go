// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdftext/internal/journal"
	"github.com/pdiddy/pdftext/pkg/types"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent extraction runs",
	Long: `Journal lists runs recorded with extract --journal, newest first:
document, backend, final state, error kind and duration. Transcripts are
not stored. Use --format json or yaml for a machine-readable export.`,
	Args: cobra.NoArgs,
	RunE: runJournal,
}

func init() {
	journalCmd.Flags().Int("limit", 20, "maximum number of runs")
	journalCmd.Flags().String("phase", "", "only runs that ended in this state: succeeded or failed")
	journalCmd.Flags().String("sha256", "", "only runs over the document with this digest")
	journalCmd.Flags().String("format", "table", "output format: table, json, or yaml")

	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	j, err := journal.Open(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	phase, _ := cmd.Flags().GetString("phase")
	digest, _ := cmd.Flags().GetString("sha256")
	format, _ := cmd.Flags().GetString("format")
	opts := journal.QueryOptions{Limit: limit, Phase: phase, SHA256: digest}

	if format != "table" {
		return j.Export(cmd.Context(), cmd.OutOrStdout(), format, opts)
	}

	runs, err := j.Recent(cmd.Context(), opts)
	if err != nil {
		return err
	}
	formatRuns(cmd.OutOrStdout(), runs)
	return nil
}

func formatRuns(w io.Writer, runs []types.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-19s  %-30s  %-9s  %-9s  %-18s  %s\n",
		"Started", "Document", "Backend", "State", "Error", "Duration")
	fmt.Fprintln(w, strings.Repeat("-", 104))

	for _, r := range runs {
		name := r.Document.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		kind := r.ErrorKind
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(w, "%-19s  %-30s  %-9s  %-9s  %-18s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), name, r.Backend, r.Phase, kind, r.Duration)
	}

	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}
